// Package mongo is the document-database record store.
//
// Records keep the numeric id the API exposes in an "id" field next to
// Mongo's own _id. Ids come from a counters collection incremented
// atomically, so they are never reused after a delete.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "finance-tracker-app"

const (
	categoriesColl   = "categories"
	transactionsColl = "transactions"
	budgetsColl      = "budgets"
	usersColl        = "users"
	countersColl     = "counters"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

type (
	categoryDoc struct {
		ID    int64  `bson:"id"`
		Name  string `bson:"name"`
		Color string `bson:"color"`
		Icon  string `bson:"icon"`
	}

	transactionDoc struct {
		ID          int64     `bson:"id"`
		Description string    `bson:"description"`
		Amount      string    `bson:"amount"`
		Date        time.Time `bson:"date"`
		CategoryID  *int64    `bson:"categoryId"`
		Type        string    `bson:"type"`
		CreatedAt   time.Time `bson:"createdAt"`
	}

	budgetDoc struct {
		ID         int64     `bson:"id"`
		CategoryID *int64    `bson:"categoryId"`
		Amount     string    `bson:"amount"`
		Month      int       `bson:"month"`
		Year       int       `bson:"year"`
		CreatedAt  time.Time `bson:"createdAt"`
	}

	userDoc struct {
		ID           int64  `bson:"id"`
		Username     string `bson:"username"`
		PasswordHash string `bson:"passwordHash"`
	}

	counterDoc struct {
		Seq int64 `bson:"seq"`
	}
)

// New connects to uri, ensures indexes and seeds the default categories
// when the categories collection is empty.
func New(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(database),
		now:    time.Now,
		logger: slog.Default().With("component", "storage", "backend", "mongo"),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := s.seedCategories(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.logger.InfoContext(ctx, "Connected to MongoDB", "database", database)
	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func asc(keys ...string) bson.D {
	d := bson.D{}
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: 1})
	}
	return d
}

func (s *Store) createIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		categoriesColl: {
			{Keys: asc("id"), Options: unique},
			{Keys: asc("name"), Options: unique},
		},
		transactionsColl: {
			{Keys: asc("id"), Options: unique},
			{Keys: asc("categoryId")},
			{Keys: bson.D{{Key: "date", Value: -1}}},
			{Keys: asc("type")},
		},
		budgetsColl: {
			{Keys: asc("id"), Options: unique},
			{Keys: asc("categoryId", "month", "year"), Options: unique},
		},
		usersColl: {
			{Keys: asc("id"), Options: unique},
			{Keys: asc("username"), Options: unique},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) seedCategories(ctx context.Context) error {
	coll := s.db.Collection(categoriesColl)
	count, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	defaults := core.DefaultCategories()
	if count == 0 {
		docs := make([]any, 0, len(defaults))
		for _, c := range defaults {
			docs = append(docs, categoryDoc(c))
		}
		// Unordered so a concurrent starter racing us only loses duplicates.
		_, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("seed categories: %w", err)
		}
		s.logger.InfoContext(ctx, "Default categories initialized", "count", len(docs))
	}
	var maxID int64
	for _, c := range defaults {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	_, err = s.db.Collection(countersColl).UpdateOne(ctx,
		bson.M{"_id": categoriesColl},
		bson.M{"$max": bson.M{"seq": maxID}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("seed category counter: %w", err)
	}
	return nil
}

func (s *Store) nextID(ctx context.Context, coll string) (int64, error) {
	var c counterDoc
	err := s.db.Collection(countersColl).FindOneAndUpdate(ctx,
		bson.M{"_id": coll},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", coll, err)
	}
	return c.Seq, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, sort bson.D) ([]T, error) {
	cur, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func findByID[T any](ctx context.Context, coll *mongo.Collection, id int64) (T, error) {
	var doc T
	err := coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, core.ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("find %s %d: %w", coll.Name(), id, err)
	}
	return doc, nil
}

// Categories

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	docs, err := findAll[categoryDoc](ctx, s.db.Collection(categoriesColl), bson.D{}, asc("id"))
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Category(d))
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	d, err := findByID[categoryDoc](ctx, s.db.Collection(categoriesColl), id)
	return core.Category(d), err
}

func (s *Store) CreateCategory(ctx context.Context, in core.NewCategory) (core.Category, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.db.Collection(categoriesColl).FindOne(ctx, bson.M{"name": name}).Err(); err == nil {
		return core.Category{}, core.ErrConflict
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return core.Category{}, fmt.Errorf("check category name: %w", err)
	}
	id, err := s.nextID(ctx, categoriesColl)
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{ID: id, Name: name, Color: in.Color, Icon: in.Icon}
	if _, err := s.db.Collection(categoriesColl).InsertOne(ctx, categoryDoc(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.Category{}, core.ErrConflict
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// Transactions

func (d transactionDoc) toCore() (core.Transaction, error) {
	amount, err := core.ParseMoney(d.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d amount: %w", d.ID, err)
	}
	return core.Transaction{
		ID:          d.ID,
		Description: d.Description,
		Amount:      amount,
		Date:        d.Date.UTC(),
		CategoryID:  d.CategoryID,
		Type:        core.TransactionType(d.Type),
		CreatedAt:   d.CreatedAt.UTC(),
	}, nil
}

var transactionSort = bson.D{{Key: "date", Value: -1}, {Key: "id", Value: -1}}

func (s *Store) queryTransactions(ctx context.Context, filter any) ([]core.TransactionWithCategory, error) {
	docs, err := findAll[transactionDoc](ctx, s.db.Collection(transactionsColl), filter, transactionSort)
	if err != nil {
		return nil, err
	}
	txs := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		t, err := d.toCore()
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return core.JoinTransactions(txs, cats), nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.TransactionWithCategory, error) {
	return s.queryTransactions(ctx, bson.D{})
}

func (s *Store) ListTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]core.TransactionWithCategory, error) {
	return s.queryTransactions(ctx, bson.M{"date": bson.M{"$gte": start.UTC(), "$lte": end.UTC()}})
}

func (s *Store) ListTransactionsByCategory(ctx context.Context, categoryID int64) ([]core.TransactionWithCategory, error) {
	return s.queryTransactions(ctx, bson.M{"categoryId": categoryID})
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.TransactionWithCategory, error) {
	d, err := findByID[transactionDoc](ctx, s.db.Collection(transactionsColl), id)
	if err != nil {
		return core.TransactionWithCategory{}, err
	}
	t, err := d.toCore()
	if err != nil {
		return core.TransactionWithCategory{}, err
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return core.TransactionWithCategory{}, err
	}
	return core.JoinTransactions([]core.Transaction{t}, cats)[0], nil
}

func (s *Store) CreateTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	id, err := s.nextID(ctx, transactionsColl)
	if err != nil {
		return core.Transaction{}, err
	}
	doc := transactionDoc{
		ID:          id,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount.String(),
		Date:        store.Timestamp(in.Date),
		CategoryID:  in.CategoryID,
		Type:        string(in.Type),
		CreatedAt:   store.Timestamp(s.now()),
	}
	if _, err := s.db.Collection(transactionsColl).InsertOne(ctx, doc); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return doc.toCore()
}

func (s *Store) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	set := bson.M{}
	if patch.Description != nil {
		set["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Amount != nil {
		set["amount"] = patch.Amount.String()
	}
	if patch.Date != nil {
		set["date"] = store.Timestamp(*patch.Date)
	}
	if patch.CategoryID != nil {
		set["categoryId"] = *patch.CategoryID
	}
	if patch.Type != nil {
		set["type"] = string(*patch.Type)
	}
	var d transactionDoc
	if err := s.findAndSet(ctx, transactionsColl, id, set, &d); err != nil {
		return core.Transaction{}, err
	}
	return d.toCore()
}

// findAndSet applies set to the record with id atomically and decodes the
// updated document into out. An empty set only reads the record.
func (s *Store) findAndSet(ctx context.Context, coll string, id int64, set bson.M, out any) error {
	c := s.db.Collection(coll)
	var res *mongo.SingleResult
	if len(set) == 0 {
		res = c.FindOne(ctx, bson.M{"id": id})
	} else {
		res = c.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
	}
	err := res.Decode(out)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return core.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return core.ErrConflict
	case err != nil:
		return fmt.Errorf("update %s %d: %w", coll, id, err)
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, coll string, id int64) (bool, error) {
	res, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete %s %d: %w", coll, id, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	return s.deleteByID(ctx, transactionsColl, id)
}

// Budgets

func (d budgetDoc) toCore() (core.Budget, error) {
	amount, err := core.ParseMoney(d.Amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d amount: %w", d.ID, err)
	}
	return core.Budget{
		ID:         d.ID,
		CategoryID: d.CategoryID,
		Amount:     amount,
		Month:      d.Month,
		Year:       d.Year,
		CreatedAt:  d.CreatedAt.UTC(),
	}, nil
}

var budgetSort = bson.D{{Key: "year", Value: -1}, {Key: "month", Value: -1}, {Key: "id", Value: 1}}

func (s *Store) ListBudgets(ctx context.Context) ([]core.BudgetWithCategory, error) {
	docs, err := findAll[budgetDoc](ctx, s.db.Collection(budgetsColl), bson.D{}, budgetSort)
	if err != nil {
		return nil, err
	}
	budgets := make([]core.Budget, 0, len(docs))
	for _, d := range docs {
		b, err := d.toCore()
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return core.JoinBudgets(budgets, cats), nil
}

func (s *Store) GetBudget(ctx context.Context, id int64) (core.BudgetWithCategory, error) {
	d, err := findByID[budgetDoc](ctx, s.db.Collection(budgetsColl), id)
	if err != nil {
		return core.BudgetWithCategory{}, err
	}
	b, err := d.toCore()
	if err != nil {
		return core.BudgetWithCategory{}, err
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return core.BudgetWithCategory{}, err
	}
	return core.JoinBudgets([]core.Budget{b}, cats)[0], nil
}

func (s *Store) FindBudget(ctx context.Context, categoryID int64, month, year int) (core.Budget, error) {
	var d budgetDoc
	err := s.db.Collection(budgetsColl).FindOne(ctx, bson.M{"categoryId": categoryID, "month": month, "year": year}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget: %w", err)
	}
	return d.toCore()
}

func (s *Store) CreateBudget(ctx context.Context, in core.NewBudget) (core.Budget, error) {
	id, err := s.nextID(ctx, budgetsColl)
	if err != nil {
		return core.Budget{}, err
	}
	doc := budgetDoc{
		ID:         id,
		CategoryID: in.CategoryID,
		Amount:     in.Amount.String(),
		Month:      in.Month,
		Year:       in.Year,
		CreatedAt:  store.Timestamp(s.now()),
	}
	if _, err := s.db.Collection(budgetsColl).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.Budget{}, core.ErrConflict
		}
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	return doc.toCore()
}

func (s *Store) UpdateBudget(ctx context.Context, id int64, patch core.BudgetPatch) (core.Budget, error) {
	set := bson.M{}
	if patch.CategoryID != nil {
		set["categoryId"] = *patch.CategoryID
	}
	if patch.Amount != nil {
		set["amount"] = patch.Amount.String()
	}
	if patch.Month != nil {
		set["month"] = *patch.Month
	}
	if patch.Year != nil {
		set["year"] = *patch.Year
	}
	var d budgetDoc
	if err := s.findAndSet(ctx, budgetsColl, id, set, &d); err != nil {
		return core.Budget{}, err
	}
	return d.toCore()
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) (bool, error) {
	return s.deleteByID(ctx, budgetsColl, id)
}

// Users

func (s *Store) GetUser(ctx context.Context, id int64) (core.User, error) {
	d, err := findByID[userDoc](ctx, s.db.Collection(usersColl), id)
	return core.User(d), err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var d userDoc
	err := s.db.Collection(usersColl).FindOne(ctx, bson.M{"username": username}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	return core.User(d), nil
}

func (s *Store) CreateUser(ctx context.Context, in core.NewUser) (core.User, error) {
	id, err := s.nextID(ctx, usersColl)
	if err != nil {
		return core.User{}, err
	}
	d := userDoc{ID: id, Username: strings.TrimSpace(in.Username), PasswordHash: in.PasswordHash}
	if _, err := s.db.Collection(usersColl).InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.User{}, core.ErrConflict
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return core.User(d), nil
}

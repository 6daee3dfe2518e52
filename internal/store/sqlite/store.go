// Package sqlite is the relational record store. Amounts are kept as exact
// decimal text and timestamps as fixed-width UTC strings so that SQL
// ordering and range filters match time ordering.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	modernc "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// DSN builds the connection string used for both the store and its migrations.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection serializes id assignment.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return store.Timestamp(t).Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se *modernc.Error
	if errors.As(err, &se) {
		return se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// Categories

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color, icon FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := s.db.QueryRowContext(ctx, `SELECT id, name, color, icon FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Color, &c.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, in core.NewCategory) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(in.Name), Color: in.Color, Icon: in.Icon}
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories (name, color, icon) VALUES (?, ?, ?)`, c.Name, c.Color, c.Icon)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrConflict
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	slog.InfoContext(ctx, "Category saved to SQLite", "id", c.ID, "name", c.Name)
	return c, nil
}

// Transactions

const transactionColumns = `id, description, amount, date, category_id, type, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanTransaction(r rowScanner) (core.Transaction, error) {
	var (
		t               core.Transaction
		date, createdAt string
		categoryID      sql.NullInt64
		typ             string
	)
	if err := r.Scan(&t.ID, &t.Description, &t.Amount, &date, &categoryID, &typ, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	var err error
	if t.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	t.CategoryID = idPtr(categoryID)
	t.Type = core.TransactionType(typ)
	return t, nil
}

func (s *Store) queryTransactions(ctx context.Context, where string, args ...any) ([]core.TransactionWithCategory, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY date DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	rows.Close()

	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return core.JoinTransactions(txs, cats), nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.TransactionWithCategory, error) {
	return s.queryTransactions(ctx, "")
}

func (s *Store) ListTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]core.TransactionWithCategory, error) {
	return s.queryTransactions(ctx, `date >= ? AND date <= ?`, formatTime(start), formatTime(end))
}

func (s *Store) ListTransactionsByCategory(ctx context.Context, categoryID int64) ([]core.TransactionWithCategory, error) {
	return s.queryTransactions(ctx, `category_id = ?`, categoryID)
}

func (s *Store) getTransaction(ctx context.Context, q queryRower, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.TransactionWithCategory, error) {
	t, err := s.getTransaction(ctx, s.db, id)
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
	t := core.Transaction{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Date:        store.Timestamp(in.Date),
		CategoryID:  in.CategoryID,
		Type:        in.Type,
		CreatedAt:   store.Timestamp(s.now()),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (description, amount, date, category_id, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Description, t.Amount, formatTime(t.Date), nullableID(t.CategoryID), string(t.Type), formatTime(t.CreatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"description", t.Description,
		"amount", t.Amount.String(),
		"type", t.Type)

	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getTransaction(ctx, tx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	t := patch.Apply(current)
	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET description = ?, amount = ?, date = ?, category_id = ?, type = ? WHERE id = ?`,
		t.Description, t.Amount, formatTime(t.Date), nullableID(t.CategoryID), string(t.Type), id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}
	t.Date = store.Timestamp(t.Date)
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Budgets

const budgetColumns = `id, category_id, amount, month, year, created_at`

func scanBudget(r rowScanner) (core.Budget, error) {
	var (
		b          core.Budget
		categoryID sql.NullInt64
		createdAt  string
	)
	if err := r.Scan(&b.ID, &categoryID, &b.Amount, &b.Month, &b.Year, &createdAt); err != nil {
		return core.Budget{}, err
	}
	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Budget{}, err
	}
	b.CategoryID = idPtr(categoryID)
	return b, nil
}

func (s *Store) ListBudgets(ctx context.Context) ([]core.BudgetWithCategory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY year DESC, month DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	rows.Close()

	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return core.JoinBudgets(budgets, cats), nil
}

func (s *Store) getBudget(ctx context.Context, q queryRower, id int64) (core.Budget, error) {
	b, err := scanBudget(q.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func (s *Store) GetBudget(ctx context.Context, id int64) (core.BudgetWithCategory, error) {
	b, err := s.getBudget(ctx, s.db, id)
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
	b, err := scanBudget(s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE category_id = ? AND month = ? AND year = ?`,
		categoryID, month, year))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget: %w", err)
	}
	return b, nil
}

func (s *Store) CreateBudget(ctx context.Context, in core.NewBudget) (core.Budget, error) {
	b := core.Budget{
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Month:      in.Month,
		Year:       in.Year,
		CreatedAt:  store.Timestamp(s.now()),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, amount, month, year, created_at) VALUES (?, ?, ?, ?, ?)`,
		nullableID(b.CategoryID), b.Amount, b.Month, b.Year, formatTime(b.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, core.ErrConflict
		}
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBudget(ctx context.Context, id int64, patch core.BudgetPatch) (core.Budget, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Budget{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getBudget(ctx, tx, id)
	if err != nil {
		return core.Budget{}, err
	}
	b := patch.Apply(current)
	_, err = tx.ExecContext(ctx,
		`UPDATE budgets SET category_id = ?, amount = ?, month = ?, year = ? WHERE id = ?`,
		nullableID(b.CategoryID), b.Amount, b.Month, b.Year, id)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, core.ErrConflict
		}
		return core.Budget{}, fmt.Errorf("update budget %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Budget{}, fmt.Errorf("commit: %w", err)
	}
	return b, nil
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete budget %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Users

func (s *Store) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return s.getUser(ctx, `username = ?`, username)
}

func (s *Store) CreateUser(ctx context.Context, in core.NewUser) (core.User, error) {
	u := core.User{Username: strings.TrimSpace(in.Username), PasswordHash: in.PasswordHash}
	res, err := s.db.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES (?, ?)`, u.Username, u.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrConflict
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}
	return u, nil
}

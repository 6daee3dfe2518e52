package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) recordWritten(r *http.Request, op, entity string, id int64) {
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordWritten(r.Context(), op, entity, id)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err, errorMessages{failed: "Failed to fetch categories"}, log.OpList)
		return
	}
	OK(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in core.NewCategory
	if err := DecodeJSONBody(w, r, &in); err != nil {
		respondError(w, r, err, categoryCreateMsgs, log.OpParse)
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, r, err, categoryCreateMsgs, log.OpValidate)
		return
	}

	cat, err := s.store.CreateCategory(r.Context(), in)
	if err != nil {
		respondError(w, r, err, categoryCreateMsgs, log.OpCreate)
		return
	}
	s.recordWritten(r, log.OpCreate, "category", cat.ID)
	Created(cat).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		respondError(w, r, err, errorMessages{invalid: "Invalid query parameters"}, log.OpParse)
		return
	}

	var txs []core.TransactionWithCategory
	switch {
	case filter.Start != nil:
		txs, err = s.store.ListTransactionsByDateRange(r.Context(), *filter.Start, *filter.End)
	case filter.CategoryID != nil:
		txs, err = s.store.ListTransactionsByCategory(r.Context(), *filter.CategoryID)
	default:
		txs, err = s.store.ListTransactions(r.Context())
	}
	if err != nil {
		respondError(w, r, err, errorMessages{failed: "Failed to fetch transactions"}, log.OpList)
		return
	}
	if txs == nil {
		txs = []core.TransactionWithCategory{}
	}
	OK(txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(transactionGetMsgs.notFound).Write(w)
		return
	}
	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, r, err, transactionGetMsgs, log.OpRead)
		return
	}
	OK(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, err, transactionCreateMsgs, log.OpParse)
		return
	}
	in, err := req.ToNew()
	if err != nil {
		respondError(w, r, err, transactionCreateMsgs, log.OpValidate)
		return
	}

	tx, err := s.store.CreateTransaction(r.Context(), in)
	if err != nil {
		respondError(w, r, err, transactionCreateMsgs, log.OpCreate)
		return
	}
	s.recordWritten(r, log.OpCreate, "transaction", tx.ID)
	Created(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(transactionUpdateMsgs.notFound).Write(w)
		return
	}
	var req transactionRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, err, transactionUpdateMsgs, log.OpParse)
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		respondError(w, r, err, transactionUpdateMsgs, log.OpValidate)
		return
	}

	tx, err := s.store.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		respondError(w, r, err, transactionUpdateMsgs, log.OpUpdate)
		return
	}
	s.recordWritten(r, log.OpUpdate, "transaction", tx.ID)
	OK(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(transactionDeleteMsgs.notFound).Write(w)
		return
	}
	deleted, err := s.store.DeleteTransaction(r.Context(), id)
	if err != nil {
		respondError(w, r, err, transactionDeleteMsgs, log.OpDelete)
		return
	}
	if !deleted {
		NotFoundError(transactionDeleteMsgs.notFound).Write(w)
		return
	}
	s.recordWritten(r, log.OpDelete, "transaction", id)
	NoContent().Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context())
	if err != nil {
		respondError(w, r, err, errorMessages{failed: "Failed to fetch budgets"}, log.OpList)
		return
	}
	if budgets == nil {
		budgets = []core.BudgetWithCategory{}
	}
	OK(budgets).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(budgetGetMsgs.notFound).Write(w)
		return
	}
	b, err := s.store.GetBudget(r.Context(), id)
	if err != nil {
		respondError(w, r, err, budgetGetMsgs, log.OpRead)
		return
	}
	OK(b).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, err, budgetCreateMsgs, log.OpParse)
		return
	}
	in, err := req.ToNew()
	if err != nil {
		respondError(w, r, err, budgetCreateMsgs, log.OpValidate)
		return
	}

	b, err := s.store.CreateBudget(r.Context(), in)
	if err != nil {
		respondError(w, r, err, budgetCreateMsgs, log.OpCreate)
		return
	}
	s.recordWritten(r, log.OpCreate, "budget", b.ID)
	Created(b).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(budgetUpdateMsgs.notFound).Write(w)
		return
	}
	var req budgetRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, err, budgetUpdateMsgs, log.OpParse)
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		respondError(w, r, err, budgetUpdateMsgs, log.OpValidate)
		return
	}

	b, err := s.store.UpdateBudget(r.Context(), id, patch)
	if err != nil {
		respondError(w, r, err, budgetUpdateMsgs, log.OpUpdate)
		return
	}
	s.recordWritten(r, log.OpUpdate, "budget", b.ID)
	OK(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(budgetDeleteMsgs.notFound).Write(w)
		return
	}
	deleted, err := s.store.DeleteBudget(r.Context(), id)
	if err != nil {
		respondError(w, r, err, budgetDeleteMsgs, log.OpDelete)
		return
	}
	if !deleted {
		NotFoundError(budgetDeleteMsgs.notFound).Write(w)
		return
	}
	s.recordWritten(r, log.OpDelete, "budget", id)
	NoContent().Write(w)
}

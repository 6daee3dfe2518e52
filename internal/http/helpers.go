package http

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// errorMessages holds the client-facing message for each failure class of
// one operation.
type errorMessages struct {
	invalid  string
	notFound string
	conflict string
	failed   string
}

var (
	categoryCreateMsgs = errorMessages{
		invalid:  "Invalid category data",
		conflict: "Category already exists",
		failed:   "Failed to create category",
	}
	transactionGetMsgs = errorMessages{
		notFound: "Transaction not found",
		failed:   "Failed to fetch transaction",
	}
	transactionCreateMsgs = errorMessages{
		invalid: "Invalid transaction data",
		failed:  "Failed to create transaction",
	}
	transactionUpdateMsgs = errorMessages{
		invalid:  "Invalid transaction data",
		notFound: "Transaction not found",
		failed:   "Failed to update transaction",
	}
	transactionDeleteMsgs = errorMessages{
		notFound: "Transaction not found",
		failed:   "Failed to delete transaction",
	}
	budgetGetMsgs = errorMessages{
		notFound: "Budget not found",
		failed:   "Failed to fetch budget",
	}
	budgetCreateMsgs = errorMessages{
		invalid:  "Invalid budget data",
		conflict: "A budget for this category and period already exists",
		failed:   "Failed to create budget",
	}
	budgetUpdateMsgs = errorMessages{
		invalid:  "Invalid budget data",
		notFound: "Budget not found",
		conflict: "A budget for this category and period already exists",
		failed:   "Failed to update budget",
	}
	budgetDeleteMsgs = errorMessages{
		notFound: "Budget not found",
		failed:   "Failed to delete budget",
	}
)

// respondError maps err onto the API's status codes. Validation errors
// become 400 with details, ErrNotFound 404, ErrConflict 409. Anything else is
// logged and answered with a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, err error, msgs errorMessages, op string) {
	if ve, ok := core.IsValidation(err); ok && msgs.invalid != "" {
		ValidationErrorResponse(msgs.invalid, ve.Fields).Write(w)
		return
	}
	if errors.Is(err, core.ErrNotFound) && msgs.notFound != "" {
		NotFoundError(msgs.notFound).Write(w)
		return
	}
	if errors.Is(err, core.ErrConflict) && msgs.conflict != "" {
		ConflictError(msgs.conflict).Write(w)
		return
	}

	sl := log.NewStructuredLogger(log.FromContext(r.Context()))
	sl.LogError(r.Context(), msgs.failed, err, log.ComponentStorage, op,
		log.NewFields().WithErrorType(log.ErrorTypeDatabase))
	InternalServerError(msgs.failed).Write(w)
}

// pathID extracts the {id} route variable.
func pathID(r *http.Request) (int64, bool) {
	return ParseID(mux.Vars(r)["id"])
}

// Package http provides the REST API, the dashboard page and their middleware.
//
// This file implements decoding and validation of request bodies and query
// strings. Every payload is fully validated here so that invalid input never
// reaches the record store.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// DecodeJSONBody reads r's body into dst. Syntax and type errors are
// returned as a *core.ValidationError naming the offending field.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	v := &core.ValidationError{}
	err := dec.Decode(dst)
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case err == nil:
		if _, err := dec.Token(); err != io.EOF {
			v.Add("body", "body must contain a single JSON object")
		}
	case errors.Is(err, io.EOF):
		v.Add("body", "body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		v.Add("body", "malformed JSON")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		v.Add(field, fmt.Sprintf("expected %s", typeErr.Type))
	case errors.As(err, &tooLarge):
		v.Add("body", "body is too large")
	default:
		return err
	}
	return v.Err()
}

// transactionRequest is the wire form of a transaction create or update.
// Amount and date stay raw so their parse errors are reported per field.
type transactionRequest struct {
	Description *string         `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Date        json.RawMessage `json:"date"`
	CategoryID  *int64          `json:"categoryId"`
	Type        *string         `json:"type"`
}

// budgetRequest is the wire form of a budget create or update.
type budgetRequest struct {
	CategoryID *int64          `json:"categoryId"`
	Amount     json.RawMessage `json:"amount"`
	Month      *int            `json:"month"`
	Year       *int            `json:"year"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && strings.TrimSpace(string(raw)) != "null"
}

func parseAmount(v *core.ValidationError, raw json.RawMessage) *core.Money {
	var m core.Money
	if err := m.UnmarshalJSON(raw); err != nil {
		if errors.Is(err, core.ErrAmountTooLarge) {
			v.Add("amount", core.AmountTooLargeMessage)
		} else {
			v.Add("amount", "amount must be a decimal number")
		}
		return nil
	}
	return &m
}

func parseDateField(v *core.ValidationError, raw json.RawMessage) *time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		v.Add("date", "date must be a string")
		return nil
	}
	t, _, err := core.ParseDate(s)
	if err != nil {
		v.Add("date", "date must be YYYY-MM-DD or RFC 3339")
		return nil
	}
	return &t
}

// ToNew converts a create request, reporting missing and malformed fields
// together with the domain validation errors.
func (req transactionRequest) ToNew() (core.NewTransaction, error) {
	v := &core.ValidationError{}
	var in core.NewTransaction

	if req.Description != nil {
		in.Description = strings.TrimSpace(*req.Description)
	}
	if present(req.Amount) {
		if m := parseAmount(v, req.Amount); m != nil {
			in.Amount = *m
		}
	} else {
		v.Add("amount", "amount is required")
	}
	if present(req.Date) {
		if t := parseDateField(v, req.Date); t != nil {
			in.Date = *t
		}
	}
	in.CategoryID = req.CategoryID
	if req.Type != nil {
		in.Type = core.TransactionType(*req.Type)
	}

	if err := in.Validate(); err != nil {
		if ve, ok := core.IsValidation(err); ok {
			for _, f := range ve.Fields {
				if f.Field == "amount" && hasField(v, "amount") {
					continue
				}
				if f.Field == "date" && hasField(v, "date") {
					continue
				}
				v.Add(f.Field, f.Message)
			}
		}
	}
	return in, v.Err()
}

// ToPatch converts an update request. Absent or null fields are left
// untouched.
func (req transactionRequest) ToPatch() (core.TransactionPatch, error) {
	v := &core.ValidationError{}
	var p core.TransactionPatch

	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		p.Description = &d
	}
	if present(req.Amount) {
		p.Amount = parseAmount(v, req.Amount)
	}
	if present(req.Date) {
		p.Date = parseDateField(v, req.Date)
	}
	p.CategoryID = req.CategoryID
	if req.Type != nil {
		t := core.TransactionType(*req.Type)
		p.Type = &t
	}

	if err := p.Validate(); err != nil {
		if ve, ok := core.IsValidation(err); ok {
			v.Fields = append(v.Fields, ve.Fields...)
		}
	}
	return p, v.Err()
}

// ToNew converts a budget create request.
func (req budgetRequest) ToNew() (core.NewBudget, error) {
	v := &core.ValidationError{}
	in := core.NewBudget{CategoryID: req.CategoryID}

	amountOK := true
	if present(req.Amount) {
		if m := parseAmount(v, req.Amount); m != nil {
			in.Amount = *m
		} else {
			amountOK = false
		}
	} else {
		v.Add("amount", "amount is required")
		amountOK = false
	}
	if req.Month != nil {
		in.Month = *req.Month
	}
	if req.Year != nil {
		in.Year = *req.Year
	}

	if err := in.Validate(); err != nil {
		if ve, ok := core.IsValidation(err); ok {
			for _, f := range ve.Fields {
				if f.Field == "amount" && !amountOK {
					continue
				}
				v.Add(f.Field, f.Message)
			}
		}
	}
	return in, v.Err()
}

// ToPatch converts a budget update request.
func (req budgetRequest) ToPatch() (core.BudgetPatch, error) {
	v := &core.ValidationError{}
	p := core.BudgetPatch{
		CategoryID: req.CategoryID,
		Month:      req.Month,
		Year:       req.Year,
	}
	if present(req.Amount) {
		p.Amount = parseAmount(v, req.Amount)
	}

	if err := p.Validate(); err != nil {
		if ve, ok := core.IsValidation(err); ok {
			v.Fields = append(v.Fields, ve.Fields...)
		}
	}
	return p, v.Err()
}

func hasField(v *core.ValidationError, field string) bool {
	for _, f := range v.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// TransactionFilter selects which transactions a list request returns.
type TransactionFilter struct {
	Start, End *time.Time
	CategoryID *int64
}

// ParseTransactionFilter reads startDate/endDate or categoryId. A date range
// needs both bounds and takes precedence over the category; a lone bound is
// ignored. A calendar-date endDate covers the whole day.
func ParseTransactionFilter(query url.Values) (TransactionFilter, error) {
	v := &core.ValidationError{}
	var f TransactionFilter

	startRaw := strings.TrimSpace(query.Get("startDate"))
	endRaw := strings.TrimSpace(query.Get("endDate"))
	if startRaw != "" && endRaw != "" {
		start, _, err := core.ParseDate(startRaw)
		if err != nil {
			v.Add("startDate", "startDate must be YYYY-MM-DD or RFC 3339")
		}
		end, dateOnly, err := core.ParseDate(endRaw)
		if err != nil {
			v.Add("endDate", "endDate must be YYYY-MM-DD or RFC 3339")
		} else if dateOnly {
			end = core.EndOfDay(end)
		}
		if err := v.Err(); err != nil {
			return TransactionFilter{}, err
		}
		if start.After(end) {
			v.Add("startDate", "startDate must not be after endDate")
			return TransactionFilter{}, v.Err()
		}
		f.Start, f.End = &start, &end
		return f, nil
	}

	if raw := strings.TrimSpace(query.Get("categoryId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			v.Add("categoryId", "categoryId must be a positive integer")
			return TransactionFilter{}, v.Err()
		}
		f.CategoryID = &id
	}
	return f, nil
}

// ParseYear reads the optional year query parameter, defaulting to fallback.
func ParseYear(query url.Values, fallback int) (int, error) {
	raw := strings.TrimSpace(query.Get("year"))
	if raw == "" {
		return fallback, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < core.MinBudgetYear || year > core.MaxBudgetYear {
		v := &core.ValidationError{}
		v.Add("year", "year must have four digits")
		return 0, v.Err()
	}
	return year, nil
}

// ParseID converts a path id. Routes only match digits, so failure means
// overflow or zero.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

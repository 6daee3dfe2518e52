package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func fieldNames(t *testing.T, err error) map[string]string {
	t.Helper()
	ve, ok := core.IsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	out := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		if _, dup := out[f.Field]; dup {
			t.Errorf("field %q reported twice", f.Field)
		}
		out[f.Field] = f.Message
	}
	return out
}

func decode(t *testing.T, body string, dst any) error {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	return DecodeJSONBody(w, r, dst)
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"empty body", "", "body"},
		{"malformed", `{"description":`, "body"},
		{"syntax error", `{"description" "x"}`, "body"},
		{"wrong type", `{"categoryId":"three"}`, "categoryId"},
		{"trailing data", `{"description":"a"} {"description":"b"}`, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req transactionRequest
			err := decode(t, tt.body, &req)
			fields := fieldNames(t, err)
			if _, ok := fields[tt.wantField]; !ok {
				t.Errorf("fields = %v, want %q", fields, tt.wantField)
			}
		})
	}

	t.Run("valid", func(t *testing.T) {
		var req transactionRequest
		if err := decode(t, `{"description":"Coffee","amount":"3.50"}`, &req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Description == nil || *req.Description != "Coffee" {
			t.Errorf("description = %v", req.Description)
		}
	})

	t.Run("too large", func(t *testing.T) {
		var req transactionRequest
		body := `{"description":"` + strings.Repeat("x", maxBodyBytes) + `"}`
		fields := fieldNames(t, decode(t, body, &req))
		if fields["body"] != "body is too large" {
			t.Errorf("body message = %q", fields["body"])
		}
	})
}

func TestTransactionRequest_ToNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var req transactionRequest
		body := `{"description":"  Groceries ","amount":42.5,"date":"2025-03-14","categoryId":1,"type":"expense"}`
		if err := decode(t, body, &req); err != nil {
			t.Fatal(err)
		}
		in, err := req.ToNew()
		if err != nil {
			t.Fatalf("ToNew: %v", err)
		}
		if in.Description != "Groceries" {
			t.Errorf("description = %q", in.Description)
		}
		if in.Amount.String() != "42.50" {
			t.Errorf("amount = %s", in.Amount)
		}
		if !in.Date.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("date = %v", in.Date)
		}
		if in.CategoryID == nil || *in.CategoryID != 1 {
			t.Errorf("categoryId = %v", in.CategoryID)
		}
	})

	t.Run("reports every problem once", func(t *testing.T) {
		var req transactionRequest
		if err := decode(t, `{"description":"","amount":"abc","date":"14/03/2025","type":"gift"}`, &req); err != nil {
			t.Fatal(err)
		}
		_, err := req.ToNew()
		fields := fieldNames(t, err)
		for _, f := range []string{"description", "amount", "date", "type"} {
			if _, ok := fields[f]; !ok {
				t.Errorf("missing %q in %v", f, fields)
			}
		}
		if fields["amount"] != "amount must be a decimal number" {
			t.Errorf("amount message = %q", fields["amount"])
		}
	})

	t.Run("missing amount and date", func(t *testing.T) {
		var req transactionRequest
		if err := decode(t, `{"description":"Rent","type":"expense"}`, &req); err != nil {
			t.Fatal(err)
		}
		_, err := req.ToNew()
		fields := fieldNames(t, err)
		if fields["amount"] != "amount is required" {
			t.Errorf("amount message = %q", fields["amount"])
		}
		if fields["date"] != "date is required" {
			t.Errorf("date message = %q", fields["date"])
		}
	})

	t.Run("amount below minimum", func(t *testing.T) {
		var req transactionRequest
		if err := decode(t, `{"description":"Rent","amount":"0","date":"2025-03-01","type":"expense"}`, &req); err != nil {
			t.Fatal(err)
		}
		_, err := req.ToNew()
		fields := fieldNames(t, err)
		if fields["amount"] != "amount must be at least 0.01" {
			t.Errorf("amount message = %q", fields["amount"])
		}
	})

	t.Run("exponent amounts rejected", func(t *testing.T) {
		for _, amount := range []string{`1e2000000`, `"1e5"`, `"3E2"`} {
			var req transactionRequest
			body := `{"description":"Rent","amount":` + amount + `,"date":"2025-03-01","type":"expense"}`
			if err := decode(t, body, &req); err != nil {
				t.Fatal(err)
			}
			_, err := req.ToNew()
			if got := fieldNames(t, err)["amount"]; got != "amount must be a decimal number" {
				t.Errorf("amount %s message = %q", amount, got)
			}
		}
	})

	t.Run("amount above maximum", func(t *testing.T) {
		for _, amount := range []string{`"1000000000000"`, `999999999999.999`} {
			var req transactionRequest
			body := `{"description":"Rent","amount":` + amount + `,"date":"2025-03-01","type":"expense"}`
			if err := decode(t, body, &req); err != nil {
				t.Fatal(err)
			}
			_, err := req.ToNew()
			if got := fieldNames(t, err)["amount"]; got != core.AmountTooLargeMessage {
				t.Errorf("amount %s message = %q", amount, got)
			}
		}

		var req transactionRequest
		if err := decode(t, `{"description":"Rent","amount":"999999999999.99","date":"2025-03-01","type":"expense"}`, &req); err != nil {
			t.Fatal(err)
		}
		if _, err := req.ToNew(); err != nil {
			t.Errorf("maximum amount rejected: %v", err)
		}
	})

	t.Run("description too long", func(t *testing.T) {
		var req transactionRequest
		body := `{"description":"` + strings.Repeat("a", core.MaxDescriptionLength+1) + `","amount":"1","date":"2025-03-01","type":"income"}`
		if err := decode(t, body, &req); err != nil {
			t.Fatal(err)
		}
		_, err := req.ToNew()
		if _, ok := fieldNames(t, err)["description"]; !ok {
			t.Error("expected description error")
		}
	})
}

func TestTransactionRequest_ToPatch(t *testing.T) {
	var req transactionRequest
	if err := decode(t, `{"amount":"10.10","categoryId":null}`, &req); err != nil {
		t.Fatal(err)
	}
	p, err := req.ToPatch()
	if err != nil {
		t.Fatalf("ToPatch: %v", err)
	}
	if p.Amount == nil || p.Amount.String() != "10.10" {
		t.Errorf("amount = %v", p.Amount)
	}
	if p.Description != nil || p.Date != nil || p.CategoryID != nil || p.Type != nil {
		t.Errorf("unexpected fields set: %+v", p)
	}

	var bad transactionRequest
	if err := decode(t, `{"type":"transfer","description":"   "}`, &bad); err != nil {
		t.Fatal(err)
	}
	_, err = bad.ToPatch()
	fields := fieldNames(t, err)
	if _, ok := fields["type"]; !ok {
		t.Errorf("missing type error: %v", fields)
	}
	if _, ok := fields["description"]; !ok {
		t.Errorf("missing description error: %v", fields)
	}
}

func TestBudgetRequest(t *testing.T) {
	t.Run("valid create", func(t *testing.T) {
		var req budgetRequest
		if err := decode(t, `{"categoryId":1,"amount":"500","month":3,"year":2025}`, &req); err != nil {
			t.Fatal(err)
		}
		in, err := req.ToNew()
		if err != nil {
			t.Fatalf("ToNew: %v", err)
		}
		if in.Month != 3 || in.Year != 2025 || in.Amount.String() != "500.00" {
			t.Errorf("budget = %+v", in)
		}
	})

	t.Run("invalid create", func(t *testing.T) {
		var req budgetRequest
		if err := decode(t, `{"month":13,"year":25}`, &req); err != nil {
			t.Fatal(err)
		}
		_, err := req.ToNew()
		fields := fieldNames(t, err)
		want := map[string]string{
			"categoryId": "categoryId is required",
			"amount":     "amount is required",
			"month":      "month must be between 1 and 12",
			"year":       "year must have four digits",
		}
		for k, v := range want {
			if fields[k] != v {
				t.Errorf("%s = %q, want %q", k, fields[k], v)
			}
		}
	})

	t.Run("oversized amount", func(t *testing.T) {
		var req budgetRequest
		if err := decode(t, `{"categoryId":1,"amount":"5e20","month":3,"year":2025}`, &req); err != nil {
			t.Fatal(err)
		}
		_, err := req.ToNew()
		if got := fieldNames(t, err)["amount"]; got != "amount must be a decimal number" {
			t.Errorf("amount message = %q", got)
		}

		var big budgetRequest
		if err := decode(t, `{"amount":"123456789012345"}`, &big); err != nil {
			t.Fatal(err)
		}
		_, err = big.ToPatch()
		if got := fieldNames(t, err)["amount"]; got != core.AmountTooLargeMessage {
			t.Errorf("patch amount message = %q", got)
		}
	})

	t.Run("patch", func(t *testing.T) {
		var req budgetRequest
		if err := decode(t, `{"month":0}`, &req); err != nil {
			t.Fatal(err)
		}
		_, err := req.ToPatch()
		if _, ok := fieldNames(t, err)["month"]; !ok {
			t.Error("expected month error")
		}

		var ok budgetRequest
		if err := decode(t, `{"amount":"75.25"}`, &ok); err != nil {
			t.Fatal(err)
		}
		p, err := ok.ToPatch()
		if err != nil {
			t.Fatalf("ToPatch: %v", err)
		}
		if p.Amount == nil || p.Month != nil {
			t.Errorf("patch = %+v", p)
		}
	})
}

func TestParseTransactionFilter(t *testing.T) {
	t.Run("no filter", func(t *testing.T) {
		f, err := ParseTransactionFilter(url.Values{})
		if err != nil || f.Start != nil || f.CategoryID != nil {
			t.Errorf("filter = %+v, err = %v", f, err)
		}
	})

	t.Run("date range covers whole end day", func(t *testing.T) {
		f, err := ParseTransactionFilter(url.Values{"startDate": {"2025-03-01"}, "endDate": {"2025-03-31"}, "categoryId": {"2"}})
		if err != nil {
			t.Fatal(err)
		}
		if f.Start == nil || f.End == nil {
			t.Fatal("expected range")
		}
		if f.CategoryID != nil {
			t.Error("range should take precedence over category")
		}
		wantEnd := time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC)
		if !f.End.Equal(wantEnd) {
			t.Errorf("end = %v, want %v", f.End, wantEnd)
		}
	})

	t.Run("lone bound ignored", func(t *testing.T) {
		f, err := ParseTransactionFilter(url.Values{"startDate": {"2025-03-01"}})
		if err != nil || f.Start != nil {
			t.Errorf("filter = %+v, err = %v", f, err)
		}
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := ParseTransactionFilter(url.Values{"startDate": {"2025-04-01"}, "endDate": {"2025-03-01"}})
		if _, ok := fieldNames(t, err)["startDate"]; !ok {
			t.Error("expected startDate error")
		}
	})

	t.Run("bad dates", func(t *testing.T) {
		_, err := ParseTransactionFilter(url.Values{"startDate": {"yesterday"}, "endDate": {"nope"}})
		fields := fieldNames(t, err)
		if len(fields) != 2 {
			t.Errorf("fields = %v", fields)
		}
	})

	t.Run("category", func(t *testing.T) {
		f, err := ParseTransactionFilter(url.Values{"categoryId": {"4"}})
		if err != nil || f.CategoryID == nil || *f.CategoryID != 4 {
			t.Errorf("filter = %+v, err = %v", f, err)
		}
		for _, bad := range []string{"0", "-1", "abc"} {
			if _, err := ParseTransactionFilter(url.Values{"categoryId": {bad}}); err == nil {
				t.Errorf("categoryId=%q accepted", bad)
			}
		}
	})
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 2025, false},
		{"2024", 2024, false},
		{"999", 0, true},
		{"10000", 0, true},
		{"twenty", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseYear(url.Values{"year": {tt.raw}}, 2025)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseYear(%q) err = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseYear(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, ok := ParseID("42"); !ok || id != 42 {
		t.Errorf("ParseID(42) = %d, %v", id, ok)
	}
	for _, raw := range []string{"0", "", "99999999999999999999"} {
		if _, ok := ParseID(raw); ok {
			t.Errorf("ParseID(%q) accepted", raw)
		}
	}
}

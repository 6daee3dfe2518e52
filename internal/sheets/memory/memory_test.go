package memory

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

func row(id int64, desc string) ports.Row {
	return ports.Row{
		ID:          id,
		Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Category:    "Shopping",
		Type:        core.Expense,
		Amount:      core.MustParseMoney("1.00"),
	}
}

func TestMemoryMirrorUpsertDeleteReplace(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.UpsertTransaction(ctx, row(2, "b")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertTransaction(ctx, row(1, "a")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertTransaction(ctx, row(2, "b2")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows, _ := s.ListRows(ctx)
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].Description != "b2" {
		t.Fatalf("unexpected rows after upsert: %+v", rows)
	}

	if err := s.DeleteTransaction(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, 99); err != nil {
		t.Fatalf("delete of missing row should be a no-op: %v", err)
	}

	if err := s.ReplaceAll(ctx, []ports.Row{row(7, "x"), row(8, "y")}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	rows, _ = s.ListRows(ctx)
	if len(rows) != 2 || rows[0].ID != 7 || rows[1].ID != 8 {
		t.Fatalf("unexpected rows after replace: %+v", rows)
	}
	if s.Replacements() != 1 {
		t.Fatalf("Replacements() = %d, want 1", s.Replacements())
	}
}

func TestRowValues(t *testing.T) {
	r := row(3, "Coffee")
	r.Date = time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)
	r.Amount = core.MustParseMoney("3.5")

	got := r.Values()
	want := []any{"3", "2025-03-14", "Coffee", "Shopping", "expense", "3.50"}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

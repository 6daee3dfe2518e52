//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google
// The target sheet (GOOGLE_SHEET_NAME, default "Integration") is overwritten.

func TestIntegration_GoogleSheetsFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	credsJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	credsFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if credsJSON == "" && credsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}
	sheetName := os.Getenv("GOOGLE_SHEET_NAME")
	if sheetName == "" {
		sheetName = "Integration"
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, Options{
		SpreadsheetID:   spreadsheetID,
		SheetName:       sheetName,
		CredentialsJSON: credsJSON,
		CredentialsFile: credsFile,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	first := ports.Row{ID: 1, Date: date, Description: "Integration income", Category: "Salary", Type: core.Income, Amount: core.MustParseMoney("1000.00")}
	second := ports.Row{ID: 2, Date: date, Description: "=SUM(1,2)", Category: "Shopping", Type: core.Expense, Amount: core.MustParseMoney("0.10")}

	if err := client.ReplaceAll(ctx, []ports.Row{first}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	if err := client.UpsertTransaction(ctx, second); err != nil {
		t.Fatalf("UpsertTransaction() error = %v", err)
	}
	first.Description = "Integration income (edited)"
	if err := client.UpsertTransaction(ctx, first); err != nil {
		t.Fatalf("UpsertTransaction() update error = %v", err)
	}

	rows, err := client.ListRows(ctx)
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListRows() returned %d rows, want 2", len(rows))
	}
	if rows[0].Description != first.Description {
		t.Errorf("row 1 description = %q, want %q", rows[0].Description, first.Description)
	}
	if rows[1].Description != "=SUM(1,2)" {
		t.Errorf("formula-like description was evaluated: %q", rows[1].Description)
	}
	if !rows[1].Amount.Equal(second.Amount) {
		t.Errorf("row 2 amount = %s, want %s", rows[1].Amount, second.Amount)
	}

	if err := client.DeleteTransaction(ctx, 1); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	rows, err = client.ListRows(ctx)
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 2 {
		t.Errorf("after delete rows = %+v", rows)
	}
}

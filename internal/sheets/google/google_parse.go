package google

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

const lastColumn = "F"

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// rowRange returns the A1 range covering rows first..last of the ledger columns.
func rowRange(sheet string, first, last int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), first, lastColumn, last)
}

func columnsRange(sheet string) string {
	return fmt.Sprintf("%s!A:%s", quoteSheet(sheet), lastColumn)
}

// findRow returns the 1-based sheet row whose first cell is id, or 0.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

// parseRows converts a values matrix into ledger rows. The header and
// cleared rows are skipped; any other malformed row is an error.
func parseRows(values [][]any) ([]ports.Row, error) {
	var out []ports.Row
	for i, raw := range values {
		cols := toStrings(raw)
		if len(cols) == 0 || strings.Join(cols, "") == "" {
			continue
		}
		if i == 0 && strings.EqualFold(cols[0], ports.Header[0]) {
			continue
		}
		for len(cols) < len(ports.Header) {
			cols = append(cols, "")
		}

		id, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id %q", i+1, cols[0])
		}
		date, _, err := core.ParseDate(cols[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := core.ParseMoney(cols[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, ports.Row{
			ID:          id,
			Date:        date,
			Description: cols[2],
			Category:    cols[3],
			Type:        core.TransactionType(cols[4]),
			Amount:      amount,
		})
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

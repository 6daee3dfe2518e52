// Package memory is an in-process ledger mirror used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	ports "fintrack/internal/sheets"
)

type Store struct {
	mu       sync.Mutex
	rows     map[int64]ports.Row
	replaced int
}

var (
	_ ports.LedgerWriter = (*Store)(nil)
	_ ports.LedgerReader = (*Store)(nil)
)

func New() *Store {
	return &Store{rows: map[int64]ports.Row{}}
}

func (s *Store) UpsertTransaction(_ context.Context, r ports.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.ID] = r
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *Store) ReplaceAll(_ context.Context, rows []ports.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[int64]ports.Row, len(rows))
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	s.replaced++
	return nil
}

// ListRows returns the mirrored rows ordered by id.
func (s *Store) ListRows(_ context.Context) ([]ports.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Replacements reports how many times ReplaceAll ran.
func (s *Store) Replacements() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaced
}

// Package memory is an in-process statement sink used in tests and
// when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "tenge/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []ports.StatementRow
}

func New() *Store {
	return &Store{}
}

// AppendStatement stores the row and returns a synthetic row reference.
func (s *Store) AppendStatement(_ context.Context, row ports.StatementRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []ports.StatementRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.StatementRow(nil), s.rows...)
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"flowerbot/internal/core"
	"flowerbot/internal/ledger"
)

// Store is an in-process ledger. Rows are grouped into pages named like the
// Sheets worksheets and read back page by page in creation order.
type Store struct {
	mu    sync.Mutex
	order []string
	pages map[string][]core.Transaction
	// Fail makes every call return this error, for exercising degraded paths.
	Fail error
}

var _ ledger.Store = (*Store)(nil)

func New(seed ...core.Transaction) *Store {
	s := &Store{pages: map[string][]core.Transaction{}}
	for _, tx := range seed {
		s.add(tx)
	}
	return s
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return "", s.Fail
	}
	page, n := s.add(tx)
	return fmt.Sprintf("mem:%s:%d", page, n), nil
}

// LoadAll returns a copy of every page concatenated.
func (s *Store) LoadAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	var out []core.Transaction
	for _, name := range s.order {
		out = append(out, s.pages[name]...)
	}
	return out, nil
}

// Pages returns page names in creation order.
func (s *Store) Pages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func (s *Store) add(tx core.Transaction) (string, int) {
	name := ledger.PageName(tx.Timestamp)
	if _, ok := s.pages[name]; !ok {
		s.order = append(s.order, name)
	}
	s.pages[name] = append(s.pages[name], tx)
	return name, len(s.pages[name])
}

package memory

import (
	"context"
	"sort"
	"sync"

	"trendchop/internal/domain"
	"trendchop/internal/storage"
)

// FeatureRowStore is an in-memory implementation of storage.FeatureRowStore.
type FeatureRowStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.FeatureRow // keyed by date, ordered by (write_ts, symbol, seq)
}

// NewFeatureRowStore creates a new in-memory feature row store.
func NewFeatureRowStore() *FeatureRowStore {
	return &FeatureRowStore{
		data: make(map[string][]*domain.FeatureRow),
	}
}

// ReplaceDate drops the date's rows and stores copies of rows.
func (s *FeatureRowStore) ReplaceDate(_ context.Context, date string, rows []*domain.FeatureRow) error {
	if err := storage.ValidateDateRows(date, rows); err != nil {
		return err
	}

	stored := make([]*domain.FeatureRow, len(rows))
	for i, r := range rows {
		stored[i] = r.Clone()
	}
	sort.SliceStable(stored, func(i, j int) bool {
		if stored[i].WriteTS != stored[j].WriteTS {
			return stored[i].WriteTS < stored[j].WriteTS
		}
		if stored[i].Symbol != stored[j].Symbol {
			return stored[i].Symbol < stored[j].Symbol
		}
		return stored[i].Seq < stored[j].Seq
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(stored) == 0 {
		delete(s.data, date)
		return nil
	}
	s.data[date] = stored
	return nil
}

// GetByDate retrieves all rows of a date, ordered by (write_ts, symbol, seq).
func (s *FeatureRowStore) GetByDate(_ context.Context, date string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[date]
	result := make([]*domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.Clone())
	}
	return result, nil
}

// GetBySymbol retrieves one symbol's rows of a date, ordered by seq.
func (s *FeatureRowStore) GetBySymbol(_ context.Context, date, symbol string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureRow
	for _, r := range s.data[date] {
		if r.Symbol == symbol {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)

package repository

import (
	"context"
	"sync"

	"github.com/settlegate/settlegate/internal/model"
)

// MemoryRecordStore is the fallback record sink when no database is
// configured. Bounded ring so a long-running process does not grow unbounded.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records []*model.SettlementRecord
	max     int
}

func NewMemoryRecordStore(max int) *MemoryRecordStore {
	if max <= 0 {
		max = 1000
	}
	return &MemoryRecordStore{max: max}
}

func (s *MemoryRecordStore) Insert(_ context.Context, rec *model.SettlementRecord) error {
	if rec == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if len(s.records) > s.max {
		s.records = s.records[len(s.records)-s.max:]
	}
	return nil
}

func (s *MemoryRecordStore) Recent(_ context.Context, limit int) ([]*model.SettlementRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.records)
	if limit > n {
		limit = n
	}
	out := make([]*model.SettlementRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

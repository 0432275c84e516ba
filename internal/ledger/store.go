// Package ledger tracks consumed (maker, nonce) pairs. The ledger is
// append-only from the outside world's perspective: Unmark exists solely so
// the executor can undo a speculative mark when a settlement aborts mid-flight.
package ledger

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/settlegate/settlegate/internal/pkg/apperrors"
)

type Store interface {
	// Used reports whether (maker, nonce) has been consumed.
	Used(ctx context.Context, maker common.Address, nonce uint64) (bool, error)
	// Mark consumes (maker, nonce). Fails with a replay error if already used.
	Mark(ctx context.Context, maker common.Address, nonce uint64) error
	// Unmark rolls back a Mark from the same in-flight settlement.
	Unmark(ctx context.Context, maker common.Address, nonce uint64) error
}

func replayErr(maker common.Address, nonce uint64) error {
	return apperrors.Newf(apperrors.ErrReplay, "nonce_used",
		"nonce %d already consumed for maker %s", nonce, maker.Hex())
}

// MemoryStore is the default process-local ledger.
type MemoryStore struct {
	mu   sync.RWMutex
	used map[common.Address]map[uint64]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{used: make(map[common.Address]map[uint64]struct{})}
}

func (s *MemoryStore) Used(_ context.Context, maker common.Address, nonce uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.used[maker][nonce]
	return ok, nil
}

func (s *MemoryStore) Mark(_ context.Context, maker common.Address, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.used[maker]
	if !ok {
		set = make(map[uint64]struct{})
		s.used[maker] = set
	}
	if _, ok := set[nonce]; ok {
		return replayErr(maker, nonce)
	}
	set[nonce] = struct{}{}
	return nil
}

func (s *MemoryStore) Unmark(_ context.Context, maker common.Address, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.used[maker]; ok {
		delete(set, nonce)
	}
	return nil
}

package service

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/settlegate/settlegate/internal/pkg/apperrors"
	"github.com/settlegate/settlegate/internal/venue"
)

// MaxFeeRateBps caps the protocol fee at 10%. The cap is exclusive.
const MaxFeeRateBps = 1000

// ConfigStore owns the mutable trust state: intermediate-token whitelist,
// fee rate, and the registry pointer. All mutation goes through its API; the
// validation engine and executor only ever read.
type ConfigStore struct {
	mu         sync.RWMutex
	feeRateBps int
	whitelist  map[common.Address]struct{}
	registry   venue.Registry
}

func NewConfigStore(registry venue.Registry, feeRateBps int) (*ConfigStore, error) {
	s := &ConfigStore{
		whitelist: make(map[common.Address]struct{}),
		registry:  registry,
	}
	if err := s.SetFeeRate(feeRateBps); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) FeeRateBps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeRateBps
}

func (s *ConfigStore) SetFeeRate(bps int) error {
	if bps < 0 || bps >= MaxFeeRateBps {
		return apperrors.Newf(apperrors.ErrAdmin, "fee_above_cap",
			"fee rate %d bps outside [0, %d)", bps, MaxFeeRateBps)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeRateBps = bps
	return nil
}

func (s *ConfigStore) Registry() venue.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

func (s *ConfigStore) SetRegistry(registry venue.Registry) error {
	if registry == nil {
		return apperrors.Newf(apperrors.ErrAdmin, "nil_registry", "registry must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = registry
	return nil
}

func (s *ConfigStore) IsWhitelisted(token common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.whitelist[token]
	return ok
}

func (s *ConfigStore) AddWhitelisted(token common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whitelist[token] = struct{}{}
}

func (s *ConfigStore) RemoveWhitelisted(token common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.whitelist, token)
}

func (s *ConfigStore) Whitelist() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Address, 0, len(s.whitelist))
	for token := range s.whitelist {
		out = append(out, token)
	}
	return out
}

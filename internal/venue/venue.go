// Package venue holds the pluggable liquidity-venue abstraction: the registry
// that maps protocol tags to adapters, the adapter execution contract, and a
// reference adapter used in dev mode and tests.
package venue

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/pkg/apperrors"
)

// Registry resolves a protocol tag to adapter metadata. New venues are added
// by registering an implementation, never by branching inside the executor.
type Registry interface {
	Resolve(protocol model.Protocol) (model.VenueInfo, error)
}

// ExecuteParams is everything an adapter needs to perform one swap. The input
// amount has already been transferred to the adapter by the time Execute is
// invoked; the adapter must deliver its output to Recipient.
type ExecuteParams struct {
	Route     model.RouteData
	AmountIn  *big.Int
	Recipient common.Address
}

// Adapter executes the swap for one venue family and reports the realized
// output amount.
type Adapter interface {
	Address() common.Address
	Execute(ctx context.Context, params ExecuteParams) (*big.Int, error)
}

// StaticRegistry is an in-memory Registry seeded from configuration.
type StaticRegistry struct {
	mu     sync.RWMutex
	venues map[model.Protocol]model.VenueInfo
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{venues: make(map[model.Protocol]model.VenueInfo)}
}

func (r *StaticRegistry) Register(info model.VenueInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues[info.Protocol] = info
}

func (r *StaticRegistry) Resolve(protocol model.Protocol) (model.VenueInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.venues[protocol]
	if !ok {
		return model.VenueInfo{}, apperrors.Newf(apperrors.ErrVenue, "unregistered_protocol",
			"no venue registered for protocol %q", protocol)
	}
	return info, nil
}

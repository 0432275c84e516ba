package service

import (
	"sync/atomic"

	"github.com/settlegate/settlegate/internal/pkg/apperrors"
)

// entryGuard is the non-reentrant lock around settlement: idle -> inProgress
// -> idle. A nested or concurrent entry is rejected immediately rather than
// queued; the relayer resubmits.
type entryGuard struct {
	busy atomic.Bool
}

func (g *entryGuard) enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return apperrors.Newf(apperrors.ErrReentrancy, "settlement_in_progress",
			"a settlement is already in progress")
	}
	return nil
}

func (g *entryGuard) exit() {
	g.busy.Store(false)
}

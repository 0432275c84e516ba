package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/settlegate/settlegate/internal/pkg/apperrors"
	"github.com/settlegate/settlegate/internal/pkg/logger"
	"github.com/settlegate/settlegate/internal/pkg/metrics"
	"github.com/settlegate/settlegate/internal/venue"
)

// AdminService carries the owner-gated mutations of the trust surface. The
// HTTP layer authenticates the owner; this layer enforces parameter bounds.
type AdminService struct {
	store   *ConfigStore
	codes   venue.CodeChecker
	mover   TokenMover
	holding common.Address
}

func NewAdminService(store *ConfigStore, codes venue.CodeChecker, mover TokenMover, holding common.Address) *AdminService {
	return &AdminService{store: store, codes: codes, mover: mover, holding: holding}
}

func (s *AdminService) SetRegistry(registry venue.Registry) error {
	if err := s.store.SetRegistry(registry); err != nil {
		return err
	}
	metrics.AdminMutations.WithLabelValues("set_registry").Inc()
	logger.Info("registry updated")
	return nil
}

func (s *AdminService) SetFeeRate(bps int) error {
	if err := s.store.SetFeeRate(bps); err != nil {
		return err
	}
	metrics.AdminMutations.WithLabelValues("set_fee_rate").Inc()
	logger.Info("fee rate updated", "bps", bps)
	return nil
}

func (s *AdminService) AddWhitelisted(ctx context.Context, token common.Address) error {
	if token == (common.Address{}) {
		return apperrors.Newf(apperrors.ErrAdmin, "zero_token", "cannot whitelist the zero address")
	}
	hasCode, err := s.codes.HasCode(ctx, token)
	if err != nil {
		return apperrors.New(apperrors.ErrUpstream, "whitelist code check failed", err)
	}
	if !hasCode {
		return apperrors.Newf(apperrors.ErrAdmin, "not_contract",
			"whitelist target %s is not a deployed contract", token.Hex())
	}
	s.store.AddWhitelisted(token)
	metrics.AdminMutations.WithLabelValues("whitelist_add").Inc()
	logger.Info("token whitelisted", "token", token.Hex())
	return nil
}

// AddWhitelistedBatch adds all-or-nothing: every target is checked before the
// first insert so a bad entry cannot leave the batch half-applied.
func (s *AdminService) AddWhitelistedBatch(ctx context.Context, tokens []common.Address) error {
	for _, token := range tokens {
		if token == (common.Address{}) {
			return apperrors.Newf(apperrors.ErrAdmin, "zero_token", "cannot whitelist the zero address")
		}
		hasCode, err := s.codes.HasCode(ctx, token)
		if err != nil {
			return apperrors.New(apperrors.ErrUpstream, "whitelist code check failed", err)
		}
		if !hasCode {
			return apperrors.Newf(apperrors.ErrAdmin, "not_contract",
				"whitelist target %s is not a deployed contract", token.Hex())
		}
	}
	for _, token := range tokens {
		s.store.AddWhitelisted(token)
		logger.Info("token whitelisted", "token", token.Hex())
	}
	metrics.AdminMutations.WithLabelValues("whitelist_add_batch").Inc()
	return nil
}

func (s *AdminService) RemoveWhitelisted(token common.Address) {
	s.store.RemoveWhitelisted(token)
	metrics.AdminMutations.WithLabelValues("whitelist_remove").Inc()
	logger.Info("token removed from whitelist", "token", token.Hex())
}

func (s *AdminService) Whitelist() []common.Address {
	return s.store.Whitelist()
}

func (s *AdminService) FeeRateBps() int {
	return s.store.FeeRateBps()
}

// EmergencyWithdraw drains the executor's full balance of one asset to an
// owner-chosen recipient. Recovery path only, never part of settlement.
func (s *AdminService) EmergencyWithdraw(ctx context.Context, asset, to common.Address) (*big.Int, error) {
	if to == (common.Address{}) {
		return nil, apperrors.Newf(apperrors.ErrAdmin, "zero_recipient", "withdraw recipient is the zero address")
	}
	balance, err := s.mover.Balance(ctx, asset, s.holding)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "balance lookup failed", err)
	}
	if balance.Sign() == 0 {
		return balance, nil
	}
	if err := s.mover.Transfer(ctx, asset, s.holding, to, balance); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "emergency withdraw failed", err)
	}
	metrics.AdminMutations.WithLabelValues("emergency_withdraw").Inc()
	logger.Warn("emergency withdraw",
		"asset", asset.Hex(), "to", to.Hex(), "amount", balance.String())
	return balance, nil
}

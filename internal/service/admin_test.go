package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlegate/settlegate/internal/pkg/apperrors"
	"github.com/settlegate/settlegate/internal/signer"
	"github.com/settlegate/settlegate/internal/venue"
)

func newAdminHarness(t *testing.T) (*AdminService, *ConfigStore, *venue.StaticCodeChecker, *venue.SimBank) {
	t.Helper()
	registry := venue.NewStaticRegistry()
	store, err := NewConfigStore(registry, 0)
	require.NoError(t, err)

	codes := venue.NewStaticCodeChecker()
	domain := signer.NewDomain(137, common.HexToAddress("0xC000000000000000000000000000000000000003"))
	bank := venue.NewSimBank(domain)

	return NewAdminService(store, codes, bank, holdingAddr), store, codes, bank
}

func TestSetFeeRate_Cap(t *testing.T) {
	svc, store, _, _ := newAdminHarness(t)

	require.NoError(t, svc.SetFeeRate(999))
	assert.Equal(t, 999, store.FeeRateBps())

	err := svc.SetFeeRate(1000)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAdmin))
	assert.Equal(t, 999, store.FeeRateBps(), "failed update must not change the rate")

	assert.Error(t, svc.SetFeeRate(-1))
	assert.Error(t, svc.SetFeeRate(10_000))
}

func TestSetRegistry_NilRejected(t *testing.T) {
	svc, store, _, _ := newAdminHarness(t)

	err := svc.SetRegistry(nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAdmin))

	replacement := venue.NewStaticRegistry()
	require.NoError(t, svc.SetRegistry(replacement))
	assert.Equal(t, venue.Registry(replacement), store.Registry())
}

func TestWhitelist_AddRemove(t *testing.T) {
	svc, store, codes, _ := newAdminHarness(t)
	ctx := context.Background()

	// Zero address rejected
	err := svc.AddWhitelisted(ctx, common.Address{})
	require.Error(t, err)
	assert.Equal(t, "zero_token", apperrors.Reason(err))

	// Non-contract target rejected
	err = svc.AddWhitelisted(ctx, tokenA)
	require.Error(t, err)
	assert.Equal(t, "not_contract", apperrors.Reason(err))
	assert.False(t, store.IsWhitelisted(tokenA))

	codes.Add(tokenA)
	require.NoError(t, svc.AddWhitelisted(ctx, tokenA))
	assert.True(t, store.IsWhitelisted(tokenA))

	svc.RemoveWhitelisted(tokenA)
	assert.False(t, store.IsWhitelisted(tokenA))
}

func TestWhitelist_BatchAllOrNothing(t *testing.T) {
	svc, store, codes, _ := newAdminHarness(t)
	ctx := context.Background()

	codes.Add(tokenA)
	// tokenB has no code, so the whole batch must be refused
	err := svc.AddWhitelistedBatch(ctx, []common.Address{tokenA, tokenB})
	require.Error(t, err)
	assert.False(t, store.IsWhitelisted(tokenA))
	assert.False(t, store.IsWhitelisted(tokenB))

	codes.Add(tokenB)
	require.NoError(t, svc.AddWhitelistedBatch(ctx, []common.Address{tokenA, tokenB}))
	assert.True(t, store.IsWhitelisted(tokenA))
	assert.True(t, store.IsWhitelisted(tokenB))
}

func TestEmergencyWithdraw(t *testing.T) {
	svc, _, _, bank := newAdminHarness(t)
	ctx := context.Background()
	recipient := common.HexToAddress("0x9999000000000000000000000000000000000009")

	bank.Mint(tokenA, holdingAddr, big.NewInt(777))

	// Zero recipient rejected
	_, err := svc.EmergencyWithdraw(ctx, tokenA, common.Address{})
	require.Error(t, err)
	assert.Equal(t, "zero_recipient", apperrors.Reason(err))

	amount, err := svc.EmergencyWithdraw(ctx, tokenA, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(777), amount.Int64())

	bal, err := bank.Balance(ctx, tokenA, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(777), bal.Int64())

	// Draining an empty balance is a no-op, not an error
	amount, err = svc.EmergencyWithdraw(ctx, tokenA, recipient)
	require.NoError(t, err)
	assert.Zero(t, amount.Sign())
}

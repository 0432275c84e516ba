package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlegate/settlegate/internal/model"
)

func newTestSigner(t *testing.T, domain *Domain) *Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyHex := hexutil.Encode(crypto.FromECDSA(key))[2:] // strip 0x

	s, err := NewSigner(keyHex, domain)
	require.NoError(t, err)
	return s
}

func testOrder(maker common.Address) model.Order {
	return model.Order{
		Maker:        maker,
		InputToken:   common.HexToAddress("0xA000000000000000000000000000000000000001"),
		InputAmount:  big.NewInt(1000),
		OutputToken:  common.HexToAddress("0xB000000000000000000000000000000000000002"),
		MinAmountOut: big.NewInt(990),
		Expiry:       1800000000,
		Nonce:        1,
	}
}

func TestSignAndVerifyOrder(t *testing.T) {
	domain := NewDomain(137, common.HexToAddress("0xC000000000000000000000000000000000000003"))
	s := newTestSigner(t, domain)

	order := testOrder(s.Address())
	sig, err := s.SignOrder(&order)
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	assert.NoError(t, VerifyOrderSignature(domain, &order, sig))

	// Tampered field breaks verification
	tampered := order
	tampered.MinAmountOut = big.NewInt(1)
	assert.Error(t, VerifyOrderSignature(domain, &tampered, sig))
}

func TestVerifyOrder_WrongMaker(t *testing.T) {
	domain := NewDomain(137, common.HexToAddress("0xC000000000000000000000000000000000000003"))
	s := newTestSigner(t, domain)

	order := testOrder(s.Address())
	sig, err := s.SignOrder(&order)
	require.NoError(t, err)

	order.Maker = common.HexToAddress("0x0000000000000000000000000000000000000001")
	assert.Error(t, VerifyOrderSignature(domain, &order, sig))
}

func TestPermitWitnessBinding(t *testing.T) {
	domain := NewDomain(137, common.HexToAddress("0xC000000000000000000000000000000000000003"))
	s := newTestSigner(t, domain)

	order := testOrder(s.Address())
	permit := model.Permit{
		Token:    order.InputToken,
		Amount:   order.InputAmount,
		Nonce:    order.Nonce,
		Deadline: order.Expiry,
	}

	sig, err := s.SignPermit(&permit, &order)
	require.NoError(t, err)
	assert.NoError(t, VerifyPermitSignature(domain, &permit, &order, sig))

	// The witness binds the permit to this exact order: the same permit
	// fields with a different order must not verify.
	other := order
	other.Nonce = 2
	assert.Error(t, VerifyPermitSignature(domain, &permit, &other, sig))

	// And an order signature can never stand in for a permit signature.
	orderSig, err := s.SignOrder(&order)
	require.NoError(t, err)
	assert.Error(t, VerifyPermitSignature(domain, &permit, &order, orderSig))
}

func TestSignAndVerifyCancel(t *testing.T) {
	domain := NewDomain(137, common.HexToAddress("0xC000000000000000000000000000000000000003"))
	s := newTestSigner(t, domain)

	sig, err := s.SignCancel(42)
	require.NoError(t, err)
	assert.NoError(t, VerifyCancelSignature(domain, s.Address(), 42, sig))

	// Signature is bound to the nonce
	assert.Error(t, VerifyCancelSignature(domain, s.Address(), 43, sig))

	// and to the maker
	other := newTestSigner(t, domain)
	assert.Error(t, VerifyCancelSignature(domain, other.Address(), 42, sig))

	// An order signature cannot stand in for a cancel
	order := testOrder(s.Address())
	order.Nonce = 42
	orderSig, err := s.SignOrder(&order)
	require.NoError(t, err)
	assert.Error(t, VerifyCancelSignature(domain, s.Address(), 42, orderSig))
}

func TestDomainSeparatorUniqueness(t *testing.T) {
	verifying := common.HexToAddress("0xC000000000000000000000000000000000000003")
	a := NewDomain(137, verifying)
	b := NewDomain(1, verifying)
	c := NewDomain(137, common.HexToAddress("0xD000000000000000000000000000000000000004"))

	assert.NotEqual(t, a.Separator, b.Separator)
	assert.NotEqual(t, a.Separator, c.Separator)

	// A signature from one deployment must not verify on another.
	s := newTestSigner(t, a)
	order := testOrder(s.Address())
	sig, err := s.SignOrder(&order)
	require.NoError(t, err)
	assert.Error(t, VerifyOrderSignature(b, &order, sig))
}

func BenchmarkSignOrder(b *testing.B) {
	domain := NewDomain(137, common.HexToAddress("0xC000000000000000000000000000000000000003"))
	key, _ := crypto.GenerateKey()
	keyHex := hexutil.Encode(crypto.FromECDSA(key))[2:]
	s, _ := NewSigner(keyHex, domain)

	order := testOrder(s.Address())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.SignOrder(&order)
	}
}

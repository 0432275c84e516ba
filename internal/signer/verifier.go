package signer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/settlegate/settlegate/internal/model"
)

// VerifyOrderSignature recovers the signer of the order digest and checks it
// equals the order's maker.
func VerifyOrderSignature(domain *Domain, order *model.Order, sig []byte) error {
	return verify(domain, HashOrder(order), sig, order.Maker, "order")
}

// VerifyPermitSignature checks the permit-with-witness signature against the
// maker. The witness binding means a valid signature proves the maker signed
// this permit for this exact order.
func VerifyPermitSignature(domain *Domain, permit *model.Permit, order *model.Order, sig []byte) error {
	return verify(domain, HashPermit(permit, HashOrder(order)), sig, order.Maker, "permit")
}

// VerifyCancelSignature checks that the maker authorized invalidating the
// nonce. Without it anyone could burn a stranger's nonces and brick their
// outstanding signed orders.
func VerifyCancelSignature(domain *Domain, maker common.Address, nonce uint64, sig []byte) error {
	return verify(domain, HashCancel(maker, nonce), sig, maker, "cancel")
}

func verify(domain *Domain, structHash common.Hash, sig []byte, expected common.Address, label string) error {
	if len(sig) != 65 {
		return fmt.Errorf("%s signature must be 65 bytes, got %d", label, len(sig))
	}

	// Normalize V for recovery: SigToPub wants 0/1
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pub, err := crypto.SigToPub(domain.Digest(structHash), normalized)
	if err != nil {
		return fmt.Errorf("%s signature recovery failed: %w", label, err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != expected {
		return fmt.Errorf("%s signer mismatch: recovered %s, expected %s", label, recovered.Hex(), expected.Hex())
	}
	return nil
}

package signer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/settlegate/settlegate/internal/model"
)

// Signer holds a maker's key and produces order/permit signatures against a
// fixed domain. Used by the offline signing tool and by tests; the service
// itself only ever verifies.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	domain  *Domain
}

func NewSigner(privateKeyHex string, domain *Domain) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}

	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKey),
		domain:  domain,
	}, nil
}

// SignOrder signs the EIP-712 digest of the order. Returns a 65-byte
// [R || S || V] signature with V in {27, 28}.
func (s *Signer) SignOrder(order *model.Order) ([]byte, error) {
	return s.sign(HashOrder(order))
}

// SignPermit signs the permit with the order struct hash bound in as witness.
func (s *Signer) SignPermit(permit *model.Permit, order *model.Order) ([]byte, error) {
	return s.sign(HashPermit(permit, HashOrder(order)))
}

// SignCancel authorizes burning one of the signer's own nonces.
func (s *Signer) SignCancel(nonce uint64) ([]byte, error) {
	return s.sign(HashCancel(s.address, nonce))
}

func (s *Signer) sign(structHash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(s.domain.Digest(structHash), s.key)
	if err != nil {
		return nil, err
	}
	// crypto.Sign returns V as 0/1; on-chain verifiers expect 27/28
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

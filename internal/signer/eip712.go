package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/settlegate/settlegate/internal/model"
)

// Constants for EIP-712
const (
	EIP712DomainName    = "Settlegate Settlement"
	EIP712DomainVersion = "1"
)

var (
	// EIP712DomainTypeHash is the keccak256 hash of the EIP712Domain type definition
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

	// OrderTypeHash binds the full order intent into one struct hash.
	OrderTypeHash = crypto.Keccak256Hash([]byte("Order(address maker,address inputToken,uint256 inputAmount,address outputToken,uint256 minAmountOut,uint256 expiry,uint256 nonce,address authorizedExecutor)"))

	// PermitWitnessTypeHash appends the order struct as a witness to the permit
	// fields, so a permit signature can never be detached from its order and
	// replayed against another one.
	PermitWitnessTypeHash = crypto.Keccak256Hash([]byte("PermitWitnessTransferFrom(address token,uint256 amount,uint256 nonce,uint256 deadline,Order witness)Order(address maker,address inputToken,uint256 inputAmount,address outputToken,uint256 minAmountOut,uint256 expiry,uint256 nonce,address authorizedExecutor)"))

	// CancelTypeHash covers maker-initiated nonce invalidation. Only the
	// maker's own signature can burn one of their nonces.
	CancelTypeHash = crypto.Keccak256Hash([]byte("Cancel(address maker,uint256 nonce)"))
)

// Domain is a pre-computed EIP-712 domain separator unique to one deployment.
type Domain struct {
	ChainID   *big.Int
	Verifying common.Address
	Separator common.Hash
}

// NewDomain computes the domain separator once up front.
// keccak256(abi.encode(typeHash, keccak256(name), keccak256(version), chainId, verifyingContract))
func NewDomain(chainID int64, verifyingContract common.Address) *Domain {
	nameHash := crypto.Keccak256Hash([]byte(EIP712DomainName))
	versionHash := crypto.Keccak256Hash([]byte(EIP712DomainVersion))

	// Manual ABI encode, all fields are 32-byte slots
	data := make([]byte, 32*5)
	copy(data[0:32], EIP712DomainTypeHash.Bytes())
	copy(data[32:64], nameHash.Bytes())
	copy(data[64:96], versionHash.Bytes())
	copy(data[96:128], math.U256Bytes(big.NewInt(chainID)))
	copy(data[128+12:160], verifyingContract.Bytes())

	return &Domain{
		ChainID:   big.NewInt(chainID),
		Verifying: verifyingContract,
		Separator: crypto.Keccak256Hash(data),
	}
}

// HashOrder calculates hashStruct(order): keccak256(abi.encode(typeHash, fields...)).
func HashOrder(order *model.Order) common.Hash {
	data := make([]byte, 32*9)

	copy(data[0:32], OrderTypeHash.Bytes())
	copy(data[32+12:64], order.Maker.Bytes())
	copy(data[64+12:96], order.InputToken.Bytes())
	if order.InputAmount != nil {
		copy(data[96:128], math.U256Bytes(order.InputAmount))
	}
	copy(data[128+12:160], order.OutputToken.Bytes())
	if order.MinAmountOut != nil {
		copy(data[160:192], math.U256Bytes(order.MinAmountOut))
	}
	copy(data[192:224], math.U256Bytes(new(big.Int).SetUint64(order.Expiry)))
	copy(data[224:256], math.U256Bytes(new(big.Int).SetUint64(order.Nonce)))
	copy(data[256+12:288], order.AuthorizedExecutor.Bytes())

	return crypto.Keccak256Hash(data)
}

// HashPermit calculates hashStruct(permit) with the order hash as witness.
func HashPermit(permit *model.Permit, orderHash common.Hash) common.Hash {
	data := make([]byte, 32*6)

	copy(data[0:32], PermitWitnessTypeHash.Bytes())
	copy(data[32+12:64], permit.Token.Bytes())
	if permit.Amount != nil {
		copy(data[64:96], math.U256Bytes(permit.Amount))
	}
	copy(data[96:128], math.U256Bytes(new(big.Int).SetUint64(permit.Nonce)))
	copy(data[128:160], math.U256Bytes(new(big.Int).SetUint64(permit.Deadline)))
	copy(data[160:192], orderHash.Bytes())

	return crypto.Keccak256Hash(data)
}

// HashCancel calculates hashStruct for a nonce cancellation.
func HashCancel(maker common.Address, nonce uint64) common.Hash {
	data := make([]byte, 32*3)

	copy(data[0:32], CancelTypeHash.Bytes())
	copy(data[32+12:64], maker.Bytes())
	copy(data[64:96], math.U256Bytes(new(big.Int).SetUint64(nonce)))

	return crypto.Keccak256Hash(data)
}

// Digest produces the final EIP-191 signing hash:
// keccak256("\x19\x01" || domainSeparator || structHash)
func (d *Domain) Digest(structHash common.Hash) []byte {
	return crypto.Keccak256([]byte{0x19, 0x01}, d.Separator.Bytes(), structHash.Bytes())
}

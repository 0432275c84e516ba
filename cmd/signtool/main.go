// signtool signs an order and its paired permit offline, printing a JSON body
// ready for POST /v1/settle. Makers run this; the server never sees a key.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/signer"
)

func main() {
	var (
		keyHex       = flag.String("key", "", "maker private key hex (no 0x prefix)")
		chainID      = flag.Int64("chain-id", 137, "EIP-712 chain id")
		verifying    = flag.String("verifying-contract", "0x0000000000000000000000000000000000000000", "EIP-712 verifying contract")
		inputToken   = flag.String("in", "", "input token address")
		outputToken  = flag.String("out", "", "output token address")
		inputAmount  = flag.String("amount", "", "input amount in base units")
		minOut       = flag.String("min-out", "", "minimum output in base units")
		nonce        = flag.Uint64("nonce", 0, "order nonce")
		ttl          = flag.Duration("ttl", time.Hour, "validity window from now")
		executor     = flag.String("executor", "", "authorized executor address (empty = any relayer)")
		cancel       = flag.Bool("cancel", false, "sign a nonce cancellation instead of an order")
	)
	flag.Parse()

	if *keyHex == "" {
		flag.Usage()
		os.Exit(2)
	}

	domain := signer.NewDomain(*chainID, common.HexToAddress(*verifying))
	s, err := signer.NewSigner(strings.TrimPrefix(*keyHex, "0x"), domain)
	if err != nil {
		log.Fatalf("bad key: %v", err)
	}

	if *cancel {
		sig, err := s.SignCancel(*nonce)
		if err != nil {
			log.Fatalf("cancel signing failed: %v", err)
		}
		printJSON(model.CancelRequest{
			Maker:     s.Address().Hex(),
			Nonce:     *nonce,
			Signature: hexutil.Encode(sig),
		})
		return
	}

	if *inputToken == "" || *outputToken == "" || *inputAmount == "" || *minOut == "" {
		flag.Usage()
		os.Exit(2)
	}

	amountIn, ok := new(big.Int).SetString(*inputAmount, 10)
	if !ok {
		log.Fatalf("bad amount: %s", *inputAmount)
	}
	minAmountOut, ok := new(big.Int).SetString(*minOut, 10)
	if !ok {
		log.Fatalf("bad min-out: %s", *minOut)
	}

	expiry := uint64(time.Now().Add(*ttl).Unix())
	order := model.Order{
		Maker:        s.Address(),
		InputToken:   common.HexToAddress(*inputToken),
		InputAmount:  amountIn,
		OutputToken:  common.HexToAddress(*outputToken),
		MinAmountOut: minAmountOut,
		Expiry:       expiry,
		Nonce:        *nonce,
	}
	if *executor != "" {
		order.AuthorizedExecutor = common.HexToAddress(*executor)
	}
	permit := model.Permit{
		Token:    order.InputToken,
		Amount:   order.InputAmount,
		Nonce:    order.Nonce,
		Deadline: order.Expiry,
	}

	orderSig, err := s.SignOrder(&order)
	if err != nil {
		log.Fatalf("order signing failed: %v", err)
	}
	permitSig, err := s.SignPermit(&permit, &order)
	if err != nil {
		log.Fatalf("permit signing failed: %v", err)
	}

	body := model.SettleRequest{
		Order: model.OrderDTO{
			Maker:              order.Maker.Hex(),
			InputToken:         order.InputToken.Hex(),
			InputAmount:        order.InputAmount.String(),
			OutputToken:        order.OutputToken.Hex(),
			MinAmountOut:       order.MinAmountOut.String(),
			Expiry:             order.Expiry,
			Nonce:              order.Nonce,
			AuthorizedExecutor: *executor,
		},
		OrderSignature: hexutil.Encode(orderSig),
		Permit: model.PermitDTO{
			Token:    permit.Token.Hex(),
			Amount:   permit.Amount.String(),
			Nonce:    permit.Nonce,
			Deadline: permit.Deadline,
		},
		PermitSignature: hexutil.Encode(permitSig),
		Route: model.RouteDTO{
			Protocol: string(model.ProtocolUniswapV2),
			Path:     []string{order.InputToken.Hex(), order.OutputToken.Hex()},
		},
	}

	printJSON(body)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode failed: %v", err)
	}
	fmt.Println(string(out))
}

package venue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// CodeChecker answers whether an address carries deployed contract code.
// Adapter handles and whitelist targets must be contracts, not bare EOAs.
type CodeChecker interface {
	HasCode(ctx context.Context, addr common.Address) (bool, error)
}

// EthCodeChecker checks code presence via eth_getCode, lazily dialing the RPC
// endpoint on first use.
type EthCodeChecker struct {
	rpcURL string
	mu     sync.Mutex
	client *ethclient.Client
}

func NewEthCodeChecker(rpcURL string) *EthCodeChecker {
	return &EthCodeChecker{rpcURL: strings.TrimSpace(rpcURL)}
}

func (c *EthCodeChecker) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return false, err
	}
	code, err := client.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("rpc call failed: %w", err)
	}
	return len(code) > 0, nil
}

func (c *EthCodeChecker) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.rpcURL == "" {
		return nil, fmt.Errorf("rpc url not configured")
	}
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial eth client: %w", err)
	}
	c.client = client
	return client, nil
}

// StaticCodeChecker is the dev/test substitute: a fixed set of addresses
// considered deployed.
type StaticCodeChecker struct {
	mu        sync.RWMutex
	contracts map[common.Address]struct{}
}

func NewStaticCodeChecker(contracts ...common.Address) *StaticCodeChecker {
	c := &StaticCodeChecker{contracts: make(map[common.Address]struct{})}
	for _, addr := range contracts {
		c.contracts[addr] = struct{}{}
	}
	return c
}

func (c *StaticCodeChecker) Add(addr common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts[addr] = struct{}{}
}

func (c *StaticCodeChecker) HasCode(_ context.Context, addr common.Address) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.contracts[addr]
	return ok, nil
}

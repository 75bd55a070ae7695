package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/ports"
)

const (
	defaultDecimals = 18

	methodClaim      = "claimTokens"
	methodHasClaimed = "hasAddressClaimed"
	methodBalanceOf  = "balanceOf"
	methodUsers      = "getFaucetUsers"
	methodAmount     = "getFaucetAmount"
	methodDecimals   = "decimals"
)

// Caller executes read-only contract calls
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config describes the faucet deployment
type Config struct {
	ContractAddress  common.Address
	MulticallAddress common.Address
	ChainID          *big.Int
	PrivateKey       *ecdsa.PrivateKey // Faucet account paying for claims
}

// Client implements the Faucet interface against an EVM node
type Client struct {
	caller   Caller
	contract *bind.BoundContract
	cfg      Config
}

var _ ports.Faucet = (*Client)(nil)

// NewClient creates a faucet client on top of an existing backend
func NewClient(backend bind.ContractBackend, cfg Config) (*Client, error) {
	if cfg.PrivateKey == nil {
		return nil, errors.New("faucet private key is required")
	}
	if cfg.ChainID == nil {
		return nil, errors.New("chain id is required")
	}
	if cfg.MulticallAddress == (common.Address{}) {
		cfg.MulticallAddress = DefaultMulticallAddress
	}

	return &Client{
		caller:   backend,
		contract: bind.NewBoundContract(cfg.ContractAddress, faucetABI, backend, backend, backend),
		cfg:      cfg,
	}, nil
}

// Dial connects to rpcURL and creates a faucet client
func Dial(ctx context.Context, rpcURL string, cfg Config) (*Client, func(), error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	client, err := NewClient(ec, cfg)
	if err != nil {
		ec.Close()
		return nil, nil, err
	}

	return client, ec.Close, nil
}

// HasClaimed reports whether address has already used the faucet
func (c *Client) HasClaimed(ctx context.Context, address string) (bool, error) {
	data, err := faucetABI.Pack(methodHasClaimed, common.HexToAddress(address))
	if err != nil {
		return false, fmt.Errorf("failed to pack %s: %w", methodHasClaimed, err)
	}

	ret, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.cfg.ContractAddress, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("%s call failed: %w", methodHasClaimed, err)
	}

	out, err := faucetABI.Unpack(methodHasClaimed, ret)
	if err != nil {
		return false, fmt.Errorf("failed to unpack %s: %w", methodHasClaimed, err)
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Claim sends claimTokens from the faucet account. Gas estimation runs the
// call first, so a reverting claim fails here without being broadcast.
func (c *Client) Claim(ctx context.Context, address string) (string, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.cfg.PrivateKey, c.cfg.ChainID)
	if err != nil {
		return "", fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	tx, err := c.contract.Transact(auth, methodClaim)
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", methodClaim, err)
	}

	return tx.Hash().Hex(), nil
}

// Status reads the faucet state for address in a single multicall
func (c *Client) Status(ctx context.Context, address string) (*core.FaucetStatus, error) {
	account := common.HexToAddress(address)

	calls := make([]Call3, 0, 5)
	for _, m := range []struct {
		name string
		args []interface{}
	}{
		{methodHasClaimed, []interface{}{account}},
		{methodBalanceOf, []interface{}{account}},
		{methodUsers, nil},
		{methodAmount, nil},
		{methodDecimals, nil},
	} {
		data, err := faucetABI.Pack(m.name, m.args...)
		if err != nil {
			return nil, fmt.Errorf("failed to pack %s: %w", m.name, err)
		}
		calls = append(calls, Call3{Target: c.cfg.ContractAddress, AllowFailure: true, CallData: data})
	}

	data, err := multicallABI.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("failed to pack multicall: %w", err)
	}

	ret, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.cfg.MulticallAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("multicall failed: %w", err)
	}

	out, err := multicallABI.Unpack("aggregate3", ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack multicall: %w", err)
	}
	results := *abi.ConvertType(out[0], new([]Result)).(*[]Result)

	return decodeStatus(results)
}

// decodeStatus maps the five sub-call results onto a status. A failed or
// undecodable sub-call leaves its field at the default.
func decodeStatus(results []Result) (*core.FaucetStatus, error) {
	if len(results) != 5 {
		return nil, fmt.Errorf("multicall returned %d results, want 5", len(results))
	}

	status := &core.FaucetStatus{
		Users:        []string{},
		FaucetAmount: "0",
		Decimals:     defaultDecimals,
	}

	if v, ok := unpackResult(results[0], methodHasClaimed); ok {
		status.HasClaimed = *abi.ConvertType(v, new(bool)).(*bool)
	}

	var balance *big.Int
	if v, ok := unpackResult(results[1], methodBalanceOf); ok {
		balance = *abi.ConvertType(v, new(*big.Int)).(**big.Int)
	}

	if v, ok := unpackResult(results[2], methodUsers); ok {
		for _, u := range *abi.ConvertType(v, new([]common.Address)).(*[]common.Address) {
			status.Users = append(status.Users, u.Hex())
		}
	}

	if v, ok := unpackResult(results[3], methodAmount); ok {
		status.FaucetAmount = (*abi.ConvertType(v, new(*big.Int)).(**big.Int)).String()
	}

	decimalsOK := false
	if v, ok := unpackResult(results[4], methodDecimals); ok {
		status.Decimals = *abi.ConvertType(v, new(uint8)).(*uint8)
		decimalsOK = true
	}

	// Without both values the balance cannot be scaled.
	status.Balance = "0"
	if balance != nil && decimalsOK {
		status.Balance = FormatUnits(balance, status.Decimals)
	}

	return status, nil
}

func unpackResult(r Result, method string) (interface{}, bool) {
	if !r.Success || len(r.ReturnData) == 0 {
		return nil, false
	}
	out, err := faucetABI.Unpack(method, r.ReturnData)
	if err != nil || len(out) == 0 {
		return nil, false
	}
	return out[0], true
}

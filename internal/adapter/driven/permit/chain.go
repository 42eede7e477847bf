package permit

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainReader reads the on-chain facts a permit depends on.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	TokenSymbol(ctx context.Context, token common.Address) (string, error)
}

const erc20MetadataABI = `[
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

var _ ChainReader = (*EthChain)(nil)

// EthChain is a ChainReader backed by a JSON-RPC endpoint.
type EthChain struct {
	client *ethclient.Client
	erc20  abi.ABI
}

// DialChain connects to the JSON-RPC endpoint at rpcURL.
func DialChain(ctx context.Context, rpcURL string) (*EthChain, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20MetadataABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}

	return &EthChain{client: client, erc20: parsed}, nil
}

// ChainID returns the id reported by the endpoint.
func (c *EthChain) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	return id, nil
}

// TokenDecimals calls decimals() on the token contract.
func (c *EthChain) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := out.(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals of %s: unexpected type %T", token.Hex(), out)
	}
	return decimals, nil
}

// TokenSymbol calls symbol() on the token contract.
func (c *EthChain) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	out, err := c.call(ctx, token, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("symbol of %s: unexpected type %T", token.Hex(), out)
	}
	return symbol, nil
}

// Close releases the RPC connection.
func (c *EthChain) Close() {
	c.client.Close()
}

func (c *EthChain) call(ctx context.Context, token common.Address, method string) (any, error) {
	data, err := c.erc20.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	raw, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, token.Hex(), err)
	}

	values, err := c.erc20.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: got %d values", method, len(values))
	}
	return values[0], nil
}

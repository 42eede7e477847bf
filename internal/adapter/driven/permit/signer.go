package permit

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

var (
	// ErrMissingKey indicates no payout private key is configured.
	ErrMissingKey = errors.New("payout private key not configured")

	// ErrChainMismatch indicates the RPC endpoint serves a different chain
	// than the configured payout network.
	ErrChainMismatch = errors.New("rpc chain id does not match payout network")
)

var _ driven.PermitSigner = (*Signer)(nil)

// Config holds what a Signer needs beyond its chain connection.
type Config struct {
	PrivateKey string // Hex, with or without 0x. Empty disables signing.
	NetworkID  int64
	Token      string // Overrides the network's default token when set.
	BaseURL    string // Claim page URL.
}

// Signer signs Permit2 PermitTransferFrom messages with the treasury key.
type Signer struct {
	key       *ecdsa.PrivateKey
	owner     common.Address
	networkID int64
	token     common.Address
	baseURL   string
	chain     ChainReader
}

// NewSigner validates cfg. A missing key is not an error here: Sign
// reports ErrMissingKey so the rest of the bot keeps working.
func NewSigner(cfg Config, chain ChainReader) (*Signer, error) {
	network, err := LookupNetwork(cfg.NetworkID)
	if err != nil {
		return nil, err
	}

	token := network.Token
	if cfg.Token != "" {
		token = cfg.Token
	}
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("invalid payout token address %q", token)
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("permit base url is required")
	}

	s := &Signer{
		networkID: cfg.NetworkID,
		token:     common.HexToAddress(token),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/?"),
		chain:     chain,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse payout private key: %w", err)
		}
		s.key = key
		s.owner = crypto.PubkeyToAddress(key.PublicKey)
	}

	return s, nil
}

// Owner returns the treasury address, or the zero address without a key.
func (s *Signer) Owner() common.Address {
	return s.owner
}

// ClaimPrefix is the start of every claim link this signer produces.
func (s *Signer) ClaimPrefix() string {
	return s.baseURL + "?claim="
}

// NonceFor derives keccak256(identifier || lowercase(recipient)) as a
// decimal string.
func (s *Signer) NonceFor(req driven.PermitRequest) string {
	return nonce(req.Identifier, req.Recipient).String()
}

// Sign builds and signs a permit for req. It fails when the key is absent,
// the chain is unreachable, or the RPC serves another network.
func (s *Signer) Sign(ctx context.Context, req driven.PermitRequest) (model.Permit, error) {
	if s.key == nil {
		return model.Permit{}, ErrMissingKey
	}
	if !common.IsHexAddress(req.Recipient) {
		return model.Permit{}, fmt.Errorf("invalid recipient address %q", req.Recipient)
	}
	if !req.Amount.IsPositive() {
		return model.Permit{}, fmt.Errorf("permit amount must be positive, got %s", req.Amount)
	}

	chainID, err := s.chain.ChainID(ctx)
	if err != nil {
		return model.Permit{}, err
	}
	if chainID.Cmp(big.NewInt(s.networkID)) != 0 {
		return model.Permit{}, fmt.Errorf("%w: rpc reports %s, configured %d", ErrChainMismatch, chainID, s.networkID)
	}

	decimals, err := s.chain.TokenDecimals(ctx, s.token)
	if err != nil {
		return model.Permit{}, err
	}
	symbol, err := s.chain.TokenSymbol(ctx, s.token)
	if err != nil {
		return model.Permit{}, err
	}

	shifted := req.Amount.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return model.Permit{}, fmt.Errorf("amount %s has more than %d decimals", req.Amount, decimals)
	}

	recipient := common.HexToAddress(req.Recipient)
	p := model.Permit{
		Recipient:   recipient.Hex(),
		Amount:      req.Amount,
		TokenAmount: shifted.BigInt(),
		Token:       s.token.Hex(),
		TokenSymbol: symbol,
		Owner:       s.owner.Hex(),
		Nonce:       nonce(req.Identifier, req.Recipient),
		Deadline:    new(big.Int).Set(math.MaxBig256),
		NetworkID:   s.networkID,
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData(p))
	if err != nil {
		return model.Permit{}, fmt.Errorf("hash permit typed data: %w", err)
	}

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return model.Permit{}, fmt.Errorf("sign permit: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	p.Signature = hexutil.Encode(sig)

	p.ClaimURL, err = encodeClaim(s.ClaimPrefix(), p)
	if err != nil {
		return model.Permit{}, err
	}
	return p, nil
}

// DecodeClaims returns every permit encoded in this signer's claim links
// found in text. Links that do not decode are skipped.
func (s *Signer) DecodeClaims(text string) []model.Permit {
	return decodeClaims(s.ClaimPrefix(), text)
}

func nonce(identifier, recipient string) *big.Int {
	h := crypto.Keccak256([]byte(identifier + strings.ToLower(recipient)))
	return new(big.Int).SetBytes(h)
}

func typedData(p model.Permit) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"PermitTransferFrom": {
				{Name: "permitted", Type: "TokenPermissions"},
				{Name: "spender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
			"TokenPermissions": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
		},
		PrimaryType: "PermitTransferFrom",
		Domain: apitypes.TypedDataDomain{
			Name:              "Permit2",
			ChainId:           math.NewHexOrDecimal256(p.NetworkID),
			VerifyingContract: Permit2Address,
		},
		Message: apitypes.TypedDataMessage{
			"permitted": map[string]interface{}{
				"token":  p.Token,
				"amount": p.TokenAmount.String(),
			},
			"spender":  p.Recipient,
			"nonce":    p.Nonce.String(),
			"deadline": p.Deadline.String(),
		},
	}
}

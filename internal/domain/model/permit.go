package model

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Permit is a signed Permit2 transfer authorization and its claim URL.
type Permit struct {
	Recipient   string
	Amount      decimal.Decimal // Whole-token units.
	TokenAmount *big.Int        // Smallest token unit (Amount × 10^decimals).
	Token       string
	TokenSymbol string
	Owner       string // Address of the signing treasury key.
	Nonce       *big.Int
	Deadline    *big.Int
	NetworkID   int64
	Signature   string // 0x-prefixed 65-byte hex.
	ClaimURL    string
}

// PermitRecord is the audit-log row written for every issued permit.
type PermitRecord struct {
	ID           int64
	RepoFullName string
	IssueNumber  int
	Title        RewardTitle
	Username     string
	Recipient    string
	Amount       decimal.Decimal
	Nonce        string
	ClaimURL     string
	CreatedAt    time.Time
}

// WalletRecord holds the payout address and multiplier for a GitHub user.
type WalletRecord struct {
	Username   string
	Address    string
	Multiplier decimal.Decimal
	Reason     string
	UpdatedAt  time.Time
}

// BotAccount is an account whose comments never earn rewards, in addition
// to accounts GitHub itself flags as bots.
type BotAccount struct {
	ID       int64
	Username string
	AddedAt  time.Time
}

// ShortenAddress renders 0x1234567890abcdef... as 0x1234...cdef.
func ShortenAddress(addr string) string {
	if len(addr) <= 12 || !strings.HasPrefix(addr, "0x") {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

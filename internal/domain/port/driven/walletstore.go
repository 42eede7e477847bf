package driven

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// ErrWalletNotFound indicates no wallet record exists for the user.
var ErrWalletNotFound = errors.New("wallet not found")

// WalletStore defines the driven port for payout address and multiplier
// persistence. GetWallet returns (nil, nil) when the user has no record.
// A user without a record has multiplier 1 and no address.
type WalletStore interface {
	GetWallet(ctx context.Context, username string) (*model.WalletRecord, error)
	SetAddress(ctx context.Context, username, address string) error
	SetMultiplier(ctx context.Context, username string, multiplier decimal.Decimal, reason string) error
	// Delete returns ErrWalletNotFound if the user has no record.
	Delete(ctx context.Context, username string) error
	ListAll(ctx context.Context) ([]model.WalletRecord, error)
}

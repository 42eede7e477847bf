package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// Sentinel errors returned by BotAccountStore implementations.
var (
	// ErrBotNotFound indicates the requested bot account does not exist.
	ErrBotNotFound = errors.New("bot account not found")

	// ErrBotAlreadyExists indicates a bot with the same username already exists.
	ErrBotAlreadyExists = errors.New("bot account already exists")
)

// BotAccountStore defines the driven port for accounts whose comments are
// never rewarded. Add returns ErrBotAlreadyExists for duplicates.
// Remove returns ErrBotNotFound if the username does not exist.
type BotAccountStore interface {
	Add(ctx context.Context, bot model.BotAccount) (model.BotAccount, error)
	Remove(ctx context.Context, username string) error
	ListAll(ctx context.Context) ([]model.BotAccount, error)
	// GetUsernames returns only the username strings, ordered alphabetically.
	GetUsernames(ctx context.Context) ([]string, error)
}

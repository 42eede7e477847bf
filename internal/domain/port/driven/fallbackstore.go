package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// ErrFallbackNotFound indicates the fallback reward does not exist or was
// already resolved.
var ErrFallbackNotFound = errors.New("fallback reward not found")

// FallbackStore persists rewards that could not be paid because the
// recipient had no wallet on file.
type FallbackStore interface {
	Save(ctx context.Context, reward model.FallbackReward) (int64, error)
	// ListUnresolved returns unresolved rewards, oldest first.
	ListUnresolved(ctx context.Context) ([]model.FallbackReward, error)
	Resolve(ctx context.Context, id int64) error
}

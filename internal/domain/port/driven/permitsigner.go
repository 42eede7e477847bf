package driven

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// PermitRequest is the input to PermitSigner.Sign.
type PermitRequest struct {
	Recipient  string          // Wallet address.
	Amount     decimal.Decimal // Whole-token units.
	Identifier string          // Stable payout identifier; feeds nonce derivation.
}

// PermitSigner builds, signs and encodes transfer permits. Sign must fail,
// not degrade, when key material or chain connectivity is unavailable.
type PermitSigner interface {
	Sign(ctx context.Context, req PermitRequest) (model.Permit, error)
	// NonceFor returns the nonce Sign would derive for the request.
	NonceFor(req PermitRequest) string
	// ClaimPrefix is the URL prefix every claim link starts with.
	ClaimPrefix() string
	// DecodeClaims returns every permit encoded in claim links found in text.
	DecodeClaims(text string) []model.Permit
}

// PermitLog is the audit trail of issued permits. It is not consulted for
// idempotence.
type PermitLog interface {
	Record(ctx context.Context, rec model.PermitRecord) error
	// List returns records filtered by repository and issue; zero values
	// disable the corresponding filter.
	List(ctx context.Context, repoFullName string, issueNumber int) ([]model.PermitRecord, error)
}

// Recorder receives pipeline metrics.
type Recorder interface {
	EventHandled(kind, outcome string)
	PayoutSkipped(reason string)
	PermitIssued(title model.RewardTitle, amount decimal.Decimal)
	FallbackRecorded(title model.RewardTitle)
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardTitle names the role a reward batch pays for.
type RewardTitle string

const (
	RewardTitleAssignee      RewardTitle = "Assignee"
	RewardTitleIssueComments RewardTitle = "Issue-Comments"
	RewardTitleIssueCreation RewardTitle = "Issue-Creation"
	RewardTitleReviewer      RewardTitle = "Review-Reviewer"
)

// RewardCandidate is a computed reward for a user with a wallet on file.
type RewardCandidate struct {
	Account   string // Wallet address.
	UserID    int64
	Username  string
	Amount    decimal.Decimal // Token units, after the role multiplier.
	Penalty   decimal.Decimal // Reserved; always zero.
	Breakdown RewardBreakdown
}

// FallbackReward is a computed reward that cannot be paid yet because the
// user has no wallet on file. It is persisted for manual resolution.
type FallbackReward struct {
	ID           int64
	RepoFullName string
	IssueNumber  int
	Title        RewardTitle
	Username     string
	UserID       int64
	Amount       decimal.Decimal
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// RewardsResult is the outcome of one attribution pass. Skip is set, and
// both slices are empty, when the pass did not apply to the issue.
type RewardsResult struct {
	Title      RewardTitle
	Candidates []RewardCandidate
	Fallbacks  []FallbackReward
	Skip       string
}

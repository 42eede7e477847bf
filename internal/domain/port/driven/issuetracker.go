// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// IssueReader defines the read side of the issue tracker port.
// Comment, review and issue bodies carry both raw Body and rendered BodyHTML.
type IssueReader interface {
	FetchIssue(ctx context.Context, repoFullName string, number int) (*model.Issue, error)
	FetchIssueComments(ctx context.Context, repoFullName string, number int) ([]model.Comment, error)
	FetchReviews(ctx context.Context, repoFullName string, prNumber int) ([]model.Review, error)
	// FetchLinkedPullRequests returns pull requests in the same repository
	// that reference the issue, in no particular order.
	FetchLinkedPullRequests(ctx context.Context, repoFullName string, issueNumber int) ([]model.PullRequest, error)
	// GetLabel returns (nil, nil) when the repository has no such label.
	GetLabel(ctx context.Context, repoFullName string, name string) (*model.Label, error)
}

// IssueWriter defines the mutating side of the issue tracker port. It is
// separate from IssueReader so read-only callers cannot mutate state.
type IssueWriter interface {
	CreateLabel(ctx context.Context, repoFullName string, label model.Label) error
	AddLabel(ctx context.Context, repoFullName string, number int, name string) error
	// RemoveLabel is a no-op when the label is not attached.
	RemoveLabel(ctx context.Context, repoFullName string, number int, name string) error
	CreateComment(ctx context.Context, repoFullName string, number int, body string) error
}

// IssueTracker combines both sides for services that need them.
type IssueTracker interface {
	IssueReader
	IssueWriter
}

// SettingsSource loads bot settings overrides stored in a repository.
// FetchSettings returns (nil, nil) when the file does not exist.
type SettingsSource interface {
	FetchSettings(ctx context.Context, repoFullName string, path string) (*model.SettingsOverride, error)
}

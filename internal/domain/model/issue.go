package model

import "time"

// UserType mirrors the GitHub account type reported on every user object.
type UserType string

const (
	UserTypeUser         UserType = "User"
	UserTypeBot          UserType = "Bot"
	UserTypeOrganization UserType = "Organization"
)

// User is the subset of a GitHub account the reward pipeline needs.
type User struct {
	ID    int64
	Login string
	Type  UserType
}

// IsBot reports whether GitHub flagged the account as a bot.
func (u User) IsBot() bool {
	return u.Type == UserTypeBot
}

// StateReason is the reason GitHub recorded when an issue changed state.
type StateReason string

const (
	StateReasonCompleted  StateReason = "completed"
	StateReasonNotPlanned StateReason = "not_planned"
	StateReasonReopened   StateReason = "reopened"
)

// Issue represents a GitHub issue as seen by a webhook event or a fetch.
type Issue struct {
	ID           int64
	NodeID       string // GraphQL node ID; stable identifier used for permit nonces.
	Number       int
	RepoFullName string
	Title        string
	Body         string
	BodyHTML     string // Rendered description; empty when not fetched.
	State        string
	StateReason  StateReason
	Author       User
	Assignees    []User
	Labels       []string
	CreatedAt    time.Time
	ClosedAt     time.Time
}

// Assignee returns the first assignee, which is the one paid for the issue.
func (i Issue) Assignee() (User, bool) {
	if len(i.Assignees) == 0 {
		return User{}, false
	}
	return i.Assignees[0], true
}

// HasLabel reports whether a label with the exact name is attached.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// PriceLabel returns the first attached price label, if any.
func (i Issue) PriceLabel() (string, bool) {
	for _, l := range i.Labels {
		if IsPriceLabel(l) {
			return l, true
		}
	}
	return "", false
}

// IsBounty reports whether the issue carries a recognized price label.
func (i Issue) IsBounty() bool {
	_, ok := i.PriceLabel()
	return ok
}

// Comment is an issue or pull request conversation comment.
type Comment struct {
	ID        int64
	Author    User
	Body      string
	BodyHTML  string
	CreatedAt time.Time
}

// Review is a submitted pull request review.
type Review struct {
	ID          int64
	Author      User
	State       string
	Body        string
	BodyHTML    string
	SubmittedAt time.Time
}

// PullRequest is a pull request linked to an issue.
type PullRequest struct {
	Number    int
	Title     string
	Author    User
	State     string
	Merged    bool
	URL       string
	CreatedAt time.Time
}

// Label is a repository label definition.
type Label struct {
	Name        string
	Color       string
	Description string
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/incentive"
	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// commandTokens mark a comment as a bot command rather than a contribution.
var commandTokens = []string{
	"/help", "/assign", "/unassign", "/wallet", "/payout", "/multiplier", "/query", "/allow",
}

// isCommand reports whether raw contains any command token.
func isCommand(raw string) bool {
	for _, tok := range commandTokens {
		if strings.Contains(raw, tok) {
			return true
		}
	}
	return false
}

// botFilter recognizes bot accounts by GitHub account type or by the
// configured bot account list.
type botFilter map[string]bool

func newBotFilter(logins []string) botFilter {
	f := make(botFilter, len(logins))
	for _, l := range logins {
		f[strings.ToLower(l)] = true
	}
	return f
}

func (f botFilter) has(u model.User) bool {
	return u.IsBot() || f[strings.ToLower(u.Login)]
}

func loadBotFilter(ctx context.Context, bots driven.BotAccountStore) (botFilter, error) {
	logins, err := bots.GetUsernames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bot accounts: %w", err)
	}
	return newBotFilter(logins), nil
}

// contribution is one comment, review or description considered for reward.
type contribution struct {
	author model.User
	raw    string
	html   string
}

// AttributionService computes per-user rewards for the conversation around
// a closed issue.
type AttributionService struct {
	tracker   driven.IssueReader
	wallets   driven.WalletStore
	bots      driven.BotAccountStore
	fallbacks driven.FallbackStore
	recorder  driven.Recorder
	logger    *slog.Logger
}

// NewAttributionService creates a new AttributionService. A nil fallbacks
// store keeps fallback rewards in the result only, which dry runs rely on.
func NewAttributionService(
	tracker driven.IssueReader,
	wallets driven.WalletStore,
	bots driven.BotAccountStore,
	fallbacks driven.FallbackStore,
	recorder driven.Recorder,
	logger *slog.Logger,
) *AttributionService {
	return &AttributionService{
		tracker:   tracker,
		wallets:   wallets,
		bots:      bots,
		fallbacks: fallbacks,
		recorder:  recorder,
		logger:    orDefault(logger),
	}
}

// noAssigneeSkip is the skip reason shared by all three passes.
const noAssigneeSkip = "The issue has no assignee."

// IssueComments rewards everyone who commented on the issue.
func (s *AttributionService) IssueComments(ctx context.Context, ev *EventContext) (model.RewardsResult, error) {
	result := model.RewardsResult{Title: model.RewardTitleIssueComments}
	if _, ok := ev.Issue.Assignee(); !ok {
		result.Skip = noAssigneeSkip
		return result, nil
	}

	comments, err := s.tracker.FetchIssueComments(ctx, ev.Repo, ev.Issue.Number)
	if err != nil {
		return result, fmt.Errorf("fetch issue comments: %w", err)
	}

	entries := make([]contribution, 0, len(comments))
	for _, c := range comments {
		entries = append(entries, contribution{author: c.Author, raw: c.Body, html: c.BodyHTML})
	}

	return s.attribute(ctx, ev, result, entries, ev.Settings.ParticipationMultiplier)
}

// IssueCreation rewards the author of a bounty issue for its description,
// unless the author is a bot or solved the issue themselves.
func (s *AttributionService) IssueCreation(ctx context.Context, ev *EventContext) (model.RewardsResult, error) {
	result := model.RewardsResult{Title: model.RewardTitleIssueCreation}
	issue := ev.Issue

	if !issue.IsBounty() {
		result.Skip = "The issue is not a bounty."
		return result, nil
	}
	assignee, ok := issue.Assignee()
	if !ok {
		result.Skip = noAssigneeSkip
		return result, nil
	}

	bots, err := loadBotFilter(ctx, s.bots)
	if err != nil {
		return result, err
	}
	if bots.has(issue.Author) {
		result.Skip = "The issue was opened by a bot."
		return result, nil
	}
	if strings.EqualFold(issue.Author.Login, assignee.Login) {
		result.Skip = "The issue creator is the assignee."
		return result, nil
	}

	bodyHTML := issue.BodyHTML
	if bodyHTML == "" {
		fetched, err := s.tracker.FetchIssue(ctx, ev.Repo, issue.Number)
		if err != nil {
			return result, fmt.Errorf("fetch issue description: %w", err)
		}
		bodyHTML = fetched.BodyHTML
	}

	entries := []contribution{{author: issue.Author, raw: issue.Body, html: bodyHTML}}
	return s.attributeWith(ctx, ev, result, entries, ev.Settings.IssueCreatorMultiplier, bots, false)
}

// ReviewRewards rewards reviewers of the most recently created pull request
// linked to the issue, counting both reviews and conversation comments.
func (s *AttributionService) ReviewRewards(ctx context.Context, ev *EventContext) (model.RewardsResult, error) {
	result := model.RewardsResult{Title: model.RewardTitleReviewer}
	if _, ok := ev.Issue.Assignee(); !ok {
		result.Skip = noAssigneeSkip
		return result, nil
	}

	prs, err := s.tracker.FetchLinkedPullRequests(ctx, ev.Repo, ev.Issue.Number)
	if err != nil {
		return result, fmt.Errorf("fetch linked pull requests: %w", err)
	}
	pr, ok := latestPullRequest(prs)
	if !ok {
		result.Skip = "No pull request is linked to the issue."
		return result, nil
	}

	reviews, err := s.tracker.FetchReviews(ctx, ev.Repo, pr.Number)
	if err != nil {
		return result, fmt.Errorf("fetch reviews for #%d: %w", pr.Number, err)
	}
	comments, err := s.tracker.FetchIssueComments(ctx, ev.Repo, pr.Number)
	if err != nil {
		return result, fmt.Errorf("fetch comments for #%d: %w", pr.Number, err)
	}

	entries := make([]contribution, 0, len(reviews)+len(comments))
	for _, r := range reviews {
		entries = append(entries, contribution{author: r.Author, raw: r.Body, html: r.BodyHTML})
	}
	for _, c := range comments {
		entries = append(entries, contribution{author: c.Author, raw: c.Body, html: c.BodyHTML})
	}

	return s.attribute(ctx, ev, result, entries, ev.Settings.ParticipationMultiplier)
}

func (s *AttributionService) attribute(
	ctx context.Context,
	ev *EventContext,
	result model.RewardsResult,
	entries []contribution,
	multiplier decimal.Decimal,
) (model.RewardsResult, error) {
	bots, err := loadBotFilter(ctx, s.bots)
	if err != nil {
		return result, err
	}
	return s.attributeWith(ctx, ev, result, entries, multiplier, bots, true)
}

// attributeWith applies the exclusion rules in order (bot author, assignee,
// command, empty HTML), groups the rest by author and prices each group.
func (s *AttributionService) attributeWith(
	ctx context.Context,
	ev *EventContext,
	result model.RewardsResult,
	entries []contribution,
	multiplier decimal.Decimal,
	bots botFilter,
	filterCommands bool,
) (model.RewardsResult, error) {
	assignee, hasAssignee := ev.Issue.Assignee()
	log := s.logger.With("repo", ev.Repo, "issue", ev.Issue.Number, "title", result.Title)

	type group struct {
		user   model.User
		bodies []string
	}
	var order []string
	groups := make(map[string]*group)

	for _, e := range entries {
		switch {
		case bots.has(e.author):
			continue
		case hasAssignee && strings.EqualFold(e.author.Login, assignee.Login):
			continue
		case filterCommands && isCommand(e.raw):
			continue
		case strings.TrimSpace(e.html) == "":
			continue
		}

		key := strings.ToLower(e.author.Login)
		g, ok := groups[key]
		if !ok {
			g = &group{user: e.author}
			groups[key] = g
			order = append(order, key)
		}
		g.bodies = append(g.bodies, e.html)
	}

	for _, key := range order {
		g := groups[key]
		breakdown := incentive.CalculateBodies(g.bodies, ev.Settings.Incentives)
		if breakdown.Sum.IsZero() {
			log.Debug("no reward", "user", g.user.Login)
			continue
		}

		amount := breakdown.Sum.Mul(multiplier)
		if !amount.IsPositive() {
			log.Debug("reward zeroed by multiplier", "user", g.user.Login)
			continue
		}
		if amount.GreaterThan(ev.Settings.PaymentPermitMaxPrice) {
			log.Warn("reward exceeds max permit price",
				"user", g.user.Login,
				"amount", amount.String(),
				"max", ev.Settings.PaymentPermitMaxPrice.String(),
			)
			continue
		}

		wallet, err := s.wallets.GetWallet(ctx, g.user.Login)
		if err != nil {
			log.Error("wallet lookup failed", "user", g.user.Login, "error", err)
			continue
		}

		if wallet == nil || wallet.Address == "" {
			result.Fallbacks = append(result.Fallbacks, s.recordFallback(ctx, ev, result.Title, g.user, amount))
			continue
		}

		result.Candidates = append(result.Candidates, model.RewardCandidate{
			Account:   wallet.Address,
			UserID:    g.user.ID,
			Username:  g.user.Login,
			Amount:    amount,
			Penalty:   decimal.Zero,
			Breakdown: breakdown,
		})
	}

	return result, nil
}

func (s *AttributionService) recordFallback(
	ctx context.Context,
	ev *EventContext,
	title model.RewardTitle,
	user model.User,
	amount decimal.Decimal,
) model.FallbackReward {
	fr := model.FallbackReward{
		RepoFullName: ev.Repo,
		IssueNumber:  ev.Issue.Number,
		Title:        title,
		Username:     user.Login,
		UserID:       user.ID,
		Amount:       amount,
		CreatedAt:    time.Now().UTC(),
	}

	s.recorder.FallbackRecorded(title)
	if s.fallbacks == nil {
		return fr
	}

	id, err := s.fallbacks.Save(ctx, fr)
	if err != nil {
		s.logger.Error("save fallback reward", "user", user.Login, "repo", ev.Repo, "issue", ev.Issue.Number, "error", err)
		return fr
	}
	fr.ID = id
	return fr
}

// latestPullRequest picks the most recently created pull request; ties go
// to the higher number.
func latestPullRequest(prs []model.PullRequest) (model.PullRequest, bool) {
	if len(prs) == 0 {
		return model.PullRequest{}, false
	}
	sorted := make([]model.PullRequest, len(prs))
	copy(sorted, prs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].Number > sorted[j].Number
	})
	return sorted[0], true
}

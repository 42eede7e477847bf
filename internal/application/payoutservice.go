package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// PermittedLabel replaces the price label once the assignee's permit is posted.
const PermittedLabel = "Permitted"

// Skip reasons, used as metric labels.
const (
	skipNotCompleted   = "not_completed"
	skipAutoPayOff     = "auto_pay_disabled"
	skipNotBounty      = "not_bounty"
	skipNoAssignee     = "no_assignee"
	skipNoPrice        = "no_price_label"
	skipNoWallet       = "no_wallet"
	skipZeroMultiplier = "zero_multiplier"
	skipOverMaxPrice   = "over_max_price"
	skipAlreadyPosted  = "already_posted"
)

// PayoutService pays the assignee of a closed bounty and, when enabled, the
// other participants.
type PayoutService struct {
	tracker     driven.IssueTracker
	wallets     driven.WalletStore
	bots        driven.BotAccountStore
	attribution *AttributionService
	permits     *PermitService
	recorder    driven.Recorder
	logger      *slog.Logger
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(
	tracker driven.IssueTracker,
	wallets driven.WalletStore,
	bots driven.BotAccountStore,
	attribution *AttributionService,
	permits *PermitService,
	recorder driven.Recorder,
	logger *slog.Logger,
) *PayoutService {
	return &PayoutService{
		tracker:     tracker,
		wallets:     wallets,
		bots:        bots,
		attribution: attribution,
		permits:     permits,
		recorder:    recorder,
		logger:      orDefault(logger),
	}
}

func (s *PayoutService) skip(ev *EventContext, reason, message string) (string, error) {
	s.recorder.PayoutSkipped(reason)
	s.logger.Info("payout skipped", "repo", ev.Repo, "issue", ev.Issue.Number, "reason", reason)
	return message, nil
}

// HandleIssueClosed runs the eligibility gates in order and issues the
// assignee's permit when all pass. The returned message is posted on the issue.
func (s *PayoutService) HandleIssueClosed(ctx context.Context, ev *EventContext) (string, error) {
	issue := ev.Issue

	if issue.StateReason != model.StateReasonCompleted {
		return s.skip(ev, skipNotCompleted, "Permit generation skipped: the issue was not closed as completed.")
	}
	if !ev.Settings.AutoPayMode {
		return s.skip(ev, skipAutoPayOff, "Permit generation disabled because auto-pay mode is off.")
	}
	if !issue.IsBounty() {
		return s.skip(ev, skipNotBounty, "Permit generation skipped: this issue is not a bounty.")
	}
	assignee, ok := issue.Assignee()
	if !ok {
		return s.skip(ev, skipNoAssignee, "Permit generation skipped: the issue has no assignee.")
	}

	priceLabel, _ := issue.PriceLabel()
	price, ok := model.ParsePriceLabel(priceLabel)
	if !ok || !price.IsPositive() {
		return s.skip(ev, skipNoPrice, "Permit generation skipped: the issue has no valid price label.")
	}

	wallet, err := s.wallets.GetWallet(ctx, assignee.Login)
	if err != nil {
		return "", fmt.Errorf("look up wallet for %s: %w", assignee.Login, err)
	}
	if wallet == nil || wallet.Address == "" {
		return s.skip(ev, skipNoWallet, fmt.Sprintf(
			"Permit generation skipped: @%s has no wallet address on file. Register one by commenting `/wallet 0xYourAddress`.",
			assignee.Login))
	}
	if wallet.Multiplier.IsZero() {
		return s.skip(ev, skipZeroMultiplier, fmt.Sprintf(
			"Permit generation skipped: the payout multiplier for @%s is 0.", assignee.Login))
	}

	amount := price.Mul(wallet.Multiplier)
	if amount.GreaterThan(ev.Settings.PaymentPermitMaxPrice) {
		return s.skip(ev, skipOverMaxPrice, fmt.Sprintf(
			"Permit generation skipped: %s exceeds the maximum permit price of %s.",
			amount.String(), ev.Settings.PaymentPermitMaxPrice.String()))
	}

	comments, err := s.tracker.FetchIssueComments(ctx, ev.Repo, issue.Number)
	if err != nil {
		return "", fmt.Errorf("fetch comments: %w", err)
	}
	botLogins, err := s.bots.GetUsernames(ctx)
	if err != nil {
		return "", fmt.Errorf("load bot accounts: %w", err)
	}
	if s.permits.AlreadyPosted(comments, botLogins) {
		return s.skip(ev, skipAlreadyPosted, "Permit generation skipped: a permit was already posted on this issue.")
	}

	p, err := s.permits.Generate(ctx, ev, model.RewardTitleAssignee, assignee.Login, driven.PermitRequest{
		Recipient:  wallet.Address,
		Amount:     amount,
		Identifier: issue.NodeID,
	})
	if err != nil {
		return "", err
	}

	s.markPermitted(ctx, ev, priceLabel)
	return RenderClaim(p), nil
}

// markPermitted swaps the price label for the permitted label. The permit
// is already signed, so failures here are logged, not returned.
func (s *PayoutService) markPermitted(ctx context.Context, ev *EventContext, priceLabel string) {
	log := s.logger.With("repo", ev.Repo, "issue", ev.Issue.Number)

	if err := s.tracker.RemoveLabel(ctx, ev.Repo, ev.Issue.Number, priceLabel); err != nil {
		log.Error("remove price label", "label", priceLabel, "error", err)
	}

	existing, err := s.tracker.GetLabel(ctx, ev.Repo, PermittedLabel)
	if err != nil {
		log.Error("look up permitted label", "error", err)
		return
	}
	if existing == nil {
		if err := s.tracker.CreateLabel(ctx, ev.Repo, model.Label{Name: PermittedLabel, Color: "8250df"}); err != nil {
			log.Error("create permitted label", "error", err)
			return
		}
	}
	if err := s.tracker.AddLabel(ctx, ev.Repo, ev.Issue.Number, PermittedLabel); err != nil {
		log.Error("add permitted label", "error", err)
	}
}

// HandleIncentives rewards commenters, the issue creator and reviewers when
// incentive mode is on. Each recipient succeeds or fails on its own.
func (s *PayoutService) HandleIncentives(ctx context.Context, ev *EventContext) (string, error) {
	if !ev.Settings.IncentiveMode || ev.Issue.StateReason != model.StateReasonCompleted {
		return "", nil
	}

	comments, err := s.tracker.FetchIssueComments(ctx, ev.Repo, ev.Issue.Number)
	if err != nil {
		return "", fmt.Errorf("fetch comments: %w", err)
	}
	botLogins, err := s.bots.GetUsernames(ctx)
	if err != nil {
		return "", fmt.Errorf("load bot accounts: %w", err)
	}

	passes := []func(context.Context, *EventContext) (model.RewardsResult, error){
		s.attribution.IssueComments,
		s.attribution.IssueCreation,
		s.attribution.ReviewRewards,
	}

	var sections []string
	for _, pass := range passes {
		result, err := pass(ctx, ev)
		if err != nil {
			s.logger.Error("reward attribution failed", "repo", ev.Repo, "issue", ev.Issue.Number, "title", result.Title, "error", err)
			sections = append(sections, fmt.Sprintf("#### %s\nRewards could not be computed: %v", result.Title, err))
			continue
		}
		if section := s.renderSection(ctx, ev, result, comments, botLogins); section != "" {
			sections = append(sections, section)
		}
	}

	return strings.Join(sections, "\n\n"), nil
}

func (s *PayoutService) renderSection(
	ctx context.Context,
	ev *EventContext,
	result model.RewardsResult,
	comments []model.Comment,
	botLogins []string,
) string {
	if result.Skip != "" {
		s.logger.Debug("reward pass skipped", "title", result.Title, "reason", result.Skip)
		return ""
	}
	if len(result.Candidates) == 0 && len(result.Fallbacks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#### %s\n", result.Title)

	for _, c := range result.Candidates {
		req := driven.PermitRequest{
			Recipient:  c.Account,
			Amount:     c.Amount,
			Identifier: ev.Issue.NodeID + string(result.Title),
		}
		if s.permits.PostedFor(comments, botLogins, req.Recipient, s.permits.NonceFor(req)) {
			fmt.Fprintf(&b, "@%s: a permit was already posted.\n", c.Username)
			continue
		}

		p, err := s.permits.Generate(ctx, ev, result.Title, c.Username, req)
		if err != nil {
			s.logger.Error("incentive permit failed", "user", c.Username, "title", result.Title, "error", err)
			fmt.Fprintf(&b, "@%s: permit generation failed: %v\n", c.Username, err)
			continue
		}
		b.WriteString(RenderUserClaim(c.Username, p))
		b.WriteByte('\n')
	}

	if len(result.Fallbacks) > 0 {
		b.WriteString("\nPending payouts (no wallet on file):\n\n| User | Amount |\n|---|---|\n")
		for _, f := range result.Fallbacks {
			fmt.Fprintf(&b, "| @%s | %s |\n", f.Username, f.Amount.String())
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

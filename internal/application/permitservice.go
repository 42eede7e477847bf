package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// PermitService signs permits, records them and renders claim comments.
type PermitService struct {
	signer   driven.PermitSigner
	log      driven.PermitLog
	recorder driven.Recorder
	logger   *slog.Logger
}

// NewPermitService creates a new PermitService.
func NewPermitService(signer driven.PermitSigner, log driven.PermitLog, recorder driven.Recorder, logger *slog.Logger) *PermitService {
	return &PermitService{
		signer:   signer,
		log:      log,
		recorder: recorder,
		logger:   orDefault(logger),
	}
}

// AlreadyPosted reports whether a bot already posted a claim link among comments.
func (s *PermitService) AlreadyPosted(comments []model.Comment, botLogins []string) bool {
	bots := newBotFilter(botLogins)
	prefix := s.signer.ClaimPrefix()

	for _, c := range comments {
		if bots.has(c.Author) && strings.Contains(c.Body, prefix) {
			return true
		}
	}
	return false
}

// PostedFor reports whether a bot comment already holds a claim for the
// recipient with the given nonce.
func (s *PermitService) PostedFor(comments []model.Comment, botLogins []string, recipient, nonce string) bool {
	bots := newBotFilter(botLogins)

	for _, c := range comments {
		if !bots.has(c.Author) {
			continue
		}
		for _, p := range s.signer.DecodeClaims(c.Body) {
			if strings.EqualFold(p.Recipient, recipient) && p.Nonce != nil && p.Nonce.String() == nonce {
				return true
			}
		}
	}
	return false
}

// NonceFor returns the nonce a permit for req would carry.
func (s *PermitService) NonceFor(req driven.PermitRequest) string {
	return s.signer.NonceFor(req)
}

// Generate signs a permit and appends it to the audit log. A failed audit
// write is logged; the signed permit is still returned.
func (s *PermitService) Generate(
	ctx context.Context,
	ev *EventContext,
	title model.RewardTitle,
	username string,
	req driven.PermitRequest,
) (model.Permit, error) {
	p, err := s.signer.Sign(ctx, req)
	if err != nil {
		return model.Permit{}, fmt.Errorf("sign permit for %s: %w", username, err)
	}

	rec := model.PermitRecord{
		RepoFullName: ev.Repo,
		IssueNumber:  ev.Issue.Number,
		Title:        title,
		Username:     username,
		Recipient:    p.Recipient,
		Amount:       p.Amount,
		Nonce:        p.Nonce.String(),
		ClaimURL:     p.ClaimURL,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.log.Record(ctx, rec); err != nil {
		s.logger.Error("record permit", "user", username, "repo", ev.Repo, "issue", ev.Issue.Number, "error", err)
	}

	s.recorder.PermitIssued(title, p.Amount)
	s.logger.Info("permit issued",
		"repo", ev.Repo,
		"issue", ev.Issue.Number,
		"title", title,
		"user", username,
		"amount", p.Amount.String(),
	)
	return p, nil
}

// RenderClaim formats the claim comment for the assignee payout.
func RenderClaim(p model.Permit) string {
	return fmt.Sprintf("### [ **[ CLAIM %s %s ]** ](%s)\n```\n%s\n```",
		p.Amount.String(), p.TokenSymbol, p.ClaimURL, model.ShortenAddress(p.Recipient))
}

// RenderUserClaim formats one contributor's claim line in an incentives section.
func RenderUserClaim(username string, p model.Permit) string {
	return fmt.Sprintf("### [ **%s: [ CLAIM %s %s ]** ](%s)",
		username, p.Amount.String(), p.TokenSymbol, p.ClaimURL)
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
	"github.com/ericfisherdev/bountybot/internal/domain/pricing"
)

// priceLabelColor is the color given to price labels the bot creates.
const priceLabelColor = "1f883d"

// PricingService keeps an issue's price label in line with its time and
// priority labels.
type PricingService struct {
	tracker driven.IssueTracker
	logger  *slog.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(tracker driven.IssueTracker, logger *slog.Logger) *PricingService {
	return &PricingService{tracker: tracker, logger: orDefault(logger)}
}

// Apply resolves the target price label and mutates the issue's labels to
// match. Running it again on the resulting labels changes nothing.
func (s *PricingService) Apply(ctx context.Context, ev *EventContext) (string, error) {
	issue := ev.Issue
	plan := pricing.Resolve(issue.Labels, issue.Body, ev.Settings, pricing.NewPriceLookup(ev.Settings))

	log := s.logger.With("repo", ev.Repo, "issue", issue.Number)
	log.Debug("price plan", "target", plan.Target, "remove", plan.Remove, "add", plan.Add, "reason", plan.Reason)

	if plan.NoOp() {
		if plan.Target != "" {
			return fmt.Sprintf("Price label %q is already set.", plan.Target), nil
		}
		return "No price label applies to this issue.", nil
	}

	for _, name := range plan.Remove {
		if err := s.tracker.RemoveLabel(ctx, ev.Repo, issue.Number, name); err != nil {
			return "", fmt.Errorf("remove price label %q: %w", name, err)
		}
	}

	if !plan.Add {
		return fmt.Sprintf("Removed price labels: %s.", strings.Join(plan.Remove, ", ")), nil
	}

	existing, err := s.tracker.GetLabel(ctx, ev.Repo, plan.Target)
	if err != nil {
		return "", fmt.Errorf("look up price label %q: %w", plan.Target, err)
	}
	// GitHub creates a missing label on attach, without the bot's color.
	if existing == nil && ev.Settings.AssistivePricing {
		label := model.Label{
			Name:        plan.Target,
			Color:       priceLabelColor,
			Description: "Bounty price",
		}
		if err := s.tracker.CreateLabel(ctx, ev.Repo, label); err != nil {
			return "", fmt.Errorf("create price label %q: %w", plan.Target, err)
		}
	}

	if err := s.tracker.AddLabel(ctx, ev.Repo, issue.Number, plan.Target); err != nil {
		return "", fmt.Errorf("add price label %q: %w", plan.Target, err)
	}

	log.Info("price label set", "label", plan.Target, "time", plan.TimeLabel, "priority", plan.PriorityLabel)
	return fmt.Sprintf("Set price label %q.", plan.Target), nil
}

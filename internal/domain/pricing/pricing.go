// Package pricing derives an issue's target price label from its time and
// priority labels.
package pricing

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// trackingChecklist matches a task-list line that references another issue,
// e.g. "- [ ] #12" or "* [x] fix login #34".
var trackingChecklist = regexp.MustCompile(`(?m)^\s*[-*]\s+\[[ xX]\]\s+.*#\d+`)

// PriceLookup maps a resolved time label and priority label to a price
// label. Either name may be empty. ok is false when no price applies.
type PriceLookup func(timeLabel, priorityLabel string) (label string, ok bool)

// Plan is the label mutation needed to bring an issue to its target price.
type Plan struct {
	TimeLabel     string
	PriorityLabel string
	Target        string   // Empty when the issue should carry no price label.
	Remove        []string // Price labels to detach.
	Add           bool     // Attach Target after removals.
	Reason        string
}

// NoOp reports whether applying the plan changes nothing.
func (p Plan) NoOp() bool {
	return len(p.Remove) == 0 && !p.Add
}

// LowestWeight returns the lowest-weight candidate whose name is present.
// Ties go to the candidate listed first.
func LowestWeight(candidates []model.WeightedLabel, present []string) (model.WeightedLabel, bool) {
	set := make(map[string]struct{}, len(present))
	for _, p := range present {
		set[p] = struct{}{}
	}

	var best model.WeightedLabel
	found := false
	for _, c := range candidates {
		if _, ok := set[c.Name]; !ok {
			continue
		}
		if !found || c.Weight.LessThan(best.Weight) {
			best = c
			found = true
		}
	}
	return best, found
}

// NewPriceLookup returns the default lookup: PriceMultiplier × time weight ×
// priority weight. Both labels are required.
func NewPriceLookup(s model.BotSettings) PriceLookup {
	times := weightIndex(s.TimeLabels)
	priorities := weightIndex(s.PriorityLabels)
	multiplier := s.PriceMultiplier

	return func(timeLabel, priorityLabel string) (string, bool) {
		tw, ok := times[timeLabel]
		if !ok {
			return "", false
		}
		pw, ok := priorities[priorityLabel]
		if !ok {
			return "", false
		}

		price := multiplier.Mul(tw).Mul(pw)
		if !price.IsPositive() {
			return "", false
		}
		return model.FormatPriceLabel(price), true
	}
}

// IsTrackingIssue reports whether body is a parent issue checklist that
// references other issues. Tracking issues are never priced.
func IsTrackingIssue(body string) bool {
	return trackingChecklist.MatchString(body)
}

// Resolve computes the plan for an issue with the given labels and body.
func Resolve(labels []string, body string, s model.BotSettings, lookup PriceLookup) Plan {
	existing := priceLabels(labels)

	if IsTrackingIssue(body) {
		return Plan{Remove: existing, Reason: "tracking issue"}
	}

	var plan Plan
	if tl, ok := LowestWeight(s.TimeLabels, labels); ok {
		plan.TimeLabel = tl.Name
	}
	if pl, ok := LowestWeight(s.PriorityLabels, labels); ok {
		plan.PriorityLabel = pl.Name
	}

	target, ok := lookup(plan.TimeLabel, plan.PriorityLabel)
	if !ok {
		plan.Remove = existing
		plan.Reason = "no price for labels"
		return plan
	}

	plan.Target = target
	for _, l := range labels {
		if l == target {
			plan.Reason = "price label already set"
			return plan
		}
	}

	plan.Remove = existing
	plan.Add = true
	plan.Reason = "price label changed"
	return plan
}

func priceLabels(labels []string) []string {
	var out []string
	for _, l := range labels {
		if model.IsPriceLabel(l) {
			out = append(out, l)
		}
	}
	return out
}

func weightIndex(labels []model.WeightedLabel) map[string]decimal.Decimal {
	idx := make(map[string]decimal.Decimal, len(labels))
	for _, l := range labels {
		if _, dup := idx[l.Name]; !dup {
			idx[l.Name] = l.Weight
		}
	}
	return idx
}

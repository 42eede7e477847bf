package model

import "github.com/shopspring/decimal"

// BotSettings is the effective per-repository bot configuration, merged
// from built-in defaults, the organization file, and the repository file.
type BotSettings struct {
	PriceMultiplier         decimal.Decimal
	ParticipationMultiplier decimal.Decimal
	IssueCreatorMultiplier  decimal.Decimal
	PaymentPermitMaxPrice   decimal.Decimal
	TimeLabels              []WeightedLabel
	PriorityLabels          []WeightedLabel
	Incentives              IncentiveTable
	AutoPayMode             bool
	AssistivePricing        bool
	IncentiveMode           bool
}

// SettingsOverride is the on-disk shape of a settings file. Nil or empty
// fields mean "inherit from the layer below".
type SettingsOverride struct {
	PriceMultiplier         *decimal.Decimal `yaml:"price-multiplier"`
	ParticipationMultiplier *decimal.Decimal `yaml:"participation-multiplier"`
	IssueCreatorMultiplier  *decimal.Decimal `yaml:"issue-creator-multiplier"`
	PaymentPermitMaxPrice   *decimal.Decimal `yaml:"payment-permit-max-price"`
	TimeLabels              []WeightedLabel  `yaml:"time-labels"`
	PriorityLabels          []WeightedLabel  `yaml:"priority-labels"`
	Incentives              *IncentiveTable  `yaml:"comment-incentives"`
	AutoPayMode             *bool            `yaml:"auto-pay-mode"`
	AssistivePricing        *bool            `yaml:"assistive-pricing"`
	IncentiveMode           *bool            `yaml:"incentive-mode"`
}

// DefaultBotSettings returns the built-in settings used when no file
// overrides a field.
func DefaultBotSettings() BotSettings {
	d := decimal.RequireFromString
	return BotSettings{
		PriceMultiplier:         d("1000"),
		ParticipationMultiplier: d("1"),
		IssueCreatorMultiplier:  d("2"),
		PaymentPermitMaxPrice:   d("1000"),
		TimeLabels: []WeightedLabel{
			{Name: "Time: <1 Hour", Weight: d("0.125")},
			{Name: "Time: <1 Day", Weight: d("1")},
			{Name: "Time: <1 Week", Weight: d("2")},
			{Name: "Time: <2 Weeks", Weight: d("3")},
			{Name: "Time: <1 Month", Weight: d("4")},
		},
		PriorityLabels: []WeightedLabel{
			{Name: "Priority: 0 (Normal)", Weight: d("1")},
			{Name: "Priority: 1 (Medium)", Weight: d("2")},
			{Name: "Priority: 2 (High)", Weight: d("3")},
			{Name: "Priority: 3 (Urgent)", Weight: d("4")},
			{Name: "Priority: 4 (Emergency)", Weight: d("5")},
		},
		Incentives: IncentiveTable{
			Elements: map[string]decimal.Decimal{
				"img":        d("5"),
				"code":       d("5"),
				"a":          d("5"),
				"table":      d("5"),
				"ul":         d("1"),
				"ol":         d("1"),
				"li":         d("0.5"),
				"h1":         d("1"),
				"h2":         d("1"),
				"h3":         d("1"),
				"blockquote": d("1"),
			},
			Word: d("0.1"),
		},
		AutoPayMode:      true,
		AssistivePricing: false,
		IncentiveMode:    false,
	}
}

// Apply returns s with every non-nil, non-empty field of o taking precedence.
func (s BotSettings) Apply(o *SettingsOverride) BotSettings {
	if o == nil {
		return s
	}
	if o.PriceMultiplier != nil {
		s.PriceMultiplier = *o.PriceMultiplier
	}
	if o.ParticipationMultiplier != nil {
		s.ParticipationMultiplier = *o.ParticipationMultiplier
	}
	if o.IssueCreatorMultiplier != nil {
		s.IssueCreatorMultiplier = *o.IssueCreatorMultiplier
	}
	if o.PaymentPermitMaxPrice != nil {
		s.PaymentPermitMaxPrice = *o.PaymentPermitMaxPrice
	}
	if len(o.TimeLabels) > 0 {
		s.TimeLabels = o.TimeLabels
	}
	if len(o.PriorityLabels) > 0 {
		s.PriorityLabels = o.PriorityLabels
	}
	if o.Incentives != nil {
		s.Incentives = *o.Incentives
	}
	if o.AutoPayMode != nil {
		s.AutoPayMode = *o.AutoPayMode
	}
	if o.AssistivePricing != nil {
		s.AssistivePricing = *o.AssistivePricing
	}
	if o.IncentiveMode != nil {
		s.IncentiveMode = *o.IncentiveMode
	}
	return s
}

// MergeSettings layers repo over org over base. Either override may be nil.
func MergeSettings(base BotSettings, org, repo *SettingsOverride) BotSettings {
	return base.Apply(org).Apply(repo)
}

package model

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// TextCategory is the multiset key under which plain-text word counts accumulate.
const TextCategory = "#text"

// IncentiveTable is the price table for comment content. Elements maps an
// HTML tag name to the reward per occurrence; Word is the reward per word of
// plain text. Zero or missing entries are inert.
type IncentiveTable struct {
	Elements map[string]decimal.Decimal `yaml:"elements"`
	Word     decimal.Decimal            `yaml:"word"`
}

// ElementReward returns the reward for one occurrence of tag, and whether
// the tag is rewarded at all.
func (t IncentiveTable) ElementReward(tag string) (decimal.Decimal, bool) {
	v, ok := t.Elements[tag]
	if !ok || !v.IsPositive() {
		return decimal.Zero, false
	}
	return v, true
}

// WordReward returns the reward per word, and whether words are rewarded.
func (t IncentiveTable) WordReward() (decimal.Decimal, bool) {
	if !t.Word.IsPositive() {
		return decimal.Zero, false
	}
	return t.Word, true
}

// WeightedLabel is a time-estimate or priority label with its ordering weight.
type WeightedLabel struct {
	Name   string          `yaml:"name"`
	Weight decimal.Decimal `yaml:"weight"`
}

// CommentMultiset counts element occurrences by tag name, plus the word
// count of all text nodes under TextCategory.
type CommentMultiset map[string]int

// Merge adds every count in other into m.
func (m CommentMultiset) Merge(other CommentMultiset) {
	for k, v := range other {
		m[k] += v
	}
}

// CategoryReward is the per-category line of a reward breakdown.
type CategoryReward struct {
	Count int
	Unit  decimal.Decimal
}

// Total returns Count × Unit.
func (c CategoryReward) Total() decimal.Decimal {
	return c.Unit.Mul(decimal.NewFromInt(int64(c.Count)))
}

// RewardBreakdown is the exact reward for one multiset under one table.
// A zero Sum means "no reward".
type RewardBreakdown struct {
	Sum        decimal.Decimal
	ByCategory map[string]CategoryReward
}

// priceLabelPattern matches labels of the form "Price: 12.5 USD".
var priceLabelPattern = regexp.MustCompile(`^Price:\s*([0-9]+(?:\.[0-9]+)?)\s*USD$`)

// PriceLabelPrefix starts every price label.
const PriceLabelPrefix = "Price: "

// IsPriceLabel reports whether name is a well-formed price label.
func IsPriceLabel(name string) bool {
	return priceLabelPattern.MatchString(name)
}

// ParsePriceLabel extracts the USD amount from a price label.
func ParsePriceLabel(name string) (decimal.Decimal, bool) {
	m := priceLabelPattern.FindStringSubmatch(name)
	if m == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatPriceLabel renders an amount as a price label.
func FormatPriceLabel(amount decimal.Decimal) string {
	return PriceLabelPrefix + amount.String() + " USD"
}

package incentive

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// Calculate prices a multiset against the table. Categories without a
// positive reward are dropped from the breakdown and add nothing to Sum.
// Categories are visited in sorted order so results are deterministic.
func Calculate(m model.CommentMultiset, t model.IncentiveTable) model.RewardBreakdown {
	b := model.RewardBreakdown{
		Sum:        decimal.Zero,
		ByCategory: make(map[string]model.CategoryReward),
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		count := m[k]
		if count <= 0 {
			continue
		}

		var unit decimal.Decimal
		var ok bool
		if k == model.TextCategory {
			unit, ok = t.WordReward()
		} else {
			unit, ok = t.ElementReward(k)
		}
		if !ok {
			continue
		}

		line := model.CategoryReward{Count: count, Unit: unit}
		b.ByCategory[k] = line
		b.Sum = b.Sum.Add(line.Total())
	}

	return b
}

// CalculateBodies parses and prices a set of rendered bodies for one author.
func CalculateBodies(bodies []string, t model.IncentiveTable) model.RewardBreakdown {
	return Calculate(ParseFragments(bodies), t)
}

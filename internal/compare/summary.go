// Package compare computes per-classification statistics over enriched
// account-days.
package compare

import (
	"sort"

	"github.com/newthinker/tradermood/internal/core"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// BySentiment returns one summary per classification present in rows,
// ordered from Extreme Fear to Extreme Greed. Classifications without rows
// are omitted.
func BySentiment(rows []core.EnrichedAccountDay) []core.SentimentSummary {
	groups := make(map[core.Classification][]core.EnrichedAccountDay)
	for _, r := range rows {
		groups[r.Classification] = append(groups[r.Classification], r)
	}

	var out []core.SentimentSummary
	for _, class := range core.Classifications {
		g, ok := groups[class]
		if !ok {
			continue
		}
		out = append(out, summarize(class, g))
	}
	return out
}

func summarize(class core.Classification, rows []core.EnrichedAccountDay) core.SentimentSummary {
	pnls := make([]decimal.Decimal, len(rows))
	winRate := 0.0
	var levSum decimal.Decimal
	levCount := 0

	for i, r := range rows {
		pnls[i] = r.DailyPnL
		winRate += r.WinRate
		if r.AvgLeverage.Valid {
			levSum = levSum.Add(r.AvgLeverage.Decimal)
			levCount++
		}
	}

	s := core.SentimentSummary{
		Classification: class,
		Rows:           len(rows),
		MedianDailyPnL: Median(pnls),
		MeanDailyPnL:   Mean(pnls),
		MeanWinRate:    winRate / float64(len(rows)),
	}
	if levCount > 0 {
		s.AvgLeverageUsed = decimal.NullDecimal{
			Decimal: levSum.Div(decimal.NewFromInt(int64(levCount))),
			Valid:   true,
		}
	}
	return s
}

// Median returns the middle value of vs, or the mean of the two middle
// values when len(vs) is even. vs is not modified. Empty input yields zero.
func Median(vs []decimal.Decimal) decimal.Decimal {
	n := len(vs)
	if n == 0 {
		return decimal.Zero
	}

	sorted := make([]decimal.Decimal, n)
	copy(sorted, vs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(two)
}

// Mean returns the arithmetic mean of vs, or zero for empty input.
func Mean(vs []decimal.Decimal) decimal.Decimal {
	if len(vs) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, vs...).Div(decimal.NewFromInt(int64(len(vs))))
}

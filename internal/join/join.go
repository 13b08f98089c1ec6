// Package join attaches the day's sentiment classification to account-day
// aggregates.
package join

import (
	"fmt"

	"github.com/newthinker/tradermood/internal/core"
)

// Sentiment matches each aggregate's trade date to a sentiment record by
// exact calendar day. Aggregates without a match are dropped, so the result
// is never longer than the input. Input order is preserved.
//
// It returns ErrNoOverlap when aggregates exist but none matched, along
// with the number of unmatched aggregates.
func Sentiment(aggs []core.AccountDayAggregate, sentiment []core.SentimentRecord) ([]core.EnrichedAccountDay, int, error) {
	byDay := make(map[string]core.Classification, len(sentiment))
	for _, s := range sentiment {
		byDay[core.DayKey(s.Date)] = s.Classification
	}

	out := make([]core.EnrichedAccountDay, 0, len(aggs))
	for _, a := range aggs {
		class, ok := byDay[core.DayKey(a.TradeDate)]
		if !ok {
			continue
		}
		out = append(out, core.EnrichedAccountDay{
			AccountDayAggregate: a,
			Classification:      class,
		})
	}

	unmatched := len(aggs) - len(out)
	if len(out) == 0 {
		return nil, unmatched, core.WrapError(core.ErrNoOverlap,
			fmt.Errorf("%d account-days, %d sentiment days, 0 shared", len(aggs), len(byDay)))
	}
	return out, unmatched, nil
}

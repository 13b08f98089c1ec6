// Package aggregate reduces trades to one row per account and calendar day.
package aggregate

import (
	"time"

	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/normalize"
	"github.com/shopspring/decimal"
)

type dayKey struct {
	account string
	day     string
}

// bucket accumulates one (account, day) group
type bucket struct {
	account  string
	date     time.Time
	pnl      decimal.Decimal
	trades   int
	wins     int
	levSum   decimal.Decimal
	levCount int
}

// Daily groups trades by (account, trade date) and emits one aggregate per
// non-empty group, in order of each group's first trade.
//
// When the schema has no leverage column every aggregate carries the
// schema default. Otherwise avg_leverage is the mean over trades whose
// leverage is present, and is missing when none is.
func Daily(trades []core.TradeRecord, schema normalize.TradeSchema) []core.AccountDayAggregate {
	index := make(map[dayKey]int)
	var buckets []*bucket

	for _, t := range trades {
		k := dayKey{account: t.Account, day: core.DayKey(t.TradeDate)}
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, &bucket{account: t.Account, date: t.TradeDate})
		}

		b := buckets[i]
		b.trades++
		b.pnl = b.pnl.Add(t.ClosedPnL)
		if t.IsWin() {
			b.wins++
		}
		if t.Leverage.Valid {
			b.levSum = b.levSum.Add(t.Leverage.Decimal)
			b.levCount++
		}
	}

	out := make([]core.AccountDayAggregate, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.aggregate(schema))
	}
	return out
}

func (b *bucket) aggregate(schema normalize.TradeSchema) core.AccountDayAggregate {
	agg := core.AccountDayAggregate{
		Account:   b.account,
		TradeDate: b.date,
		DailyPnL:  b.pnl,
		NumTrades: b.trades,
		NumWins:   b.wins,
		WinRate:   WinRate(b.wins, b.trades),
	}

	switch {
	case !schema.HasLeverage():
		agg.AvgLeverage = decimal.NullDecimal{Decimal: schema.DefaultLeverage, Valid: true}
	case b.levCount > 0:
		agg.AvgLeverage = decimal.NullDecimal{
			Decimal: b.levSum.Div(decimal.NewFromInt(int64(b.levCount))),
			Valid:   true,
		}
	}
	return agg
}

// WinRate returns 100 * wins / trades, or 0 for an empty group.
func WinRate(wins, trades int) float64 {
	if trades == 0 {
		return 0
	}
	return float64(wins) / float64(trades) * 100
}

package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/newthinker/tradermood/internal/core"
)

var enrichedHeader = []string{
	"account", "trade_date", "classification", "daily_pnl",
	"num_trades", "num_wins", "win_rate", "avg_leverage",
}

// WriteEnrichedCSV writes the joined account-day table, the input the
// charts are drawn from. Missing leverage is an empty cell.
func WriteEnrichedCSV(w io.Writer, rows []core.EnrichedAccountDay) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(enrichedHeader); err != nil {
		return core.WrapError(core.ErrReportFailed, err)
	}

	for _, r := range rows {
		lev := ""
		if r.AvgLeverage.Valid {
			lev = r.AvgLeverage.Decimal.String()
		}
		record := []string{
			r.Account,
			core.DayKey(r.TradeDate),
			string(r.Classification),
			r.DailyPnL.String(),
			strconv.Itoa(r.NumTrades),
			strconv.Itoa(r.NumWins),
			strconv.FormatFloat(r.WinRate, 'f', -1, 64),
			lev,
		}
		if err := cw.Write(record); err != nil {
			return core.WrapError(core.ErrReportFailed, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return core.WrapError(core.ErrReportFailed, err)
	}
	return nil
}

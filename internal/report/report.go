// Package report projects a pipeline result into the tables and charts a
// reader sees, and renders or archives them.
package report

import (
	"time"

	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/pipeline"
	"github.com/shopspring/decimal"
)

// Report is the presentation view of one run.
type Report struct {
	RunID         string           `json:"run_id" yaml:"run_id"`
	GeneratedAt   time.Time        `json:"generated_at" yaml:"generated_at"`
	Policy        string           `json:"missing_side_policy" yaml:"missing_side_policy"`
	TopN          int              `json:"top_n" yaml:"top_n"`
	Diagnostics   core.Diagnostics `json:"diagnostics" yaml:"diagnostics"`
	Summary       []SummaryRow     `json:"summary" yaml:"summary"`
	Contrarians   []RankRow        `json:"contrarians" yaml:"contrarians"`
	Herd          []RankRow        `json:"herd" yaml:"herd"`
	Distributions []Distribution   `json:"distributions,omitempty" yaml:"distributions,omitempty"`
	Commentary    string           `json:"commentary,omitempty" yaml:"commentary,omitempty"`
}

// SummaryRow is one classification's line in the performance table.
type SummaryRow struct {
	Classification  core.Classification `json:"classification" yaml:"classification"`
	Rows            int                 `json:"rows" yaml:"rows"`
	MedianDailyPnL  float64             `json:"median_daily_pnl" yaml:"median_daily_pnl"`
	MeanDailyPnL    float64             `json:"mean_daily_pnl" yaml:"mean_daily_pnl"`
	MeanWinRate     float64             `json:"mean_win_rate" yaml:"mean_win_rate"`
	AvgLeverageUsed *float64            `json:"avg_leverage_used" yaml:"avg_leverage_used"`
}

// RankRow projects a profile onto the Fear and Greed means and their
// difference.
type RankRow struct {
	Account        string  `json:"account" yaml:"account"`
	FearMeanPnL    float64 `json:"fear" yaml:"fear"`
	GreedMeanPnL   float64 `json:"greed" yaml:"greed"`
	DiffFearGreed  float64 `json:"diff_fear_minus_greed" yaml:"diff_fear_minus_greed"`
	OverallMeanPnL float64 `json:"overall_mean_pnl" yaml:"overall_mean_pnl"`
}

// Build projects res into a Report. Distributions are included when
// withCharts is set.
func Build(res *pipeline.Result, withCharts bool) *Report {
	rep := &Report{
		RunID:       res.RunID,
		GeneratedAt: res.StartedAt,
		Policy:      string(res.Policy),
		TopN:        res.TopN,
		Diagnostics: res.Diagnostics,
		Summary:     make([]SummaryRow, 0, len(res.Summary)),
		Contrarians: rankRows(res.Contrarians),
		Herd:        rankRows(res.Herd),
	}

	for _, s := range res.Summary {
		rep.Summary = append(rep.Summary, SummaryRow{
			Classification:  s.Classification,
			Rows:            s.Rows,
			MedianDailyPnL:  s.MedianDailyPnL.InexactFloat64(),
			MeanDailyPnL:    s.MeanDailyPnL.InexactFloat64(),
			MeanWinRate:     s.MeanWinRate,
			AvgLeverageUsed: nullFloat(s.AvgLeverageUsed),
		})
	}

	if withCharts {
		rep.Distributions = Distributions(res.Enriched)
	}
	return rep
}

func rankRows(ps []core.AccountSentimentProfile) []RankRow {
	rows := make([]RankRow, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, RankRow{
			Account:        p.Account,
			FearMeanPnL:    p.FearMean().InexactFloat64(),
			GreedMeanPnL:   p.GreedMean().InexactFloat64(),
			DiffFearGreed:  p.DiffFearGreed.InexactFloat64(),
			OverallMeanPnL: p.OverallMeanPnL.InexactFloat64(),
		})
	}
	return rows
}

func nullFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

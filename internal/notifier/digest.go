package notifier

import (
	"time"

	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/report"
)

// Digest is the short summary of a run that notifiers publish.
type Digest struct {
	RunID         string              `json:"run_id"`
	GeneratedAt   time.Time           `json:"generated_at"`
	Policy        string              `json:"missing_side_policy"`
	TradesKept    int                 `json:"trades_kept"`
	AccountDays   int                 `json:"account_days"`
	Best          core.Classification `json:"best_classification,omitempty"`
	Worst         core.Classification `json:"worst_classification,omitempty"`
	Summary       []report.SummaryRow `json:"summary"`
	TopContrarian *report.RankRow     `json:"top_contrarian,omitempty"`
	TopHerd       *report.RankRow     `json:"top_herd,omitempty"`
	Commentary    string              `json:"commentary,omitempty"`
}

// NewDigest condenses rep. Best and Worst are the classifications with the
// highest and lowest mean daily PnL; the first one wins a tie.
func NewDigest(rep *report.Report) Digest {
	d := Digest{
		RunID:       rep.RunID,
		GeneratedAt: rep.GeneratedAt,
		Policy:      rep.Policy,
		TradesKept:  rep.Diagnostics.TradesKept,
		AccountDays: rep.Diagnostics.AccountDays - rep.Diagnostics.UnmatchedAccountDays,
		Summary:     rep.Summary,
		Commentary:  rep.Commentary,
	}

	if len(rep.Summary) > 0 {
		best, worst := rep.Summary[0], rep.Summary[0]
		for _, s := range rep.Summary[1:] {
			if s.MeanDailyPnL > best.MeanDailyPnL {
				best = s
			}
			if s.MeanDailyPnL < worst.MeanDailyPnL {
				worst = s
			}
		}
		d.Best, d.Worst = best.Classification, worst.Classification
	}

	if len(rep.Contrarians) > 0 {
		top := rep.Contrarians[0]
		d.TopContrarian = &top
	}
	if len(rep.Herd) > 0 {
		top := rep.Herd[0]
		d.TopHerd = &top
	}
	return d
}

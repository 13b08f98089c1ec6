package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/tradermood/internal/core"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Extension returns the file extension for a format.
func Extension(format string) string {
	switch format {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "txt"
	}
}

// Render writes rep to w in the given format.
func Render(w io.Writer, rep *Report, format string) error {
	var err error
	switch format {
	case FormatText, "":
		err = writeText(w, rep)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(rep); err == nil {
			err = enc.Close()
		}
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return core.WrapError(core.ErrReportFailed, err)
	}
	return nil
}

func writeText(out io.Writer, rep *Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Run %s  policy=%s  top=%d\n\n", rep.RunID, rep.Policy, rep.TopN)

	fmt.Fprintln(w, "--- Overall Performance Metrics by Sentiment ---")
	fmt.Fprintln(w, "CLASSIFICATION\tDAYS\tMEDIAN PNL\tMEAN PNL\tWIN RATE\tAVG LEVERAGE\t")
	for _, s := range rep.Summary {
		lev := "-"
		if s.AvgLeverageUsed != nil {
			lev = fmt.Sprintf("%.2f", *s.AvgLeverageUsed)
		}
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%s\t\n",
			s.Classification, s.Rows, s.MedianDailyPnL, s.MeanDailyPnL, s.MeanWinRate, lev)
	}

	writeRanking(w, fmt.Sprintf("Top %d Contrarian Traders (Better in Fear)", rep.TopN), rep.Contrarians)
	writeRanking(w, fmt.Sprintf("Top %d Herd Traders (Worse in Fear)", rep.TopN), rep.Herd)

	d := rep.Diagnostics
	fmt.Fprintln(w, "\n--- Diagnostics ---")
	fmt.Fprintf(w, "trades read\t%d\t\n", d.TradesRead)
	fmt.Fprintf(w, "trades kept\t%d\t\n", d.TradesKept)
	fmt.Fprintf(w, "dropped: missing pnl\t%d\t\n", d.DroppedMissingPnL)
	fmt.Fprintf(w, "dropped: bad timestamp\t%d\t\n", d.DroppedBadTimestamp)
	fmt.Fprintf(w, "dropped: blank account\t%d\t\n", d.DroppedBlankAccount)
	fmt.Fprintf(w, "sentiment days kept\t%d\t\n", d.SentimentKept)
	fmt.Fprintf(w, "sentiment duplicates\t%d\t\n", d.SentimentDuplicates)
	fmt.Fprintf(w, "account-days\t%d\t\n", d.AccountDays)
	fmt.Fprintf(w, "unmatched account-days\t%d\t\n", d.UnmatchedAccountDays)
	if d.LeverageDefaulted {
		fmt.Fprintln(w, "leverage column absent, default applied\t\t")
	}

	if rep.Commentary != "" {
		fmt.Fprintf(w, "\n--- Commentary ---\n%s\n", rep.Commentary)
	}
	return w.Flush()
}

func writeRanking(w io.Writer, title string, rows []RankRow) {
	fmt.Fprintf(w, "\n--- %s ---\n", title)
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no account qualifies for ranking)")
		return
	}
	fmt.Fprintln(w, "ACCOUNT\tFEAR\tGREED\tDIFF\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t\n", r.Account, r.FearMeanPnL, r.GreedMeanPnL, r.DiffFearGreed)
	}
}

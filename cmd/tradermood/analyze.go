package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/tradermood/internal/app"
	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeTrades     string
	analyzeSentiment  string
	analyzeTop        int
	analyzePolicy     string
	analyzeFormat     string
	analyzeOutput     string
	analyzeEnriched   string
	analyzeCharts     bool
	analyzeArchive    bool
	analyzeCommentary bool
	analyzeNotify     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze trader performance against market sentiment",
	Long: `Load the trades and Fear/Greed datasets, aggregate trades per account and
day, join each day to its sentiment and print the per-sentiment summary with
the top contrarian and herd accounts.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeTrades, "trades", "", "trades dataset path in storage (default from config)")
	f.StringVar(&analyzeSentiment, "sentiment", "", "sentiment dataset path in storage (default from config)")
	f.IntVar(&analyzeTop, "top", 0, "number of accounts in each ranking (default from config)")
	f.StringVar(&analyzePolicy, "policy", "", "missing-side policy: exclude or zero (default from config)")
	f.StringVarP(&analyzeFormat, "format", "f", "", "output format: text, json or yaml (default from config)")
	f.StringVarP(&analyzeOutput, "output", "o", "", "write the report to this file instead of stdout")
	f.StringVar(&analyzeEnriched, "enriched", "", "also write the enriched account-day table as CSV to this file")
	f.BoolVar(&analyzeCharts, "charts", false, "include per-sentiment distribution statistics")
	f.BoolVar(&analyzeArchive, "archive", false, "archive the report in storage (also enabled by report.archive)")
	f.BoolVar(&analyzeCommentary, "commentary", false, "ask the configured LLM for commentary")
	f.BoolVar(&analyzeNotify, "notify", false, "send a digest to the enabled notifiers")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log, func(c *config.Config) {
		if analyzeTop != 0 {
			c.Analysis.TopN = analyzeTop
		}
		if analyzePolicy != "" {
			c.Analysis.MissingSidePolicy = analyzePolicy
		}
		if analyzeFormat != "" {
			c.Report.Format = analyzeFormat
		}
		if analyzeArchive {
			c.Report.Archive = true
		}
	})
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Close(ctx)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := a.Analyze(ctx, app.AnalyzeOptions{
		Trades:    analyzeTrades,
		Sentiment: analyzeSentiment,
		Charts:    analyzeCharts,
		Publish: app.PublishOptions{
			Commentary: analyzeCommentary,
			Archive:    cfg.Report.Archive,
			Notify:     analyzeNotify,
			Format:     cfg.Report.Format,
		},
	})
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), out.Report, cfg.Report.Format); err != nil {
		return err
	}

	if analyzeEnriched != "" {
		if err := writeEnriched(analyzeEnriched, out); err != nil {
			return err
		}
	}

	for _, p := range out.Archived {
		log.Info("archived", zap.String("path", p))
	}
	if len(out.NotifyErrors) > 0 {
		return fmt.Errorf("%d of %d notifiers failed", len(out.NotifyErrors), a.Notifiers().Len())
	}
	return nil
}

func writeReport(stdout io.Writer, rep *report.Report, format string) error {
	if analyzeOutput == "" {
		return report.Render(stdout, rep, format)
	}

	f, err := os.Create(analyzeOutput)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := report.Render(f, rep, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeEnriched(path string, out *app.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating enriched file: %w", err)
	}
	if err := report.WriteEnrichedCSV(f, out.Result.Enriched); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

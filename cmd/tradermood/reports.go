package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/tradermood/internal/app"
	"github.com/newthinker/tradermood/internal/config"
	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage archived reports",
	Long:  `Commands for listing and pruning reports archived by analyze --archive.`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReportsList,
}

var reportsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archived reports beyond the retain count",
	Args:  cobra.NoArgs,
	RunE:  runReportsPrune,
}

var pruneRetain int

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsPruneCmd)

	reportsPruneCmd.Flags().IntVar(&pruneRetain, "retain", 0, "number of runs to keep (default report.retain)")
}

// withApp handles common setup for the reports subcommands.
func withApp(adjust func(*config.Config), fn func(ctx context.Context, a *app.App) error) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log, adjust)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return fn(context.Background(), a)
}

func runReportsList(cmd *cobra.Command, args []string) error {
	return withApp(nil, func(ctx context.Context, a *app.App) error {
		entries, err := a.Archiver().List(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No archived reports.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tRUN ID\tFILES")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Date, e.RunID, strings.Join(e.Paths, ", "))
		}
		return w.Flush()
	})
}

func runReportsPrune(cmd *cobra.Command, args []string) error {
	adjust := func(c *config.Config) {
		if pruneRetain > 0 {
			c.Report.Retain = pruneRetain
		}
	}
	return withApp(adjust, func(ctx context.Context, a *app.App) error {
		removed, err := a.Archiver().Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d archived runs.\n", removed)
		return nil
	})
}

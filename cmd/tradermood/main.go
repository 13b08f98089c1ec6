package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitNoOverlap = 2
)

var (
	cfgFile  string
	debug    bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "tradermood",
	Short: "tradermood - trader performance versus market sentiment",
	Long: `tradermood joins per-account daily trading results with the Fear/Greed
index and reports how performance differs across sentiment regimes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside development.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return reportError(err)
	}
	return exitOK
}

// reportError prints err and maps it to the process exit code.
func reportError(err error) int {
	if errors.Is(err, core.ErrNoOverlap) {
		fmt.Fprintln(os.Stderr, "error: no overlapping dates between trades and sentiment")
		return exitNoOverlap
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return exitFailure
}

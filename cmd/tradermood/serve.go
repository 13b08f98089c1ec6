package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/tradermood/internal/api"
	"github.com/newthinker/tradermood/internal/app"
	"github.com/newthinker/tradermood/internal/metrics"
	"github.com/newthinker/tradermood/internal/pipeline"
	"github.com/newthinker/tradermood/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveCommentary bool
	serveNotify     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tradermood HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveCommentary, "commentary", false, "attach LLM commentary to every job report")
	serveCmd.Flags().BoolVar(&serveNotify, "notify", false, "send a digest to the enabled notifiers after every job")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log, nil)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		a.SetMetrics(reg)
	}

	publish := app.PublishOptions{
		Commentary: serveCommentary,
		Archive:    cfg.Report.Archive,
		Notify:     serveNotify,
		Format:     cfg.Report.Format,
	}

	server, err := api.NewServer(cfg.Server, cfg.Metrics, api.Dependencies{
		Analyzer: a.Runner(),
		Inputs:   cfg.Input,
		Metrics:  reg,
		OnComplete: func(ctx context.Context, rep *report.Report, res *pipeline.Result) {
			a.Publish(ctx, rep, res, publish)
		},
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting tradermood server",
		zap.String("addr", server.Addr()),
		zap.String("storage", cfg.Storage.Type),
		zap.Bool("metrics", reg != nil),
		zap.Bool("archive", publish.Archive),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
	}

	log.Info("shutting down tradermood server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	return a.Close(ctx)
}

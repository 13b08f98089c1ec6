// Package app wires configuration into a ready pipeline and publishes its
// results: commentary, report archive and digest notifications.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/insight"
	"github.com/newthinker/tradermood/internal/llm"
	"github.com/newthinker/tradermood/internal/llm/factory"
	"github.com/newthinker/tradermood/internal/logger"
	"github.com/newthinker/tradermood/internal/metrics"
	"github.com/newthinker/tradermood/internal/notifier"
	"github.com/newthinker/tradermood/internal/notifier/telegram"
	"github.com/newthinker/tradermood/internal/notifier/webhook"
	"github.com/newthinker/tradermood/internal/pipeline"
	"github.com/newthinker/tradermood/internal/report"
	"github.com/newthinker/tradermood/internal/source"
	"github.com/newthinker/tradermood/internal/storage/archive"
	"github.com/newthinker/tradermood/internal/trace"
	"go.uber.org/zap"
)

const commentaryTimeout = 2 * time.Minute

// AnalyzeOptions selects inputs and the optional publishing steps of one
// run. Empty inputs and zero tuning fall back to configuration.
type AnalyzeOptions struct {
	Trades    string
	Sentiment string
	TopN      int
	Policy    string
	Charts    bool
	Publish   PublishOptions
}

// PublishOptions toggles what happens after a successful run.
type PublishOptions struct {
	Commentary bool
	Archive    bool
	Notify     bool
	Format     string // archive format, config default when empty
}

// Outcome is a finished run with everything published for it.
type Outcome struct {
	Result       *pipeline.Result
	Report       *report.Report
	Archived     []string
	NotifyErrors map[string]error
}

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	tracer    *trace.Tracer
	store     archive.Storage
	runner    *pipeline.Runner
	archiver  *report.Archiver
	notifiers *notifier.Registry
	narrator  *insight.Narrator
}

// New builds an App from cfg. The storage backend serves both the input
// datasets and the report archive.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)

	store, err := archive.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	runner := pipeline.New(cfg, log)
	runner.SetLoader(source.NewLoader(store))

	a := &App{
		cfg:       cfg,
		logger:    log,
		tracer:    trace.Nop(),
		store:     store,
		runner:    runner,
		archiver:  report.NewArchiver(store, cfg.Report, log),
		notifiers: notifier.NewRegistry(),
	}

	if err := a.registerConfiguredNotifiers(); err != nil {
		return nil, err
	}

	if cfg.LLM.Provider != "" {
		provider, err := factory.New(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating llm provider: %w", err)
		}
		a.SetLLM(provider)
	}

	return a, nil
}

// registerConfiguredNotifiers creates the enabled notifiers named in config.
func (a *App) registerConfiguredNotifiers() error {
	names := make([]string, 0, len(a.cfg.Notifiers))
	for name := range a.cfg.Notifiers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ncfg := a.cfg.Notifiers[name]
		if !ncfg.Enabled {
			continue
		}

		var n notifier.Notifier
		switch name {
		case "telegram":
			n = telegram.New(ncfg.BotToken, ncfg.ChatID)
		case "webhook":
			n = webhook.New(ncfg.URL, ncfg.Headers)
		default:
			a.logger.Warn("unknown notifier in config, skipping", zap.String("notifier", name))
			continue
		}

		if err := n.Init(ncfg); err != nil {
			return fmt.Errorf("initializing notifier %s: %w", name, err)
		}
		if err := a.RegisterNotifier(n); err != nil {
			return err
		}
	}
	return nil
}

// RegisterNotifier adds a notifier used when a run is published with Notify.
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// SetLLM enables commentary through provider.
func (a *App) SetLLM(provider llm.Provider) {
	a.narrator = insight.NewNarrator(provider, a.cfg.LLM.MaxTokens, a.logger)
}

// SetMetrics records run, notification and archive metrics into reg.
func (a *App) SetMetrics(reg *metrics.Registry) {
	a.metrics = reg
	a.runner.SetMetrics(reg)
	a.notifiers.SetMetrics(reg)
}

// SetTracer wraps pipeline stages in spans.
func (a *App) SetTracer(t *trace.Tracer) {
	if t != nil {
		a.tracer = t
		a.runner.SetTracer(t)
	}
}

// Runner returns the configured pipeline runner.
func (a *App) Runner() *pipeline.Runner {
	return a.runner
}

// Archiver returns the report archive.
func (a *App) Archiver() *report.Archiver {
	return a.archiver
}

// Notifiers returns the notifier registry.
func (a *App) Notifiers() *notifier.Registry {
	return a.notifiers
}

// Analyze runs the pipeline and publishes the result.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) (*Outcome, error) {
	trades := opts.Trades
	if trades == "" {
		trades = a.cfg.Input.Trades
	}
	sentiment := opts.Sentiment
	if sentiment == "" {
		sentiment = a.cfg.Input.Sentiment
	}

	res, err := a.runner.RunPaths(ctx, trades, sentiment, pipeline.Options{
		TopN:   opts.TopN,
		Policy: opts.Policy,
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Result: res,
		Report: report.Build(res, opts.Charts),
	}
	out.Archived, out.NotifyErrors = a.Publish(ctx, out.Report, res, opts.Publish)
	return out, nil
}

// Publish attaches commentary, archives and notifies as opts asks. Every
// step is best effort: failures are logged and the run still succeeds.
func (a *App) Publish(ctx context.Context, rep *report.Report, res *pipeline.Result, opts PublishOptions) ([]string, map[string]error) {
	log := logger.ForRun(a.logger, rep.RunID)

	if opts.Commentary {
		a.comment(ctx, log, rep)
	}

	var archived []string
	if opts.Archive {
		format := opts.Format
		if format == "" {
			format = a.cfg.Report.Format
		}
		paths, err := a.archiver.Save(ctx, rep, format, res.Enriched)
		a.recordArchive(err)
		if err != nil {
			log.Error("archiving report failed", zap.Error(err))
		}
		archived = paths
	}

	var notifyErrs map[string]error
	if opts.Notify {
		if a.notifiers.Len() == 0 {
			log.Warn("notify requested but no notifiers are enabled")
		} else {
			notifyErrs = a.notifiers.NotifyAll(ctx, notifier.NewDigest(rep))
			for name, err := range notifyErrs {
				log.Error("notification failed", zap.String("notifier", name), zap.Error(err))
			}
		}
	}

	return archived, notifyErrs
}

func (a *App) comment(ctx context.Context, log *zap.Logger, rep *report.Report) {
	if a.narrator == nil {
		log.Warn("commentary requested but no llm provider is configured")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commentaryTimeout)
	defer cancel()
	ctx, span := a.tracer.Start(ctx, "report.commentary")
	defer span.End()

	c, err := a.narrator.Narrate(ctx, rep)
	if err != nil {
		span.RecordError(err)
		log.Warn("commentary unavailable", zap.Error(err))
		return
	}
	rep.Commentary = c.String()
}

func (a *App) recordArchive(err error) {
	if a.metrics == nil {
		return
	}
	if err != nil {
		a.metrics.RecordArchive("error")
		return
	}
	a.metrics.RecordArchive("success")
}

// Close flushes buffered spans.
func (a *App) Close(ctx context.Context) error {
	return a.tracer.Shutdown(ctx)
}

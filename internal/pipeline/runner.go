// Package pipeline runs the sentiment analysis end to end:
// normalize, aggregate, join, then compare and rank.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/tradermood/internal/aggregate"
	"github.com/newthinker/tradermood/internal/compare"
	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/join"
	"github.com/newthinker/tradermood/internal/logger"
	"github.com/newthinker/tradermood/internal/metrics"
	"github.com/newthinker/tradermood/internal/normalize"
	"github.com/newthinker/tradermood/internal/rank"
	"github.com/newthinker/tradermood/internal/source"
	"github.com/newthinker/tradermood/internal/trace"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Stage names used for logs, spans and metrics.
const (
	StageNormalize = "normalize"
	StageAggregate = "aggregate"
	StageJoin      = "join"
	StageCompare   = "compare"
	StageRank      = "rank"
)

// Options tune one run. Zero values fall back to the runner's config.
type Options struct {
	TopN   int
	Policy string
}

// Result is the complete output of a successful run.
type Result struct {
	RunID       string                         `json:"run_id" yaml:"run_id"`
	StartedAt   time.Time                      `json:"started_at" yaml:"started_at"`
	Duration    time.Duration                  `json:"duration" yaml:"duration"`
	TopN        int                            `json:"top_n" yaml:"top_n"`
	Policy      rank.Policy                    `json:"missing_side_policy" yaml:"missing_side_policy"`
	Diagnostics core.Diagnostics               `json:"diagnostics" yaml:"diagnostics"`
	Aggregates  []core.AccountDayAggregate     `json:"-" yaml:"-"`
	Enriched    []core.EnrichedAccountDay      `json:"-" yaml:"-"`
	Summary     []core.SentimentSummary        `json:"summary" yaml:"summary"`
	Profiles    []core.AccountSentimentProfile `json:"-" yaml:"-"`
	Contrarians []core.AccountSentimentProfile `json:"contrarians" yaml:"contrarians"`
	Herd        []core.AccountSentimentProfile `json:"herd" yaml:"herd"`
}

// Runner executes the analysis stages synchronously. Each stage consumes
// the previous stage's output in full before the next begins.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry
	tracer  *trace.Tracer
	loader  *source.Loader
}

// New creates a Runner. Metrics and tracing are optional.
func New(cfg *config.Config, log *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger.OrNop(log),
		tracer: trace.Nop(),
	}
}

// SetMetrics records run and stage metrics into reg.
func (r *Runner) SetMetrics(reg *metrics.Registry) {
	r.metrics = reg
}

// SetTracer wraps every stage in a span.
func (r *Runner) SetTracer(t *trace.Tracer) {
	if t != nil {
		r.tracer = t
	}
}

// SetLoader sets the loader used by RunPaths.
func (r *Runner) SetLoader(l *source.Loader) {
	r.loader = l
}

// RunPaths loads both datasets through the loader and runs the analysis.
func (r *Runner) RunPaths(ctx context.Context, tradesPath, sentimentPath string, opts Options) (*Result, error) {
	if r.loader == nil {
		return nil, core.WrapError(core.ErrSourceUnavailable, errors.New("no loader configured"))
	}

	trades, sentiment, err := r.loader.LoadPair(ctx, tradesPath, sentimentPath)
	if err != nil {
		r.logger.Error("loading sources failed", zap.Error(err))
		r.recordRun("error", 0)
		return nil, err
	}
	return r.Run(ctx, trades, sentiment, opts)
}

// Run analyzes already loaded tables. It fails with ErrSourceUnavailable,
// ErrSchemaInvalid or ErrNoOverlap; every other data problem is counted in
// the result's Diagnostics.
func (r *Runner) Run(ctx context.Context, trades, sentiment *source.Table, opts Options) (*Result, error) {
	opts = r.withDefaults(opts)
	policy, err := rank.ParsePolicy(opts.Policy)
	if err != nil {
		return nil, err
	}

	// v7 ids sort by creation time, which the report archive relies on.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     id.String(),
		StartedAt: time.Now(),
		TopN:      opts.TopN,
		Policy:    policy,
	}
	log := logger.ForRun(r.logger, res.RunID)

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		attribute.String("run_id", res.RunID),
		attribute.Int("top_n", res.TopN),
		attribute.String("policy", string(policy)),
	)
	defer span.End()

	log.Info("analysis started",
		zap.String("trades", tableName(trades)),
		zap.String("sentiment", tableName(sentiment)),
		zap.Int("top_n", res.TopN),
		zap.String("policy", string(policy)),
	)

	if err := r.execute(ctx, log, trades, sentiment, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		status := "error"
		if errors.Is(err, core.ErrNoOverlap) {
			status = "no_overlap"
		}
		log.Error("analysis failed", zap.String("status", status), zap.Error(err))
		r.recordRun(status, time.Since(res.StartedAt))
		return nil, err
	}

	res.Duration = time.Since(res.StartedAt)
	r.recordRun("ok", res.Duration)
	log.Info("analysis finished",
		zap.Int("classifications", len(res.Summary)),
		zap.Int("ranked_accounts", len(res.Profiles)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (r *Runner) execute(ctx context.Context, log *zap.Logger, trades, sentiment *source.Table, res *Result) error {
	diag := &res.Diagnostics

	var normalized *normalize.Output
	err := r.stage(ctx, log, StageNormalize, func() ([]attribute.KeyValue, error) {
		n := normalize.New(r.cfg.Columns, decimal.NewFromFloat(r.cfg.Analysis.DefaultLeverage), log)
		out, err := n.Normalize(trades, sentiment, diag)
		if err != nil {
			return nil, err
		}
		normalized = out
		r.reportDrops(log, diag)
		return []attribute.KeyValue{
			attribute.Int("trades_kept", diag.TradesKept),
			attribute.Int("sentiment_kept", diag.SentimentKept),
		}, nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, log, StageAggregate, func() ([]attribute.KeyValue, error) {
		res.Aggregates = aggregate.Daily(normalized.Trades, normalized.TradeSchema)
		diag.AccountDays = len(res.Aggregates)
		return []attribute.KeyValue{attribute.Int("account_days", diag.AccountDays)}, nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, log, StageJoin, func() ([]attribute.KeyValue, error) {
		enriched, unmatched, err := join.Sentiment(res.Aggregates, normalized.Sentiment)
		diag.UnmatchedAccountDays = unmatched
		if r.metrics != nil {
			r.metrics.SetAccountDays(len(enriched), unmatched)
		}
		if err != nil {
			return nil, err
		}
		res.Enriched = enriched
		return []attribute.KeyValue{
			attribute.Int("enriched", len(enriched)),
			attribute.Int("unmatched", unmatched),
		}, nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, log, StageCompare, func() ([]attribute.KeyValue, error) {
		res.Summary = compare.BySentiment(res.Enriched)
		return []attribute.KeyValue{attribute.Int("classifications", len(res.Summary))}, nil
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, log, StageRank, func() ([]attribute.KeyValue, error) {
		res.Profiles = rank.Profiles(res.Enriched, res.Policy)
		res.Contrarians = rank.Contrarians(res.Profiles, res.TopN)
		res.Herd = rank.Herd(res.Profiles, res.TopN)
		if r.metrics != nil {
			r.metrics.SetRankedAccounts(len(res.Profiles))
		}
		if len(res.Profiles) == 0 {
			log.Warn("no account qualifies for ranking",
				zap.String("policy", string(res.Policy)),
			)
		}
		return []attribute.KeyValue{attribute.Int("profiles", len(res.Profiles))}, nil
	})
}

// stage runs fn inside a span, logs its outcome and records its duration.
func (r *Runner) stage(ctx context.Context, log *zap.Logger, name string, fn func() ([]attribute.KeyValue, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, span := r.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	attrs, err := fn()
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.RecordStage(name, elapsed.Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attrs...)
	fields := []zap.Field{zap.String("stage", name), zap.Duration("elapsed", elapsed)}
	for _, a := range attrs {
		fields = append(fields, zap.Int64(string(a.Key), a.Value.AsInt64()))
	}
	log.Info("stage complete", fields...)
	return nil
}

func (r *Runner) reportDrops(log *zap.Logger, diag *core.Diagnostics) {
	if r.metrics != nil {
		r.metrics.RecordDropped("missing_pnl", diag.DroppedMissingPnL)
		r.metrics.RecordDropped("bad_timestamp", diag.DroppedBadTimestamp)
		r.metrics.RecordDropped("blank_account", diag.DroppedBlankAccount)
		r.metrics.RecordDropped("sentiment_bad_date", diag.SentimentBadDate)
		r.metrics.RecordDropped("sentiment_unknown", diag.SentimentUnknown)
	}

	dropped := diag.TradesRead - diag.TradesKept
	if dropped > 0 {
		log.Warn("trade records dropped",
			zap.Int("missing_pnl", diag.DroppedMissingPnL),
			zap.Int("bad_timestamp", diag.DroppedBadTimestamp),
			zap.Int("blank_account", diag.DroppedBlankAccount),
		)
	}
	if skipped := diag.SentimentBadDate + diag.SentimentUnknown; skipped > 0 {
		log.Warn("sentiment records skipped",
			zap.Int("bad_date", diag.SentimentBadDate),
			zap.Int("unknown_classification", diag.SentimentUnknown),
		)
	}
	if diag.SentimentDuplicates > 0 {
		log.Warn("duplicate sentiment dates collapsed, last row wins",
			zap.Int("duplicates", diag.SentimentDuplicates),
		)
	}
}

func (r *Runner) withDefaults(opts Options) Options {
	if opts.TopN <= 0 {
		opts.TopN = r.cfg.Analysis.TopN
	}
	if opts.Policy == "" {
		opts.Policy = r.cfg.Analysis.MissingSidePolicy
	}
	return opts
}

func (r *Runner) recordRun(status string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordRun(status, d.Seconds())
	}
}

func tableName(t *source.Table) string {
	if t == nil {
		return ""
	}
	return t.Name
}

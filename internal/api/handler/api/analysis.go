// Package api holds the JSON handlers mounted under /api/v1.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/newthinker/tradermood/internal/api/job"
	"github.com/newthinker/tradermood/internal/api/response"
	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/logger"
	"github.com/newthinker/tradermood/internal/metrics"
	"github.com/newthinker/tradermood/internal/pipeline"
	"github.com/newthinker/tradermood/internal/report"
	"go.uber.org/zap"
)

// JobType labels analysis jobs in the store and in metrics.
const JobType = "analysis"

const analysisTimeout = 5 * time.Minute

// AnalysisRequest is the body of POST /api/v1/analysis. Every field is
// optional; empty values fall back to the server's configuration.
type AnalysisRequest struct {
	Trades    string `json:"trades" validate:"omitempty,max=512,storagepath"`
	Sentiment string `json:"sentiment" validate:"omitempty,max=512,storagepath"`
	TopN      int    `json:"top_n" validate:"omitempty,min=1,max=1000"`
	Policy    string `json:"policy" validate:"omitempty,oneof=exclude zero"`
	Charts    bool   `json:"charts"`
}

// Analyzer runs the pipeline over two named datasets.
type Analyzer interface {
	RunPaths(ctx context.Context, tradesPath, sentimentPath string, opts pipeline.Options) (*pipeline.Result, error)
}

// CompleteFunc is called after a job succeeds, before its result is
// published. Archiving and notification hang off it.
type CompleteFunc func(ctx context.Context, rep *report.Report, res *pipeline.Result)

// AnalysisHandler handles analysis API requests.
type AnalysisHandler struct {
	jobs       *job.Store
	analyzer   Analyzer
	inputs     config.InputConfig
	validate   *validator.Validate
	metrics    *metrics.Registry
	logger     *zap.Logger
	onComplete CompleteFunc
	timeout    time.Duration
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(jobs *job.Store, analyzer Analyzer, inputs config.InputConfig, log *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		jobs:     jobs,
		analyzer: analyzer,
		inputs:   inputs,
		validate: newValidator(),
		logger:   logger.OrNop(log),
		timeout:  analysisTimeout,
	}
}

// SetMetrics tracks active jobs in reg.
func (h *AnalysisHandler) SetMetrics(reg *metrics.Registry) {
	h.metrics = reg
}

// OnComplete registers fn to run after each successful job.
func (h *AnalysisHandler) OnComplete(fn CompleteFunc) {
	h.onComplete = fn
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("storagepath", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		if strings.HasPrefix(p, "/") {
			return false
		}
		for _, part := range strings.Split(p, "/") {
			if part == ".." {
				return false
			}
		}
		return true
	})
	return v
}

// Create validates the request and starts an analysis job.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	if req.Trades == "" {
		req.Trades = h.inputs.Trades
	}
	if req.Sentiment == "" {
		req.Sentiment = h.inputs.Sentiment
	}

	j := h.jobs.Create(JobType)
	h.trackActive()

	go h.run(j.ID, req)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// run executes the pipeline and publishes the report or the failure.
func (h *AnalysisHandler) run(jobID string, req AnalysisRequest) {
	defer h.trackActive()
	log := h.logger.With(zap.String("job_id", jobID))

	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
		j.Progress = 10
	})
	h.trackActive()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	res, err := h.analyzer.RunPaths(ctx, req.Trades, req.Sentiment, pipeline.Options{
		TopN:   req.TopN,
		Policy: req.Policy,
	})
	if err != nil {
		log.Warn("analysis job failed", zap.Error(err))
		h.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	rep := report.Build(res, req.Charts)
	if h.onComplete != nil {
		h.onComplete(ctx, rep, res)
	}

	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = rep
	})
	log.Info("analysis job complete", zap.String("run_id", res.RunID))
}

// Get returns the status of an analysis job, with its report once complete.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}
	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.Detail(j.Error)
		resp["http_status"] = response.StatusFor(j.Error)
	}

	response.JSON(w, http.StatusOK, resp)
}

// List returns every live analysis job without results.
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.List()
	out := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		if j.Type != JobType {
			continue
		}
		out = append(out, map[string]any{
			"job_id":     j.ID,
			"status":     j.Status,
			"created_at": j.CreatedAt,
		})
	}
	response.JSON(w, http.StatusOK, out)
}

func (h *AnalysisHandler) trackActive() {
	if h.metrics != nil {
		h.metrics.SetJobsActive(JobType, h.jobs.Active(JobType))
	}
}

func asCoreError(err error) *core.Error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce
	}
	return core.WrapError(core.ErrAnalysisFailed, err)
}

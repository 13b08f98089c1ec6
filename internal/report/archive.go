package report

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/logger"
	"github.com/newthinker/tradermood/internal/storage/archive"
	"go.uber.org/zap"
)

// Entry is one archived run.
type Entry struct {
	RunID string   `json:"run_id" yaml:"run_id"`
	Date  string   `json:"date" yaml:"date"`
	Paths []string `json:"paths" yaml:"paths"`
}

// Archiver stores rendered reports as <prefix>/<run date>/<run id>.<ext>
// and keeps at most retain runs.
type Archiver struct {
	store  archive.Storage
	prefix string
	retain int
	logger *zap.Logger
}

// NewArchiver creates an Archiver over store.
func NewArchiver(store archive.Storage, cfg config.ReportConfig, log *zap.Logger) *Archiver {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "reports"
	}
	return &Archiver{
		store:  store,
		prefix: prefix,
		retain: cfg.Retain,
		logger: logger.OrNop(log),
	}
}

// Save writes the rendered report and the enriched table as CSV, then
// prunes old runs. It returns the written paths.
func (a *Archiver) Save(ctx context.Context, rep *Report, format string, enriched []core.EnrichedAccountDay) ([]string, error) {
	var body bytes.Buffer
	if err := Render(&body, rep, format); err != nil {
		return nil, err
	}
	var table bytes.Buffer
	if err := WriteEnrichedCSV(&table, enriched); err != nil {
		return nil, err
	}

	dir := path.Join(a.prefix, rep.GeneratedAt.Format("2006-01-02"))
	files := []struct {
		path string
		data []byte
	}{
		{path.Join(dir, rep.RunID+"."+Extension(format)), body.Bytes()},
		{path.Join(dir, rep.RunID+".csv"), table.Bytes()},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := a.store.Write(ctx, f.path, f.data); err != nil {
			return written, core.WrapError(core.ErrReportFailed, fmt.Errorf("%s: %w", f.path, err))
		}
		written = append(written, f.path)
	}

	a.logger.Info("report archived",
		zap.String("run_id", rep.RunID),
		zap.Strings("paths", written),
	)

	if _, err := a.Prune(ctx); err != nil {
		a.logger.Warn("pruning archived reports failed", zap.Error(err))
	}
	return written, nil
}

// List returns archived runs, newest first.
func (a *Archiver) List(ctx context.Context) ([]Entry, error) {
	paths, err := a.store.List(ctx, a.prefix)
	if err != nil {
		return nil, core.WrapError(core.ErrReportFailed, err)
	}

	byRun := make(map[string]*Entry)
	for _, p := range paths {
		rel := strings.TrimPrefix(p, a.prefix+"/")
		date, file, ok := strings.Cut(rel, "/")
		if !ok || strings.Contains(file, "/") {
			continue
		}
		runID := strings.TrimSuffix(file, path.Ext(file))
		key := date + "/" + runID

		e, ok := byRun[key]
		if !ok {
			e = &Entry{RunID: runID, Date: date}
			byRun[key] = e
		}
		e.Paths = append(e.Paths, p)
	}

	entries := make([]Entry, 0, len(byRun))
	for _, e := range byRun {
		sort.Strings(e.Paths)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].RunID > entries[j].RunID
	})
	return entries, nil
}

// Prune deletes every run beyond the newest retain. A retain of zero keeps
// everything. It returns the number of runs removed.
func (a *Archiver) Prune(ctx context.Context) (int, error) {
	if a.retain <= 0 {
		return 0, nil
	}

	entries, err := a.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(entries) <= a.retain {
		return 0, nil
	}

	removed := 0
	for _, e := range entries[a.retain:] {
		for _, p := range e.Paths {
			if err := a.store.Delete(ctx, p); err != nil {
				return removed, core.WrapError(core.ErrReportFailed, fmt.Errorf("%s: %w", p, err))
			}
		}
		removed++
		a.logger.Debug("pruned archived report", zap.String("run_id", e.RunID))
	}
	return removed, nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/tradermood/internal/api/job"
	"github.com/newthinker/tradermood/internal/api/response"
	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/pipeline"
	"github.com/newthinker/tradermood/internal/rank"
	"github.com/newthinker/tradermood/internal/report"
	"github.com/newthinker/tradermood/internal/source"
	"github.com/newthinker/tradermood/internal/storage/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	mu       sync.Mutex
	calls    []string
	opts     pipeline.Options
	err      error
	resultID string
}

func (s *stubAnalyzer) RunPaths(ctx context.Context, trades, sentiment string, opts pipeline.Options) (*pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, trades, sentiment)
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return &pipeline.Result{RunID: s.resultID, TopN: 5, Policy: rank.Exclude}, nil
}

func post(t *testing.T, h *AnalysisHandler, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.Create(w, req)

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	data, _ := resp.Data.(map[string]any)
	return w.Code, data
}

func get(t *testing.T, h *AnalysisHandler, id string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/"+id, nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.Get(w, req)

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	data, _ := resp.Data.(map[string]any)
	return w.Code, data
}

func waitDone(t *testing.T, store *job.Store, id string) *job.Job {
	t.Helper()
	var last *job.Job
	require.Eventually(t, func() bool {
		j, err := store.Get(id)
		if err != nil {
			return false
		}
		last = j
		return j.Status.Done()
	}, 5*time.Second, 10*time.Millisecond)
	return last
}

func TestAnalysisHandler_CreateUsesConfiguredInputs(t *testing.T) {
	store := job.NewStore(10, time.Hour)
	stub := &stubAnalyzer{resultID: "run-1"}
	h := NewAnalysisHandler(store, stub, config.Defaults().Input, nil)

	code, data := post(t, h, "")
	require.Equal(t, http.StatusAccepted, code)
	id, _ := data["job_id"].(string)
	require.NotEmpty(t, id)

	j := waitDone(t, store, id)
	assert.Equal(t, job.StatusComplete, j.Status)
	assert.Equal(t, 100, j.Progress)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, []string{"historical_data.csv", "fear_greed_index.csv"}, stub.calls)
}

func TestAnalysisHandler_CreatePassesOptions(t *testing.T) {
	store := job.NewStore(10, time.Hour)
	stub := &stubAnalyzer{resultID: "run-2"}
	h := NewAnalysisHandler(store, stub, config.Defaults().Input, nil)

	code, data := post(t, h, `{"trades":"q1/trades.csv","sentiment":"q1/fg.csv","top_n":3,"policy":"zero"}`)
	require.Equal(t, http.StatusAccepted, code)
	waitDone(t, store, data["job_id"].(string))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, []string{"q1/trades.csv", "q1/fg.csv"}, stub.calls)
	assert.Equal(t, pipeline.Options{TopN: 3, Policy: "zero"}, stub.opts)
}

func TestAnalysisHandler_CreateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"top_n":`},
		{"negative top_n", `{"top_n":-1}`},
		{"unknown policy", `{"policy":"guess"}`},
		{"parent traversal", `{"trades":"../etc/passwd"}`},
		{"absolute path", `{"sentiment":"/etc/passwd"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := job.NewStore(10, time.Hour)
			h := NewAnalysisHandler(store, &stubAnalyzer{}, config.Defaults().Input, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Create(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "CONFIG_INVALID", resp.Error.Code)
			assert.Empty(t, store.List(), "no job is created for a rejected request")
		})
	}
}

func TestAnalysisHandler_FailedJobKeepsCode(t *testing.T) {
	store := job.NewStore(10, time.Hour)
	stub := &stubAnalyzer{err: core.WrapError(core.ErrNoOverlap, errors.New("0 matched"))}
	h := NewAnalysisHandler(store, stub, config.Defaults().Input, nil)

	_, data := post(t, h, "")
	id := data["job_id"].(string)
	waitDone(t, store, id)

	code, data := get(t, h, id)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "failed", data["status"])
	detail := data["error"].(map[string]any)
	assert.Equal(t, "NO_OVERLAP", detail["code"])
	assert.EqualValues(t, http.StatusUnprocessableEntity, data["http_status"])
}

func TestAnalysisHandler_UncodedFailure(t *testing.T) {
	store := job.NewStore(10, time.Hour)
	h := NewAnalysisHandler(store, &stubAnalyzer{err: errors.New("boom")}, config.Defaults().Input, nil)

	_, data := post(t, h, "")
	j := waitDone(t, store, data["job_id"].(string))
	require.NotNil(t, j.Error)
	assert.Equal(t, "ANALYSIS_FAILED", j.Error.Code)
}

func TestAnalysisHandler_GetNotFound(t *testing.T) {
	h := NewAnalysisHandler(job.NewStore(10, time.Hour), &stubAnalyzer{}, config.Defaults().Input, nil)

	code, _ := get(t, h, "missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAnalysisHandler_OnComplete(t *testing.T) {
	store := job.NewStore(10, time.Hour)
	h := NewAnalysisHandler(store, &stubAnalyzer{resultID: "run-3"}, config.Defaults().Input, nil)

	got := make(chan string, 1)
	h.OnComplete(func(ctx context.Context, rep *report.Report, res *pipeline.Result) {
		got <- rep.RunID
	})

	_, data := post(t, h, "")
	waitDone(t, store, data["job_id"].(string))

	select {
	case id := <-got:
		assert.Equal(t, "run-3", id)
	case <-time.After(time.Second):
		t.Fatal("completion hook not called")
	}
}

func TestAnalysisHandler_List(t *testing.T) {
	store := job.NewStore(10, time.Hour)
	h := NewAnalysisHandler(store, &stubAnalyzer{}, config.Defaults().Input, nil)
	store.Create(JobType)
	store.Create("other")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
}

func TestAnalysisHandler_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "historical_data.csv"), []byte(
		"Account,Coin,Execution Price,Size USD,Closed PnL,Timestamp IST\n"+
			"A,BTC,1,1,100,01-01-2024 09:00\n"+
			"A,BTC,1,1,-50,01-01-2024 15:30\n"+
			"A,BTC,1,1,30,02-01-2024 11:00\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fear_greed_index.csv"), []byte(
		"date,classification\n2024-01-01,Fear\n2024-01-02,Greed\n"), 0644))

	fs, err := archive.NewLocalFS(dir)
	require.NoError(t, err)
	runner := pipeline.New(config.Defaults(), nil)
	runner.SetLoader(source.NewLoader(fs))

	store := job.NewStore(10, time.Hour)
	h := NewAnalysisHandler(store, runner, config.Defaults().Input, nil)

	_, data := post(t, h, `{"charts":true}`)
	j := waitDone(t, store, data["job_id"].(string))
	require.Equal(t, job.StatusComplete, j.Status)

	rep, ok := j.Result.(*report.Report)
	require.True(t, ok)
	require.Len(t, rep.Contrarians, 1)
	assert.Equal(t, "A", rep.Contrarians[0].Account)
	assert.InDelta(t, 20.0, rep.Contrarians[0].DiffFearGreed, 1e-9)
	assert.NotEmpty(t, rep.Distributions)
}

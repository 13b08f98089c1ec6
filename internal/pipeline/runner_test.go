package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/metrics"
	"github.com/newthinker/tradermood/internal/rank"
	"github.com/newthinker/tradermood/internal/source"
	"github.com/newthinker/tradermood/internal/storage/archive"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const tradesHeader = "Account,Coin,Execution Price,Size USD,Closed PnL,Timestamp IST\n"

func table(t *testing.T, name, content string) *source.Table {
	t.Helper()
	tbl, err := source.ReadCSV(name, strings.NewReader(content))
	require.NoError(t, err)
	return tbl
}

func scenario(t *testing.T) (*source.Table, *source.Table) {
	trades := table(t, "trades.csv", tradesHeader+
		"A,BTC,42000,1000,100,01-01-2024 09:00\n"+
		"A,BTC,42100,500,-50,01-01-2024 15:30\n"+
		"A,ETH,2300,200,30,02-01-2024 11:00\n")
	sentiment := table(t, "fear_greed.csv", "timestamp,value,classification,date\n"+
		"1704067200,30,Fear,2024-01-01\n"+
		"1704153600,70,Greed,2024-01-02\n")
	return trades, sentiment
}

func TestRun_Scenario(t *testing.T) {
	trades, sentiment := scenario(t)

	r := New(config.Defaults(), nil)
	res, err := r.Run(context.Background(), trades, sentiment, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 5, res.TopN)
	assert.Equal(t, rank.Exclude, res.Policy)

	require.Len(t, res.Aggregates, 2)
	assert.True(t, res.Aggregates[0].DailyPnL.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 50.0, res.Aggregates[0].WinRate)
	assert.Equal(t, 100.0, res.Aggregates[1].WinRate)

	require.Len(t, res.Enriched, 2)
	assert.Equal(t, core.Fear, res.Enriched[0].Classification)
	assert.Equal(t, core.Greed, res.Enriched[1].Classification)

	require.Len(t, res.Summary, 2)
	require.Len(t, res.Contrarians, 1)
	assert.True(t, res.Contrarians[0].DiffFearGreed.Equal(decimal.NewFromInt(20)))
	require.Len(t, res.Herd, 1)

	assert.True(t, res.Diagnostics.LeverageDefaulted, "the sample has no leverage column")
	assert.Equal(t, 3, res.Diagnostics.TradesKept)
	assert.Equal(t, 2, res.Diagnostics.AccountDays)
	assert.Equal(t, 0, res.Diagnostics.UnmatchedAccountDays)
}

func TestRun_UncoerciblePnLIsDropped(t *testing.T) {
	trades := table(t, "trades.csv", tradesHeader+
		"A,BTC,1,1,10,05-03-2024 09:00\n"+
		"A,BTC,1,1,N/A,05-03-2024 10:00\n"+
		"A,BTC,1,1,-4,05-03-2024 11:00\n")
	sentiment := table(t, "s.csv", "date,classification\n2024-03-05,Neutral\n")

	res, err := New(config.Defaults(), nil).Run(context.Background(), trades, sentiment, Options{})
	require.NoError(t, err)

	require.Len(t, res.Aggregates, 1)
	agg := res.Aggregates[0]
	assert.Equal(t, 2, agg.NumTrades)
	assert.Equal(t, 1, agg.NumWins)
	assert.True(t, agg.DailyPnL.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, 1, res.Diagnostics.DroppedMissingPnL)
}

func TestRun_UnmatchedDayIsExcluded(t *testing.T) {
	trades := table(t, "trades.csv", tradesHeader+
		"A,BTC,1,1,10,01-01-2024 09:00\n"+
		"A,BTC,1,1,99,03-01-2024 09:00\n"+
		"A,BTC,1,1,-5,02-01-2024 09:00\n")
	sentiment := table(t, "s.csv", "date,classification\n2024-01-01,Fear\n2024-01-02,Greed\n")

	res, err := New(config.Defaults(), nil).Run(context.Background(), trades, sentiment, Options{})
	require.NoError(t, err)

	assert.Len(t, res.Aggregates, 3)
	assert.Len(t, res.Enriched, 2)
	assert.Equal(t, 1, res.Diagnostics.UnmatchedAccountDays)
	for _, s := range res.Summary {
		assert.False(t, s.MeanDailyPnL.Equal(decimal.NewFromInt(99)))
	}
	require.Len(t, res.Contrarians, 1)
	assert.True(t, res.Contrarians[0].DiffFearGreed.Equal(decimal.NewFromInt(15)))
}

func TestRun_NoOverlap(t *testing.T) {
	trades, _ := scenario(t)
	sentiment := table(t, "s.csv", "date,classification\n2023-06-01,Fear\n")

	reg := metrics.NewRegistry()
	r := New(config.Defaults(), nil)
	r.SetMetrics(reg)

	res, err := r.Run(context.Background(), trades, sentiment, Options{})
	assert.Nil(t, res, "no summary or ranking on no overlap")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoOverlap))
	assert.False(t, errors.Is(err, core.ErrSourceUnavailable))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() != "tradermood_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == "no_overlap" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected a no_overlap run to be recorded")
}

func TestRun_SchemaInvalid(t *testing.T) {
	trades := table(t, "trades.csv", "Account,Timestamp IST\nA,01-01-2024 09:00\n")
	_, sentiment := scenario(t)

	_, err := New(config.Defaults(), nil).Run(context.Background(), trades, sentiment, Options{})
	assert.True(t, errors.Is(err, core.ErrSchemaInvalid))
}

func TestRun_OptionsOverrideConfig(t *testing.T) {
	trades, sentiment := scenario(t)

	res, err := New(config.Defaults(), nil).Run(context.Background(), trades, sentiment, Options{TopN: 1, Policy: "zero"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TopN)
	assert.Equal(t, rank.Zero, res.Policy)

	_, err = New(config.Defaults(), nil).Run(context.Background(), trades, sentiment, Options{Policy: "maybe"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestRun_LogsCarryRunID(t *testing.T) {
	trades, sentiment := scenario(t)
	zcore, logs := observer.New(zapcore.InfoLevel)

	res, err := New(config.Defaults(), zap.New(zcore)).Run(context.Background(), trades, sentiment, Options{})
	require.NoError(t, err)

	require.NotZero(t, logs.Len())
	stages := 0
	for _, e := range logs.All() {
		assert.Equal(t, res.RunID, e.ContextMap()["run_id"], "entry %q", e.Message)
		if e.Message == "stage complete" {
			stages++
		}
	}
	assert.Equal(t, 5, stages)
}

func TestRun_CancelledContext(t *testing.T) {
	trades, sentiment := scenario(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(config.Defaults(), nil).Run(ctx, trades, sentiment, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "historical_data.csv"), []byte(tradesHeader+
		"A,BTC,1,1,100,01-01-2024 09:00\n"+
		"A,BTC,1,1,-50,01-01-2024 15:30\n"+
		"A,BTC,1,1,30,02-01-2024 11:00\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fear_greed_index.csv"), []byte(
		"date,classification\n2024-01-01,Fear\n2024-01-02,Greed\n"), 0644))

	store, err := archive.NewLocalFS(dir)
	require.NoError(t, err)

	r := New(config.Defaults(), nil)
	r.SetLoader(source.NewLoader(store))

	res, err := r.RunPaths(context.Background(), "historical_data.csv", "fear_greed_index.csv", Options{})
	require.NoError(t, err)
	require.Len(t, res.Contrarians, 1)
	assert.True(t, res.Contrarians[0].DiffFearGreed.Equal(decimal.NewFromInt(20)))

	_, err = r.RunPaths(context.Background(), "missing.csv", "fear_greed_index.csv", Options{})
	assert.True(t, errors.Is(err, core.ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "missing.csv")
}

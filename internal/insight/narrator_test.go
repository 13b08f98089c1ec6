package insight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/llm"
	"github.com/newthinker/tradermood/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
	got   llm.ChatRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.reply}, nil
}

func sampleReport() *report.Report {
	return &report.Report{
		RunID: "run-1",
		Summary: []report.SummaryRow{
			{Classification: core.Fear, Rows: 12, MedianDailyPnL: 40.5, MeanDailyPnL: 55.25, MeanWinRate: 61},
			{Classification: core.Greed, Rows: 9, MedianDailyPnL: 10, MeanDailyPnL: 12.5, MeanWinRate: 48},
		},
		Contrarians: []report.RankRow{{Account: "0xabc", FearMeanPnL: 50, GreedMeanPnL: 30, DiffFearGreed: 20}},
		Diagnostics: core.Diagnostics{TradesRead: 100, TradesKept: 98, UnmatchedAccountDays: 3},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleReport())

	assert.Contains(t, prompt, "Fear | 12 | 40.50 | 55.25 | 61.0")
	assert.Contains(t, prompt, "0xabc | 50.00 | 30.00 | 20.00")
	assert.Contains(t, prompt, "Herd accounts (better in Greed)\nnone")
	assert.Contains(t, prompt, "trades kept 98 of 100")
}

func TestNarrate_JSON(t *testing.T) {
	stub := &stubProvider{reply: "```json\n{\"headline\": \"Fear paid.\", \"findings\": [\"Median PnL is 4x higher in Fear.\"], \"caveats\": [\"Few Greed days.\"]}\n```"}
	n := NewNarrator(stub, 400, nil)

	c, err := n.Narrate(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "Fear paid.", c.Headline)
	assert.Len(t, c.Findings, 1)
	assert.True(t, stub.got.JSONMode)
	assert.Equal(t, 400, stub.got.MaxTokens)
	assert.Equal(t, llm.RoleUser, stub.got.Messages[0].Role)

	text := c.String()
	assert.True(t, strings.HasPrefix(text, "Fear paid.\n- Median"))
	assert.Contains(t, text, "Caveats:\n- Few Greed days.")
}

func TestNarrate_PlainTextFallback(t *testing.T) {
	n := NewNarrator(&stubProvider{reply: "  Traders did better in fear.  "}, 0, nil)

	c, err := n.Narrate(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "Traders did better in fear.", c.Headline)
	assert.Empty(t, c.Findings)
}

func TestNarrate_ProviderError(t *testing.T) {
	n := NewNarrator(&stubProvider{err: core.ErrLLMFailed}, 0, nil)

	_, err := n.Narrate(context.Background(), sampleReport())
	assert.True(t, errors.Is(err, core.ErrLLMFailed))
}

func TestNarrate_EmptyReport(t *testing.T) {
	stub := &stubProvider{}
	_, err := NewNarrator(stub, 0, nil).Narrate(context.Background(), &report.Report{})
	assert.Error(t, err)
	assert.Empty(t, stub.got.Messages, "no call for an empty report")
}

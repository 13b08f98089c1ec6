// Package insight asks an LLM to narrate a finished analysis.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newthinker/tradermood/internal/llm"
	"github.com/newthinker/tradermood/internal/logger"
	"github.com/newthinker/tradermood/internal/report"
	"go.uber.org/zap"
)

const systemPrompt = `You are a trading performance analyst. You receive statistics comparing
trader daily PnL and win rate across Fear & Greed index classifications, plus the accounts
that performed best and worst in Fear relative to Greed.

Respond with a JSON object:
{"headline": "<one sentence>", "findings": ["<finding>", ...], "caveats": ["<caveat>", ...]}

Only use the numbers given. Keep findings under 30 words each. Mention sample sizes when
a classification has few account-days.`

// Commentary is the narrated view of one run.
type Commentary struct {
	Headline string   `json:"headline"`
	Findings []string `json:"findings"`
	Caveats  []string `json:"caveats"`
}

// String renders the commentary as plain text.
func (c Commentary) String() string {
	var sb strings.Builder
	sb.WriteString(c.Headline)
	for _, f := range c.Findings {
		sb.WriteString("\n- ")
		sb.WriteString(f)
	}
	if len(c.Caveats) > 0 {
		sb.WriteString("\nCaveats:")
		for _, cv := range c.Caveats {
			sb.WriteString("\n- ")
			sb.WriteString(cv)
		}
	}
	return sb.String()
}

// Narrator produces commentary for reports.
type Narrator struct {
	llm       llm.Provider
	logger    *zap.Logger
	maxTokens int
}

// NewNarrator creates a Narrator. maxTokens of zero uses the provider
// default.
func NewNarrator(provider llm.Provider, maxTokens int, log *zap.Logger) *Narrator {
	return &Narrator{
		llm:       provider,
		logger:    logger.OrNop(log),
		maxTokens: maxTokens,
	}
}

// Narrate returns commentary on rep. A reply that is not the requested JSON
// is kept verbatim as the headline.
func (n *Narrator) Narrate(ctx context.Context, rep *report.Report) (*Commentary, error) {
	if len(rep.Summary) == 0 {
		return nil, fmt.Errorf("report has no sentiment summary to narrate")
	}

	resp, err := n.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: BuildPrompt(rep)},
		},
		MaxTokens:   n.maxTokens,
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	n.logger.Debug("commentary received",
		zap.String("provider", n.llm.Name()),
		zap.String("run_id", rep.RunID),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)

	var c Commentary
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &c); err != nil || c.Headline == "" {
		n.logger.Warn("commentary was not JSON, keeping raw text",
			zap.String("provider", n.llm.Name()))
		return &Commentary{Headline: strings.TrimSpace(resp.Content)}, nil
	}
	return &c, nil
}

// BuildPrompt renders the report tables the model is asked to interpret.
func BuildPrompt(rep *report.Report) string {
	var sb strings.Builder

	sb.WriteString("## Performance by sentiment\n")
	sb.WriteString("classification | account-days | median daily pnl | mean daily pnl | mean win rate %\n")
	for _, s := range rep.Summary {
		fmt.Fprintf(&sb, "%s | %d | %.2f | %.2f | %.1f\n",
			s.Classification, s.Rows, s.MedianDailyPnL, s.MeanDailyPnL, s.MeanWinRate)
	}

	writeRows := func(title string, rows []report.RankRow) {
		fmt.Fprintf(&sb, "\n## %s\n", title)
		if len(rows) == 0 {
			sb.WriteString("none\n")
			return
		}
		sb.WriteString("account | fear mean pnl | greed mean pnl | fear minus greed\n")
		for _, r := range rows {
			fmt.Fprintf(&sb, "%s | %.2f | %.2f | %.2f\n", r.Account, r.FearMeanPnL, r.GreedMeanPnL, r.DiffFearGreed)
		}
	}
	writeRows("Contrarian accounts (better in Fear)", rep.Contrarians)
	writeRows("Herd accounts (better in Greed)", rep.Herd)

	d := rep.Diagnostics
	fmt.Fprintf(&sb, "\n## Data quality\ntrades kept %d of %d; account-days without sentiment %d\n",
		d.TradesKept, d.TradesRead, d.UnmatchedAccountDays)
	return sb.String()
}

// extractJSON trims any prose or code fence around the outermost object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

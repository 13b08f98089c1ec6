package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg config.NotifierConfig) error {
	if cfg.BotToken != "" {
		t.botToken = cfg.BotToken
	}
	if cfg.ChatID != "" {
		t.chatID = cfg.ChatID
	}
	if cfg.URL != "" {
		t.apiBase = strings.TrimSuffix(cfg.URL, "/")
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, d notifier.Digest) error {
	return t.sendMessage(ctx, t.formatDigest(d))
}

func (t *Telegram) formatDigest(d notifier.Digest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 *Trader sentiment report* `%s`\n", d.RunID))
	sb.WriteString(fmt.Sprintf("⏰ %s · %d trades · %d account-days\n\n",
		d.GeneratedAt.Format("2006-01-02 15:04"), d.TradesKept, d.AccountDays))

	for _, s := range d.Summary {
		sb.WriteString(fmt.Sprintf("%s *%s*: median %.2f · mean %.2f · win %.1f%%\n",
			emoji(s.Classification), s.Classification, s.MedianDailyPnL, s.MeanDailyPnL, s.MeanWinRate))
	}

	if d.Best != "" {
		sb.WriteString(fmt.Sprintf("\n🏆 Best: %s · 🪫 Worst: %s\n", d.Best, d.Worst))
	}
	if d.TopContrarian != nil {
		sb.WriteString(fmt.Sprintf("🔄 Top contrarian: `%s` (%+.2f)\n", d.TopContrarian.Account, d.TopContrarian.DiffFearGreed))
	}
	if d.TopHerd != nil {
		sb.WriteString(fmt.Sprintf("🐑 Top herd: `%s` (%+.2f)\n", d.TopHerd.Account, d.TopHerd.DiffFearGreed))
	}
	if d.Commentary != "" {
		sb.WriteString("\n💡 ")
		sb.WriteString(d.Commentary)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func emoji(c core.Classification) string {
	switch c {
	case core.ExtremeFear:
		return "😱"
	case core.Fear:
		return "😨"
	case core.Greed:
		return "🤑"
	case core.ExtremeGreed:
		return "🚀"
	default:
		return "😐"
	}
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}

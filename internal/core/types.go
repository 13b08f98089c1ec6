package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Classification is one of the five Fear & Greed index levels
type Classification string

const (
	ExtremeFear  Classification = "Extreme Fear"
	Fear         Classification = "Fear"
	Neutral      Classification = "Neutral"
	Greed        Classification = "Greed"
	ExtremeGreed Classification = "Extreme Greed"
)

// Classifications lists every level from most fearful to most greedy.
var Classifications = []Classification{ExtremeFear, Fear, Neutral, Greed, ExtremeGreed}

// ParseClassification maps a raw label onto the enumeration. Matching ignores
// case, surrounding whitespace and treats '_' and '-' as spaces, so
// "extreme_fear" and " EXTREME FEAR " both resolve to ExtremeFear.
func ParseClassification(raw string) (Classification, bool) {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), " ")
	for _, c := range Classifications {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Rank returns the position of c in Classifications, or -1 if unknown.
func (c Classification) Rank() int {
	for i, v := range Classifications {
		if v == c {
			return i
		}
	}
	return -1
}

// TradeRecord is one executed trade after normalization.
type TradeRecord struct {
	Account        string
	Timestamp      time.Time
	TradeDate      time.Time // Timestamp truncated to the calendar day
	ExecutionPrice decimal.NullDecimal
	SizeUSD        decimal.NullDecimal
	ClosedPnL      decimal.Decimal
	Leverage       decimal.NullDecimal
}

// IsWin reports whether the trade realized a positive PnL
func (t TradeRecord) IsWin() bool {
	return t.ClosedPnL.IsPositive()
}

// SentimentRecord is one calendar day's market mood.
type SentimentRecord struct {
	Date           time.Time
	Classification Classification
}

// AccountDayAggregate summarizes one account's trades on one calendar day.
type AccountDayAggregate struct {
	Account     string              `json:"account" yaml:"account"`
	TradeDate   time.Time           `json:"trade_date" yaml:"trade_date"`
	DailyPnL    decimal.Decimal     `json:"daily_pnl" yaml:"daily_pnl"`
	NumTrades   int                 `json:"num_trades" yaml:"num_trades"`
	AvgLeverage decimal.NullDecimal `json:"avg_leverage" yaml:"avg_leverage"`
	NumWins     int                 `json:"num_wins" yaml:"num_wins"`
	WinRate     float64             `json:"win_rate" yaml:"win_rate"` // percentage, 0..100
}

// EnrichedAccountDay is an aggregate that matched a sentiment day.
type EnrichedAccountDay struct {
	AccountDayAggregate `yaml:",inline"`
	Classification      Classification `json:"classification" yaml:"classification"`
}

// SentimentSummary holds the per-classification statistics across account-days.
type SentimentSummary struct {
	Classification  Classification      `json:"classification" yaml:"classification"`
	Rows            int                 `json:"rows" yaml:"rows"`
	MedianDailyPnL  decimal.Decimal     `json:"median_daily_pnl" yaml:"median_daily_pnl"`
	MeanDailyPnL    decimal.Decimal     `json:"mean_daily_pnl" yaml:"mean_daily_pnl"`
	MeanWinRate     float64             `json:"mean_win_rate" yaml:"mean_win_rate"`
	AvgLeverageUsed decimal.NullDecimal `json:"avg_leverage_used" yaml:"avg_leverage_used"`
}

// AccountSentimentProfile is one account's mean daily PnL under each
// classification, plus the Fear minus Greed differential.
type AccountSentimentProfile struct {
	Account        string                            `json:"account" yaml:"account"`
	MeanPnL        map[Classification]decimal.Decimal `json:"mean_pnl" yaml:"mean_pnl"`
	OverallMeanPnL decimal.Decimal                   `json:"overall_mean_pnl" yaml:"overall_mean_pnl"`
	HasFear        bool                              `json:"has_fear" yaml:"has_fear"`
	HasGreed       bool                              `json:"has_greed" yaml:"has_greed"`
	DiffFearGreed  decimal.Decimal                   `json:"diff_fear_minus_greed" yaml:"diff_fear_minus_greed"`
}

// FearMean returns the Fear mean, or zero if the account has none.
func (p AccountSentimentProfile) FearMean() decimal.Decimal {
	return p.MeanPnL[Fear]
}

// GreedMean returns the Greed mean, or zero if the account has none.
func (p AccountSentimentProfile) GreedMean() decimal.Decimal {
	return p.MeanPnL[Greed]
}

// Diagnostics counts the non-fatal conditions absorbed during a run.
type Diagnostics struct {
	TradesRead           int            `json:"trades_read" yaml:"trades_read"`
	TradesKept           int            `json:"trades_kept" yaml:"trades_kept"`
	DroppedMissingPnL    int            `json:"dropped_missing_pnl" yaml:"dropped_missing_pnl"`
	DroppedBadTimestamp  int            `json:"dropped_bad_timestamp" yaml:"dropped_bad_timestamp"`
	DroppedBlankAccount  int            `json:"dropped_blank_account" yaml:"dropped_blank_account"`
	CoercedToMissing     map[string]int `json:"coerced_to_missing" yaml:"coerced_to_missing"`
	LeverageDefaulted    bool           `json:"leverage_defaulted" yaml:"leverage_defaulted"`
	SentimentRead        int            `json:"sentiment_read" yaml:"sentiment_read"`
	SentimentKept        int            `json:"sentiment_kept" yaml:"sentiment_kept"`
	SentimentBadDate     int            `json:"sentiment_bad_date" yaml:"sentiment_bad_date"`
	SentimentUnknown     int            `json:"sentiment_unknown_classification" yaml:"sentiment_unknown_classification"`
	SentimentDuplicates  int            `json:"sentiment_duplicate_dates" yaml:"sentiment_duplicate_dates"`
	AccountDays          int            `json:"account_days" yaml:"account_days"`
	UnmatchedAccountDays int            `json:"unmatched_account_days" yaml:"unmatched_account_days"`
}

// Day truncates t to midnight of its own calendar day, keeping its location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey formats the calendar day of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

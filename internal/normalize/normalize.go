// Package normalize turns raw trade and sentiment tables into validated
// canonical records.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/source"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Output is everything the normalizer hands downstream.
type Output struct {
	Trades      []core.TradeRecord
	Sentiment   []core.SentimentRecord
	TradeSchema TradeSchema
}

// Normalizer resolves schemas and coerces raw records.
type Normalizer struct {
	columns         config.ColumnsConfig
	defaultLeverage decimal.Decimal
	logger          *zap.Logger
}

// New creates a Normalizer for the configured column names.
func New(columns config.ColumnsConfig, defaultLeverage decimal.Decimal, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		columns:         columns,
		defaultLeverage: defaultLeverage,
		logger:          logger,
	}
}

// Normalize trims headers, resolves both schemas and converts every record.
// Only schema violations are returned as errors; bad cells are absorbed
// and counted in diag.
func (n *Normalizer) Normalize(trades, sentiment *source.Table, diag *core.Diagnostics) (*Output, error) {
	if trades == nil || sentiment == nil {
		return nil, core.WrapError(core.ErrSourceUnavailable,
			fmt.Errorf("both trade and sentiment sources are required"))
	}

	trades = trades.Trimmed()
	sentiment = sentiment.Trimmed()

	tradeSchema, err := ResolveTradeSchema(trades, n.columns.Trade, n.defaultLeverage)
	if err != nil {
		return nil, err
	}
	sentimentSchema, err := ResolveSentimentSchema(sentiment, n.columns.Sentiment)
	if err != nil {
		return nil, err
	}

	if !tradeSchema.HasLeverage() {
		n.logger.Info("leverage column absent, applying default",
			zap.String("source", trades.Name),
			zap.String("default", tradeSchema.DefaultLeverage.String()),
		)
	}

	return &Output{
		Trades:      Trades(trades, tradeSchema, diag),
		Sentiment:   Sentiment(sentiment, sentimentSchema, diag),
		TradeSchema: tradeSchema,
	}, nil
}

// Trades converts trimmed trade records. A record is dropped when its
// realized PnL is missing after coercion, its timestamp cannot be parsed,
// or its account is blank. Output order follows input order.
func Trades(t *source.Table, schema TradeSchema, diag *core.Diagnostics) []core.TradeRecord {
	if diag.CoercedToMissing == nil {
		diag.CoercedToMissing = make(map[string]int)
	}
	diag.LeverageDefaulted = !schema.HasLeverage()

	coerce := func(rec source.Record, column string) decimal.NullDecimal {
		if column == "" {
			return decimal.NullDecimal{}
		}
		c := coerceDecimal(rec[column])
		if c.invalid {
			diag.CoercedToMissing[column]++
		}
		return c.value
	}

	out := make([]core.TradeRecord, 0, len(t.Records))
	for _, rec := range t.Records {
		diag.TradesRead++

		pnl := coerce(rec, schema.ClosedPnL)
		price := coerce(rec, schema.ExecutionPrice)
		size := coerce(rec, schema.SizeUSD)

		leverage := decimal.NullDecimal{Decimal: schema.DefaultLeverage, Valid: true}
		if schema.HasLeverage() {
			leverage = coerce(rec, schema.Leverage)
		}

		if !pnl.Valid {
			diag.DroppedMissingPnL++
			continue
		}

		ts, err := parseTradeTime(rec[schema.Timestamp])
		if err != nil {
			diag.DroppedBadTimestamp++
			continue
		}

		account := strings.TrimSpace(rec[schema.Account])
		if account == "" {
			diag.DroppedBlankAccount++
			continue
		}

		out = append(out, core.TradeRecord{
			Account:        account,
			Timestamp:      ts,
			TradeDate:      core.Day(ts),
			ExecutionPrice: price,
			SizeUSD:        size,
			ClosedPnL:      pnl.Decimal,
			Leverage:       leverage,
		})
	}

	diag.TradesKept = len(out)
	return out
}

// Sentiment converts trimmed sentiment records into one record per
// calendar day, sorted by date. When a date repeats, the last row read
// wins. Rows with an unparseable date or an unknown label are skipped.
func Sentiment(t *source.Table, schema SentimentSchema, diag *core.Diagnostics) []core.SentimentRecord {
	byDay := make(map[string]core.SentimentRecord, len(t.Records))

	for _, rec := range t.Records {
		diag.SentimentRead++

		date, err := parseSentimentDate(rec[schema.Date])
		if err != nil {
			diag.SentimentBadDate++
			continue
		}
		class, ok := core.ParseClassification(rec[schema.Classification])
		if !ok {
			diag.SentimentUnknown++
			continue
		}

		day := core.Day(date)
		key := core.DayKey(day)
		if _, dup := byDay[key]; dup {
			diag.SentimentDuplicates++
		}
		byDay[key] = core.SentimentRecord{Date: day, Classification: class}
	}

	out := make([]core.SentimentRecord, 0, len(byDay))
	for _, rec := range byDay {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	diag.SentimentKept = len(out)
	return out
}

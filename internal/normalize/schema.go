package normalize

import (
	"fmt"
	"strings"

	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/source"
	"github.com/shopspring/decimal"
)

// TradeSchema is the resolved layout of a trade source. Optional columns
// are empty when the source does not carry them. It is decided once per
// run and shared by the normalizer and the aggregator.
type TradeSchema struct {
	Timestamp      string
	Account        string
	ClosedPnL      string
	ExecutionPrice string
	SizeUSD        string
	Leverage       string

	// DefaultLeverage is assigned to every record when Leverage is empty.
	DefaultLeverage decimal.Decimal
}

// HasLeverage reports whether the source carries a leverage column.
func (s TradeSchema) HasLeverage() bool {
	return s.Leverage != ""
}

// SentimentSchema is the resolved layout of a sentiment source.
type SentimentSchema struct {
	Date           string
	Classification string
}

// ResolveTradeSchema checks the required trade columns against a table
// whose headers are already trimmed.
func ResolveTradeSchema(t *source.Table, cols config.TradeColumns, defaultLeverage decimal.Decimal) (TradeSchema, error) {
	schema := TradeSchema{DefaultLeverage: defaultLeverage}

	var missing []string
	required := func(name string) string {
		name = strings.TrimSpace(name)
		if !t.HasColumn(name) {
			missing = append(missing, name)
			return ""
		}
		return name
	}
	optional := func(name string) string {
		name = strings.TrimSpace(name)
		if name == "" || !t.HasColumn(name) {
			return ""
		}
		return name
	}

	schema.Timestamp = required(cols.Timestamp)
	schema.Account = required(cols.Account)
	schema.ClosedPnL = required(cols.ClosedPnL)
	schema.ExecutionPrice = optional(cols.ExecutionPrice)
	schema.SizeUSD = optional(cols.SizeUSD)
	schema.Leverage = optional(cols.Leverage)

	if len(missing) > 0 {
		return TradeSchema{}, core.WrapError(core.ErrSchemaInvalid,
			fmt.Errorf("%s: missing columns %q", t.Name, missing))
	}
	return schema, nil
}

// ResolveSentimentSchema checks the required sentiment columns against a
// table whose headers are already trimmed.
func ResolveSentimentSchema(t *source.Table, cols config.SentimentColumns) (SentimentSchema, error) {
	date := strings.TrimSpace(cols.Date)
	class := strings.TrimSpace(cols.Classification)

	var missing []string
	for _, name := range []string{date, class} {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return SentimentSchema{}, core.WrapError(core.ErrSchemaInvalid,
			fmt.Errorf("%s: missing columns %q", t.Name, missing))
	}
	return SentimentSchema{Date: date, Classification: class}, nil
}

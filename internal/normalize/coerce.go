package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Trade timestamps are day-first (DD-MM-YYYY). Year-first ISO layouts are
// accepted too since they cannot be confused with either ordering.
var tradeTimeLayouts = []string{
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var sentimentDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// parseTradeTime parses a trade timestamp in its own wall clock; no zone
// conversion is applied.
func parseTradeTime(raw string) (time.Time, error) {
	return parseWithLayouts(raw, tradeTimeLayouts)
}

func parseSentimentDate(raw string) (time.Time, error) {
	return parseWithLayouts(raw, sentimentDateLayouts)
}

func parseWithLayouts(raw string, layouts []string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", raw)
}

// cell is the outcome of coercing one raw numeric cell.
type cell struct {
	value   decimal.NullDecimal
	invalid bool // non-blank but unparseable
}

// coerceDecimal turns a raw cell into a decimal. Blank cells and cells that
// fail to parse both become missing; only the latter are flagged invalid.
func coerceDecimal(raw string) cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return cell{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return cell{invalid: true}
	}
	return cell{value: decimal.NullDecimal{Decimal: d, Valid: true}}
}

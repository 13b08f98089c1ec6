package report

import (
	"math"
	"sort"

	"github.com/newthinker/tradermood/internal/core"
)

// Metric selects the account-day value a distribution is drawn from.
type Metric string

const (
	MetricDailyPnL Metric = "daily_pnl"
	MetricWinRate  Metric = "win_rate"
)

// whiskerReach is how many interquartile ranges a whisker may extend past
// the box.
const whiskerReach = 1.5

// BoxStats is the five-number summary behind one box of a box plot.
type BoxStats struct {
	Classification core.Classification `json:"classification" yaml:"classification"`
	Color          string              `json:"color" yaml:"color"`
	N              int                 `json:"n" yaml:"n"`
	LowerWhisker   float64             `json:"lower_whisker" yaml:"lower_whisker"`
	Q1             float64             `json:"q1" yaml:"q1"`
	Median         float64             `json:"median" yaml:"median"`
	Q3             float64             `json:"q3" yaml:"q3"`
	UpperWhisker   float64             `json:"upper_whisker" yaml:"upper_whisker"`
	Outliers       []float64           `json:"outliers,omitempty" yaml:"outliers,omitempty"`
	HiddenOutliers int                 `json:"hidden_outliers,omitempty" yaml:"hidden_outliers,omitempty"`
}

// Distribution is one chart: a box per classification present.
type Distribution struct {
	Metric       Metric     `json:"metric" yaml:"metric"`
	ShowOutliers bool       `json:"show_outliers" yaml:"show_outliers"`
	Boxes        []BoxStats `json:"boxes" yaml:"boxes"`
}

// Distributions returns the two standard charts: daily PnL with outliers
// hidden and win rate with outliers shown.
func Distributions(rows []core.EnrichedAccountDay) []Distribution {
	return []Distribution{
		NewDistribution(rows, MetricDailyPnL, false),
		NewDistribution(rows, MetricWinRate, true),
	}
}

// NewDistribution computes box statistics of metric for each classification
// present in rows, ordered from Extreme Fear to Extreme Greed.
func NewDistribution(rows []core.EnrichedAccountDay, metric Metric, showOutliers bool) Distribution {
	values := make(map[core.Classification][]float64)
	for _, r := range rows {
		var v float64
		switch metric {
		case MetricWinRate:
			v = r.WinRate
		default:
			v = r.DailyPnL.InexactFloat64()
		}
		values[r.Classification] = append(values[r.Classification], v)
	}

	d := Distribution{Metric: metric, ShowOutliers: showOutliers}
	for _, c := range core.Classifications {
		vs, ok := values[c]
		if !ok {
			continue
		}
		box := Box(vs, showOutliers)
		box.Classification = c
		box.Color = Color(c)
		d.Boxes = append(d.Boxes, box)
	}
	return d
}

// Box computes the box statistics of vs. Whiskers extend to the most extreme
// values within 1.5 IQR of the box; anything further is an outlier, listed
// only when showOutliers is set.
func Box(vs []float64, showOutliers bool) BoxStats {
	if len(vs) == 0 {
		return BoxStats{}
	}

	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)

	b := BoxStats{
		N:      len(sorted),
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
	}

	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-whiskerReach*iqr, b.Q3+whiskerReach*iqr

	b.LowerWhisker, b.UpperWhisker = math.Inf(1), math.Inf(-1)
	var outliers []float64
	for _, v := range sorted {
		if v < lo || v > hi {
			outliers = append(outliers, v)
			continue
		}
		b.LowerWhisker = math.Min(b.LowerWhisker, v)
		b.UpperWhisker = math.Max(b.UpperWhisker, v)
	}

	if math.IsInf(b.LowerWhisker, 1) {
		b.LowerWhisker, b.UpperWhisker = b.Q1, b.Q3
	}

	if showOutliers {
		b.Outliers = outliers
	} else {
		b.HiddenOutliers = len(outliers)
	}
	return b
}

// Quantile returns the q-th quantile of sorted using linear interpolation
// between closest ranks. sorted must be ascending and non-empty.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

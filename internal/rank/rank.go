// Package rank builds per-account sentiment profiles and orders accounts by
// how much better they trade in Fear than in Greed.
package rank

import (
	"fmt"
	"sort"

	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/shopspring/decimal"
)

// Policy decides what happens when Fear or Greed has no rows at all.
type Policy string

const (
	// Exclude drops every account from the ranking when either side is
	// absent from the dataset.
	Exclude Policy = config.PolicyExclude
	// Zero treats an absent side as a mean of zero.
	Zero Policy = config.PolicyZero
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case Exclude, Zero:
		return Policy(s), nil
	case "":
		return Exclude, nil
	}
	return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown missing-side policy %q", s))
}

type accumulator struct {
	sum   decimal.Decimal
	count int64
}

func (a *accumulator) add(v decimal.Decimal) {
	a.sum = a.sum.Add(v)
	a.count++
}

func (a accumulator) mean() decimal.Decimal {
	if a.count == 0 {
		return decimal.Zero
	}
	return a.sum.Div(decimal.NewFromInt(a.count))
}

// Profiles returns one profile per account that has at least one row under
// every classification present in rows. Profiles are ordered by account id,
// which is the tie-break order used by Top.
//
// Under Exclude, when Fear or Greed is missing from the whole dataset no
// account can be ranked and the result is empty.
func Profiles(rows []core.EnrichedAccountDay, policy Policy) []core.AccountSentimentProfile {
	present := make(map[core.Classification]bool)
	byAccount := make(map[string]map[core.Classification]*accumulator)
	overall := make(map[string]*accumulator)

	for _, r := range rows {
		present[r.Classification] = true

		classes, ok := byAccount[r.Account]
		if !ok {
			classes = make(map[core.Classification]*accumulator)
			byAccount[r.Account] = classes
			overall[r.Account] = &accumulator{}
		}
		acc, ok := classes[r.Classification]
		if !ok {
			acc = &accumulator{}
			classes[r.Classification] = acc
		}
		acc.add(r.DailyPnL)
		overall[r.Account].add(r.DailyPnL)
	}

	hasFear, hasGreed := present[core.Fear], present[core.Greed]
	if policy != Zero && (!hasFear || !hasGreed) {
		return nil
	}

	accounts := make([]string, 0, len(byAccount))
	for a := range byAccount {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)

	var out []core.AccountSentimentProfile
	for _, account := range accounts {
		classes := byAccount[account]
		if len(classes) < len(present) {
			continue
		}

		p := core.AccountSentimentProfile{
			Account:        account,
			MeanPnL:        make(map[core.Classification]decimal.Decimal, len(classes)),
			OverallMeanPnL: overall[account].mean(),
			HasFear:        hasFear,
			HasGreed:       hasGreed,
		}
		for c, acc := range classes {
			p.MeanPnL[c] = acc.mean()
		}
		p.DiffFearGreed = p.FearMean().Sub(p.GreedMean())
		out = append(out, p)
	}
	return out
}

// Top returns the first n profiles ordered by DiffFearGreed, descending or
// ascending. Equal differentials keep their input order. The input slice is
// not modified.
func Top(profiles []core.AccountSentimentProfile, n int, descending bool) []core.AccountSentimentProfile {
	sorted := make([]core.AccountSentimentProfile, len(profiles))
	copy(sorted, profiles)

	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].DiffFearGreed.GreaterThan(sorted[j].DiffFearGreed)
		}
		return sorted[i].DiffFearGreed.LessThan(sorted[j].DiffFearGreed)
	})

	if n < 0 {
		n = 0
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Contrarians are the accounts that did best in Fear relative to Greed.
func Contrarians(profiles []core.AccountSentimentProfile, n int) []core.AccountSentimentProfile {
	return Top(profiles, n, true)
}

// Herd are the accounts that did worst in Fear relative to Greed.
func Herd(profiles []core.AccountSentimentProfile, n int) []core.AccountSentimentProfile {
	return Top(profiles, n, false)
}

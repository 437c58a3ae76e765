// Package sentiment holds the per-strategy scoring functions. Every
// score is normalized to [-1, 1]. Strategies are independent: a failure
// in one leaves its column null and never blocks the others.
package sentiment

import (
	"context"
	"regexp"
	"strings"
)

// Strategy names as persisted alongside the per-strategy score columns.
const (
	StrategyDynamic = "dynamic"
	StrategyML      = "ml"
	StrategyKeyword = "keyword"
)

// Scorer computes one strategy's sentiment for a text.
type Scorer interface {
	Name() string
	Score(ctx context.Context, text string) (float64, error)
}

var tokenPattern = regexp.MustCompile(`[a-z0-9']+`)

// Tokenize lowercases the text and splits it into word tokens. The same
// tokenization feeds evidence counting and the dynamic scorer so stored
// tokens replay identically.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

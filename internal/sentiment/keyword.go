package sentiment

import (
	"context"
	"errors"
)

// CountKeywords tallies positive and negative lexicon hits in a token
// stream. The counts are raw evidence: they are stored on the link and
// replayed by the keyword strategy.
func CountKeywords(tokens []string) (pos, neg int) {
	for _, tok := range tokens {
		if _, ok := positiveKeywords[tok]; ok {
			pos++
			continue
		}
		if _, ok := negativeKeywords[tok]; ok {
			neg++
		}
	}
	return pos, neg
}

// KeywordScore maps keyword counts to [-1, 1] as (pos-neg)/(pos+neg).
// ok is false when the text contained no keywords at all; that is
// absence of signal, not a neutral score.
func KeywordScore(pos, neg int) (score float64, ok bool) {
	total := pos + neg
	if total <= 0 {
		return 0, false
	}
	return clamp(float64(pos-neg)/float64(total), -1, 1), true
}

// KeywordScorer adapts the count-based strategy to the Scorer interface
// for callers that only have raw text.
type KeywordScorer struct{}

func (KeywordScorer) Name() string {
	return StrategyKeyword
}

func (KeywordScorer) Score(_ context.Context, text string) (float64, error) {
	pos, neg := CountKeywords(Tokenize(text))
	score, ok := KeywordScore(pos, neg)
	if !ok {
		return 0, errors.New("no keyword hits")
	}
	return score, nil
}

// The keyword lists are intentionally smaller and blunter than the
// dynamic lexicon: they count unambiguous words only, because the counts
// double as stored evidence a human may audit.
var positiveKeywords = map[string]struct{}{
	"beat": {}, "beats": {}, "surge": {}, "surges": {}, "soar": {}, "soars": {},
	"rally": {}, "gain": {}, "gains": {}, "jump": {}, "jumps": {}, "rise": {},
	"rises": {}, "record": {}, "strong": {}, "growth": {}, "profit": {},
	"profits": {}, "upgrade": {}, "upgraded": {}, "outperform": {},
	"bullish": {}, "win": {}, "wins": {}, "approval": {}, "approved": {},
	"success": {}, "exceed": {}, "exceeds": {}, "boost": {}, "positive": {},
	"breakout": {}, "recovery": {}, "expansion": {},
}

var negativeKeywords = map[string]struct{}{
	"miss": {}, "misses": {}, "missed": {}, "plunge": {}, "plunges": {},
	"crash": {}, "tumble": {}, "tumbles": {}, "drop": {}, "drops": {},
	"fall": {}, "falls": {}, "fell": {}, "slump": {}, "decline": {},
	"declines": {}, "loss": {}, "losses": {}, "weak": {}, "downgrade": {},
	"downgraded": {}, "underperform": {}, "bearish": {}, "selloff": {},
	"lawsuit": {}, "fraud": {}, "probe": {}, "investigation": {},
	"bankruptcy": {}, "layoffs": {}, "warning": {}, "warns": {},
	"negative": {}, "fear": {}, "fears": {}, "concern": {}, "concerns": {},
	"scandal": {}, "penalty": {}, "shortfall": {},
}

package sentiment

import (
	"context"
	"errors"
	"math"
)

// negationDamping flips and dampens a valence hit preceded by a negator,
// and normAlpha squashes the valence sum into [-1, 1] via
// x / sqrt(x*x + alpha). Both follow the usual lexicon-intensity
// formulation for short news text.
const (
	negationDamping = -0.74
	normAlpha       = 15.0
	lookbackWindow  = 3
)

// DynamicScorer is the in-process lexicon-and-intensity strategy: token
// valences are summed with booster and negation adjustments from the
// preceding words, then the sum is squashed to [-1, 1]. It needs no
// external service, so it is the strategy that is always available.
type DynamicScorer struct{}

func (DynamicScorer) Name() string {
	return StrategyDynamic
}

func (DynamicScorer) Score(_ context.Context, text string) (float64, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0, errors.New("empty text")
	}
	var sum float64
	for i, tok := range tokens {
		val, ok := valences[tok]
		if !ok {
			continue
		}
		for j := i - 1; j >= 0 && j >= i-lookbackWindow; j-- {
			prev := tokens[j]
			if boost, ok := boosters[prev]; ok {
				if val > 0 {
					val += boost
				} else {
					val -= boost
				}
			}
			if _, ok := negations[prev]; ok {
				val *= negationDamping
			}
		}
		sum += val
	}
	if sum == 0 {
		return 0, nil
	}
	return clamp(sum/math.Sqrt(sum*sum+normAlpha), -1, 1), nil
}

// valences maps tokens to intensity on a roughly [-4, 4] scale, skewed
// toward vocabulary that moves equities.
var valences = map[string]float64{
	// positive
	"beat":       2.1,
	"beats":      2.1,
	"surge":      2.6,
	"surges":     2.6,
	"surged":     2.6,
	"soar":       2.8,
	"soars":      2.8,
	"soared":     2.8,
	"rally":      2.2,
	"rallies":    2.2,
	"rallied":    2.2,
	"gain":       1.6,
	"gains":      1.6,
	"gained":     1.6,
	"jump":       1.9,
	"jumps":      1.9,
	"jumped":     1.9,
	"rise":       1.4,
	"rises":      1.4,
	"rose":       1.4,
	"climb":      1.5,
	"climbs":     1.5,
	"climbed":    1.5,
	"record":     1.3,
	"strong":     1.8,
	"stronger":   2.0,
	"growth":     1.7,
	"profit":     1.8,
	"profits":    1.8,
	"profitable": 1.9,
	"upgrade":    2.0,
	"upgraded":   2.0,
	"upgrades":   2.0,
	"outperform": 2.2,
	"bullish":    2.4,
	"buy":        1.2,
	"win":        1.8,
	"wins":       1.8,
	"won":        1.8,
	"approval":   1.7,
	"approved":   1.7,
	"approves":   1.7,
	"success":    2.0,
	"successful": 2.0,
	"exceed":     1.9,
	"exceeds":    1.9,
	"exceeded":   1.9,
	"boost":      1.6,
	"boosts":     1.6,
	"boosted":    1.6,
	"positive":   1.7,
	"optimistic": 1.9,
	"breakout":   1.8,
	"recover":    1.4,
	"recovers":   1.4,
	"recovered":  1.4,
	"recovery":   1.4,
	"good":       1.9,
	"great":      3.1,
	"best":       3.2,
	"dividend":   0.9,
	"expand":     1.2,
	"expands":    1.2,
	"expansion":  1.2,

	// negative
	"miss":          -1.8,
	"misses":        -1.8,
	"missed":        -1.8,
	"plunge":        -2.9,
	"plunges":       -2.9,
	"plunged":       -2.9,
	"crash":         -3.2,
	"crashes":       -3.2,
	"crashed":       -3.2,
	"tumble":        -2.4,
	"tumbles":       -2.4,
	"tumbled":       -2.4,
	"drop":          -1.6,
	"drops":         -1.6,
	"dropped":       -1.6,
	"fall":          -1.5,
	"falls":         -1.5,
	"fell":          -1.5,
	"slump":         -2.2,
	"slumps":        -2.2,
	"slumped":       -2.2,
	"sink":          -2.0,
	"sinks":         -2.0,
	"sank":          -2.0,
	"decline":       -1.5,
	"declines":      -1.5,
	"declined":      -1.5,
	"loss":          -1.9,
	"losses":        -1.9,
	"weak":          -1.7,
	"weaker":        -1.9,
	"downgrade":     -2.1,
	"downgraded":    -2.1,
	"downgrades":    -2.1,
	"underperform":  -2.1,
	"bearish":       -2.4,
	"sell":          -1.2,
	"selloff":       -2.3,
	"lawsuit":       -2.0,
	"fraud":         -3.0,
	"probe":         -1.8,
	"investigation": -1.8,
	"recall":        -2.0,
	"bankruptcy":    -3.4,
	"bankrupt":      -3.4,
	"default":       -2.6,
	"layoff":        -2.2,
	"layoffs":       -2.2,
	"cut":           -1.3,
	"cuts":          -1.3,
	"warning":       -1.9,
	"warns":         -1.9,
	"warned":        -1.9,
	"risk":          -1.1,
	"risks":         -1.1,
	"negative":      -1.7,
	"fear":          -2.1,
	"fears":         -2.1,
	"concern":       -1.4,
	"concerns":      -1.4,
	"bad":           -2.5,
	"worst":         -3.1,
	"halt":          -1.8,
	"halted":        -1.8,
	"delisted":      -2.8,
	"scandal":       -2.7,
	"penalty":       -1.9,
	"fine":          -1.2,
	"fined":         -1.6,
	"shortfall":     -2.0,
	"misconduct":    -2.4,
}

// boosters raise or lower intensity of the word they precede.
var boosters = map[string]float64{
	"very":          0.293,
	"extremely":     0.293,
	"hugely":        0.293,
	"massively":     0.293,
	"sharply":       0.293,
	"significantly": 0.293,
	"slightly":      -0.293,
	"marginally":    -0.293,
	"somewhat":      -0.293,
	"barely":        -0.293,
}

var negations = map[string]struct{}{
	"not":     {},
	"no":      {},
	"never":   {},
	"neither": {},
	"nor":     {},
	"without": {},
	"n't":     {},
	"cannot":  {},
	"isn't":   {},
	"wasn't":  {},
	"didn't":  {},
	"won't":   {},
	"don't":   {},
	"doesn't": {},
}

package forecast

import (
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
)

const (
	defaultMoveScalePct = 0.8
	defaultProbSlope    = 3.0
	defaultAgeHalfLife  = 240.0
)

// Baseline is the reference model: a logistic map from the dampened
// sentiment signal to an up-move probability, and a linear percentage
// move scaled by the square root of the horizon length. Off-session
// news and stale news shrink the signal before either output.
type Baseline struct {
	// MoveScalePct is the absolute predicted move, in percent, for a
	// fully saturated one-hour signal. Zero selects the default.
	MoveScalePct float64
	// ProbSlope is the logistic steepness. Zero selects the default.
	ProbSlope float64
	// AgeHalfLifeMinutes halves the signal per this many minutes of
	// news age. Zero selects the default.
	AgeHalfLifeMinutes float64
}

func (b Baseline) Name() string {
	return "baseline_v1"
}

func (b Baseline) Predict(_ context.Context, in Input) (Output, error) {
	if math.IsNaN(in.CombinedSentiment) || math.IsInf(in.CombinedSentiment, 0) {
		return Output{}, errors.New("combined sentiment is not finite")
	}
	if !in.Horizon.Valid() {
		return Output{}, errors.New("invalid horizon")
	}

	signal := clamp(in.CombinedSentiment, -1, 1)
	signal *= sessionDamping(in.MarketSession)
	signal *= b.ageDecay(in.NewsAgeMinutes)

	prob := 1 / (1 + math.Exp(-b.probSlope()*signal))
	pct := signal * b.moveScalePct() * horizonScale(in.Horizon)
	if math.IsNaN(prob) || math.IsInf(prob, 0) || math.IsNaN(pct) || math.IsInf(pct, 0) {
		return Output{}, errors.New("forecast is not finite")
	}

	return Output{
		GkProb:       prob,
		PredictedPct: decimal.NewFromFloat(pct),
	}, nil
}

// horizonScale grows the move with the square root of the nominal
// window, with the end-of-session window counted as a full 6.5h regular
// session.
func horizonScale(h models.Horizon) float64 {
	switch h {
	case models.Horizon1Hr:
		return 1.0
	case models.Horizon4Hr:
		return 2.0
	default:
		return math.Sqrt(6.5)
	}
}

// sessionDamping shrinks signals that arrive when the market cannot
// react at full depth.
func sessionDamping(session *string) float64 {
	if session == nil {
		return 1.0
	}
	switch *session {
	case models.SessionRegular:
		return 1.0
	case models.SessionPreMarket:
		return 0.85
	case models.SessionAfterHours:
		return 0.7
	case models.SessionClosed:
		return 0.5
	default:
		return 1.0
	}
}

func (b Baseline) ageDecay(ageMinutes *float64) float64 {
	if ageMinutes == nil || *ageMinutes <= 0 {
		return 1.0
	}
	return math.Pow(0.5, *ageMinutes/b.ageHalfLife())
}

func (b Baseline) moveScalePct() float64 {
	if b.MoveScalePct > 0 {
		return b.MoveScalePct
	}
	return defaultMoveScalePct
}

func (b Baseline) probSlope() float64 {
	if b.ProbSlope > 0 {
		return b.ProbSlope
	}
	return defaultProbSlope
}

func (b Baseline) ageHalfLife() float64 {
	if b.AgeHalfLifeMinutes > 0 {
		return b.AgeHalfLifeMinutes
	}
	return defaultAgeHalfLife
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

// Package forecast turns a combined sentiment reading into per-horizon
// price-move forecasts.
package forecast

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
)

// Input is everything a model may condition on. CombinedSentiment is
// required; the context fields are nil when the aggregator could not
// compute them and models must tolerate that.
type Input struct {
	CombinedSentiment float64
	HeadlineSentiment *float64
	MarketSession     *string
	NewsAgeMinutes    *float64
	Horizon           models.Horizon
}

// Output pairs a probability-like confidence that the move is upward
// with the predicted percentage move. Both values must be finite.
type Output struct {
	GkProb       float64
	PredictedPct decimal.Decimal
}

// Model is the scoring-function boundary. Implementations must be
// deterministic: identical input yields an identical forecast.
type Model interface {
	Name() string
	Predict(ctx context.Context, in Input) (Output, error)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prediction is one forecast for one link, one horizon, issued at one
// instant. Rows are immutable: a re-score produces a new row at a new
// prediction_time, never an in-place edit.
type Prediction struct {
	ID              uint64        `gorm:"primaryKey;autoIncrement"`
	ArticleTickerID uint64        `gorm:"not null;uniqueIndex:uniq_prediction_instant;index"`
	ArticleTicker   ArticleTicker `gorm:"constraint:OnDelete:CASCADE"`

	Horizon Horizon `gorm:"type:varchar(10);not null;uniqueIndex:uniq_prediction_instant;index:idx_predictions_horizon_time,priority:1"`

	GkProb       *float64
	PredictedPct *decimal.Decimal `gorm:"type:numeric(20,10)"`

	PredictionTime time.Time `gorm:"type:timestamptz;not null;uniqueIndex:uniq_prediction_instant;index:idx_predictions_horizon_time,priority:2"`
	CreatedAt      time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Prediction) TableName() string {
	return "predictions"
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Actual is the realized percentage move for one link and horizon,
// measured at one instant. Re-measurement adds a new row at a new
// computed_at; identical instants are deduplicated by the unique key.
type Actual struct {
	ID              uint64        `gorm:"primaryKey;autoIncrement"`
	ArticleTickerID uint64        `gorm:"not null;uniqueIndex:uniq_actual_instant;index"`
	ArticleTicker   ArticleTicker `gorm:"constraint:OnDelete:CASCADE"`

	Horizon Horizon `gorm:"type:varchar(10);not null;uniqueIndex:uniq_actual_instant;index"`

	ActualPct decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	ComputedAt time.Time `gorm:"type:timestamptz;not null;uniqueIndex:uniq_actual_instant;index"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Actual) TableName() string {
	return "actuals"
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Market session labels stored on ArticleTicker.MarketSession.
const (
	SessionPreMarket  = "pre_market"
	SessionRegular    = "regular"
	SessionAfterHours = "after_hours"
	SessionClosed     = "closed"
)

// ArticleTicker links one article to one ticker and carries all the
// sentiment evidence for the pair. The (article_id, ticker_id) key is the
// idempotency unit for every downstream prediction and actual.
//
// The per-strategy scores are independently nullable: a strategy that has
// not run yet, or that failed, leaves its own column NULL without touching
// the others. SentimentCombined is derived and recomputed on every
// aggregation pass.
type ArticleTicker struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	ArticleID uint64  `gorm:"not null;uniqueIndex:uniq_article_ticker;index"`
	Article   Article `gorm:"constraint:OnDelete:CASCADE"`
	TickerID  uint64  `gorm:"not null;uniqueIndex:uniq_article_ticker;index"`
	Ticker    Ticker  `gorm:"constraint:OnDelete:CASCADE"`

	Mentions int            `gorm:"not null;default:0"`
	PosKw    int            `gorm:"not null;default:0"`
	NegKw    int            `gorm:"not null;default:0"`
	Tokens   datatypes.JSON `gorm:"type:jsonb"`

	SentimentDynamic  *float64
	SentimentML       *float64
	SentimentKeyword  *float64
	SentimentCombined *float64
	HeadlineSentiment *float64

	MarketSession  *string `gorm:"type:varchar(20)"`
	NewsAgeMinutes *float64

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ArticleTicker) TableName() string {
	return "article_tickers"
}

package models

// Ticker is a canonical equity symbol. Rows are created on first use and
// immutable afterwards; the table is an append-only dictionary.
type Ticker struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Symbol string `gorm:"type:varchar(10);not null;uniqueIndex"`
}

func (Ticker) TableName() string {
	return "tickers"
}

package models

import "time"

// Article is a de-duplicated news item. URLHash (sha256 of the canonical
// URL) is the true unique key: re-ingesting the same URL must update the
// existing row, never create a second one.
type Article struct {
	ID      uint64  `gorm:"primaryKey;autoIncrement"`
	URL     *string `gorm:"type:text"`
	URLHash string  `gorm:"type:varchar(64);not null;uniqueIndex"`

	Headline string  `gorm:"type:text;not null"`
	Source   *string `gorm:"type:varchar(100)"`

	PublishedDt *time.Time `gorm:"type:timestamptz;index"`

	// ScrapedHTML and FullText are filled once by the first scrape that
	// has them and kept as-is afterwards, so the original capture stays
	// auditable.
	ScrapedHTML *string `gorm:"type:text"`
	FullText    *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Article) TableName() string {
	return "articles"
}

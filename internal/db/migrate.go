package db

import (
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
)

// AutoMigrate creates the persisted schema. Order matters: parents before
// children so the cascade foreign keys can be declared.
func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Article{},
		&models.Ticker{},
		&models.ArticleTicker{},
		&models.Prediction{},
		&models.Actual{},
	)
}

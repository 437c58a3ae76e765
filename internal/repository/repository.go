package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
)

// Repository is the persistence surface for the sentiment engine.
//
// Every mutating method that targets a unique key (article fingerprint,
// article+ticker pair, link+horizon+instant) is an atomic
// insert-or-get-existing against that key. Callers never check-then-act;
// the store's conflict handling is the only concurrency control.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Articles
	UpsertArticle(ctx context.Context, item *models.Article) (*models.Article, error)
	GetArticleByID(ctx context.Context, id uint64) (*models.Article, error)
	GetArticleByURLHash(ctx context.Context, urlHash string) (*models.Article, error)
	ListArticles(ctx context.Context, params ListArticlesParams) ([]models.Article, error)
	CountArticles(ctx context.Context, params ListArticlesParams) (int64, error)
	DeleteArticle(ctx context.Context, id uint64) (int64, error)

	// Tickers
	GetOrCreateTicker(ctx context.Context, symbol string) (*models.Ticker, error)
	GetTickerByID(ctx context.Context, id uint64) (*models.Ticker, error)
	GetTickerBySymbol(ctx context.Context, symbol string) (*models.Ticker, error)
	ListTickers(ctx context.Context, params ListTickersParams) ([]models.Ticker, error)
	CountTickers(ctx context.Context, params ListTickersParams) (int64, error)
	DeleteTicker(ctx context.Context, id uint64) (int64, error)

	// Article/ticker links. UpsertArticleTicker replaces the raw evidence
	// columns on conflict; sentiment columns are written only through
	// UpdateArticleTickerSentiment so evidence extraction and scoring can
	// retry independently.
	UpsertArticleTicker(ctx context.Context, item *models.ArticleTicker) (*models.ArticleTicker, error)
	GetArticleTickerByID(ctx context.Context, id uint64) (*models.ArticleTicker, error)
	GetArticleTickerByPair(ctx context.Context, articleID, tickerID uint64) (*models.ArticleTicker, error)
	UpdateArticleTickerSentiment(ctx context.Context, id uint64, updates map[string]any) error
	ListArticleTickers(ctx context.Context, params ListArticleTickersParams) ([]models.ArticleTicker, error)
	CountArticleTickers(ctx context.Context, params ListArticleTickersParams) (int64, error)
	ListUnscoredArticleTickers(ctx context.Context, limit int) ([]models.ArticleTicker, error)

	// Predictions. InsertPrediction reports created=false and returns the
	// existing row when the (link, horizon, instant) key already exists.
	InsertPrediction(ctx context.Context, item *models.Prediction) (*models.Prediction, bool, error)
	ListPredictions(ctx context.Context, params ListPredictionsParams) ([]models.Prediction, error)
	CountPredictions(ctx context.Context, params ListPredictionsParams) (int64, error)
	GetLatestPredictionAtOrBefore(ctx context.Context, articleTickerID uint64, horizon models.Horizon, at time.Time) (*models.Prediction, error)
	ListPredictionsNeedingActual(ctx context.Context, horizon models.Horizon, before time.Time, limit int) ([]models.Prediction, error)

	// Actuals
	InsertActual(ctx context.Context, item *models.Actual) (*models.Actual, bool, error)
	BulkInsertActuals(ctx context.Context, items []models.Actual) (int64, error)
	ListActuals(ctx context.Context, params ListActualsParams) ([]models.Actual, error)
	CountActuals(ctx context.Context, params ListActualsParams) (int64, error)

	// Pipeline observability
	EngineOverview(ctx context.Context) (EngineOverview, error)
}

type ListArticlesParams struct {
	Limit   int
	Offset  int
	Source  *string
	Since   *time.Time
	Until   *time.Time
	OrderBy string
	Asc     *bool
}

type ListTickersParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}

type ListArticleTickersParams struct {
	Limit     int
	Offset    int
	ArticleID *uint64
	TickerID  *uint64
	Scored    *bool
	Session   *string
	OrderBy   string
	Asc       *bool
}

type ListPredictionsParams struct {
	Limit           int
	Offset          int
	ArticleTickerID *uint64
	Horizon         *models.Horizon
	Since           *time.Time
	Until           *time.Time
	OrderBy         string
	Asc             *bool
}

type ListActualsParams struct {
	Limit           int
	Offset          int
	ArticleTickerID *uint64
	Horizon         *models.Horizon
	AfterComputedAt *time.Time
	OrderBy         string
	Asc             *bool
}

type EngineOverview struct {
	Articles    int64
	Tickers     int64
	Links       int64
	ScoredLinks int64
	Predictions int64
	Actuals     int64
}

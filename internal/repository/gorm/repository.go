package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Articles ----------------------------------------------------------------

// UpsertArticle inserts the article or, when the url_hash already exists,
// replaces the headline and fills the still-NULL columns. Columns that
// were populated by an earlier scrape keep their first value. Returns the
// stored row either way.
func (s *Store) UpsertArticle(ctx context.Context, item *models.Article) (*models.Article, error) {
	if s == nil || s.db == nil || item == nil {
		return nil, nil
	}
	if strings.TrimSpace(item.URLHash) == "" {
		return nil, nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "url_hash"}},
		DoUpdates: clause.Assignments(map[string]any{
			"headline":     item.Headline,
			"url":          gorm.Expr("COALESCE(articles.url, excluded.url)"),
			"source":       gorm.Expr("COALESCE(articles.source, excluded.source)"),
			"published_dt": gorm.Expr("COALESCE(articles.published_dt, excluded.published_dt)"),
			"scraped_html": gorm.Expr("COALESCE(articles.scraped_html, excluded.scraped_html)"),
			"full_text":    gorm.Expr("COALESCE(articles.full_text, excluded.full_text)"),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}
	return s.GetArticleByURLHash(ctx, item.URLHash)
}

func (s *Store) GetArticleByID(ctx context.Context, id uint64) (*models.Article, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Article
	err := s.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetArticleByURLHash(ctx context.Context, urlHash string) (*models.Article, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	urlHash = strings.TrimSpace(urlHash)
	if urlHash == "" {
		return nil, nil
	}
	var item models.Article
	err := s.db.WithContext(ctx).Model(&models.Article{}).Where("url_hash = ?", urlHash).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListArticles(ctx context.Context, params repository.ListArticlesParams) ([]models.Article, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyArticleFilters(s.db.WithContext(ctx).Model(&models.Article{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Article
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountArticles(ctx context.Context, params repository.ListArticlesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyArticleFilters(s.db.WithContext(ctx).Model(&models.Article{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyArticleFilters(query *gorm.DB, params repository.ListArticlesParams) *gorm.DB {
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("published_dt >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("published_dt < ?", *params.Until)
	}
	return query
}

func (s *Store) DeleteArticle(ctx context.Context, id uint64) (int64, error) {
	if s == nil || s.db == nil || id == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Delete(&models.Article{}, id)
	return res.RowsAffected, res.Error
}

// --- Tickers -----------------------------------------------------------------

// GetOrCreateTicker registers the symbol on first use. The insert ignores
// the duplicate-key conflict and the follow-up read resolves whichever
// row won, so concurrent callers always converge on one id.
func (s *Store) GetOrCreateTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, nil
	}
	item := models.Ticker{Symbol: symbol}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoNothing: true,
	}).Create(&item).Error
	if err != nil {
		return nil, err
	}
	return s.GetTickerBySymbol(ctx, symbol)
}

func (s *Store) GetTickerByID(ctx context.Context, id uint64) (*models.Ticker, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Ticker
	err := s.db.WithContext(ctx).Model(&models.Ticker{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetTickerBySymbol(ctx context.Context, symbol string) (*models.Ticker, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, nil
	}
	var item models.Ticker
	err := s.db.WithContext(ctx).Model(&models.Ticker{}).Where("symbol = ?", symbol).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTickers(ctx context.Context, params repository.ListTickersParams) ([]models.Ticker, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyTickerFilters(s.db.WithContext(ctx).Model(&models.Ticker{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "symbol")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Ticker
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTickers(ctx context.Context, params repository.ListTickersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyTickerFilters(s.db.WithContext(ctx).Model(&models.Ticker{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyTickerFilters(query *gorm.DB, params repository.ListTickersParams) *gorm.DB {
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("symbol LIKE ?", strings.ToUpper(strings.TrimSpace(*params.Prefix))+"%")
	}
	return query
}

func (s *Store) DeleteTicker(ctx context.Context, id uint64) (int64, error) {
	if s == nil || s.db == nil || id == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Delete(&models.Ticker{}, id)
	return res.RowsAffected, res.Error
}

// --- Article/ticker links ----------------------------------------------------

// UpsertArticleTicker creates the (article, ticker) link or replaces its
// raw evidence counts when the pair already exists. Re-extraction is
// deterministic, so replacement keeps re-runs idempotent. Sentiment
// columns are never touched here.
func (s *Store) UpsertArticleTicker(ctx context.Context, item *models.ArticleTicker) (*models.ArticleTicker, error) {
	if s == nil || s.db == nil || item == nil {
		return nil, nil
	}
	if item.ArticleID == 0 || item.TickerID == 0 {
		return nil, nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "article_id"}, {Name: "ticker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mentions",
			"pos_kw",
			"neg_kw",
			"tokens",
		}),
	}).Omit("Article", "Ticker").Create(item).Error
	if err != nil {
		return nil, err
	}
	return s.GetArticleTickerByPair(ctx, item.ArticleID, item.TickerID)
}

func (s *Store) GetArticleTickerByID(ctx context.Context, id uint64) (*models.ArticleTicker, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.ArticleTicker
	err := s.db.WithContext(ctx).
		Model(&models.ArticleTicker{}).
		Preload("Article").
		Preload("Ticker").
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetArticleTickerByPair(ctx context.Context, articleID, tickerID uint64) (*models.ArticleTicker, error) {
	if s == nil || s.db == nil || articleID == 0 || tickerID == 0 {
		return nil, nil
	}
	var item models.ArticleTicker
	err := s.db.WithContext(ctx).
		Model(&models.ArticleTicker{}).
		Where("article_id = ?", articleID).
		Where("ticker_id = ?", tickerID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateArticleTickerSentiment(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ArticleTicker{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) ListArticleTickers(ctx context.Context, params repository.ListArticleTickersParams) ([]models.ArticleTicker, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyLinkFilters(s.db.WithContext(ctx).Model(&models.ArticleTicker{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.ArticleTicker
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountArticleTickers(ctx context.Context, params repository.ListArticleTickersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyLinkFilters(s.db.WithContext(ctx).Model(&models.ArticleTicker{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyLinkFilters(query *gorm.DB, params repository.ListArticleTickersParams) *gorm.DB {
	if params.ArticleID != nil && *params.ArticleID != 0 {
		query = query.Where("article_id = ?", *params.ArticleID)
	}
	if params.TickerID != nil && *params.TickerID != 0 {
		query = query.Where("ticker_id = ?", *params.TickerID)
	}
	if params.Scored != nil {
		if *params.Scored {
			query = query.Where("sentiment_combined IS NOT NULL")
		} else {
			query = query.Where("sentiment_combined IS NULL")
		}
	}
	if params.Session != nil && strings.TrimSpace(*params.Session) != "" {
		query = query.Where("market_session = ?", strings.TrimSpace(*params.Session))
	}
	return query
}

func (s *Store) ListUnscoredArticleTickers(ctx context.Context, limit int) ([]models.ArticleTicker, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ArticleTicker
	err := s.db.WithContext(ctx).
		Model(&models.ArticleTicker{}).
		Preload("Article").
		Preload("Ticker").
		Where("sentiment_combined IS NULL").
		Order("created_at asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Predictions -------------------------------------------------------------

// InsertPrediction writes one forecast row. A duplicate
// (article_ticker_id, horizon, prediction_time) key is not an error: the
// insert is skipped and the existing row is returned with created=false.
func (s *Store) InsertPrediction(ctx context.Context, item *models.Prediction) (*models.Prediction, bool, error) {
	if s == nil || s.db == nil || item == nil {
		return nil, false, nil
	}
	if item.ArticleTickerID == 0 || !item.Horizon.Valid() || item.PredictionTime.IsZero() {
		return nil, false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_ticker_id"}, {Name: "horizon"}, {Name: "prediction_time"}},
		DoNothing: true,
	}).Omit("ArticleTicker").Create(item)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return item, true, nil
	}
	var existing models.Prediction
	err := s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("article_ticker_id = ?", item.ArticleTickerID).
		Where("horizon = ?", item.Horizon).
		Where("prediction_time = ?", item.PredictionTime).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (s *Store) ListPredictions(ctx context.Context, params repository.ListPredictionsParams) ([]models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyPredictionFilters(s.db.WithContext(ctx).Model(&models.Prediction{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "prediction_time")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Prediction
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPredictions(ctx context.Context, params repository.ListPredictionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyPredictionFilters(s.db.WithContext(ctx).Model(&models.Prediction{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyPredictionFilters(query *gorm.DB, params repository.ListPredictionsParams) *gorm.DB {
	if params.ArticleTickerID != nil && *params.ArticleTickerID != 0 {
		query = query.Where("article_ticker_id = ?", *params.ArticleTickerID)
	}
	if params.Horizon != nil && params.Horizon.Valid() {
		query = query.Where("horizon = ?", *params.Horizon)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("prediction_time >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("prediction_time < ?", *params.Until)
	}
	return query
}

// GetLatestPredictionAtOrBefore returns the newest prediction for the
// link/horizon whose prediction_time does not exceed at, or nil when none
// qualifies. This is the pairing rule that keeps evaluation free of
// lookahead.
func (s *Store) GetLatestPredictionAtOrBefore(ctx context.Context, articleTickerID uint64, horizon models.Horizon, at time.Time) (*models.Prediction, error) {
	if s == nil || s.db == nil || articleTickerID == 0 || !horizon.Valid() {
		return nil, nil
	}
	var item models.Prediction
	err := s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("article_ticker_id = ?", articleTickerID).
		Where("horizon = ?", horizon).
		Where("prediction_time <= ?", at).
		Order("prediction_time desc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListPredictionsNeedingActual returns predictions of one horizon issued
// at or before the given instant that have no recorded actual yet,
// oldest first.
func (s *Store) ListPredictionsNeedingActual(ctx context.Context, horizon models.Horizon, before time.Time, limit int) ([]models.Prediction, error) {
	if s == nil || s.db == nil || !horizon.Valid() {
		return nil, nil
	}
	var items []models.Prediction
	err := s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("horizon = ?", horizon).
		Where("prediction_time <= ?", before).
		Where("NOT EXISTS (SELECT 1 FROM actuals WHERE actuals.article_ticker_id = predictions.article_ticker_id AND actuals.horizon = predictions.horizon)").
		Order("prediction_time asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Actuals -----------------------------------------------------------------

// InsertActual mirrors InsertPrediction: duplicate
// (article_ticker_id, horizon, computed_at) deliveries are absorbed and
// the existing row is returned with created=false.
func (s *Store) InsertActual(ctx context.Context, item *models.Actual) (*models.Actual, bool, error) {
	if s == nil || s.db == nil || item == nil {
		return nil, false, nil
	}
	if item.ArticleTickerID == 0 || !item.Horizon.Valid() || item.ComputedAt.IsZero() {
		return nil, false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_ticker_id"}, {Name: "horizon"}, {Name: "computed_at"}},
		DoNothing: true,
	}).Omit("ArticleTicker").Create(item)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return item, true, nil
	}
	var existing models.Actual
	err := s.db.WithContext(ctx).
		Model(&models.Actual{}).
		Where("article_ticker_id = ?", item.ArticleTickerID).
		Where("horizon = ?", item.Horizon).
		Where("computed_at = ?", item.ComputedAt).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (s *Store) BulkInsertActuals(ctx context.Context, items []models.Actual) (int64, error) {
	if s == nil || s.db == nil || len(items) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_ticker_id"}, {Name: "horizon"}, {Name: "computed_at"}},
		DoNothing: true,
	}).Omit("ArticleTicker").CreateInBatches(items, 100)
	return res.RowsAffected, res.Error
}

func (s *Store) ListActuals(ctx context.Context, params repository.ListActualsParams) ([]models.Actual, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyActualFilters(s.db.WithContext(ctx).Model(&models.Actual{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "computed_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Actual
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountActuals(ctx context.Context, params repository.ListActualsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyActualFilters(s.db.WithContext(ctx).Model(&models.Actual{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyActualFilters(query *gorm.DB, params repository.ListActualsParams) *gorm.DB {
	if params.ArticleTickerID != nil && *params.ArticleTickerID != 0 {
		query = query.Where("article_ticker_id = ?", *params.ArticleTickerID)
	}
	if params.Horizon != nil && params.Horizon.Valid() {
		query = query.Where("horizon = ?", *params.Horizon)
	}
	if params.AfterComputedAt != nil && !params.AfterComputedAt.IsZero() {
		query = query.Where("computed_at > ?", *params.AfterComputedAt)
	}
	return query
}

// --- Observability -----------------------------------------------------------

func (s *Store) EngineOverview(ctx context.Context) (repository.EngineOverview, error) {
	var out repository.EngineOverview
	if s == nil || s.db == nil {
		return out, nil
	}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Article{}).Count(&out.Articles).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.Ticker{}).Count(&out.Tickers).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.ArticleTicker{}).Count(&out.Links).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.ArticleTicker{}).Where("sentiment_combined IS NOT NULL").Count(&out.ScoredLinks).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.Prediction{}).Count(&out.Predictions).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.Actual{}).Count(&out.Actuals).Error; err != nil {
		return out, err
	}
	return out, nil
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

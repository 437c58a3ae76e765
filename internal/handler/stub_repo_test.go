package handler

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

// stubRepo is a test-only in-memory implementation of
// repository.Repository. It mirrors the conflict-key semantics the
// handlers lean on (url_hash dedup, pair upsert, insert-or-get on
// instants) and keeps list filtering to what the routes under test
// actually pass.
type stubRepo struct {
	nextID      uint64
	articles    map[uint64]*models.Article
	tickers     map[uint64]*models.Ticker
	links       map[uint64]*models.ArticleTicker
	predictions map[uint64]*models.Prediction
	actuals     map[uint64]*models.Actual
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		nextID:      1,
		articles:    map[uint64]*models.Article{},
		tickers:     map[uint64]*models.Ticker{},
		links:       map[uint64]*models.ArticleTicker{},
		predictions: map[uint64]*models.Prediction{},
		actuals:     map[uint64]*models.Actual{},
	}
}

func (s *stubRepo) id() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *stubRepo) InTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// --- Articles -------------------------------------------------------------

func (s *stubRepo) UpsertArticle(_ context.Context, item *models.Article) (*models.Article, error) {
	for _, a := range s.articles {
		if a.URLHash != item.URLHash {
			continue
		}
		a.Headline = item.Headline
		if a.URL == nil {
			a.URL = item.URL
		}
		if a.Source == nil {
			a.Source = item.Source
		}
		if a.PublishedDt == nil {
			a.PublishedDt = item.PublishedDt
		}
		if a.ScrapedHTML == nil {
			a.ScrapedHTML = item.ScrapedHTML
		}
		if a.FullText == nil {
			a.FullText = item.FullText
		}
		cp := *a
		return &cp, nil
	}
	cp := *item
	cp.ID = s.id()
	cp.CreatedAt = time.Now().UTC()
	s.articles[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *stubRepo) GetArticleByID(_ context.Context, id uint64) (*models.Article, error) {
	a, ok := s.articles[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *stubRepo) GetArticleByURLHash(_ context.Context, urlHash string) (*models.Article, error) {
	for _, a := range s.articles {
		if a.URLHash == urlHash {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListArticles(_ context.Context, params repository.ListArticlesParams) ([]models.Article, error) {
	var items []models.Article
	for _, a := range s.articles {
		items = append(items, *a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return window(items, params.Limit, params.Offset), nil
}

func (s *stubRepo) CountArticles(_ context.Context, _ repository.ListArticlesParams) (int64, error) {
	return int64(len(s.articles)), nil
}

func (s *stubRepo) DeleteArticle(_ context.Context, id uint64) (int64, error) {
	if _, ok := s.articles[id]; !ok {
		return 0, nil
	}
	delete(s.articles, id)
	for linkID, link := range s.links {
		if link.ArticleID == id {
			delete(s.links, linkID)
		}
	}
	return 1, nil
}

// --- Tickers --------------------------------------------------------------

func (s *stubRepo) GetOrCreateTicker(_ context.Context, symbol string) (*models.Ticker, error) {
	for _, t := range s.tickers {
		if t.Symbol == symbol {
			cp := *t
			return &cp, nil
		}
	}
	cp := models.Ticker{ID: s.id(), Symbol: symbol}
	s.tickers[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *stubRepo) GetTickerByID(_ context.Context, id uint64) (*models.Ticker, error) {
	t, ok := s.tickers[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *stubRepo) GetTickerBySymbol(_ context.Context, symbol string) (*models.Ticker, error) {
	for _, t := range s.tickers {
		if t.Symbol == symbol {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListTickers(_ context.Context, params repository.ListTickersParams) ([]models.Ticker, error) {
	var items []models.Ticker
	for _, t := range s.tickers {
		if params.Prefix != nil && !strings.HasPrefix(t.Symbol, *params.Prefix) {
			continue
		}
		items = append(items, *t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Symbol < items[j].Symbol })
	return window(items, params.Limit, params.Offset), nil
}

func (s *stubRepo) CountTickers(_ context.Context, params repository.ListTickersParams) (int64, error) {
	items, _ := s.ListTickers(context.Background(), repository.ListTickersParams{Prefix: params.Prefix})
	return int64(len(items)), nil
}

func (s *stubRepo) DeleteTicker(_ context.Context, id uint64) (int64, error) {
	if _, ok := s.tickers[id]; !ok {
		return 0, nil
	}
	delete(s.tickers, id)
	for linkID, link := range s.links {
		if link.TickerID == id {
			delete(s.links, linkID)
		}
	}
	return 1, nil
}

// --- Links ----------------------------------------------------------------

func (s *stubRepo) UpsertArticleTicker(_ context.Context, item *models.ArticleTicker) (*models.ArticleTicker, error) {
	if _, ok := s.articles[item.ArticleID]; !ok {
		return nil, gorm.ErrForeignKeyViolated
	}
	if _, ok := s.tickers[item.TickerID]; !ok {
		return nil, gorm.ErrForeignKeyViolated
	}
	for _, link := range s.links {
		if link.ArticleID == item.ArticleID && link.TickerID == item.TickerID {
			link.Mentions = item.Mentions
			link.PosKw = item.PosKw
			link.NegKw = item.NegKw
			link.Tokens = item.Tokens
			return s.loadedLink(link.ID), nil
		}
	}
	cp := *item
	cp.ID = s.id()
	cp.CreatedAt = time.Now().UTC()
	s.links[cp.ID] = &cp
	return s.loadedLink(cp.ID), nil
}

// loadedLink copies the row and attaches its article and ticker the way
// the gorm store preloads them.
func (s *stubRepo) loadedLink(id uint64) *models.ArticleTicker {
	link, ok := s.links[id]
	if !ok {
		return nil
	}
	cp := *link
	if a, ok := s.articles[link.ArticleID]; ok {
		cp.Article = *a
	}
	if t, ok := s.tickers[link.TickerID]; ok {
		cp.Ticker = *t
	}
	return &cp
}

func (s *stubRepo) GetArticleTickerByID(_ context.Context, id uint64) (*models.ArticleTicker, error) {
	return s.loadedLink(id), nil
}

func (s *stubRepo) GetArticleTickerByPair(_ context.Context, articleID, tickerID uint64) (*models.ArticleTicker, error) {
	for _, link := range s.links {
		if link.ArticleID == articleID && link.TickerID == tickerID {
			return s.loadedLink(link.ID), nil
		}
	}
	return nil, nil
}

func (s *stubRepo) UpdateArticleTickerSentiment(_ context.Context, id uint64, updates map[string]any) error {
	link, ok := s.links[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for column, value := range updates {
		switch column {
		case "sentiment_dynamic":
			link.SentimentDynamic = floatPtrOf(value)
		case "sentiment_ml":
			link.SentimentML = floatPtrOf(value)
		case "sentiment_keyword":
			link.SentimentKeyword = floatPtrOf(value)
		case "sentiment_combined":
			link.SentimentCombined = floatPtrOf(value)
		case "headline_sentiment":
			link.HeadlineSentiment = floatPtrOf(value)
		case "market_session":
			if str, ok := value.(string); ok {
				link.MarketSession = &str
			}
		case "news_age_minutes":
			link.NewsAgeMinutes = floatPtrOf(value)
		}
	}
	return nil
}

func floatPtrOf(value any) *float64 {
	if f, ok := value.(float64); ok {
		return &f
	}
	return nil
}

func (s *stubRepo) ListArticleTickers(_ context.Context, params repository.ListArticleTickersParams) ([]models.ArticleTicker, error) {
	var items []models.ArticleTicker
	for _, link := range s.links {
		if params.ArticleID != nil && link.ArticleID != *params.ArticleID {
			continue
		}
		if params.TickerID != nil && link.TickerID != *params.TickerID {
			continue
		}
		if params.Scored != nil && *params.Scored != (link.SentimentCombined != nil) {
			continue
		}
		items = append(items, *s.loadedLink(link.ID))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return window(items, params.Limit, params.Offset), nil
}

func (s *stubRepo) CountArticleTickers(_ context.Context, params repository.ListArticleTickersParams) (int64, error) {
	items, _ := s.ListArticleTickers(context.Background(), repository.ListArticleTickersParams{
		ArticleID: params.ArticleID,
		TickerID:  params.TickerID,
		Scored:    params.Scored,
	})
	return int64(len(items)), nil
}

func (s *stubRepo) ListUnscoredArticleTickers(_ context.Context, limit int) ([]models.ArticleTicker, error) {
	var items []models.ArticleTicker
	for _, link := range s.links {
		if link.SentimentCombined == nil {
			items = append(items, *s.loadedLink(link.ID))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// --- Predictions ----------------------------------------------------------

func (s *stubRepo) InsertPrediction(_ context.Context, item *models.Prediction) (*models.Prediction, bool, error) {
	if _, ok := s.links[item.ArticleTickerID]; !ok {
		return nil, false, gorm.ErrForeignKeyViolated
	}
	for _, p := range s.predictions {
		if p.ArticleTickerID == item.ArticleTickerID && p.Horizon == item.Horizon && p.PredictionTime.Equal(item.PredictionTime) {
			cp := *p
			return &cp, false, nil
		}
	}
	cp := *item
	cp.ID = s.id()
	cp.CreatedAt = time.Now().UTC()
	s.predictions[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (s *stubRepo) ListPredictions(_ context.Context, params repository.ListPredictionsParams) ([]models.Prediction, error) {
	var items []models.Prediction
	for _, p := range s.predictions {
		if params.ArticleTickerID != nil && p.ArticleTickerID != *params.ArticleTickerID {
			continue
		}
		if params.Horizon != nil && p.Horizon != *params.Horizon {
			continue
		}
		items = append(items, *p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PredictionTime.Before(items[j].PredictionTime) })
	return window(items, params.Limit, params.Offset), nil
}

func (s *stubRepo) CountPredictions(_ context.Context, params repository.ListPredictionsParams) (int64, error) {
	items, _ := s.ListPredictions(context.Background(), repository.ListPredictionsParams{
		ArticleTickerID: params.ArticleTickerID,
		Horizon:         params.Horizon,
	})
	return int64(len(items)), nil
}

func (s *stubRepo) GetLatestPredictionAtOrBefore(_ context.Context, articleTickerID uint64, horizon models.Horizon, at time.Time) (*models.Prediction, error) {
	var best *models.Prediction
	for _, p := range s.predictions {
		if p.ArticleTickerID != articleTickerID || p.Horizon != horizon {
			continue
		}
		if p.PredictionTime.After(at) {
			continue
		}
		if best == nil || p.PredictionTime.After(best.PredictionTime) {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *stubRepo) ListPredictionsNeedingActual(_ context.Context, _ models.Horizon, _ time.Time, _ int) ([]models.Prediction, error) {
	return nil, nil
}

// --- Actuals --------------------------------------------------------------

func (s *stubRepo) InsertActual(_ context.Context, item *models.Actual) (*models.Actual, bool, error) {
	if _, ok := s.links[item.ArticleTickerID]; !ok {
		return nil, false, gorm.ErrForeignKeyViolated
	}
	for _, a := range s.actuals {
		if a.ArticleTickerID == item.ArticleTickerID && a.Horizon == item.Horizon && a.ComputedAt.Equal(item.ComputedAt) {
			cp := *a
			return &cp, false, nil
		}
	}
	cp := *item
	cp.ID = s.id()
	cp.CreatedAt = time.Now().UTC()
	s.actuals[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (s *stubRepo) BulkInsertActuals(ctx context.Context, items []models.Actual) (int64, error) {
	var inserted int64
	for i := range items {
		_, created, err := s.InsertActual(ctx, &items[i])
		if err != nil {
			return inserted, err
		}
		if created {
			inserted++
		}
	}
	return inserted, nil
}

func (s *stubRepo) ListActuals(_ context.Context, params repository.ListActualsParams) ([]models.Actual, error) {
	var items []models.Actual
	for _, a := range s.actuals {
		if params.ArticleTickerID != nil && a.ArticleTickerID != *params.ArticleTickerID {
			continue
		}
		if params.Horizon != nil && a.Horizon != *params.Horizon {
			continue
		}
		if params.AfterComputedAt != nil && !a.ComputedAt.After(*params.AfterComputedAt) {
			continue
		}
		items = append(items, *a)
	}
	asc := params.Asc != nil && *params.Asc
	sort.Slice(items, func(i, j int) bool {
		if asc {
			return items[i].ComputedAt.Before(items[j].ComputedAt)
		}
		return items[i].ComputedAt.After(items[j].ComputedAt)
	})
	return window(items, params.Limit, params.Offset), nil
}

func (s *stubRepo) CountActuals(_ context.Context, params repository.ListActualsParams) (int64, error) {
	items, _ := s.ListActuals(context.Background(), repository.ListActualsParams{
		ArticleTickerID: params.ArticleTickerID,
		Horizon:         params.Horizon,
		AfterComputedAt: params.AfterComputedAt,
	})
	return int64(len(items)), nil
}

// --- Overview -------------------------------------------------------------

func (s *stubRepo) EngineOverview(_ context.Context) (repository.EngineOverview, error) {
	var scored int64
	for _, link := range s.links {
		if link.SentimentCombined != nil {
			scored++
		}
	}
	return repository.EngineOverview{
		Articles:    int64(len(s.articles)),
		Tickers:     int64(len(s.tickers)),
		Links:       int64(len(s.links)),
		ScoredLinks: scored,
		Predictions: int64(len(s.predictions)),
		Actuals:     int64(len(s.actuals)),
	}, nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// --- Seed helpers ---------------------------------------------------------

func seedArticle(s *stubRepo, urlHash, headline string) *models.Article {
	a := &models.Article{ID: s.id(), URLHash: urlHash, Headline: headline, CreatedAt: time.Now().UTC()}
	s.articles[a.ID] = a
	return a
}

func seedTicker(s *stubRepo, symbol string) *models.Ticker {
	t := &models.Ticker{ID: s.id(), Symbol: symbol}
	s.tickers[t.ID] = t
	return t
}

func seedLink(s *stubRepo, articleID, tickerID uint64) *models.ArticleTicker {
	link := &models.ArticleTicker{
		ID:        s.id(),
		ArticleID: articleID,
		TickerID:  tickerID,
		Mentions:  1,
		CreatedAt: time.Now().UTC(),
	}
	s.links[link.ID] = link
	return link
}

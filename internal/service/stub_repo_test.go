package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It mirrors the store's conflict semantics (fill-once articles,
// evidence-replacing links, insert-or-get on instants) so service tests
// exercise the same branches they would against the real database.
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
		articles:    map[uint64]*models.Article{},
		tickers:     map[uint64]*models.Ticker{},
		links:       map[uint64]*models.ArticleTicker{},
		predictions: map[uint64]*models.Prediction{},
		actuals:     map[uint64]*models.Actual{},
	}
}

func (s *stubRepo) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

// --- Articles ---------------------------------------------------------------

func (s *stubRepo) UpsertArticle(ctx context.Context, item *models.Article) (*models.Article, error) {
	if item == nil || strings.TrimSpace(item.URLHash) == "" {
		return nil, nil
	}
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
	item.ID = s.id()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	cp := *item
	s.articles[item.ID] = &cp
	out := cp
	return &out, nil
}

func (s *stubRepo) GetArticleByID(ctx context.Context, id uint64) (*models.Article, error) {
	a, ok := s.articles[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *stubRepo) GetArticleByURLHash(ctx context.Context, urlHash string) (*models.Article, error) {
	for _, a := range s.articles {
		if a.URLHash == urlHash {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListArticles(ctx context.Context, params repository.ListArticlesParams) ([]models.Article, error) {
	var out []models.Article
	for _, a := range s.articles {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountArticles(ctx context.Context, params repository.ListArticlesParams) (int64, error) {
	return int64(len(s.articles)), nil
}

func (s *stubRepo) DeleteArticle(ctx context.Context, id uint64) (int64, error) {
	if _, ok := s.articles[id]; !ok {
		return 0, nil
	}
	delete(s.articles, id)
	for lid, l := range s.links {
		if l.ArticleID == id {
			delete(s.links, lid)
		}
	}
	return 1, nil
}

// --- Tickers ----------------------------------------------------------------

func (s *stubRepo) GetOrCreateTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, nil
	}
	for _, t := range s.tickers {
		if t.Symbol == symbol {
			cp := *t
			return &cp, nil
		}
	}
	t := &models.Ticker{ID: s.id(), Symbol: symbol}
	s.tickers[t.ID] = t
	cp := *t
	return &cp, nil
}

func (s *stubRepo) GetTickerByID(ctx context.Context, id uint64) (*models.Ticker, error) {
	t, ok := s.tickers[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *stubRepo) GetTickerBySymbol(ctx context.Context, symbol string) (*models.Ticker, error) {
	for _, t := range s.tickers {
		if t.Symbol == symbol {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListTickers(ctx context.Context, params repository.ListTickersParams) ([]models.Ticker, error) {
	var out []models.Ticker
	for _, t := range s.tickers {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountTickers(ctx context.Context, params repository.ListTickersParams) (int64, error) {
	return int64(len(s.tickers)), nil
}

func (s *stubRepo) DeleteTicker(ctx context.Context, id uint64) (int64, error) {
	if _, ok := s.tickers[id]; !ok {
		return 0, nil
	}
	delete(s.tickers, id)
	return 1, nil
}

// --- Article/ticker links ---------------------------------------------------

func (s *stubRepo) UpsertArticleTicker(ctx context.Context, item *models.ArticleTicker) (*models.ArticleTicker, error) {
	if item == nil || item.ArticleID == 0 || item.TickerID == 0 {
		return nil, nil
	}
	if _, ok := s.articles[item.ArticleID]; !ok {
		return nil, gorm.ErrForeignKeyViolated
	}
	if _, ok := s.tickers[item.TickerID]; !ok {
		return nil, gorm.ErrForeignKeyViolated
	}
	for _, l := range s.links {
		if l.ArticleID != item.ArticleID || l.TickerID != item.TickerID {
			continue
		}
		l.Mentions = item.Mentions
		l.PosKw = item.PosKw
		l.NegKw = item.NegKw
		l.Tokens = item.Tokens
		return s.GetArticleTickerByPair(ctx, item.ArticleID, item.TickerID)
	}
	cp := *item
	cp.ID = s.id()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.links[cp.ID] = &cp
	return s.GetArticleTickerByPair(ctx, item.ArticleID, item.TickerID)
}

func (s *stubRepo) GetArticleTickerByID(ctx context.Context, id uint64) (*models.ArticleTicker, error) {
	l, ok := s.links[id]
	if !ok {
		return nil, nil
	}
	return s.loadedLink(l), nil
}

func (s *stubRepo) GetArticleTickerByPair(ctx context.Context, articleID, tickerID uint64) (*models.ArticleTicker, error) {
	for _, l := range s.links {
		if l.ArticleID == articleID && l.TickerID == tickerID {
			return s.loadedLink(l), nil
		}
	}
	return nil, nil
}

// loadedLink copies the row and attaches its article and ticker, like the
// store's preloads do.
func (s *stubRepo) loadedLink(l *models.ArticleTicker) *models.ArticleTicker {
	cp := *l
	if a, ok := s.articles[l.ArticleID]; ok {
		cp.Article = *a
	}
	if t, ok := s.tickers[l.TickerID]; ok {
		cp.Ticker = *t
	}
	return &cp
}

func (s *stubRepo) UpdateArticleTickerSentiment(ctx context.Context, id uint64, updates map[string]any) error {
	l, ok := s.links[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for column, value := range updates {
		switch column {
		case "sentiment_dynamic":
			v := value.(float64)
			l.SentimentDynamic = &v
		case "sentiment_ml":
			v := value.(float64)
			l.SentimentML = &v
		case "sentiment_keyword":
			v := value.(float64)
			l.SentimentKeyword = &v
		case "sentiment_combined":
			v := value.(float64)
			l.SentimentCombined = &v
		case "headline_sentiment":
			v := value.(float64)
			l.HeadlineSentiment = &v
		case "market_session":
			v := value.(string)
			l.MarketSession = &v
		case "news_age_minutes":
			v := value.(float64)
			l.NewsAgeMinutes = &v
		}
	}
	return nil
}

func (s *stubRepo) ListArticleTickers(ctx context.Context, params repository.ListArticleTickersParams) ([]models.ArticleTicker, error) {
	var out []models.ArticleTicker
	for _, l := range s.links {
		out = append(out, *s.loadedLink(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountArticleTickers(ctx context.Context, params repository.ListArticleTickersParams) (int64, error) {
	return int64(len(s.links)), nil
}

func (s *stubRepo) ListUnscoredArticleTickers(ctx context.Context, limit int) ([]models.ArticleTicker, error) {
	var out []models.ArticleTicker
	for _, l := range s.links {
		if l.SentimentCombined == nil {
			out = append(out, *s.loadedLink(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Predictions ------------------------------------------------------------

func (s *stubRepo) InsertPrediction(ctx context.Context, item *models.Prediction) (*models.Prediction, bool, error) {
	if item == nil || item.ArticleTickerID == 0 {
		return nil, false, nil
	}
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
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.predictions[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (s *stubRepo) ListPredictions(ctx context.Context, params repository.ListPredictionsParams) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.predictions {
		if params.ArticleTickerID != nil && p.ArticleTickerID != *params.ArticleTickerID {
			continue
		}
		if params.Horizon != nil && p.Horizon != *params.Horizon {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PredictionTime.Before(out[j].PredictionTime) })
	return out, nil
}

func (s *stubRepo) CountPredictions(ctx context.Context, params repository.ListPredictionsParams) (int64, error) {
	items, err := s.ListPredictions(ctx, params)
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

func (s *stubRepo) GetLatestPredictionAtOrBefore(ctx context.Context, articleTickerID uint64, horizon models.Horizon, at time.Time) (*models.Prediction, error) {
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

func (s *stubRepo) ListPredictionsNeedingActual(ctx context.Context, horizon models.Horizon, before time.Time, limit int) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.Horizon != horizon || p.PredictionTime.After(before) {
			continue
		}
		settled := false
		for _, a := range s.actuals {
			if a.ArticleTickerID == p.ArticleTickerID && a.Horizon == p.Horizon {
				settled = true
				break
			}
		}
		if !settled {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PredictionTime.Before(out[j].PredictionTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Actuals ----------------------------------------------------------------

func (s *stubRepo) InsertActual(ctx context.Context, item *models.Actual) (*models.Actual, bool, error) {
	if item == nil || item.ArticleTickerID == 0 {
		return nil, false, nil
	}
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
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.actuals[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (s *stubRepo) BulkInsertActuals(ctx context.Context, items []models.Actual) (int64, error) {
	var created int64
	for i := range items {
		_, ok, err := s.InsertActual(ctx, &items[i])
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *stubRepo) ListActuals(ctx context.Context, params repository.ListActualsParams) ([]models.Actual, error) {
	var out []models.Actual
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
		out = append(out, *a)
	}
	asc := params.Asc != nil && *params.Asc
	sort.Slice(out, func(i, j int) bool {
		if asc {
			return out[i].ComputedAt.Before(out[j].ComputedAt)
		}
		return out[i].ComputedAt.After(out[j].ComputedAt)
	})
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *stubRepo) CountActuals(ctx context.Context, params repository.ListActualsParams) (int64, error) {
	items, err := s.ListActuals(ctx, repository.ListActualsParams{
		ArticleTickerID: params.ArticleTickerID,
		Horizon:         params.Horizon,
		AfterComputedAt: params.AfterComputedAt,
	})
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

// --- Pipeline observability -------------------------------------------------

func (s *stubRepo) EngineOverview(ctx context.Context) (repository.EngineOverview, error) {
	var scored int64
	for _, l := range s.links {
		if l.SentimentCombined != nil {
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

// --- Seed helpers -----------------------------------------------------------

func (s *stubRepo) seedArticle(t *models.Article) *models.Article {
	if t.ID == 0 {
		t.ID = s.id()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.articles[t.ID] = t
	if t.ID > s.nextID {
		s.nextID = t.ID
	}
	return t
}

func (s *stubRepo) seedTicker(t *models.Ticker) *models.Ticker {
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.tickers[t.ID] = t
	if t.ID > s.nextID {
		s.nextID = t.ID
	}
	return t
}

func (s *stubRepo) seedLink(l *models.ArticleTicker) *models.ArticleTicker {
	if l.ID == 0 {
		l.ID = s.id()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	s.links[l.ID] = l
	if l.ID > s.nextID {
		s.nextID = l.ID
	}
	return l
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/config"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/market"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/sentiment"
)

// Fallback combination weights when none are configured.
const (
	defaultWeightDynamic = 0.35
	defaultWeightML      = 0.45
	defaultWeightKeyword = 0.20
)

// SentimentAggregatorService computes and stores per-link sentiment.
//
// Each strategy writes its own nullable column, so a failed or absent
// strategy never blocks the others and a link with partial scores is a
// valid, observable state. The combined score is derived: Combine
// recomputes it from whichever strategy columns are populated and
// overwrites the stored value every time it runs.
type SentimentAggregatorService struct {
	Repo     repository.Repository
	Logger   *zap.Logger
	Calendar *market.Calendar
	Weights  config.WeightsConfig

	// Dynamic is required; it also produces the headline sentiment.
	// ML may be nil when no model sidecar is deployed.
	Dynamic sentiment.Scorer
	ML      sentiment.Scorer

	// Now supplies the evaluation clock. Tests pin it.
	Now func() time.Time
}

// Score runs one strategy for the link and stores its value. The
// combined score is untouched; run Combine afterwards.
func (s *SentimentAggregatorService) Score(ctx context.Context, linkID uint64, strategy string) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	link, err := s.loadLink(ctx, linkID)
	if err != nil {
		return err
	}
	return s.scoreLink(ctx, link, strategy)
}

// ScoreAll runs every configured strategy plus the headline score for
// the link. Model failures are collected and returned joined, after all
// siblings have had their chance.
func (s *SentimentAggregatorService) ScoreAll(ctx context.Context, linkID uint64) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	link, err := s.loadLink(ctx, linkID)
	if err != nil {
		return err
	}
	var errs []error
	for _, strategy := range []string{sentiment.StrategyDynamic, sentiment.StrategyML, sentiment.StrategyKeyword} {
		if strategy == sentiment.StrategyML && s.ML == nil {
			continue
		}
		if err := s.scoreLink(ctx, link, strategy); err != nil {
			if errors.Is(err, ErrModel) {
				s.logWarn("sentiment strategy failed", err,
					zap.String("strategy", strategy),
					zap.Uint64("link_id", link.ID))
				errs = append(errs, err)
				continue
			}
			return err
		}
	}
	if err := s.scoreHeadline(ctx, link); err != nil {
		if !errors.Is(err, ErrModel) {
			return err
		}
		s.logWarn("headline sentiment failed", err, zap.Uint64("link_id", link.ID))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ScoreHeadline computes the headline-only sentiment. It is an overlay
// signal; Combine never folds it into the combined score.
func (s *SentimentAggregatorService) ScoreHeadline(ctx context.Context, linkID uint64) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	link, err := s.loadLink(ctx, linkID)
	if err != nil {
		return err
	}
	return s.scoreHeadline(ctx, link)
}

// Combine recomputes sentiment_combined from the available strategy
// scores as a weighted average, renormalizing the configured weights
// over whichever strategies are present. It also stamps the market
// session and the news age as of the evaluation clock. Fails with
// ErrIncompleteEvidence when no strategy has produced a value yet.
func (s *SentimentAggregatorService) Combine(ctx context.Context, linkID uint64) (float64, error) {
	if s == nil || s.Repo == nil {
		return 0, nil
	}
	link, err := s.loadLink(ctx, linkID)
	if err != nil {
		return 0, err
	}
	now := s.nowUTC()

	dynW, mlW, kwW := s.weights()
	var num, den float64
	available := 0
	add := func(v *float64, w float64) {
		if v == nil {
			return
		}
		available++
		num += *v * w
		den += w
	}
	add(link.SentimentDynamic, dynW)
	add(link.SentimentML, mlW)
	add(link.SentimentKeyword, kwW)
	if available == 0 {
		return 0, fmt.Errorf("%w: link %d has no strategy scores", ErrIncompleteEvidence, linkID)
	}

	var combined float64
	if den > 0 {
		combined = num / den
	} else {
		// Every available strategy carries weight zero; fall back to a
		// plain average rather than dividing by zero.
		var sum float64
		for _, v := range []*float64{link.SentimentDynamic, link.SentimentML, link.SentimentKeyword} {
			if v != nil {
				sum += *v
			}
		}
		combined = sum / float64(available)
	}
	combined = clampScore(combined)

	updates := map[string]any{
		"sentiment_combined": combined,
		"market_session":     s.calendar().SessionAt(now),
	}
	if link.Article.PublishedDt != nil {
		if link.Article.PublishedDt.After(now) && s.Logger != nil {
			s.Logger.Warn("publication timestamp in the future, clamping news age",
				zap.Uint64("link_id", link.ID),
				zap.Time("published_dt", *link.Article.PublishedDt),
				zap.Time("now", now))
		}
		updates["news_age_minutes"] = market.NewsAgeMinutes(*link.Article.PublishedDt, now)
	}
	if err := s.Repo.UpdateArticleTickerSentiment(ctx, link.ID, updates); err != nil {
		return 0, classifyDBError(err)
	}
	if s.Logger != nil {
		s.Logger.Debug("combined sentiment stored",
			zap.Uint64("link_id", link.ID),
			zap.Float64("combined", combined),
			zap.Int("strategies", available))
	}
	return combined, nil
}

func (s *SentimentAggregatorService) scoreLink(ctx context.Context, link *models.ArticleTicker, strategy string) error {
	switch strategy {
	case sentiment.StrategyDynamic:
		if s.Dynamic == nil {
			return fmt.Errorf("%w: dynamic scorer not configured", ErrModel)
		}
		val, err := s.Dynamic.Score(ctx, scoreText(link))
		if err != nil {
			return fmt.Errorf("%w: dynamic: %v", ErrModel, err)
		}
		return s.writeScore(ctx, link.ID, "sentiment_dynamic", val)
	case sentiment.StrategyML:
		if s.ML == nil {
			return fmt.Errorf("%w: ml scorer not configured", ErrModel)
		}
		val, err := s.ML.Score(ctx, scoreText(link))
		if err != nil {
			return fmt.Errorf("%w: ml: %v", ErrModel, err)
		}
		return s.writeScore(ctx, link.ID, "sentiment_ml", val)
	case sentiment.StrategyKeyword:
		score, ok := sentiment.KeywordScore(link.PosKw, link.NegKw)
		if !ok {
			// No keyword hits in the evidence: the column stays null.
			return nil
		}
		return s.writeScore(ctx, link.ID, "sentiment_keyword", score)
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrValidation, strategy)
	}
}

func (s *SentimentAggregatorService) scoreHeadline(ctx context.Context, link *models.ArticleTicker) error {
	if s.Dynamic == nil {
		return fmt.Errorf("%w: dynamic scorer not configured", ErrModel)
	}
	val, err := s.Dynamic.Score(ctx, link.Article.Headline)
	if err != nil {
		return fmt.Errorf("%w: headline: %v", ErrModel, err)
	}
	return s.writeScore(ctx, link.ID, "headline_sentiment", val)
}

func (s *SentimentAggregatorService) writeScore(ctx context.Context, linkID uint64, column string, val float64) error {
	err := s.Repo.UpdateArticleTickerSentiment(ctx, linkID, map[string]any{column: clampScore(val)})
	return classifyDBError(err)
}

func (s *SentimentAggregatorService) loadLink(ctx context.Context, linkID uint64) (*models.ArticleTicker, error) {
	if linkID == 0 {
		return nil, fmt.Errorf("%w: link_id is required", ErrValidation)
	}
	link, err := s.Repo.GetArticleTickerByID(ctx, linkID)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if link == nil {
		return nil, fmt.Errorf("%w: article_ticker %d", ErrConstraint, linkID)
	}
	return link, nil
}

func (s *SentimentAggregatorService) weights() (dyn, ml, kw float64) {
	dyn, ml, kw = s.Weights.Dynamic, s.Weights.ML, s.Weights.Keyword
	if dyn <= 0 && ml <= 0 && kw <= 0 {
		return defaultWeightDynamic, defaultWeightML, defaultWeightKeyword
	}
	return dyn, ml, kw
}

func (s *SentimentAggregatorService) calendar() *market.Calendar {
	if s != nil && s.Calendar != nil {
		return s.Calendar
	}
	return market.NewCalendar("")
}

func (s *SentimentAggregatorService) nowUTC() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SentimentAggregatorService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}

// scoreText picks the body text for scoring, falling back to the
// headline when extraction has not produced a body yet.
func scoreText(link *models.ArticleTicker) string {
	if link.Article.FullText != nil && strings.TrimSpace(*link.Article.FullText) != "" {
		return *link.Article.FullText
	}
	return link.Article.Headline
}

func clampScore(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/forecast"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

// PredictionEngineService turns a combined sentiment reading into one
// immutable forecast row per horizon. Prediction instants are truncated
// to microseconds so a replayed pass lands on the identical key.
type PredictionEngineService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Model  forecast.Model
	Now    func() time.Time
}

// Predict issues the forecast for one link, one horizon, at one
// instant. Replaying the identical instant is a no-op returning the
// stored row. Fails with ErrInsufficientSignal while the link has no
// combined sentiment and with ErrModel when the scoring function fails.
func (s *PredictionEngineService) Predict(ctx context.Context, linkID uint64, horizon models.Horizon, at time.Time) (*models.Prediction, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	if linkID == 0 {
		return nil, fmt.Errorf("%w: link_id is required", ErrValidation)
	}
	if !horizon.Valid() {
		return nil, fmt.Errorf("%w: unknown horizon %q", ErrValidation, horizon)
	}
	if at.IsZero() {
		at = s.nowUTC()
	}
	at = at.UTC().Truncate(time.Microsecond)

	link, err := s.Repo.GetArticleTickerByID(ctx, linkID)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if link == nil {
		return nil, fmt.Errorf("%w: article_ticker %d", ErrConstraint, linkID)
	}
	if link.SentimentCombined == nil {
		return nil, fmt.Errorf("%w: link %d", ErrInsufficientSignal, linkID)
	}
	if s.Model == nil {
		return nil, fmt.Errorf("%w: no forecast model configured", ErrModel)
	}

	out, err := s.Model.Predict(ctx, forecast.Input{
		CombinedSentiment: *link.SentimentCombined,
		HeadlineSentiment: link.HeadlineSentiment,
		MarketSession:     link.MarketSession,
		NewsAgeMinutes:    link.NewsAgeMinutes,
		Horizon:           horizon,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModel, s.Model.Name(), err)
	}

	item := &models.Prediction{
		ArticleTickerID: linkID,
		Horizon:         horizon,
		GkProb:          &out.GkProb,
		PredictedPct:    &out.PredictedPct,
		PredictionTime:  at,
	}
	stored, created, err := s.Repo.InsertPrediction(ctx, item)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: prediction (%d,%s,%s) unreadable after insert", ErrConflict, linkID, horizon, at.Format(time.RFC3339Nano))
	}
	if s.Logger != nil {
		if created {
			s.Logger.Debug("prediction issued",
				zap.Uint64("link_id", linkID),
				zap.String("horizon", horizon.String()),
				zap.Time("prediction_time", at))
		} else {
			s.Logger.Debug("prediction replayed",
				zap.Uint64("prediction_id", stored.ID),
				zap.String("horizon", horizon.String()))
		}
	}
	return stored, nil
}

// PredictAll issues one forecast per supported horizon at the same
// instant. Horizons are independent: a model failure on one is
// collected and the remaining horizons still go through.
func (s *PredictionEngineService) PredictAll(ctx context.Context, linkID uint64, at time.Time) ([]models.Prediction, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	if at.IsZero() {
		at = s.nowUTC()
	}
	preds := make([]models.Prediction, 0, len(models.Horizons()))
	var errs []error
	for _, h := range models.Horizons() {
		p, err := s.Predict(ctx, linkID, h, at)
		if err != nil {
			if errors.Is(err, ErrModel) {
				if s.Logger != nil {
					s.Logger.Warn("forecast failed for horizon",
						zap.Uint64("link_id", linkID),
						zap.String("horizon", h.String()),
						zap.Error(err))
				}
				errs = append(errs, err)
				continue
			}
			return preds, err
		}
		if p != nil {
			preds = append(preds, *p)
		}
	}
	return preds, errors.Join(errs...)
}

func (s *PredictionEngineService) nowUTC() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

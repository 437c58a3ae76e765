package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/config"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

// ScoringPassService sweeps links that have no combined sentiment yet,
// runs every scoring strategy on them, and issues forecasts for the
// ones that end up with a combined score. Links whose evidence is still
// incomplete are left in place for the next sweep.
type ScoringPassService struct {
	Repo       repository.Repository
	Aggregator *SentimentAggregatorService
	Engine     *PredictionEngineService
	Config     config.ScoringConfig
	Logger     *zap.Logger
	Now        func() time.Time
}

// RunOnce processes one batch of unscored links. Every prediction in
// the pass shares one instant, so a crashed and re-run pass replays
// onto the same rows.
func (s *ScoringPassService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Aggregator == nil || s.Engine == nil {
		return nil
	}
	if !s.Config.Enabled {
		return nil
	}
	batch := s.Config.BatchSize
	if batch <= 0 || batch > 1000 {
		batch = 100
	}
	now := s.nowUTC()

	links, err := s.Repo.ListUnscoredArticleTickers(ctx, batch)
	if err != nil {
		s.logWarn("scoring pass list links failed", err)
		return err
	}
	if len(links) == 0 {
		return nil
	}

	var combined, predicted, waiting int
	for _, link := range links {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.Aggregator.ScoreAll(ctx, link.ID); err != nil {
			s.logWarn("sentiment scoring failed", err, zap.Uint64("link_id", link.ID))
		}
		if _, err := s.Aggregator.Combine(ctx, link.ID); err != nil {
			if errors.Is(err, ErrIncompleteEvidence) {
				waiting++
				continue
			}
			s.logWarn("sentiment combine failed", err, zap.Uint64("link_id", link.ID))
			continue
		}
		combined++

		preds, err := s.Engine.PredictAll(ctx, link.ID, now)
		if err != nil {
			s.logWarn("forecast pass failed", err, zap.Uint64("link_id", link.ID))
		}
		predicted += len(preds)
	}

	if s.Logger != nil {
		s.Logger.Info("scoring pass complete",
			zap.Int("links", len(links)),
			zap.Int("combined", combined),
			zap.Int("predictions", predicted),
			zap.Int("waiting", waiting))
	}
	return nil
}

func (s *ScoringPassService) nowUTC() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ScoringPassService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}

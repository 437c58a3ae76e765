package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

const evaluationBatchSize = 200

// OutcomeReconcilerService stores observed price moves and pairs them
// back against the forecasts that preceded them. Actual rows are
// idempotent on (link, horizon, computed_at) so the outcome pass can be
// re-run over the same window without duplicating observations.
type OutcomeReconcilerService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Now    func() time.Time
}

// RecordActualInput carries one observed move for a link and horizon.
type RecordActualInput struct {
	ArticleTickerID uint64
	Horizon         models.Horizon
	ActualPct       decimal.Decimal
	ComputedAt      time.Time
}

// RecordActual stores one observation. Replaying the identical
// (link, horizon, computed_at) key returns the stored row unchanged.
func (s *OutcomeReconcilerService) RecordActual(ctx context.Context, in RecordActualInput) (*models.Actual, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	item, err := s.buildActual(in)
	if err != nil {
		return nil, err
	}
	stored, created, err := s.Repo.InsertActual(ctx, item)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: actual (%d,%s) unreadable after insert", ErrConflict, in.ArticleTickerID, in.Horizon)
	}
	if s.Logger != nil {
		if created {
			s.Logger.Debug("actual recorded",
				zap.Uint64("link_id", stored.ArticleTickerID),
				zap.String("horizon", stored.Horizon.String()),
				zap.String("actual_pct", stored.ActualPct.String()))
		} else {
			s.Logger.Debug("actual replayed", zap.Uint64("actual_id", stored.ID))
		}
	}
	return stored, nil
}

// BulkRecordActuals stores a batch of observations in one shot and
// reports how many were new. Rows whose key already exists are skipped,
// not rewritten.
func (s *OutcomeReconcilerService) BulkRecordActuals(ctx context.Context, inputs []RecordActualInput) (int64, error) {
	if s == nil || s.Repo == nil {
		return 0, nil
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	items := make([]models.Actual, 0, len(inputs))
	for i, in := range inputs {
		item, err := s.buildActual(in)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		items = append(items, *item)
	}
	inserted, err := s.Repo.BulkInsertActuals(ctx, items)
	if err != nil {
		return 0, classifyDBError(err)
	}
	if s.Logger != nil {
		s.Logger.Debug("actuals recorded in bulk",
			zap.Int("submitted", len(items)),
			zap.Int64("inserted", inserted))
	}
	return inserted, nil
}

// Evaluate opens a cursor over the link's actuals for one horizon in
// computed_at order. Each step pairs the actual with the freshest
// prediction whose instant does not exceed the observation instant, so
// no pairing ever looks ahead of the data it grades.
func (s *OutcomeReconcilerService) Evaluate(ctx context.Context, linkID uint64, horizon models.Horizon) (*EvaluationCursor, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	if linkID == 0 {
		return nil, fmt.Errorf("%w: link_id is required", ErrValidation)
	}
	if !horizon.Valid() {
		return nil, fmt.Errorf("%w: unknown horizon %q", ErrValidation, horizon)
	}
	link, err := s.Repo.GetArticleTickerByID(ctx, linkID)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if link == nil {
		return nil, fmt.Errorf("%w: article_ticker %d", ErrConstraint, linkID)
	}
	return &EvaluationCursor{svc: s, linkID: linkID, horizon: horizon, batchSize: evaluationBatchSize}, nil
}

func (s *OutcomeReconcilerService) buildActual(in RecordActualInput) (*models.Actual, error) {
	if in.ArticleTickerID == 0 {
		return nil, fmt.Errorf("%w: link_id is required", ErrValidation)
	}
	if !in.Horizon.Valid() {
		return nil, fmt.Errorf("%w: unknown horizon %q", ErrValidation, in.Horizon)
	}
	at := in.ComputedAt
	if at.IsZero() {
		at = s.nowUTC()
	}
	return &models.Actual{
		ArticleTickerID: in.ArticleTickerID,
		Horizon:         in.Horizon,
		ActualPct:       in.ActualPct,
		ComputedAt:      at.UTC().Truncate(time.Microsecond),
	}, nil
}

func (s *OutcomeReconcilerService) nowUTC() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// --- Evaluation cursor ----------------------------------------------------

// EvaluatedPair joins one observation with the prediction it grades.
// Prediction is nil when no forecast preceded the observation; such
// orphans are surfaced rather than dropped. ErrorPct is actual minus
// predicted and is only set when a matched prediction carries a move.
type EvaluatedPair struct {
	Actual     models.Actual
	Prediction *models.Prediction
	ErrorPct   *decimal.Decimal
}

// EvaluationCursor streams one link's (horizon-scoped) actuals oldest
// first, fetching a batch at a time. computed_at is unique within the
// scope, so the strictly-after cursor never skips or repeats a row.
type EvaluationCursor struct {
	svc       *OutcomeReconcilerService
	linkID    uint64
	horizon   models.Horizon
	batch     []models.Actual
	idx       int
	after     *time.Time
	batchSize int
	done      bool
}

// Next returns the following pair, or (nil, nil) once the cursor is
// exhausted.
func (c *EvaluationCursor) Next(ctx context.Context) (*EvaluatedPair, error) {
	if c == nil || c.svc == nil || c.svc.Repo == nil {
		return nil, nil
	}
	for c.idx >= len(c.batch) {
		if c.done {
			return nil, nil
		}
		if err := c.fill(ctx); err != nil {
			return nil, err
		}
	}
	actual := c.batch[c.idx]
	c.idx++

	pred, err := c.svc.Repo.GetLatestPredictionAtOrBefore(ctx, actual.ArticleTickerID, actual.Horizon, actual.ComputedAt)
	if err != nil {
		return nil, classifyDBError(err)
	}
	pair := &EvaluatedPair{Actual: actual, Prediction: pred}
	if pred != nil && pred.PredictedPct != nil {
		diff := actual.ActualPct.Sub(*pred.PredictedPct)
		pair.ErrorPct = &diff
	}
	return pair, nil
}

// Collect drains up to max pairs from the cursor. max <= 0 drains it
// fully.
func (c *EvaluationCursor) Collect(ctx context.Context, max int) ([]EvaluatedPair, error) {
	var pairs []EvaluatedPair
	for {
		if max > 0 && len(pairs) >= max {
			return pairs, nil
		}
		pair, err := c.Next(ctx)
		if err != nil {
			return pairs, err
		}
		if pair == nil {
			return pairs, nil
		}
		pairs = append(pairs, *pair)
	}
}

func (c *EvaluationCursor) fill(ctx context.Context) error {
	asc := true
	items, err := c.svc.Repo.ListActuals(ctx, repository.ListActualsParams{
		Limit:           c.batchSize,
		ArticleTickerID: &c.linkID,
		Horizon:         &c.horizon,
		AfterComputedAt: c.after,
		OrderBy:         "computed_at",
		Asc:             &asc,
	})
	if err != nil {
		return classifyDBError(err)
	}
	if len(items) < c.batchSize {
		c.done = true
	}
	c.batch = items
	c.idx = 0
	if n := len(items); n > 0 {
		last := items[n-1].ComputedAt
		c.after = &last
	}
	return nil
}

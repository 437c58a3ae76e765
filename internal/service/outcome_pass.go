package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/config"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/market"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/marketdata"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

// quoteLookback is how far behind a prediction the quote window starts.
// The baseline quote is the last trade at or before the prediction
// instant, which can sit days back across a weekend.
const quoteLookback = 72 * time.Hour

// OutcomePassService finds predictions whose horizon has expired,
// fetches the realized price move, and records it as an actual. The
// observation instant is the horizon's due time, so re-running a pass
// lands on the same actual keys and inserts nothing new.
type OutcomePassService struct {
	Repo       repository.Repository
	Reconciler *OutcomeReconcilerService
	Provider   marketdata.Provider
	Calendar   *market.Calendar
	Config     config.OutcomeConfig
	Logger     *zap.Logger
	Now        func() time.Time
}

func (s *OutcomePassService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Reconciler == nil || s.Provider == nil {
		return nil
	}
	if !s.Config.Enabled {
		return nil
	}
	batch := s.Config.BatchSize
	if batch <= 0 || batch > 1000 {
		batch = 200
	}
	now := s.nowUTC()

	var recorded int64
	for _, h := range models.Horizons() {
		n, err := s.reconcileHorizon(ctx, h, now, batch)
		if err != nil {
			s.logWarn("outcome pass failed for horizon", err, zap.String("horizon", h.String()))
			continue
		}
		recorded += n
	}
	if recorded > 0 && s.Logger != nil {
		s.Logger.Info("outcome pass complete", zap.Int64("recorded", recorded))
	}
	return nil
}

func (s *OutcomePassService) reconcileHorizon(ctx context.Context, horizon models.Horizon, now time.Time, batch int) (int64, error) {
	// Fixed horizons expire a fixed duration after the prediction, so
	// the query can cut on prediction_time directly. eod due times
	// depend on the calendar and are filtered below.
	before := now
	if d, ok := horizon.Duration(); ok {
		before = now.Add(-d)
	}
	preds, err := s.Repo.ListPredictionsNeedingActual(ctx, horizon, before, batch)
	if err != nil {
		return 0, err
	}
	if len(preds) == 0 {
		return 0, nil
	}

	symbols := map[uint64]string{}
	inputs := make([]RecordActualInput, 0, len(preds))
	for _, pred := range preds {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		due := s.calendar().DueAt(horizon, pred.PredictionTime)
		if due.After(now) {
			continue
		}
		symbol, err := s.symbolFor(ctx, symbols, pred.ArticleTickerID)
		if err != nil {
			s.logWarn("outcome pass link lookup failed", err, zap.Uint64("link_id", pred.ArticleTickerID))
			continue
		}
		if symbol == "" {
			continue
		}
		candles, err := s.Provider.Candles(ctx, symbol, pred.PredictionTime.Add(-quoteLookback), due, "1m")
		if err != nil {
			s.logWarn("quote fetch failed", err,
				zap.String("symbol", symbol),
				zap.String("horizon", horizon.String()))
			continue
		}
		pct, err := marketdata.PctMove(candles, pred.PredictionTime, due)
		if err != nil {
			s.logWarn("pct move unavailable", err,
				zap.String("symbol", symbol),
				zap.Uint64("prediction_id", pred.ID))
			continue
		}
		inputs = append(inputs, RecordActualInput{
			ArticleTickerID: pred.ArticleTickerID,
			Horizon:         horizon,
			ActualPct:       pct,
			ComputedAt:      due,
		})
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	return s.Reconciler.BulkRecordActuals(ctx, inputs)
}

// symbolFor resolves and memoizes the traded symbol behind a link for
// the duration of one pass.
func (s *OutcomePassService) symbolFor(ctx context.Context, seen map[uint64]string, linkID uint64) (string, error) {
	if symbol, ok := seen[linkID]; ok {
		return symbol, nil
	}
	link, err := s.Repo.GetArticleTickerByID(ctx, linkID)
	if err != nil {
		return "", err
	}
	symbol := ""
	if link != nil {
		symbol = link.Ticker.Symbol
	}
	seen[linkID] = symbol
	return symbol, nil
}

func (s *OutcomePassService) calendar() *market.Calendar {
	if s != nil && s.Calendar != nil {
		return s.Calendar
	}
	return market.NewCalendar("")
}

func (s *OutcomePassService) nowUTC() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OutcomePassService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}

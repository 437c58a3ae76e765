package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

// MentionLinkerService records which tickers an article mentions and the
// raw extraction evidence for each pair. It never writes sentiment:
// evidence extraction and scoring retry on independent lifecycles.
type MentionLinkerService struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// MaxTokens caps the retained token list per link. Zero keeps all.
	MaxTokens int
}

// LinkEvidenceInput is one freshly-extracted evidence set for an
// (article, ticker) pair.
type LinkEvidenceInput struct {
	ArticleID uint64
	TickerID  uint64
	Mentions  int
	PosKw     int
	NegKw     int
	Tokens    []string
}

// Link upserts the (article, ticker) pair. A re-run with freshly
// extracted evidence replaces the stored counts and tokens; extraction
// is deterministic, so identical input leaves the row unchanged.
func (s *MentionLinkerService) Link(ctx context.Context, in LinkEvidenceInput) (*models.ArticleTicker, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	if in.ArticleID == 0 {
		return nil, fmt.Errorf("%w: article_id is required", ErrValidation)
	}
	if in.TickerID == 0 {
		return nil, fmt.Errorf("%w: ticker_id is required", ErrValidation)
	}
	if in.Mentions < 0 || in.PosKw < 0 || in.NegKw < 0 {
		return nil, fmt.Errorf("%w: evidence counts must be non-negative", ErrValidation)
	}

	tokens := in.Tokens
	if s.MaxTokens > 0 && len(tokens) > s.MaxTokens {
		tokens = tokens[:s.MaxTokens]
	}
	tokensJSON := datatypes.JSON([]byte("[]"))
	if len(tokens) > 0 {
		raw, err := json.Marshal(tokens)
		if err != nil {
			return nil, fmt.Errorf("%w: tokens not serializable: %v", ErrValidation, err)
		}
		tokensJSON = datatypes.JSON(raw)
	}

	item := &models.ArticleTicker{
		ArticleID: in.ArticleID,
		TickerID:  in.TickerID,
		Mentions:  in.Mentions,
		PosKw:     in.PosKw,
		NegKw:     in.NegKw,
		Tokens:    tokensJSON,
	}
	stored, err := s.Repo.UpsertArticleTicker(ctx, item)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: link (%d,%d) unreadable after upsert", ErrConflict, in.ArticleID, in.TickerID)
	}
	if s.Logger != nil {
		s.Logger.Debug("mention linked",
			zap.Uint64("link_id", stored.ID),
			zap.Uint64("article_id", in.ArticleID),
			zap.Uint64("ticker_id", in.TickerID),
			zap.Int("mentions", in.Mentions))
	}
	return stored, nil
}

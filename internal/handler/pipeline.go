package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

// PipelineHandler exposes engine-wide counters and lets operators force
// a pass outside its cron cadence.
type PipelineHandler struct {
	Repo    repository.Repository
	Scoring *service.ScoringPassService
	Outcome *service.OutcomePassService
	Logger  *zap.Logger
}

func (h *PipelineHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/pipeline")
	group.GET("/overview", h.overview)
	group.POST("/scoring-pass", h.runScoring)
	group.POST("/outcome-pass", h.runOutcome)
}

// @Summary Engine-wide row counts
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Router /api/v1/pipeline/overview [get]
func (h *PipelineHandler) overview(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	overview, err := h.Repo.EngineOverview(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"articles":     overview.Articles,
		"tickers":      overview.Tickers,
		"links":        overview.Links,
		"scored_links": overview.ScoredLinks,
		"predictions":  overview.Predictions,
		"actuals":      overview.Actuals,
	})
}

// @Summary Run one scoring pass now
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Router /api/v1/pipeline/scoring-pass [post]
func (h *PipelineHandler) runScoring(c *gin.Context) {
	if h.Scoring == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	if err := h.Scoring.RunOnce(c.Request.Context()); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("manual scoring pass failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"status": "done"}, nil)
}

// @Summary Run one outcome pass now
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Router /api/v1/pipeline/outcome-pass [post]
func (h *PipelineHandler) runOutcome(c *gin.Context) {
	if h.Outcome == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	if err := h.Outcome.RunOnce(c.Request.Context()); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("manual outcome pass failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"status": "done"}, nil)
}

package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

type LinkHandler struct {
	Linker     *service.MentionLinkerService
	Aggregator *service.SentimentAggregatorService
	Reconciler *service.OutcomeReconcilerService
	Repo       repository.Repository
	Logger     *zap.Logger
}

func (h *LinkHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/links")
	group.POST("", h.link)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("/:id/score", h.score)
	group.POST("/:id/combine", h.combine)
	group.GET("/:id/evaluations", h.evaluations)
}

type linkEvidenceRequest struct {
	ArticleID uint64   `json:"article_id"`
	TickerID  uint64   `json:"ticker_id"`
	Mentions  int      `json:"mentions"`
	PosKw     int      `json:"pos_kw"`
	NegKw     int      `json:"neg_kw"`
	Tokens    []string `json:"tokens"`
}

// @Summary Attach mention evidence to an article/ticker pair
// @Tags links
// @Accept json
// @Param body body linkEvidenceRequest true "evidence"
// @Success 200 {object} apiResponse
// @Router /api/v1/links [post]
func (h *LinkHandler) link(c *gin.Context) {
	if h.Linker == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req linkEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Linker.Link(c.Request.Context(), service.LinkEvidenceInput{
		ArticleID: req.ArticleID,
		TickerID:  req.TickerID,
		Mentions:  req.Mentions,
		PosKw:     req.PosKw,
		NegKw:     req.NegKw,
		Tokens:    req.Tokens,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("link evidence failed", zap.Error(err))
		}
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary List article/ticker links
// @Tags links
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param article_id query int false "article filter"
// @Param ticker_id query int false "ticker filter"
// @Param scored query bool false "only links with (or without) a combined score"
// @Param session query string false "market session filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/links [get]
func (h *LinkHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListArticleTickersParams{
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
		ArticleID: uintQueryPtr(c, "article_id"),
		TickerID:  uintQueryPtr(c, "ticker_id"),
		Scored:    boolQueryPtr(c, "scored"),
		Session:   strQueryPtr(c, "session"),
		OrderBy:   strings.TrimSpace(c.Query("order_by")),
		Asc:       boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListArticleTickers(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountArticleTickers(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get a link with its article and ticker
// @Tags links
// @Param id path int true "link id"
// @Success 200 {object} apiResponse
// @Router /api/v1/links/{id} [get]
func (h *LinkHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetArticleTickerByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "link not found", nil)
		return
	}
	Ok(c, item, nil)
}

type scoreLinkRequest struct {
	Strategy string `json:"strategy"`
}

// @Summary Run sentiment scoring on a link
// @Tags links
// @Accept json
// @Param id path int true "link id"
// @Param body body scoreLinkRequest false "single strategy; empty runs all"
// @Success 200 {object} apiResponse
// @Router /api/v1/links/{id}/score [post]
func (h *LinkHandler) score(c *gin.Context) {
	if h.Aggregator == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req scoreLinkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	strategy := strings.ToLower(strings.TrimSpace(req.Strategy))

	var err error
	if strategy == "" {
		err = h.Aggregator.ScoreAll(c.Request.Context(), id)
	} else {
		err = h.Aggregator.Score(c.Request.Context(), id, strategy)
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("link scoring failed", zap.Uint64("link_id", id), zap.Error(err))
		}
		ServiceError(c, err)
		return
	}
	item, err := h.Repo.GetArticleTickerByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Combine the per-strategy scores into one signal
// @Tags links
// @Param id path int true "link id"
// @Success 200 {object} apiResponse
// @Router /api/v1/links/{id}/combine [post]
func (h *LinkHandler) combine(c *gin.Context) {
	if h.Aggregator == nil || h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	combined, err := h.Aggregator.Combine(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	item, err := h.Repo.GetArticleTickerByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, map[string]any{"combined": combined})
}

// @Summary Pair a link's actuals with the predictions they grade
// @Tags links
// @Param id path int true "link id"
// @Param horizon query string true "1hr|4hr|eod"
// @Param limit query int false "max pairs"
// @Success 200 {object} apiResponse
// @Router /api/v1/links/{id}/evaluations [get]
func (h *LinkHandler) evaluations(c *gin.Context) {
	if h.Reconciler == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	horizon, err := models.ParseHorizon(c.Query("horizon"))
	if err != nil {
		Error(c, http.StatusBadRequest, "horizon must be one of 1hr, 4hr, eod", nil)
		return
	}
	cursor, err := h.Reconciler.Evaluate(c.Request.Context(), id, horizon)
	if err != nil {
		ServiceError(c, err)
		return
	}
	pairs, err := cursor.Collect(c.Request.Context(), intQuery(c, "limit", 200))
	if err != nil {
		ServiceError(c, err)
		return
	}
	matched := 0
	for _, p := range pairs {
		if p.Prediction != nil {
			matched++
		}
	}
	Ok(c, pairs, map[string]any{
		"pairs":     len(pairs),
		"matched":   matched,
		"unmatched": len(pairs) - matched,
	})
}

package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

type PredictionHandler struct {
	Engine *service.PredictionEngineService
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *PredictionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/predictions")
	group.POST("", h.predict)
	group.GET("", h.list)
}

type predictRequest struct {
	LinkID  uint64 `json:"link_id"`
	Horizon string `json:"horizon"`
	At      string `json:"at"`
}

// @Summary Issue forecasts for a scored link
// @Tags predictions
// @Accept json
// @Param body body predictRequest true "link and optional horizon; empty horizon covers all"
// @Success 200 {object} apiResponse
// @Router /api/v1/predictions [post]
func (h *PredictionHandler) predict(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	var at time.Time
	if ts := strings.TrimSpace(req.At); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			Error(c, http.StatusBadRequest, "at must be RFC3339", nil)
			return
		}
		at = parsed.UTC()
	}

	if strings.TrimSpace(req.Horizon) == "" {
		preds, err := h.Engine.PredictAll(c.Request.Context(), req.LinkID, at)
		if err != nil {
			if h.Logger != nil {
				h.Logger.Warn("predict all failed", zap.Uint64("link_id", req.LinkID), zap.Error(err))
			}
			ServiceError(c, err)
			return
		}
		Ok(c, preds, nil)
		return
	}

	horizon, err := models.ParseHorizon(req.Horizon)
	if err != nil {
		Error(c, http.StatusBadRequest, "horizon must be one of 1hr, 4hr, eod", nil)
		return
	}
	pred, err := h.Engine.Predict(c.Request.Context(), req.LinkID, horizon, at)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("predict failed",
				zap.Uint64("link_id", req.LinkID),
				zap.String("horizon", horizon.String()),
				zap.Error(err))
		}
		ServiceError(c, err)
		return
	}
	Ok(c, pred, nil)
}

// @Summary List predictions
// @Tags predictions
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param link_id query int false "link filter"
// @Param horizon query string false "horizon filter"
// @Param since query string false "prediction_time at or after (RFC3339)"
// @Param until query string false "prediction_time before (RFC3339)"
// @Success 200 {object} apiResponse
// @Router /api/v1/predictions [get]
func (h *PredictionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListPredictionsParams{
		Limit:           intQuery(c, "limit", 50),
		Offset:          intQuery(c, "offset", 0),
		ArticleTickerID: uintQueryPtr(c, "link_id"),
		Since:           timeQueryPtr(c, "since"),
		Until:           timeQueryPtr(c, "until"),
		OrderBy:         strings.TrimSpace(c.Query("order_by")),
		Asc:             boolQueryPtr(c, "asc"),
	}
	if raw := strings.TrimSpace(c.Query("horizon")); raw != "" {
		horizon, err := models.ParseHorizon(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "horizon must be one of 1hr, 4hr, eod", nil)
			return
		}
		params.Horizon = &horizon
	}
	items, err := h.Repo.ListPredictions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPredictions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

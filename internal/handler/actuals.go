package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

type ActualHandler struct {
	Reconciler *service.OutcomeReconcilerService
	Repo       repository.Repository
	Logger     *zap.Logger
}

func (h *ActualHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/actuals")
	group.POST("", h.record)
	group.POST("/bulk", h.recordBulk)
	group.GET("", h.list)
}

type recordActualRequest struct {
	LinkID     uint64 `json:"link_id"`
	Horizon    string `json:"horizon"`
	ActualPct  string `json:"actual_pct"`
	ComputedAt string `json:"computed_at"`
}

func (r recordActualRequest) toInput() (service.RecordActualInput, string) {
	horizon, err := models.ParseHorizon(r.Horizon)
	if err != nil {
		return service.RecordActualInput{}, "horizon must be one of 1hr, 4hr, eod"
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(r.ActualPct))
	if err != nil {
		return service.RecordActualInput{}, "actual_pct must be a decimal"
	}
	in := service.RecordActualInput{
		ArticleTickerID: r.LinkID,
		Horizon:         horizon,
		ActualPct:       pct,
	}
	if ts := strings.TrimSpace(r.ComputedAt); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return service.RecordActualInput{}, "computed_at must be RFC3339"
		}
		in.ComputedAt = parsed.UTC()
	}
	return in, ""
}

// @Summary Record an observed price move
// @Tags actuals
// @Accept json
// @Param body body recordActualRequest true "observation"
// @Success 200 {object} apiResponse
// @Router /api/v1/actuals [post]
func (h *ActualHandler) record(c *gin.Context) {
	if h.Reconciler == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req recordActualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	in, msg := req.toInput()
	if msg != "" {
		Error(c, http.StatusBadRequest, msg, nil)
		return
	}
	item, err := h.Reconciler.RecordActual(c.Request.Context(), in)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("record actual failed", zap.Uint64("link_id", req.LinkID), zap.Error(err))
		}
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}

type recordActualsBulkRequest struct {
	Items []recordActualRequest `json:"items"`
}

// @Summary Record observed price moves in bulk
// @Tags actuals
// @Accept json
// @Param body body recordActualsBulkRequest true "observations"
// @Success 200 {object} apiResponse
// @Router /api/v1/actuals/bulk [post]
func (h *ActualHandler) recordBulk(c *gin.Context) {
	if h.Reconciler == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req recordActualsBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if len(req.Items) == 0 {
		Error(c, http.StatusBadRequest, "items is empty", nil)
		return
	}
	inputs := make([]service.RecordActualInput, 0, len(req.Items))
	for i, item := range req.Items {
		in, msg := item.toInput()
		if msg != "" {
			Error(c, http.StatusBadRequest, msg, map[string]any{"row": i})
			return
		}
		inputs = append(inputs, in)
	}
	inserted, err := h.Reconciler.BulkRecordActuals(c.Request.Context(), inputs)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("bulk record actuals failed", zap.Error(err))
		}
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"submitted": len(inputs), "inserted": inserted}, nil)
}

// @Summary List actuals
// @Tags actuals
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param link_id query int false "link filter"
// @Param horizon query string false "horizon filter"
// @Param after query string false "computed_at strictly after (RFC3339)"
// @Success 200 {object} apiResponse
// @Router /api/v1/actuals [get]
func (h *ActualHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListActualsParams{
		Limit:           intQuery(c, "limit", 50),
		Offset:          intQuery(c, "offset", 0),
		ArticleTickerID: uintQueryPtr(c, "link_id"),
		AfterComputedAt: timeQueryPtr(c, "after"),
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
	items, err := h.Repo.ListActuals(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountActuals(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

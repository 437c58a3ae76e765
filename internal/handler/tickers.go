package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

type TickerHandler struct {
	Service *service.TickerRegistryService
	Repo    repository.Repository
	Logger  *zap.Logger
}

func (h *TickerHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/tickers")
	group.POST("", h.resolve)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.remove)
}

type resolveTickerRequest struct {
	Symbol string `json:"symbol"`
}

// @Summary Resolve a symbol to its ticker row, creating it if new
// @Tags tickers
// @Accept json
// @Param body body resolveTickerRequest true "symbol"
// @Success 200 {object} apiResponse
// @Router /api/v1/tickers [post]
func (h *TickerHandler) resolve(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req resolveTickerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Service.Resolve(c.Request.Context(), req.Symbol)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary List tickers
// @Tags tickers
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param prefix query string false "symbol prefix"
// @Success 200 {object} apiResponse
// @Router /api/v1/tickers [get]
func (h *TickerHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTickersParams{
		Limit:   intQuery(c, "limit", 100),
		Offset:  intQuery(c, "offset", 0),
		Prefix:  strQueryPtr(c, "prefix"),
		OrderBy: strings.TrimSpace(c.Query("order_by")),
		Asc:     boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListTickers(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTickers(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get a ticker
// @Tags tickers
// @Param id path int true "ticker id"
// @Success 200 {object} apiResponse
// @Router /api/v1/tickers/{id} [get]
func (h *TickerHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetTickerByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "ticker not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Delete a ticker and everything derived from it
// @Tags tickers
// @Param id path int true "ticker id"
// @Success 200 {object} apiResponse
// @Router /api/v1/tickers/{id} [delete]
func (h *TickerHandler) remove(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	rows, err := h.Repo.DeleteTicker(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if rows == 0 {
		Error(c, http.StatusNotFound, "ticker not found", nil)
		return
	}
	Ok(c, gin.H{"deleted": rows}, nil)
}

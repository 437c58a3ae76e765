package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

type ArticleHandler struct {
	Service *service.ArticleStoreService
	Repo    repository.Repository
	Logger  *zap.Logger
}

func (h *ArticleHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/articles")
	group.POST("", h.ingest)
	group.GET("", h.list)
	group.GET("/lookup", h.lookup)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.remove)
}

type ingestArticleRequest struct {
	URL         string `json:"url"`
	Headline    string `json:"headline"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	ScrapedHTML string `json:"scraped_html"`
	FullText    string `json:"full_text"`
}

// @Summary Ingest an article
// @Tags articles
// @Accept json
// @Param body body ingestArticleRequest true "article"
// @Success 200 {object} apiResponse
// @Router /api/v1/articles [post]
func (h *ArticleHandler) ingest(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req ingestArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	in := service.IngestArticleInput{
		URL:         req.URL,
		Headline:    req.Headline,
		Source:      req.Source,
		ScrapedHTML: req.ScrapedHTML,
		FullText:    req.FullText,
	}
	if ts := strings.TrimSpace(req.PublishedAt); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			parsed = parsed.UTC()
			in.PublishedAt = &parsed
		}
	}
	item, err := h.Service.Ingest(c.Request.Context(), in)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("article ingest failed", zap.Error(err))
		}
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary List articles
// @Tags articles
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param source query string false "source filter"
// @Param since query string false "published at or after (RFC3339)"
// @Param until query string false "published before (RFC3339)"
// @Success 200 {object} apiResponse
// @Router /api/v1/articles [get]
func (h *ArticleHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListArticlesParams{
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
		Source:  strQueryPtr(c, "source"),
		Since:   timeQueryPtr(c, "since"),
		Until:   timeQueryPtr(c, "until"),
		OrderBy: strings.TrimSpace(c.Query("order_by")),
		Asc:     boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListArticles(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountArticles(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Look up an article by URL
// @Tags articles
// @Param url query string true "article URL"
// @Success 200 {object} apiResponse
// @Router /api/v1/articles/lookup [get]
func (h *ArticleHandler) lookup(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	rawURL := strings.TrimSpace(c.Query("url"))
	if rawURL == "" {
		Error(c, http.StatusBadRequest, "url is required", nil)
		return
	}
	item, err := h.Repo.GetArticleByURLHash(c.Request.Context(), service.Fingerprint(rawURL))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "article not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Get an article
// @Tags articles
// @Param id path int true "article id"
// @Success 200 {object} apiResponse
// @Router /api/v1/articles/{id} [get]
func (h *ArticleHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetArticleByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "article not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Delete an article and everything derived from it
// @Tags articles
// @Param id path int true "article id"
// @Success 200 {object} apiResponse
// @Router /api/v1/articles/{id} [delete]
func (h *ArticleHandler) remove(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	rows, err := h.Repo.DeleteArticle(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if rows == 0 {
		Error(c, http.StatusNotFound, "article not found", nil)
		return
	}
	Ok(c, gin.H{"deleted": rows}, nil)
}

// --- Shared query helpers -------------------------------------------------

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func uintParam(c *gin.Context, key string) (uint64, bool) {
	val := strings.TrimSpace(c.Param(key))
	if val == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func uintQueryPtr(c *gin.Context, key string) *uint64 {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if id, err := strconv.ParseUint(val, 10, 64); err == nil {
			return &id
		}
	}
	return nil
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func timeQueryPtr(c *gin.Context, key string) *time.Time {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if parsed, err := time.Parse(time.RFC3339, val); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

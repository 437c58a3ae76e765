package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// ServiceError maps the service error kinds onto HTTP statuses. Repo
// and provider failures that carry no kind surface as 502 so callers
// can tell an engine fault from a bad request.
func ServiceError(c *gin.Context, err error) {
	if err == nil {
		Ok(c, nil, nil)
		return
	}
	switch {
	case errors.Is(err, service.ErrValidation):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrConstraint):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrConflict):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrIncompleteEvidence), errors.Is(err, service.ErrInsufficientSignal):
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, service.ErrModel):
		Error(c, http.StatusBadGateway, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}

package rest

import (
	"context"
	"errors"
	"net/http"

	"priceSense/business/search"
	"priceSense/domain"
	"priceSense/pkg/logger"
	"priceSense/pkg/tracing"

	"github.com/labstack/echo/v4"
)

type (
	SearchHandler struct {
		searchService SearchService
	}

	SearchService interface {
		Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error)
	}
)

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{searchService: svc}
}

// POST /api/search
func (h *SearchHandler) Search(c echo.Context) error {
	var req domain.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid request body"})
	}

	ctx := c.Request().Context()
	resp, err := h.searchService.Search(ctx, req)
	if err != nil {
		var ve *search.ValidationError
		switch {
		case errors.As(err, &ve):
			return c.JSON(http.StatusBadRequest, ResponseError{Message: ve.Message, Field: ve.Field})
		case errors.Is(err, search.ErrUnavailable):
			return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: err.Error()})
		}
		logger.Error("search_failed", "trace_id", tracing.TraceIDFromContext(ctx), "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: "internal error"})
	}

	return c.JSON(http.StatusOK, resp)
}

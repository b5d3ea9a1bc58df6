package rest

import (
	"context"
	"net/http"

	"priceSense/business/bandit"
	"priceSense/domain"
	"priceSense/pkg/logger"
	"priceSense/pkg/tracing"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	BanditHandler struct {
		validate      *validator.Validate
		feedback      FeedbackService
		stats         BanditStatsService
		actionCounter ActionCounter
	}

	FeedbackService interface {
		Ingest(ctx context.Context, event domain.FeedbackEvent) (bandit.IngestResult, error)
	}

	BanditStatsService interface {
		Stats(ctx context.Context) (domain.BanditStats, error)
	}

	// ActionCounter is optional; it is nil when the event log is disabled.
	ActionCounter interface {
		CountByAction(ctx context.Context) (map[string]int64, error)
	}

	FeedbackRequest struct {
		UserID  string         `json:"userId"`
		ItemID  string         `json:"itemId" validate:"required"`
		Action  string         `json:"action" validate:"required"`
		Rating  *float64       `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
		Context map[string]any `json:"context,omitempty"`
	}

	FeedbackResponse struct {
		Accepted bool    `json:"accepted"`
		Reward   float64 `json:"reward"`
		Updated  bool    `json:"updated"`
	}
)

func NewBanditHandler(feedback FeedbackService, stats BanditStatsService, counter ActionCounter) *BanditHandler {
	return &BanditHandler{
		validate:      validator.New(),
		feedback:      feedback,
		stats:         stats,
		actionCounter: counter,
	}
}

// POST /api/feedback
// An authenticated user id overrides the one in the body.
func (h *BanditHandler) Feedback(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if uid, ok := c.Get("user_id").(string); ok && uid != "" {
		req.UserID = uid
	}

	event := domain.FeedbackEvent{
		ItemID:  req.ItemID,
		UserID:  req.UserID,
		Action:  domain.FeedbackAction(req.Action),
		Rating:  req.Rating,
		Context: req.Context,
	}

	ctx := c.Request().Context()
	res, err := h.feedback.Ingest(ctx, event)
	if err != nil {
		if bandit.IsValidation(err) {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}
		logger.Error("feedback_failed", "trace_id", tracing.TraceIDFromContext(ctx), "item_id", req.ItemID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: "feedback store unavailable"})
	}

	return c.JSON(http.StatusOK, FeedbackResponse{
		Accepted: true,
		Reward:   res.Reward,
		Updated:  res.Updated,
	})
}

// GET /api/bandit/stats
func (h *BanditHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.stats.Stats(ctx)
	if err != nil {
		logger.Error("bandit_stats_failed", "trace_id", tracing.TraceIDFromContext(ctx), "error", err)
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: "bandit store unavailable"})
	}

	body := echo.Map{"bandit": stats}
	if h.actionCounter != nil {
		counts, err := h.actionCounter.CountByAction(ctx)
		if err != nil {
			logger.Warn("feedback_counts_failed", "trace_id", tracing.TraceIDFromContext(ctx), "error", err)
		} else {
			body["feedbackByAction"] = counts
		}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(body))
}

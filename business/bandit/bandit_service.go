package bandit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"priceSense/domain"
	"priceSense/pkg/logger"
	"priceSense/pkg/metrics"
	"priceSense/pkg/tracing"

	"gorm.io/datatypes"
)

// FeedbackRepository is the append-only event log behind the ingester.
type FeedbackRepository interface {
	SaveEvent(ctx context.Context, event *domain.FeedbackEvent) error
}

type IngestResult struct {
	Reward  float64 `json:"reward"`
	Updated bool    `json:"updated"`
}

// FeedbackService turns user actions into bandit rewards.
type FeedbackService struct {
	store   *Store
	rewards RewardTable
	events  FeedbackRepository
	now     func() time.Time
}

func NewFeedbackService(store *Store, rewards RewardTable, events FeedbackRepository) *FeedbackService {
	if rewards == nil {
		rewards = DefaultRewardTable()
	}
	return &FeedbackService{
		store:   store,
		rewards: rewards,
		events:  events,
		now:     time.Now,
	}
}

// Ingest maps the event's action to a reward and applies it to the item's
// counters. A zero reward leaves the counters untouched. The event log is
// written best-effort after the counters.
func (s *FeedbackService) Ingest(ctx context.Context, event domain.FeedbackEvent) (IngestResult, error) {
	if err := ctx.Err(); err != nil {
		return IngestResult{}, fmt.Errorf("context error: %w", err)
	}
	if event.ItemID == "" {
		return IngestResult{}, fmt.Errorf("%w: item id is required", ErrInvalidParameters)
	}

	reward, err := s.rewards.RewardFor(event.Action)
	if err != nil {
		return IngestResult{}, err
	}

	tid := tracing.TraceIDFromContext(ctx)
	logger.Debug("bandit_feedback",
		"trace_id", tid,
		"user_id", event.UserID,
		"item_id", event.ItemID,
		"action", event.Action,
		"reward", reward,
	)

	updated := false
	if reward != 0 {
		if err := s.store.Update(ctx, event.ItemID, reward); err != nil {
			return IngestResult{Reward: reward}, err
		}
		updated = true
	}

	metrics.BanditFeedbackEvents.WithLabelValues(string(event.Action)).Inc()

	if s.events != nil {
		event.Reward = reward
		if event.CreatedAt.IsZero() {
			event.CreatedAt = s.now()
		}
		if tid != "" {
			if event.Context == nil {
				event.Context = datatypes.JSONMap{}
			}
			event.Context["trace_id"] = tid
		}
		if err := s.events.SaveEvent(ctx, &event); err != nil {
			logger.Warn("bandit_feedback_log_failed",
				"trace_id", tid,
				"item_id", event.ItemID,
				"error", err,
			)
		}
	}

	return IngestResult{Reward: reward, Updated: updated}, nil
}

// IsValidation reports whether err stems from a malformed feedback event
// rather than an infrastructure failure.
func IsValidation(err error) bool {
	var unknown ErrUnknownAction
	return errors.As(err, &unknown) || errors.Is(err, ErrInvalidParameters)
}

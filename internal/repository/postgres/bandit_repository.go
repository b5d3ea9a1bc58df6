package postgres

import (
	"context"
	"fmt"

	"priceSense/domain"

	"gorm.io/gorm"
)

// FeedbackRepository is the append-only log of feedback events.
type FeedbackRepository struct {
	DB *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{DB: db}
}

func (r *FeedbackRepository) SaveEvent(ctx context.Context, event *domain.FeedbackEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to save feedback event: %w", err)
	}

	return nil
}

type actionCount struct {
	Action string
	Total  int64
}

// CountByAction totals logged events per action.
func (r *FeedbackRepository) CountByAction(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []actionCount
	err := r.DB.WithContext(ctx).
		Model(&domain.FeedbackEvent{}).
		Select("action, count(*) as total").
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback events: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Action] = row.Total
	}
	return out, nil
}

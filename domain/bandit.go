package domain

import (
	"time"

	"gorm.io/datatypes"
)

// BanditParameters is the Beta(alpha, beta) posterior of a single item.
type BanditParameters struct {
	ItemID string  `json:"itemId"`
	Alpha  float64 `json:"alpha"`
	Beta   float64 `json:"beta"`
}

func (p BanditParameters) Mean() float64 {
	return p.Alpha / (p.Alpha + p.Beta)
}

type FeedbackAction string

const (
	ActionPurchase       FeedbackAction = "purchase"
	ActionLike           FeedbackAction = "like"
	ActionClick          FeedbackAction = "click"
	ActionView           FeedbackAction = "view"
	ActionDislike        FeedbackAction = "dislike"
	ActionAddToCart      FeedbackAction = "add_to_cart"
	ActionSkip           FeedbackAction = "skip"
	ActionRemoveFromCart FeedbackAction = "remove_from_cart"
	ActionReturn         FeedbackAction = "return"
)

// FeedbackEvent is a user interaction reported against an item.
type FeedbackEvent struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	ItemID    string            `gorm:"column:item_id;not null;index" json:"itemId" validate:"required"`
	UserID    string            `gorm:"column:user_id" json:"userId,omitempty"`
	Action    FeedbackAction    `gorm:"column:action;not null" json:"action" validate:"required"`
	Reward    float64           `gorm:"column:reward" json:"reward"`
	Rating    *float64          `gorm:"column:rating" json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Context   datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (FeedbackEvent) TableName() string {
	return "feedback_events"
}

type BanditStats struct {
	TrackedItems   int     `json:"trackedItems"`
	MeanAlpha      float64 `json:"meanAlpha"`
	MeanBeta       float64 `json:"meanBeta"`
	MeanConversion float64 `json:"meanConversion"`
}

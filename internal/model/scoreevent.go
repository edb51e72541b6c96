package model

import "time"

// Score event types
const (
	ScoreEventCompletion = "COMPLETION"
	ScoreEventReview     = "REVIEW"
)

// ScoreEvent records an applied KPI delta. The unique index over
// (task_id, event_type, delivery_id) is the idempotency key that makes
// score application safe under webhook redelivery: the row is inserted in
// the same transaction as the delta, so a redelivered event hits the
// constraint and applies nothing.
type ScoreEvent struct {
	ID         int64  `gorm:"primaryKey"`
	TaskID     int64  `gorm:"not null;uniqueIndex:idx_score_dedup"`
	EventType  string `gorm:"not null;uniqueIndex:idx_score_dedup"`
	DeliveryID string `gorm:"not null;uniqueIndex:idx_score_dedup"`
	MemberID   *int64
	Delta      float64   `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

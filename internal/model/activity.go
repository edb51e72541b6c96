package model

import "time"

// Activity is an append-only audit record of board mutations.
type Activity struct {
	ID        int64  `gorm:"primaryKey"`
	ProjectID int64  `gorm:"not null;index"`
	TaskID    *int64 `gorm:"index"`
	UserID    *int64
	Action    string `gorm:"not null"`
	Target    string
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

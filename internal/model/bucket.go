package model

import (
	"time"

	"gorm.io/gorm"
)

// Bucket states. A task's lifecycle state is the state of the bucket it
// currently sits in: DRAFT -> ONGOING -> ON_REVIEW -> COMPLETED, with a
// back-edge ON_REVIEW -> ONGOING on "changes requested".
const (
	BucketStateDraft     = "DRAFT"
	BucketStateOngoing   = "ONGOING"
	BucketStateOnReview  = "ON_REVIEW"
	BucketStateCompleted = "COMPLETED"
)

type Bucket struct {
	ID             int64  `gorm:"primaryKey"`
	ProjectID      int64  `gorm:"not null;index"`
	Name           string `gorm:"not null"`
	State          string `gorm:"not null;index"`
	IsSystemLocked bool   `gorm:"not null;default:false"`
	OrderIdx       int    `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`

	Project Project `gorm:"foreignKey:ProjectID"`
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// Task types
const (
	TaskTypeCode        = "CODE"
	TaskTypeRequirement = "REQUIREMENT"
	TaskTypeDesign      = "DESIGN"
	TaskTypeOther       = "OTHER"
)

// Task statuses
const (
	TaskStatusDraft  = "DRAFT"
	TaskStatusActive = "ACTIVE"
)

const (
	TaskWeightMin = 1
	TaskWeightMax = 8
)

type Task struct {
	ID                  int64  `gorm:"primaryKey"`
	ProjectID           int64  `gorm:"not null;index"`
	BucketID            int64  `gorm:"not null;index"`
	MeetingID           *int64 `gorm:"index"`
	ParentTaskID        *int64
	LeadAssigneeID      *int64
	SuggestedAssigneeID *int64
	Title               string `gorm:"not null"`
	Description         string
	Type                string `gorm:"not null;check:type IN ('CODE','REQUIREMENT','DESIGN','OTHER')"`
	Weight              int    `gorm:"not null;check:weight BETWEEN 1 AND 8"`
	// BranchName is set at most once per task; empty means no branch yet.
	BranchName     string `gorm:"index"`
	LastActivityAt *time.Time
	OrderIdx       int    `gorm:"not null"`
	Status         string `gorm:"not null;default:DRAFT"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`

	Project           Project `gorm:"foreignKey:ProjectID"`
	Bucket            Bucket  `gorm:"foreignKey:BucketID"`
	LeadAssignee      *User   `gorm:"foreignKey:LeadAssigneeID"`
	SuggestedAssignee *User   `gorm:"foreignKey:SuggestedAssigneeID"`
}

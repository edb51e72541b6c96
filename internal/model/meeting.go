package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Meeting source types
const (
	MeetingSourceManualUpload = "MANUAL_UPLOAD"
	MeetingSourceRecallBot    = "RECALL_BOT"
)

type Meeting struct {
	ID           int64  `gorm:"primaryKey"`
	ProjectID    int64  `gorm:"not null;index"`
	UserID       *int64 `gorm:"index"`
	Title        string `gorm:"not null"`
	Date         string
	Time         string
	Duration     string
	SourceType   string `gorm:"not null"`
	MomSummary   string
	KeyDecisions pq.StringArray `gorm:"type:text[]"`
	ActionItems  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Project Project `gorm:"foreignKey:ProjectID"`
}

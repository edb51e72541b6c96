package model

import (
	"time"

	"github.com/lib/pq"
)

// Alert types
const (
	AlertTypeStagnation    = "STAGNATION"
	AlertTypeReallocation  = "REALLOCATION"
	AlertTypeDraftApproval = "DRAFT_APPROVAL"
)

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

type Alert struct {
	ID               int64  `gorm:"primaryKey"`
	UserID           int64  `gorm:"not null;index"`
	ContextID        *int64 `gorm:"index"`
	ProjectID        int64  `gorm:"not null;index"`
	Title            string `gorm:"not null"`
	Description      string
	Type             string         `gorm:"not null"`
	Severity         string         `gorm:"not null;default:info"`
	IsResolved       bool           `gorm:"not null;default:false"`
	SuggestedActions pq.StringArray `gorm:"type:text[]"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	User    User    `gorm:"foreignKey:UserID"`
	Project Project `gorm:"foreignKey:ProjectID"`
}

package model

import (
	"time"
)

type User struct {
	ID             int64  `gorm:"primaryKey"`
	GHID           string `gorm:"column:gh_id;uniqueIndex"`
	GHUsername     string `gorm:"column:gh_username;index"`
	GHAccessToken  string `gorm:"column:gh_access_token"`
	TelegramChatID string `gorm:"column:telegram_chat_id"`
	DisplayName    string
	Email          string    `gorm:"index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type UserRepository struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewUserRepository(db *gorm.DB, ids *snowflake.Generator) *UserRepository {
	return &UserRepository{db: db, ids: ids}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == 0 {
		user.ID = r.ids.Next()
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByGHUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("gh_username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate resolves a user through a three-way cascade (GitHub id, then
// username, then email) and inserts a new row on a full miss. An existing
// user's access token is refreshed in place when a new one is supplied.
func (r *UserRepository) GetOrCreate(ctx context.Context, candidate *model.User) (*model.User, error) {
	var found model.User

	lookups := []struct {
		query string
		value string
	}{
		{"gh_id = ?", candidate.GHID},
		{"gh_username = ?", candidate.GHUsername},
		{"email = ?", candidate.Email},
	}

	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		err := r.db.WithContext(ctx).Where(l.query, l.value).First(&found).Error
		if err == nil {
			if candidate.GHAccessToken != "" && candidate.GHAccessToken != found.GHAccessToken {
				found.GHAccessToken = candidate.GHAccessToken
				if err := r.db.WithContext(ctx).Model(&found).
					Update("gh_access_token", candidate.GHAccessToken).Error; err != nil {
					return nil, err
				}
			}
			return &found, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if candidate.ID == 0 {
		candidate.ID = r.ids.Next()
	}
	if err := r.db.WithContext(ctx).Create(candidate).Error; err != nil {
		return nil, err
	}
	return candidate, nil
}

// LinkTelegram stores the chat id a user pairs through the bot.
func (r *UserRepository) LinkTelegram(ctx context.Context, userID int64, chatID string) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("telegram_chat_id", chatID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

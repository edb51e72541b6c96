package repository

import (
	"context"

	"gorm.io/gorm"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type ActivityRepository struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewActivityRepository(db *gorm.DB, ids *snowflake.Generator) *ActivityRepository {
	return &ActivityRepository{db: db, ids: ids}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	if activity.ID == 0 {
		activity.ID = r.ids.Next()
	}
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *ActivityRepository) GetByProjectID(ctx context.Context, projectID int64, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	var activities []model.Activity
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

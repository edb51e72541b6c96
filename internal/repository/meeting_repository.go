package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type MeetingRepository struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewMeetingRepository(db *gorm.DB, ids *snowflake.Generator) *MeetingRepository {
	return &MeetingRepository{db: db, ids: ids}
}

func (r *MeetingRepository) Create(ctx context.Context, meeting *model.Meeting) error {
	if meeting.ID == 0 {
		meeting.ID = r.ids.Next()
	}
	return r.db.WithContext(ctx).Create(meeting).Error
}

func (r *MeetingRepository) GetByID(ctx context.Context, id int64) (*model.Meeting, error) {
	var meeting model.Meeting
	err := r.db.WithContext(ctx).First(&meeting, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *MeetingRepository) GetByProjectID(ctx context.Context, projectID int64) ([]model.Meeting, error) {
	var meetings []model.Meeting
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&meetings).Error
	return meetings, err
}

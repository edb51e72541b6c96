package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type AlertRepository struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewAlertRepository(db *gorm.DB, ids *snowflake.Generator) *AlertRepository {
	return &AlertRepository{db: db, ids: ids}
}

func (r *AlertRepository) Create(ctx context.Context, alert *model.Alert) error {
	if alert.ID == 0 {
		alert.ID = r.ids.Next()
	}
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*model.Alert, error) {
	var alert model.Alert
	err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *AlertRepository) GetByUserID(ctx context.Context, userID int64, unresolvedOnly bool) ([]model.Alert, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unresolvedOnly {
		q = q.Where("is_resolved = ?", false)
	}
	var alerts []model.Alert
	err := q.Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

// Resolve marks an alert resolved exactly once. The row lock guards against
// two callers resolving (and acting on) the same alert concurrently.
func (r *AlertRepository) Resolve(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var alert model.Alert
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&alert, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAlertNotFound
		}
		if err != nil {
			return err
		}
		if alert.IsResolved {
			return ErrAlertResolved
		}
		return tx.Model(&model.Alert{}).
			Where("id = ?", id).
			Update("is_resolved", true).Error
	})
}

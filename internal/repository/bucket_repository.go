package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type BucketRepository struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewBucketRepository(db *gorm.DB, ids *snowflake.Generator) *BucketRepository {
	return &BucketRepository{db: db, ids: ids}
}

func (r *BucketRepository) Create(ctx context.Context, bucket *model.Bucket) error {
	if bucket.ID == 0 {
		bucket.ID = r.ids.Next()
	}
	return r.db.WithContext(ctx).Create(bucket).Error
}

func (r *BucketRepository) GetByID(ctx context.Context, id int64) (*model.Bucket, error) {
	var bucket model.Bucket
	err := r.db.WithContext(ctx).First(&bucket, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBucketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (r *BucketRepository) GetByProjectID(ctx context.Context, projectID int64) ([]model.Bucket, error) {
	var buckets []model.Bucket
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("order_idx").Find(&buckets).Error
	return buckets, err
}

// FindByState returns the project's canonical bucket for a lifecycle state.
// The schema does not enforce one bucket per (project, state); the lowest
// order_idx wins so every caller picks the same row.
func (r *BucketRepository) FindByState(ctx context.Context, projectID int64, state string) (*model.Bucket, error) {
	var bucket model.Bucket
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND state = ?", projectID, state).
		Order("order_idx").
		First(&bucket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

// ListByState returns all buckets in a state across every project.
func (r *BucketRepository) ListByState(ctx context.Context, state string) ([]model.Bucket, error) {
	var buckets []model.Bucket
	err := r.db.WithContext(ctx).Where("state = ?", state).Find(&buckets).Error
	return buckets, err
}

func (r *BucketRepository) Update(ctx context.Context, bucket *model.Bucket) error {
	return r.db.WithContext(ctx).Save(bucket).Error
}

// Delete removes a bucket; refused while the bucket still holds tasks.
func (r *BucketRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).Where("bucket_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrBucketNotEmpty
		}

		result := tx.Delete(&model.Bucket{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBucketNotFound
		}
		return nil
	})
}

// Reorder densely reassigns order_idx for a project's buckets. Rows are first
// parked on negative indexes so the unique ordering never collides mid-update.
func (r *BucketRepository) Reorder(ctx context.Context, projectID int64, orderedIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			if err := tx.Model(&model.Bucket{}).
				Where("id = ? AND project_id = ?", id, projectID).
				Update("order_idx", -(i + 1)).Error; err != nil {
				return err
			}
		}
		for i, id := range orderedIDs {
			if err := tx.Model(&model.Bucket{}).
				Where("id = ? AND project_id = ?", id, projectID).
				Update("order_idx", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BucketRepository) MaxOrderIdx(ctx context.Context, projectID int64) (int, error) {
	var max struct {
		Max int
	}
	err := r.db.WithContext(ctx).Model(&model.Bucket{}).
		Select("COALESCE(MAX(order_idx), -1) as max").
		Where("project_id = ?", projectID).
		Scan(&max).Error
	return max.Max, err
}

package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type TaskRepository struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewTaskRepository(db *gorm.DB, ids *snowflake.Generator) *TaskRepository {
	return &TaskRepository{db: db, ids: ids}
}

// Create adds a new task, appending it to the tail of its bucket when no
// explicit order_idx is set.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.ID == 0 {
		task.ID = r.ids.Next()
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) GetByBucketID(ctx context.Context, bucketID int64) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).Where("bucket_id = ?", bucketID).Order("order_idx").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) GetByProjectID(ctx context.Context, projectID int64) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("order_idx").Find(&tasks).Error
	return tasks, err
}

// FindByBranch matches a task by exact branch name equality within a project.
func (r *TaskRepository) FindByBranch(ctx context.Context, projectID int64, branch string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND branch_name = ?", projectID, branch).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).Save(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// MoveToBucket sets the task's bucket and bumps last_activity_at. Setting the
// same bucket twice is harmless, which keeps webhook redelivery safe.
func (r *TaskRepository) MoveToBucket(ctx context.Context, taskID, bucketID int64) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"bucket_id":        bucketID,
			"last_activity_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// SetBranch persists a freshly created branch name and bumps activity.
// It only writes when branch_name is still empty.
func (r *TaskRepository) SetBranch(ctx context.Context, taskID int64, branch string) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND (branch_name IS NULL OR branch_name = '')", taskID).
		Updates(map[string]interface{}{
			"branch_name":      branch,
			"last_activity_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) SetSuggestedAssignee(ctx context.Context, taskID, memberUserID int64) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Update("suggested_assignee_id", memberUserID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// FindStagnant returns tasks sitting in in-progress buckets with no recorded
// activity since the threshold and no pending reallocation suggestion.
func (r *TaskRepository) FindStagnant(ctx context.Context, bucketIDs []int64, threshold time.Time) ([]model.Task, error) {
	if len(bucketIDs) == 0 {
		return nil, nil
	}
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("bucket_id IN ?", bucketIDs).
		Where("last_activity_at < ?", threshold).
		Where("suggested_assignee_id IS NULL").
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) MaxOrderIdx(ctx context.Context, bucketID int64) (int, error) {
	var max struct {
		Max int
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("COALESCE(MAX(order_idx), -1) as max").
		Where("bucket_id = ?", bucketID).
		Scan(&max).Error
	return max.Max, err
}

// Reorder densely reassigns order_idx within a bucket using a two-phase
// negative-offset pass so the per-bucket ordering never collides mid-update.
func (r *TaskRepository) Reorder(ctx context.Context, bucketID int64, orderedIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			if err := tx.Model(&model.Task{}).
				Where("id = ? AND bucket_id = ?", id, bucketID).
				Update("order_idx", -(i + 1)).Error; err != nil {
				return err
			}
		}
		for i, id := range orderedIDs {
			if err := tx.Model(&model.Task{}).
				Where("id = ? AND bucket_id = ?", id, bucketID).
				Update("order_idx", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TaskDraft is one approved line of a meeting's proposed batch.
type TaskDraft struct {
	Title       string
	Description string
	Type        string
	Weight      int
	AssigneeID  *int64
}

// ConfirmBatch commits a human-approved batch of proposed tasks. Inside one
// transaction it locks the alert row, rejects an already-resolved alert,
// inserts the tasks at the tail of the project's first bucket with status
// DRAFT, and marks the alert resolved. Concurrent double-submission of the
// same alert yields ErrAlertResolved for the loser.
func (r *TaskRepository) ConfirmBatch(ctx context.Context, alertID, projectID int64, drafts []TaskDraft) (int, error) {
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var alert model.Alert
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&alert, "id = ?", alertID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAlertNotFound
		}
		if err != nil {
			return err
		}
		if alert.IsResolved {
			return ErrAlertResolved
		}

		var bucket model.Bucket
		err = tx.Where("project_id = ?", projectID).Order("order_idx").First(&bucket).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBucketNotFound
		}
		if err != nil {
			return err
		}

		var max struct {
			Max int
		}
		if err := tx.Model(&model.Task{}).
			Select("COALESCE(MAX(order_idx), -1) as max").
			Where("bucket_id = ?", bucket.ID).
			Scan(&max).Error; err != nil {
			return err
		}

		for i, d := range drafts {
			task := model.Task{
				ID:             r.ids.Next(),
				ProjectID:      projectID,
				BucketID:       bucket.ID,
				LeadAssigneeID: d.AssigneeID,
				Title:          d.Title,
				Description:    d.Description,
				Type:           d.Type,
				Weight:         d.Weight,
				Status:         model.TaskStatusDraft,
				OrderIdx:       max.Max + 1 + i,
			}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&model.Alert{}).
			Where("id = ?", alertID).
			Update("is_resolved", true).Error; err != nil {
			return err
		}

		inserted = len(drafts)
		return nil
	})
	return inserted, err
}

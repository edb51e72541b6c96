package service

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

// Score deltas per task weight unit.
const (
	completionScorePerWeight = 1.0
	reviewScorePerWeight     = 0.2
)

// KPI applies score deltas to project members. Every mutation runs inside a
// single transaction, and a ScoreEvent row keyed on the webhook delivery id
// records who was credited how much before any delta is applied: a
// redelivered event trips the unique constraint and the whole transaction
// unwinds, so a delta can be credited at most once.
type KPI struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewKPI(db *gorm.DB, ids *snowflake.Generator) *KPI {
	return &KPI{db: db, ids: ids}
}

// errScoreSkipped aborts the scoring transaction without surfacing an error:
// the event was a duplicate or had nobody to credit.
var errScoreSkipped = errors.New("score application skipped")

// ApplyCompletionScore moves the task to the project's COMPLETED bucket and
// credits the lead assignee weight*1.0, all-or-nothing.
func (k *KPI) ApplyCompletionScore(ctx context.Context, taskID int64, deliveryID string) error {
	err := k.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return err
		}

		var delta float64
		if task.LeadAssigneeID != nil {
			delta = float64(task.Weight) * completionScorePerWeight
		}
		if err := k.recordScoreEvent(tx, taskID, model.ScoreEventCompletion, deliveryID, task.LeadAssigneeID, delta); err != nil {
			return err
		}

		var bucket model.Bucket
		err := tx.Where("project_id = ? AND state = ?", task.ProjectID, model.BucketStateCompleted).
			Order("order_idx").
			First(&bucket).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			if err := tx.Model(&model.Task{}).
				Where("id = ?", task.ID).
				Updates(map[string]interface{}{
					"bucket_id":        bucket.ID,
					"last_activity_at": gorm.Expr("NOW()"),
				}).Error; err != nil {
				return err
			}
		}

		if task.LeadAssigneeID == nil {
			log.WithField("task", taskID).Info("completed task has no lead assignee, no score credited")
			return nil
		}
		return k.creditMember(tx, *task.LeadAssigneeID, task.ProjectID, delta)
	})

	if errors.Is(err, errScoreSkipped) {
		return nil
	}
	return err
}

// ApplyReviewScore credits the reviewer weight*0.2 for an approved review.
// Self-reviews and unknown reviewers are no-ops.
func (k *KPI) ApplyReviewScore(ctx context.Context, taskID int64, reviewerLogin, authorLogin, deliveryID string) error {
	if reviewerLogin == "" || reviewerLogin == authorLogin {
		log.WithFields(log.Fields{"task": taskID, "reviewer": reviewerLogin}).
			Debug("self-review or missing reviewer, no score credited")
		return nil
	}

	err := k.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reviewer model.User
		err := tx.Where("gh_username = ?", reviewerLogin).First(&reviewer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithField("reviewer", reviewerLogin).Info("reviewer not resolvable to a user, no score credited")
			return errScoreSkipped
		}
		if err != nil {
			return err
		}

		var task model.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return err
		}

		delta := float64(task.Weight) * reviewScorePerWeight
		if err := k.recordScoreEvent(tx, taskID, model.ScoreEventReview, deliveryID, &reviewer.ID, delta); err != nil {
			return err
		}
		return k.creditMember(tx, reviewer.ID, task.ProjectID, delta)
	})

	if errors.Is(err, errScoreSkipped) {
		return nil
	}
	return err
}

func (k *KPI) recordScoreEvent(tx *gorm.DB, taskID int64, eventType, deliveryID string, memberID *int64, delta float64) error {
	event := model.ScoreEvent{
		ID:         k.ids.Next(),
		TaskID:     taskID,
		EventType:  eventType,
		DeliveryID: deliveryID,
		MemberID:   memberID,
		Delta:      delta,
	}
	err := tx.Create(&event).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		log.WithFields(log.Fields{"task": taskID, "delivery": deliveryID, "type": eventType}).
			Info("score already applied for this delivery, skipping")
		return errScoreSkipped
	}
	return err
}

// creditMember applies an atomic += to the member's kpi_score; a plain
// read-modify-write here would lose updates under concurrent PR events.
func (k *KPI) creditMember(tx *gorm.DB, userID, projectID int64, delta float64) error {
	result := tx.Model(&model.ProjectMember{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Update("kpi_score", gorm.Expr("kpi_score + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		log.WithFields(log.Fields{"user": userID, "project": projectID}).
			Info("scored user is not a project member, no score credited")
		return errScoreSkipped
	}
	return nil
}

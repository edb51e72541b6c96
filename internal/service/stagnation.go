package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type radarBucketStore interface {
	ListByState(ctx context.Context, state string) ([]model.Bucket, error)
}

type radarTaskStore interface {
	FindStagnant(ctx context.Context, bucketIDs []int64, threshold time.Time) ([]model.Task, error)
	SetSuggestedAssignee(ctx context.Context, taskID, memberUserID int64) error
}

type radarMemberStore interface {
	ListByRoles(ctx context.Context, projectID int64, roles []string) ([]model.ProjectMember, error)
	FindManager(ctx context.Context, projectID int64) (*model.ProjectMember, error)
}

type radarAlertStore interface {
	Create(ctx context.Context, alert *model.Alert) error
}

type radarUserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type chatNotifier interface {
	Notify(chatID, text string) error
}

// Radar periodically flags in-progress tasks with no activity past the
// threshold, nudges the assignee, and proposes a reallocation to the
// project's manager.
type Radar struct {
	buckets  radarBucketStore
	tasks    radarTaskStore
	members  radarMemberStore
	alerts   radarAlertStore
	users    radarUserStore
	notifier chatNotifier
	ids      *snowflake.Generator

	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
}

func NewRadar(
	buckets radarBucketStore,
	tasks radarTaskStore,
	members radarMemberStore,
	alerts radarAlertStore,
	users radarUserStore,
	notifier chatNotifier,
	ids *snowflake.Generator,
	interval, threshold time.Duration,
) *Radar {
	return &Radar{
		buckets:   buckets,
		tasks:     tasks,
		members:   members,
		alerts:    alerts,
		users:     users,
		notifier:  notifier,
		ids:       ids,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *Radar) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one stagnation pass over every in-progress bucket. A task
// is stagnant when it sat in an ONGOING bucket past the threshold with no
// pending reallocation suggestion.
func (r *Radar) Sweep(ctx context.Context) {
	buckets, err := r.buckets.ListByState(ctx, model.BucketStateOngoing)
	if err != nil {
		log.WithError(err).Error("stagnation sweep bucket listing failed")
		return
	}
	if len(buckets) == 0 {
		return
	}

	bucketIDs := make([]int64, 0, len(buckets))
	bucketProject := make(map[int64]int64, len(buckets))
	for _, b := range buckets {
		bucketIDs = append(bucketIDs, b.ID)
		bucketProject[b.ID] = b.ProjectID
	}

	cutoff := r.now().UTC().Add(-r.threshold)
	tasks, err := r.tasks.FindStagnant(ctx, bucketIDs, cutoff)
	if err != nil {
		log.WithError(err).Error("stagnation query failed")
		return
	}

	for _, task := range tasks {
		r.handleStagnant(ctx, task, bucketProject[task.BucketID])
	}
}

func (r *Radar) handleStagnant(ctx context.Context, task model.Task, projectID int64) {
	logCtx := log.WithFields(log.Fields{"task": task.ID, "project": projectID})
	logCtx.Info("stagnant task detected")

	r.nudgeAssignee(ctx, task, logCtx)

	candidate := r.pickCandidate(ctx, projectID, task.LeadAssigneeID, logCtx)
	if candidate == nil {
		return
	}

	if err := r.tasks.SetSuggestedAssignee(ctx, task.ID, candidate.UserID); err != nil {
		logCtx.WithError(err).Error("suggestion persist failed")
		return
	}

	r.alertManager(ctx, task, projectID, candidate, logCtx)
}

// nudgeAssignee pings the current assignee over chat when a channel is
// linked. Failures are logged only.
func (r *Radar) nudgeAssignee(ctx context.Context, task model.Task, logCtx *log.Entry) {
	if task.LeadAssigneeID == nil {
		return
	}
	user, err := r.users.GetByID(ctx, *task.LeadAssigneeID)
	if err != nil {
		logCtx.WithError(err).Warn("assignee lookup failed")
		return
	}
	if user.TelegramChatID == "" {
		return
	}
	msg := fmt.Sprintf("⏰ Task *%s* has had no activity for a while. Need a hand or should it be reassigned?", task.Title)
	if err := r.notifier.Notify(user.TelegramChatID, msg); err != nil {
		logCtx.WithError(err).Warn("assignee nudge failed")
	}
}

// pickCandidate returns the least loaded programmer or designer on the
// project, excluding the current assignee. Nil when nobody else qualifies.
func (r *Radar) pickCandidate(ctx context.Context, projectID int64, excludeUserID *int64, logCtx *log.Entry) *model.ProjectMember {
	members, err := r.members.ListByRoles(ctx, projectID, []string{model.RoleProgrammer, model.RoleDesigner})
	if err != nil {
		logCtx.WithError(err).Error("member listing failed")
		return nil
	}

	var best *model.ProjectMember
	for i := range members {
		m := &members[i]
		if excludeUserID != nil && m.UserID == *excludeUserID {
			continue
		}
		if best == nil || m.CurrentLoad < best.CurrentLoad {
			best = m
		}
	}
	return best
}

func (r *Radar) alertManager(ctx context.Context, task model.Task, projectID int64, candidate *model.ProjectMember, logCtx *log.Entry) {
	manager, err := r.members.FindManager(ctx, projectID)
	if err != nil {
		logCtx.WithError(err).Error("manager lookup failed")
		return
	}
	if manager == nil {
		logCtx.Warn("project has no manager, suggestion recorded without alert")
		return
	}

	candidateName := fmt.Sprintf("user %d", candidate.UserID)
	if user, err := r.users.GetByID(ctx, candidate.UserID); err == nil && user.DisplayName != "" {
		candidateName = user.DisplayName
	}

	taskID := task.ID
	alert := &model.Alert{
		ID:        r.ids.Next(),
		UserID:    manager.UserID,
		ContextID: &taskID,
		ProjectID: projectID,
		Title:     fmt.Sprintf("Task \"%s\" is stagnating", task.Title),
		Description: fmt.Sprintf(
			"No activity past the stagnation threshold. Suggested reassignment: %s (current load %d).",
			candidateName, candidate.CurrentLoad),
		Type:     model.AlertTypeStagnation,
		Severity: model.SeverityWarning,
		SuggestedActions: []string{
			fmt.Sprintf("Reassign to %s", candidateName),
			"Ping the current assignee",
			"Split the task",
		},
	}
	if err := r.alerts.Create(ctx, alert); err != nil {
		logCtx.WithError(err).Error("stagnation alert creation failed")
	}
}

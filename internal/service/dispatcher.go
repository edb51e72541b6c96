package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"equilibra/internal/model"
)

// Stores the dispatcher reads and mutates. Satisfied by the repository types.
type dispatchProjectStore interface {
	FindByRepoURL(ctx context.Context, repoURL string) (*model.Project, error)
}

type dispatchTaskStore interface {
	FindByBranch(ctx context.Context, projectID int64, branch string) (*model.Task, error)
	MoveToBucket(ctx context.Context, taskID, bucketID int64) error
}

type dispatchBucketStore interface {
	FindByState(ctx context.Context, projectID int64, state string) (*model.Bucket, error)
}

type dispatchActivityStore interface {
	Create(ctx context.Context, activity *model.Activity) error
}

type prEvaluator interface {
	Evaluate(ctx context.Context, repoFullName string, prNumber int, installationID int64)
}

type taskSyncer interface {
	SyncFromRepository(ctx context.Context, repoFullName, repoURL string, installationID int64) error
}

type scorer interface {
	ApplyCompletionScore(ctx context.Context, taskID int64, deliveryID string) error
	ApplyReviewScore(ctx context.Context, taskID int64, reviewerLogin, authorLogin, deliveryID string) error
}

// Ack is the immediate webhook acknowledgment, returned before any long work
// runs.
type Ack struct {
	Handled bool   `json:"handled"`
	Event   string `json:"event"`
	Action  string `json:"action,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Dispatcher is the webhook state machine. It routes a verified, decoded
// event to the evaluation worker, the task synchronizer, the KPI engine and
// the bucket mover, then returns; all downstream work runs detached so the
// webhook response stays inside the sender's timeout budget. Handlers must
// stay re-runnable: the sender redelivers on timeout.
type Dispatcher struct {
	projects   dispatchProjectStore
	tasks      dispatchTaskStore
	buckets    dispatchBucketStore
	activities dispatchActivityStore
	evaluator  prEvaluator
	syncer     taskSyncer
	kpi        scorer

	// detach runs fn outside the request lifecycle; replaced in tests to run
	// inline.
	detach func(fn func(ctx context.Context))
}

func NewDispatcher(
	projects dispatchProjectStore,
	tasks dispatchTaskStore,
	buckets dispatchBucketStore,
	activities dispatchActivityStore,
	evaluator prEvaluator,
	syncer taskSyncer,
	kpi scorer,
) *Dispatcher {
	return &Dispatcher{
		projects:   projects,
		tasks:      tasks,
		buckets:    buckets,
		activities: activities,
		evaluator:  evaluator,
		syncer:     syncer,
		kpi:        kpi,
		detach:     detachWithTimeout(2 * time.Minute),
	}
}

func detachWithTimeout(d time.Duration) func(fn func(ctx context.Context)) {
	return func(fn func(ctx context.Context)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), d)
			defer cancel()
			fn(ctx)
		}()
	}
}

// Dispatch routes one verified webhook event. deliveryID is the sender's
// unique delivery identifier, used as the KPI idempotency key.
func (d *Dispatcher) Dispatch(event, deliveryID string, body []byte) (*Ack, error) {
	switch event {
	case "pull_request":
		return d.dispatchPullRequest(deliveryID, body)
	case "pull_request_review":
		return d.dispatchReview(deliveryID, body)
	default:
		return &Ack{Handled: false, Event: event, Status: "ignored_event"}, nil
	}
}

func (d *Dispatcher) dispatchPullRequest(deliveryID string, body []byte) (*Ack, error) {
	ev, err := ParsePullRequestEvent(body)
	if err != nil {
		return nil, err
	}

	logCtx := log.WithFields(log.Fields{
		"event":  "pull_request",
		"action": ev.Action,
		"repo":   ev.RepoFullName,
		"pr":     ev.Number,
	})

	switch ev.Action {
	case "opened", "reopened":
		d.detach(func(ctx context.Context) {
			d.evaluator.Evaluate(ctx, ev.RepoFullName, ev.Number, ev.InstallationID)
		})
		d.detach(func(ctx context.Context) {
			d.syncBoard(ctx, ev)
			d.moveTaskForBranch(ctx, ev.RepoURL, ev.HeadRef, model.BucketStateOnReview, ev.Action)
		})
		logCtx.Info("queued evaluation and board sync")
		return &Ack{Handled: true, Event: "pull_request", Action: ev.Action, Status: "queued"}, nil

	case "synchronize":
		d.detach(func(ctx context.Context) {
			d.evaluator.Evaluate(ctx, ev.RepoFullName, ev.Number, ev.InstallationID)
		})
		d.detach(func(ctx context.Context) {
			d.syncBoard(ctx, ev)
		})
		logCtx.Info("queued re-evaluation")
		return &Ack{Handled: true, Event: "pull_request", Action: ev.Action, Status: "queued"}, nil

	case "closed":
		if ev.Merged {
			d.detach(func(ctx context.Context) {
				d.syncBoard(ctx, ev)
				d.completeTaskForBranch(ctx, ev, deliveryID)
			})
			logCtx.Info("queued completion scoring")
		} else {
			d.detach(func(ctx context.Context) {
				d.syncBoard(ctx, ev)
				d.moveTaskForBranch(ctx, ev.RepoURL, ev.HeadRef, model.BucketStateOngoing, ev.Action)
			})
			logCtx.Info("queued move back to in-progress")
		}
		return &Ack{Handled: true, Event: "pull_request", Action: ev.Action, Status: "queued"}, nil

	default:
		return &Ack{Handled: true, Event: "pull_request", Action: ev.Action, Status: "ignored_action"}, nil
	}
}

func (d *Dispatcher) dispatchReview(deliveryID string, body []byte) (*Ack, error) {
	ev, err := ParseReviewEvent(body)
	if err != nil {
		return nil, err
	}

	if ev.Action != "submitted" {
		return &Ack{Handled: true, Event: "pull_request_review", Action: ev.Action, Status: "ignored_action"}, nil
	}

	switch ev.State {
	case "approved":
		d.detach(func(ctx context.Context) {
			task := d.taskForBranch(ctx, ev.RepoURL, ev.HeadRef)
			if task == nil {
				return
			}
			if err := d.kpi.ApplyReviewScore(ctx, task.ID, ev.ReviewerLogin, ev.AuthorLogin, deliveryID); err != nil {
				log.WithError(err).WithField("task", task.ID).Error("review scoring failed")
			}
		})
		return &Ack{Handled: true, Event: "pull_request_review", Action: ev.Action, Status: "queued"}, nil

	case "changes_requested":
		d.detach(func(ctx context.Context) {
			d.moveTaskForBranch(ctx, ev.RepoURL, ev.HeadRef, model.BucketStateOngoing, ev.State)
		})
		return &Ack{Handled: true, Event: "pull_request_review", Action: ev.Action, Status: "queued"}, nil

	default:
		return &Ack{Handled: true, Event: "pull_request_review", Action: ev.Action, Status: "ignored_state"}, nil
	}
}

func (d *Dispatcher) syncBoard(ctx context.Context, ev *PullRequestEvent) {
	if err := d.syncer.SyncFromRepository(ctx, ev.RepoFullName, ev.RepoURL, ev.InstallationID); err != nil {
		log.WithError(err).WithField("repo", ev.RepoFullName).Error("checklist sync failed")
	}
}

// taskForBranch resolves the board task bound to a PR head ref by exact
// branch equality; nil when either the project or the task is unknown.
func (d *Dispatcher) taskForBranch(ctx context.Context, repoURL, branch string) *model.Task {
	if repoURL == "" || branch == "" {
		return nil
	}

	project, err := d.projects.FindByRepoURL(ctx, repoURL)
	if err != nil {
		log.WithError(err).WithField("repo_url", repoURL).Error("project lookup failed")
		return nil
	}
	if project == nil {
		log.WithField("repo_url", repoURL).Debug("no project for repository")
		return nil
	}

	task, err := d.tasks.FindByBranch(ctx, project.ID, branch)
	if err != nil {
		log.WithError(err).WithField("branch", branch).Error("task lookup failed")
		return nil
	}
	if task == nil {
		log.WithField("branch", branch).Debug("no task bound to branch")
	}
	return task
}

func (d *Dispatcher) moveTaskForBranch(ctx context.Context, repoURL, branch, state, action string) {
	task := d.taskForBranch(ctx, repoURL, branch)
	if task == nil {
		return
	}

	bucket, err := d.buckets.FindByState(ctx, task.ProjectID, state)
	if err != nil {
		log.WithError(err).WithField("state", state).Error("bucket lookup failed")
		return
	}
	if bucket == nil {
		log.WithFields(log.Fields{"project": task.ProjectID, "state": state}).
			Info("project has no bucket for state, skipping move")
		return
	}

	if err := d.tasks.MoveToBucket(ctx, task.ID, bucket.ID); err != nil {
		log.WithError(err).WithField("task", task.ID).Error("bucket move failed")
		return
	}
	d.recordActivity(ctx, task, action, branch)

	log.WithFields(log.Fields{"task": task.ID, "bucket": bucket.ID, "state": state}).
		Info("task moved")
}

func (d *Dispatcher) completeTaskForBranch(ctx context.Context, ev *PullRequestEvent, deliveryID string) {
	task := d.taskForBranch(ctx, ev.RepoURL, ev.HeadRef)
	if task == nil {
		return
	}

	if err := d.kpi.ApplyCompletionScore(ctx, task.ID, deliveryID); err != nil {
		log.WithError(err).WithField("task", task.ID).Error("completion scoring failed")
		return
	}
	d.recordActivity(ctx, task, "merged", ev.HeadRef)
}

func (d *Dispatcher) recordActivity(ctx context.Context, task *model.Task, action, branch string) {
	activity := &model.Activity{
		ProjectID: task.ProjectID,
		TaskID:    &task.ID,
		Action:    action,
		Target:    "PR for " + branch,
	}
	if err := d.activities.Create(ctx, activity); err != nil {
		log.WithError(err).WithField("task", task.ID).Warn("activity record failed")
	}
}

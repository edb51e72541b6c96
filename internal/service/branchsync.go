package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"equilibra/internal/github"
	"equilibra/internal/model"
)

type branchTaskStore interface {
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	SetBranch(ctx context.Context, taskID int64, branch string) error
}

type branchBucketStore interface {
	GetByID(ctx context.Context, id int64) (*model.Bucket, error)
}

type branchProjectStore interface {
	GetByID(ctx context.Context, id int64) (*model.Project, error)
}

type branchUserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type gitClient interface {
	CreateBranch(ctx context.Context, token, repoFullName, branchName string) error
	InstallationToken(ctx context.Context, installationID int64) (string, error)
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases text and collapses non-alphanumeric runs to single
// hyphens, truncated to 40 characters for branch-name sanity.
func Slugify(text string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(text), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	return slug
}

// BranchName derives the deterministic branch for a task.
func BranchName(taskID int64, title string) string {
	return fmt.Sprintf("feature/EQ-%d-%s", taskID, Slugify(title))
}

// BranchSync creates a version-control branch exactly once per task when the
// task lands in an in-progress bucket.
type BranchSync struct {
	tasks    branchTaskStore
	buckets  branchBucketStore
	projects branchProjectStore
	users    branchUserStore
	git      gitClient

	// installationID is the app installation used when the assignee has no
	// personal access token stored.
	installationID int64
}

func NewBranchSync(
	tasks branchTaskStore,
	buckets branchBucketStore,
	projects branchProjectStore,
	users branchUserStore,
	git gitClient,
	installationID int64,
) *BranchSync {
	return &BranchSync{
		tasks:          tasks,
		buckets:        buckets,
		projects:       projects,
		users:          users,
		git:            git,
		installationID: installationID,
	}
}

// EnsureBranch creates the task's branch if, and only if, the destination
// bucket is ONGOING, the task is CODE-typed, and no branch exists yet.
// Precondition misses and provider failures are logged, never surfaced: task
// state must not be corrupted by a failed side effect.
func (s *BranchSync) EnsureBranch(ctx context.Context, taskID, newBucketID int64) {
	logCtx := log.WithFields(log.Fields{"task": taskID, "bucket": newBucketID})

	bucket, err := s.buckets.GetByID(ctx, newBucketID)
	if err != nil {
		logCtx.WithError(err).Error("bucket lookup failed")
		return
	}
	if bucket.State != model.BucketStateOngoing {
		return
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		logCtx.WithError(err).Error("task lookup failed")
		return
	}
	if task.Type != model.TaskTypeCode {
		return
	}
	if task.BranchName != "" {
		return
	}

	project, err := s.projects.GetByID(ctx, task.ProjectID)
	if err != nil {
		logCtx.WithError(err).Error("project lookup failed")
		return
	}
	if len(project.GHRepoURL) == 0 {
		logCtx.Warn("project has no repository url, cannot create branch")
		return
	}

	repoFullName, err := github.ParseRepoFullName(project.GHRepoURL[0])
	if err != nil {
		logCtx.WithError(err).Warn("invalid repository url")
		return
	}

	token := s.resolveToken(ctx, task, logCtx)
	if token == "" {
		return
	}

	branch := BranchName(task.ID, task.Title)
	if err := s.git.CreateBranch(ctx, token, repoFullName, branch); err != nil {
		logCtx.WithError(err).WithField("branch", branch).Error("branch creation failed")
		return
	}

	// The provider call succeeded; a failure from here leaves a branch with
	// no bound task until the next webhook re-syncs. Accepted window.
	if err := s.tasks.SetBranch(ctx, task.ID, branch); err != nil {
		logCtx.WithError(err).WithField("branch", branch).Error("branch persisted remotely but not locally")
		return
	}

	logCtx.WithField("branch", branch).Info("branch created")
}

// resolveToken prefers the lead assignee's personal access token and falls
// back to the app installation token.
func (s *BranchSync) resolveToken(ctx context.Context, task *model.Task, logCtx *log.Entry) string {
	if task.LeadAssigneeID != nil {
		user, err := s.users.GetByID(ctx, *task.LeadAssigneeID)
		if err != nil {
			logCtx.WithError(err).Warn("assignee lookup failed, falling back to app auth")
		} else if user.GHAccessToken != "" {
			return user.GHAccessToken
		}
	}

	token, err := s.git.InstallationToken(ctx, s.installationID)
	if err != nil {
		logCtx.WithError(err).Error("no usable github credential for branch creation")
		return ""
	}
	return token
}

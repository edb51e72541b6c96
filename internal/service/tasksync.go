package service

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

const changesRoot = "openspec/changes"

type gitContents interface {
	ListDirectories(ctx context.Context, installationID int64, repoFullName, path string) ([]string, error)
	FileContent(ctx context.Context, installationID int64, repoFullName, path string) (string, error)
}

var checklistItem = regexp.MustCompile(`(?m)^\s*-\s*\[([ xX])\]\s+(.+?)\s*$`)

// ParseChecklist extracts the titles of markdown checkbox items. Checked and
// unchecked items are treated alike: once a line appears in a change file it
// stays a tracked task.
func ParseChecklist(markdown string) []string {
	matches := checklistItem.FindAllStringSubmatch(markdown, -1)
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		title := strings.TrimSpace(m[2])
		if title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}

// TaskSync mirrors repository change checklists onto the board as draft
// tasks. It writes projects, buckets and tasks in one transaction so a crash
// mid-sweep never leaves a half-imported repository.
type TaskSync struct {
	db  *gorm.DB
	ids *snowflake.Generator
	git gitContents
}

func NewTaskSync(db *gorm.DB, ids *snowflake.Generator, git gitContents) *TaskSync {
	return &TaskSync{db: db, ids: ids, git: git}
}

// SyncFromRepository sweeps openspec/changes/*/tasks.md in the given
// repository and imports every unseen checklist item as a weight-1 draft
// CODE task at the tail of the project's first bucket.
func (s *TaskSync) SyncFromRepository(ctx context.Context, repoFullName, repoURL string, installationID int64) error {
	changeDirs, err := s.git.ListDirectories(ctx, installationID, repoFullName, changesRoot)
	if err != nil {
		return errors.Wrap(err, "list change directories")
	}
	if len(changeDirs) == 0 {
		return nil
	}

	var titles []string
	for _, dir := range changeDirs {
		// dir is already repo-root-relative (openspec/changes/<name>).
		content, err := s.git.FileContent(ctx, installationID, repoFullName, path.Join(dir, "tasks.md"))
		if err != nil {
			return errors.Wrapf(err, "read %s/tasks.md", dir)
		}
		titles = append(titles, ParseChecklist(content)...)
	}
	if len(titles) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := s.ensureProject(tx, repoFullName, repoURL)
		if err != nil {
			return err
		}
		bucket, err := s.ensureBucket(tx, project.ID)
		if err != nil {
			return err
		}

		var nextOrder int
		row := tx.Model(&model.Task{}).
			Where("bucket_id = ?", bucket.ID).
			Select("COALESCE(MAX(order_idx), -1)")
		if err := row.Scan(&nextOrder).Error; err != nil {
			return err
		}
		nextOrder++

		imported := 0
		for _, title := range titles {
			var count int64
			// Unscoped: a deliberately deleted task must not resurrect on
			// the next webhook.
			if err := tx.Unscoped().Model(&model.Task{}).
				Where("project_id = ? AND title = ?", project.ID, title).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			task := &model.Task{
				ID:        s.ids.Next(),
				ProjectID: project.ID,
				BucketID:  bucket.ID,
				Title:     title,
				Type:      model.TaskTypeCode,
				Weight:    model.TaskWeightMin,
				OrderIdx:  nextOrder,
				Status:    model.TaskStatusDraft,
			}
			if err := tx.Create(task).Error; err != nil {
				return err
			}
			nextOrder++
			imported++
		}

		if imported > 0 {
			log.WithFields(log.Fields{"repo": repoFullName, "imported": imported}).Info("imported checklist tasks")
		}
		return nil
	})
}

// ensureProject returns the project bound to repoURL, creating a zero-config
// one on first contact so webhooks work before anyone touches the UI.
func (s *TaskSync) ensureProject(tx *gorm.DB, repoFullName, repoURL string) (*model.Project, error) {
	var project model.Project
	err := tx.Where("? = ANY(gh_repo_url)", repoURL).First(&project).Error
	if err == nil {
		return &project, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	project = model.Project{
		ID:        s.ids.Next(),
		Name:      repoFullName,
		GHRepoURL: []string{repoURL},
	}
	if err := tx.Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ensureBucket returns the project's lowest-ordered bucket, creating a locked
// draft bucket when the board is empty.
func (s *TaskSync) ensureBucket(tx *gorm.DB, projectID int64) (*model.Bucket, error) {
	var bucket model.Bucket
	err := tx.Where("project_id = ?", projectID).Order("order_idx ASC").First(&bucket).Error
	if err == nil {
		return &bucket, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	bucket = model.Bucket{
		ID:             s.ids.Next(),
		ProjectID:      projectID,
		Name:           "AI Drafts",
		State:          model.BucketStateDraft,
		IsSystemLocked: true,
		OrderIdx:       0,
	}
	if err := tx.Create(&bucket).Error; err != nil {
		return nil, err
	}
	return &bucket, nil
}

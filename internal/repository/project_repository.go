package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type ProjectRepository struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewProjectRepository(db *gorm.DB, ids *snowflake.Generator) *ProjectRepository {
	return &ProjectRepository{db: db, ids: ids}
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	if project.ID == 0 {
		project.ID = r.ids.Next()
	}
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) GetAll(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).Order("created_at").Find(&projects).Error
	return projects, err
}

// FindByRepoURL matches a project whose gh_repo_url array contains the URL.
func (r *ProjectRepository) FindByRepoURL(ctx context.Context, repoURL string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Where("? = ANY(gh_repo_url)", repoURL).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *model.Project) error {
	result := r.db.WithContext(ctx).Save(project)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Project{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"equilibra/internal/model"
	"equilibra/internal/snowflake"
)

type MemberRepository struct {
	db  *gorm.DB
	ids *snowflake.Generator
}

func NewMemberRepository(db *gorm.DB, ids *snowflake.Generator) *MemberRepository {
	return &MemberRepository{db: db, ids: ids}
}

func (r *MemberRepository) Create(ctx context.Context, member *model.ProjectMember) error {
	if member.ID == 0 {
		member.ID = r.ids.Next()
	}
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *MemberRepository) GetByProjectID(ctx context.Context, projectID int64) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&members).Error
	return members, err
}

func (r *MemberRepository) GetByUserAndProject(ctx context.Context, userID, projectID int64) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListByRoles returns a project's members holding any of the given roles.
func (r *MemberRepository) ListByRoles(ctx context.Context, projectID int64, roles []string) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND role IN ?", projectID, roles).
		Find(&members).Error
	return members, err
}

// FindManager returns the project's manager, or nil when none exists.
func (r *MemberRepository) FindManager(ctx context.Context, projectID int64) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND role = ?", projectID, model.RoleManager).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) Update(ctx context.Context, member *model.ProjectMember) error {
	result := r.db.WithContext(ctx).Save(member)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.ProjectMember{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

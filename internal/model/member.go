package model

// Project member roles
const (
	RoleProgrammer = "PROGRAMMER"
	RoleDesigner   = "DESIGNER"
	RoleManager    = "MANAGER"
)

// ProjectMember links a user to a project with a role and workload figures.
// KPIScore is only ever adjusted through atomic deltas, never overwritten.
type ProjectMember struct {
	ID          int64   `gorm:"primaryKey"`
	UserID      int64   `gorm:"not null;index;uniqueIndex:idx_member_user_project"`
	ProjectID   int64   `gorm:"not null;index;uniqueIndex:idx_member_user_project"`
	Role        string  `gorm:"not null"`
	KPIScore    float64 `gorm:"column:kpi_score;not null;default:0"`
	MaxCapacity int     `gorm:"not null;default:0"`
	CurrentLoad int     `gorm:"not null;default:0"`

	User    User    `gorm:"foreignKey:UserID"`
	Project Project `gorm:"foreignKey:ProjectID"`
}

func (ProjectMember) TableName() string {
	return "project_member"
}

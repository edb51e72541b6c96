package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"equilibra/internal/model"
	"equilibra/internal/repository"
)

type MemberHandler struct {
	members  *repository.MemberRepository
	users    *repository.UserRepository
	projects *repository.ProjectRepository
}

func NewMemberHandler(
	members *repository.MemberRepository,
	users *repository.UserRepository,
	projects *repository.ProjectRepository,
) *MemberHandler {
	return &MemberHandler{members: members, users: users, projects: projects}
}

type memberRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Role        string `json:"role" binding:"required,oneof=PROGRAMMER DESIGNER MANAGER"`
	MaxCapacity int    `json:"max_capacity" binding:"omitempty,min=0"`
}

type memberUpdateRequest struct {
	Role        string `json:"role" binding:"required,oneof=PROGRAMMER DESIGNER MANAGER"`
	MaxCapacity int    `json:"max_capacity" binding:"omitempty,min=0"`
	CurrentLoad *int   `json:"current_load" binding:"omitempty,min=0"`
}

func (h *MemberHandler) Add(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	userID, err := parseID(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if _, err := h.projects.GetByID(c.Request.Context(), projectID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	if _, err := h.users.GetByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	existing, err := h.members.GetByUserAndProject(c.Request.Context(), userID, projectID)
	if err != nil && !errors.Is(err, repository.ErrMemberNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
		return
	}

	member := &model.ProjectMember{
		UserID:      userID,
		ProjectID:   projectID,
		Role:        req.Role,
		MaxCapacity: req.MaxCapacity,
	}
	if err := h.members.Create(c.Request.Context(), member); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create failed"})
		return
	}

	c.JSON(http.StatusCreated, newMemberResponse(member))
}

func (h *MemberHandler) GetByProject(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	members, err := h.members.GetByProjectID(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for i := range members {
		resp = append(resp, newMemberResponse(&members[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MemberHandler) Update(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}
	userID, err := parseID(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req memberUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	member, err := h.members.GetByUserAndProject(c.Request.Context(), userID, projectID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	member.Role = req.Role
	member.MaxCapacity = req.MaxCapacity
	if req.CurrentLoad != nil {
		member.CurrentLoad = *req.CurrentLoad
	}
	if err := h.members.Update(c.Request.Context(), member); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		return
	}

	c.JSON(http.StatusOK, newMemberResponse(member))
}

func (h *MemberHandler) Remove(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}
	userID, err := parseID(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	member, err := h.members.GetByUserAndProject(c.Request.Context(), userID, projectID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	if err := h.members.Delete(c.Request.Context(), member.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"equilibra/internal/model"
	"equilibra/internal/repository"
)

type ProjectHandler struct {
	projects   *repository.ProjectRepository
	buckets    *repository.BucketRepository
	members    *repository.MemberRepository
	activities *repository.ActivityRepository
}

func NewProjectHandler(
	projects *repository.ProjectRepository,
	buckets *repository.BucketRepository,
	members *repository.MemberRepository,
	activities *repository.ActivityRepository,
) *ProjectHandler {
	return &ProjectHandler{
		projects:   projects,
		buckets:    buckets,
		members:    members,
		activities: activities,
	}
}

type projectRequest struct {
	Name        string   `json:"name" binding:"required,min=1"`
	Description string   `json:"description"`
	GHRepoURL   []string `json:"gh_repo_url"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	project := &model.Project{
		Name:        req.Name,
		Description: req.Description,
		GHRepoURL:   req.GHRepoURL,
	}
	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create failed"})
		return
	}

	c.JSON(http.StatusCreated, newProjectResponse(project))
}

func (h *ProjectHandler) GetAll(c *gin.Context) {
	projects, err := h.projects.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	resp := make([]projectResponse, 0, len(projects))
	for i := range projects {
		resp = append(resp, newProjectResponse(&projects[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(project))
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	project.Name = req.Name
	project.Description = req.Description
	project.GHRepoURL = req.GHRepoURL
	if err := h.projects.Update(c.Request.Context(), project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(project))
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetActivity returns the project's recent activity feed.
func (h *ProjectHandler) GetActivity(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = parseIntQuery(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
	}

	activities, err := h.activities.GetByProjectID(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	resp := make([]activityResponse, 0, len(activities))
	for i := range activities {
		resp = append(resp, newActivityResponse(&activities[i]))
	}
	c.JSON(http.StatusOK, resp)
}

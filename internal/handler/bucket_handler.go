package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"equilibra/internal/model"
	"equilibra/internal/repository"
)

type BucketHandler struct {
	buckets  *repository.BucketRepository
	projects *repository.ProjectRepository
	tasks    *repository.TaskRepository
}

func NewBucketHandler(
	buckets *repository.BucketRepository,
	projects *repository.ProjectRepository,
	tasks *repository.TaskRepository,
) *BucketHandler {
	return &BucketHandler{buckets: buckets, projects: projects, tasks: tasks}
}

type bucketRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	Name      string `json:"name" binding:"required,min=1"`
	State     string `json:"state" binding:"required,oneof=DRAFT ONGOING ON_REVIEW COMPLETED"`
}

type bucketUpdateRequest struct {
	Name  string `json:"name" binding:"required,min=1"`
	State string `json:"state" binding:"required,oneof=DRAFT ONGOING ON_REVIEW COMPLETED"`
}

type reorderRequest struct {
	OrderedIDs []string `json:"ordered_ids" binding:"required,min=1"`
}

func (h *BucketHandler) Create(c *gin.Context) {
	var req bucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	projectID, err := parseID(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
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

	maxIdx, err := h.buckets.MaxOrderIdx(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	bucket := &model.Bucket{
		ProjectID: projectID,
		Name:      req.Name,
		State:     req.State,
		OrderIdx:  maxIdx + 1,
	}
	if err := h.buckets.Create(c.Request.Context(), bucket); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create failed"})
		return
	}

	c.JSON(http.StatusCreated, newBucketResponse(bucket))
}

func (h *BucketHandler) GetByProject(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	buckets, err := h.buckets.GetByProjectID(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	resp := make([]bucketResponse, 0, len(buckets))
	for i := range buckets {
		resp = append(resp, newBucketResponse(&buckets[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BucketHandler) Update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bucket ID"})
		return
	}

	var req bucketUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	bucket, err := h.buckets.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrBucketNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bucket not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	if bucket.IsSystemLocked {
		c.JSON(http.StatusConflict, gin.H{"error": "Bucket is system-locked"})
		return
	}

	bucket.Name = req.Name
	bucket.State = req.State
	if err := h.buckets.Update(c.Request.Context(), bucket); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		return
	}

	c.JSON(http.StatusOK, newBucketResponse(bucket))
}

// Delete refuses to remove a bucket that still contains tasks.
func (h *BucketHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bucket ID"})
		return
	}

	bucket, err := h.buckets.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrBucketNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bucket not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	if bucket.IsSystemLocked {
		c.JSON(http.StatusConflict, gin.H{"error": "Bucket is system-locked"})
		return
	}

	if err := h.buckets.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrBucketNotEmpty):
			c.JSON(http.StatusConflict, gin.H{"error": "Bucket still contains tasks"})
		case errors.Is(err, repository.ErrBucketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Bucket not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *BucketHandler) Reorder(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	ids, err := parseIDList(req.OrderedIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bucket ID in list"})
		return
	}

	if err := h.buckets.Reorder(c.Request.Context(), projectID, ids); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reorder failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reordered"})
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"equilibra/internal/middleware"
	"equilibra/internal/model"
	"equilibra/internal/repository"
	"equilibra/internal/service"
)

type TaskHandler struct {
	tasks      *repository.TaskRepository
	buckets    *repository.BucketRepository
	activities *repository.ActivityRepository
	branches   *service.BranchSync
	meetings   *service.Meetings
}

func NewTaskHandler(
	tasks *repository.TaskRepository,
	buckets *repository.BucketRepository,
	activities *repository.ActivityRepository,
	branches *service.BranchSync,
	meetings *service.Meetings,
) *TaskHandler {
	return &TaskHandler{
		tasks:      tasks,
		buckets:    buckets,
		activities: activities,
		branches:   branches,
		meetings:   meetings,
	}
}

type taskRequest struct {
	BucketID       string `json:"bucket_id" binding:"required"`
	Title          string `json:"title" binding:"required,min=1"`
	Description    string `json:"description"`
	Type           string `json:"type" binding:"required,oneof=CODE REQUIREMENT DESIGN OTHER"`
	Weight         int    `json:"weight" binding:"required,min=1,max=8"`
	LeadAssigneeID string `json:"lead_assignee_id"`
}

type taskUpdateRequest struct {
	Title          string `json:"title" binding:"required,min=1"`
	Description    string `json:"description"`
	Type           string `json:"type" binding:"required,oneof=CODE REQUIREMENT DESIGN OTHER"`
	Weight         int    `json:"weight" binding:"required,min=1,max=8"`
	Status         string `json:"status" binding:"omitempty,oneof=DRAFT ACTIVE"`
	LeadAssigneeID string `json:"lead_assignee_id"`
}

type taskMoveRequest struct {
	BucketID string `json:"bucket_id" binding:"required"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	bucketID, err := parseID(req.BucketID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bucket ID"})
		return
	}

	bucket, err := h.buckets.GetByID(c.Request.Context(), bucketID)
	if errors.Is(err, repository.ErrBucketNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bucket not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	maxIdx, err := h.tasks.MaxOrderIdx(c.Request.Context(), bucketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	task := &model.Task{
		ProjectID:   bucket.ProjectID,
		BucketID:    bucketID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Weight:      req.Weight,
		OrderIdx:    maxIdx + 1,
		Status:      model.TaskStatusActive,
	}
	if req.LeadAssigneeID != "" {
		assigneeID, err := parseID(req.LeadAssigneeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID"})
			return
		}
		task.LeadAssigneeID = &assigneeID
	}

	if err := h.tasks.Create(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create failed"})
		return
	}

	h.recordActivity(c, task, "created")
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (h *TaskHandler) GetByID(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	task, err := h.tasks.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *TaskHandler) GetByBucket(c *gin.Context) {
	bucketID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bucket ID"})
		return
	}

	tasks, err := h.tasks.GetByBucketID(c.Request.Context(), bucketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, newTaskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	var req taskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	task, err := h.tasks.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	task.Type = req.Type
	task.Weight = req.Weight
	if req.Status != "" {
		task.Status = req.Status
	}
	if req.LeadAssigneeID != "" {
		assigneeID, err := parseID(req.LeadAssigneeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID"})
			return
		}
		task.LeadAssigneeID = &assigneeID
		// Accepting a suggestion or picking someone else both clear it.
		task.SuggestedAssigneeID = nil
	}

	if err := h.tasks.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		return
	}

	h.recordActivity(c, task, "updated")
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Move relocates a task to another bucket and, when the destination is an
// in-progress bucket, kicks off branch creation in the background.
func (h *TaskHandler) Move(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	var req taskMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	bucketID, err := parseID(req.BucketID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bucket ID"})
		return
	}

	task, err := h.tasks.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	bucket, err := h.buckets.GetByID(c.Request.Context(), bucketID)
	if errors.Is(err, repository.ErrBucketNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bucket not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	if bucket.ProjectID != task.ProjectID {
		c.JSON(http.StatusConflict, gin.H{"error": "Bucket belongs to another project"})
		return
	}

	if err := h.tasks.MoveToBucket(c.Request.Context(), id, bucketID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Move failed"})
		return
	}

	h.recordActivity(c, task, "moved")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		h.branches.EnsureBranch(ctx, id, bucketID)
	}()

	c.JSON(http.StatusOK, gin.H{"status": "moved"})
}

func (h *TaskHandler) Reorder(c *gin.Context) {
	bucketID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bucket ID"})
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	ids, err := parseIDList(req.OrderedIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID in list"})
		return
	}

	if err := h.tasks.Reorder(c.Request.Context(), bucketID, ids); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reorder failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reordered"})
}

type confirmTasksRequest struct {
	AlertID   string         `json:"alert_id" binding:"required"`
	ProjectID string         `json:"project_id" binding:"required"`
	Tasks     []confirmDraft `json:"tasks" binding:"required,min=1"`
}

type confirmDraft struct {
	Title       string `json:"title" binding:"required,min=1"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Weight      int    `json:"weight"`
	AssigneeID  string `json:"assignee_id"`
}

// Confirm materializes AI-extracted drafts onto the board. A concurrent
// confirmation of the same alert loses with 409.
func (h *TaskHandler) Confirm(c *gin.Context) {
	var req confirmTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	alertID, err := parseID(req.AlertID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}
	projectID, err := parseID(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	drafts := make([]repository.TaskDraft, 0, len(req.Tasks))
	for _, d := range req.Tasks {
		draft := repository.TaskDraft{
			Title:       d.Title,
			Description: d.Description,
			Type:        d.Type,
			Weight:      d.Weight,
		}
		if d.AssigneeID != "" {
			assigneeID, err := parseID(d.AssigneeID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID"})
				return
			}
			draft.AssigneeID = &assigneeID
		}
		drafts = append(drafts, draft)
	}

	count, err := h.meetings.ConfirmTasks(c.Request.Context(), alertID, projectID, drafts)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlertNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		case errors.Is(err, repository.ErrAlertResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "Alert already resolved"})
		case errors.Is(err, service.ErrDraftTitleRequired),
			errors.Is(err, service.ErrDraftBadWeight),
			errors.Is(err, service.ErrDraftBadType):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Confirmation failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created": count})
}

func (h *TaskHandler) recordActivity(c *gin.Context, task *model.Task, action string) {
	activity := &model.Activity{
		ProjectID: task.ProjectID,
		TaskID:    &task.ID,
		Action:    action,
		Target:    task.Title,
	}
	if userID, ok := middleware.CurrentUserID(c); ok {
		activity.UserID = &userID
	}
	if err := h.activities.Create(c.Request.Context(), activity); err != nil {
		log.WithError(err).WithField("task", task.ID).Warn("activity record failed")
	}
}

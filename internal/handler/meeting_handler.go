package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"equilibra/internal/middleware"
	"equilibra/internal/model"
	"equilibra/internal/service"
)

// Recordings over this size are rejected before buffering.
const maxRecordingBytes = 200 << 20

type MeetingHandler struct {
	meetings *service.Meetings
}

func NewMeetingHandler(meetings *service.Meetings) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

// Analyze accepts a multipart recording upload and runs the minutes +
// action-item extraction pipeline synchronously.
func (h *MeetingHandler) Analyze(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing recording file"})
		return
	}
	if fileHeader.Size > maxRecordingBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Recording too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer file.Close()

	media, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}

	var userID *int64
	if id, ok := middleware.CurrentUserID(c); ok {
		userID = &id
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	meeting, err := h.meetings.Analyze(c.Request.Context(), projectID, userID, media, mimeType, model.MeetingSourceManualUpload)
	if err != nil {
		log.WithError(err).WithField("project", projectID).Error("meeting analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		return
	}

	c.JSON(http.StatusCreated, newMeetingResponse(meeting))
}

func (h *MeetingHandler) GetByProject(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	meetings, err := h.meetings.List(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	resp := make([]meetingResponse, 0, len(meetings))
	for i := range meetings {
		resp = append(resp, newMeetingResponse(&meetings[i]))
	}
	c.JSON(http.StatusOK, resp)
}

type inviteBotRequest struct {
	MeetingURL string `json:"meeting_url" binding:"required,url"`
}

// InviteBot sends the recording bot into a live meeting; the recording comes
// back later via webhook.
func (h *MeetingHandler) InviteBot(c *gin.Context) {
	projectID, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	var req inviteBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	botID, err := h.meetings.InviteBot(c.Request.Context(), req.MeetingURL, userID, projectID)
	if err != nil {
		log.WithError(err).Error("bot invite failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Bot invite failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"bot_id": botID})
}

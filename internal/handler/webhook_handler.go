package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"equilibra/internal/github"
	"equilibra/internal/service"
)

type WebhookHandler struct {
	ghSecret     string
	recallSecret string
	dispatcher   *service.Dispatcher
	meetings     *service.Meetings
}

func NewWebhookHandler(ghSecret, recallSecret string, dispatcher *service.Dispatcher, meetings *service.Meetings) *WebhookHandler {
	return &WebhookHandler{
		ghSecret:     ghSecret,
		recallSecret: recallSecret,
		dispatcher:   dispatcher,
		meetings:     meetings,
	}
}

// GitHub receives GitHub App webhook deliveries. The signature is checked
// before the payload is parsed; a bad signature is a hard 401.
func (h *WebhookHandler) GitHub(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	if !github.VerifySignature(h.ghSecret, body, c.GetHeader("X-Hub-Signature-256")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	event := c.GetHeader("X-GitHub-Event")
	deliveryID := c.GetHeader("X-GitHub-Delivery")
	if event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing event header"})
		return
	}

	ack, err := h.dispatcher.Dispatch(event, deliveryID, body)
	if err != nil {
		log.WithError(err).WithField("event", event).Warn("undecodable webhook payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	c.JSON(http.StatusOK, ack)
}

type recallWebhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		BotID  string `json:"bot_id"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
		Metadata struct {
			UserID    int64 `json:"user_id"`
			ProjectID int64 `json:"project_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// Recall receives bot status callbacks from the meeting recording service,
// authenticated by a shared secret header.
func (h *WebhookHandler) Recall(c *gin.Context) {
	if h.recallSecret == "" || c.GetHeader("X-Recall-Webhook-Secret") != h.recallSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret"})
		return
	}

	var req recallWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if req.Data.Status.Code != "done" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "code": req.Data.Status.Code})
		return
	}
	if req.Data.BotID == "" || req.Data.Metadata.ProjectID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing bot metadata"})
		return
	}

	botID := req.Data.BotID
	userID := req.Data.Metadata.UserID
	projectID := req.Data.Metadata.ProjectID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := h.meetings.ProcessBotRecording(ctx, botID, userID, projectID); err != nil {
			log.WithError(err).WithField("bot", botID).Error("bot recording processing failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "processing"})
}

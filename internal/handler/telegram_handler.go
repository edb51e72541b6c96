package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"equilibra/internal/repository"
	"equilibra/internal/telegram"
)

type TelegramHandler struct {
	users    *repository.UserRepository
	notifier *telegram.Notifier
	secret   string
}

func NewTelegramHandler(users *repository.UserRepository, notifier *telegram.Notifier, secret string) *TelegramHandler {
	return &TelegramHandler{users: users, notifier: notifier, secret: secret}
}

type telegramUpdate struct {
	Message struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Webhook handles bot updates. The only command that matters is
// "/start <user_id>", which binds the chat to a board user so the
// stagnation radar can reach them.
func (h *TelegramHandler) Webhook(c *gin.Context) {
	if h.secret != "" && c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != h.secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret"})
		return
	}

	var update telegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	if update.Message.Chat.ID == 0 || !strings.HasPrefix(text, "/start") {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	parts := strings.Fields(text)
	if len(parts) < 2 {
		h.reply(chatID, "Send `/start <your user id>` from your profile page to link this chat.")
		c.JSON(http.StatusOK, gin.H{"status": "no_payload"})
		return
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		h.reply(chatID, "That doesn't look like a valid user id.")
		c.JSON(http.StatusOK, gin.H{"status": "bad_payload"})
		return
	}

	if err := h.users.LinkTelegram(c.Request.Context(), userID, chatID); err != nil {
		log.WithError(err).WithField("user", userID).Warn("telegram link failed")
		h.reply(chatID, "Couldn't link this chat. Check the user id and try again.")
		c.JSON(http.StatusOK, gin.H{"status": "link_failed"})
		return
	}

	h.reply(chatID, "✅ Linked! You'll get task notifications here.")
	c.JSON(http.StatusOK, gin.H{"status": "linked"})
}

func (h *TelegramHandler) reply(chatID, text string) {
	if err := h.notifier.Notify(chatID, text); err != nil {
		log.WithError(err).Warn("telegram reply failed")
	}
}

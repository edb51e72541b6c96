package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"equilibra/internal/middleware"
	"equilibra/internal/repository"
)

type AlertHandler struct {
	alerts *repository.AlertRepository
}

func NewAlertHandler(alerts *repository.AlertRepository) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// GetMine lists the authenticated user's alerts. ?all=true includes
// resolved ones.
func (h *AlertHandler) GetMine(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	unresolvedOnly := c.Query("all") != "true"
	alerts, err := h.alerts.GetByUserID(c.Request.Context(), userID, unresolvedOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}

	resp := make([]alertResponse, 0, len(alerts))
	for i := range alerts {
		resp = append(resp, newAlertResponse(&alerts[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Resolve marks an alert handled. Re-resolving is a conflict so two
// managers acting on the same alert can't both "win".
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	if err := h.alerts.Resolve(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlertNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		case errors.Is(err, repository.ErrAlertResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "Alert already resolved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Resolve failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

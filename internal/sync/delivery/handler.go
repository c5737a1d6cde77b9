package delivery

import (
	"net/http"

	"unibox-backend/internal/sync/usecase"
	"unibox-backend/pkg/platform"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	syncUsecase usecase.SyncUsecase
}

func NewSyncHandler(syncUsecase usecase.SyncUsecase) *SyncHandler {
	return &SyncHandler{
		syncUsecase: syncUsecase,
	}
}

type sendMessageRequest struct {
	Platform string `json:"platform" binding:"required"`
	To       string `json:"to" binding:"required"`
	Subject  string `json:"subject"`
	Body     string `json:"body" binding:"required"`
}

// TriggerSync runs a full sync pass synchronously and returns the report.
// Platforms inside their cooldown window come back with a skip reason
// instead of an error.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	userID := c.GetString("userID")

	report := h.syncUsecase.SyncAllPlatforms(c.Request.Context(), userID)
	c.JSON(http.StatusOK, report)
}

func (h *SyncHandler) SendMessage(c *gin.Context) {
	userID := c.GetString("userID")

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.syncUsecase.SendMessage(c.Request.Context(), userID, req.Platform, &platform.OutgoingMessage{
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

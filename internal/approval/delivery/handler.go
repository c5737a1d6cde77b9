package delivery

import (
	"errors"
	"net/http"

	"unibox-backend/internal/approval/usecase"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalUsecase usecase.ApprovalUsecase
}

func NewApprovalHandler(approvalUsecase usecase.ApprovalUsecase) *ApprovalHandler {
	return &ApprovalHandler{
		approvalUsecase: approvalUsecase,
	}
}

type decisionRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
}

func (h *ApprovalHandler) GetPending(c *gin.Context) {
	userID := c.GetString("userID")

	pending, err := h.approvalUsecase.ListPending(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pending": pending, "total": len(pending)})
}

func (h *ApprovalHandler) Decide(c *gin.Context) {
	userID := c.GetString("userID")
	pendingID := c.Param("id")

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.approvalUsecase.Decide(userID, pendingID, req.Action)
	if err != nil {
		if errors.Is(err, usecase.ErrApprovalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pending approval not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ApprovalHandler) GetBlacklist(c *gin.Context) {
	userID := c.GetString("userID")

	entries, err := h.approvalUsecase.ListBlacklist(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"blacklist": entries, "total": len(entries)})
}

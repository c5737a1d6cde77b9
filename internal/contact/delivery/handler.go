package delivery

import (
	"net/http"
	"strconv"

	"unibox-backend/internal/contact/usecase"
	messagerepo "unibox-backend/internal/message/repository"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contactUsecase usecase.ContactUsecase
	messageRepo    messagerepo.MessageRepository
}

func NewContactHandler(contactUsecase usecase.ContactUsecase, messageRepo messagerepo.MessageRepository) *ContactHandler {
	return &ContactHandler{
		contactUsecase: contactUsecase,
		messageRepo:    messageRepo,
	}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	userID := c.GetString("userID")

	contacts, err := h.contactUsecase.ListContacts(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "total": len(contacts)})
}

func (h *ContactHandler) GetContactByID(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	contact, err := h.contactUsecase.GetContact(userID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) GetContactMessages(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	messages, total, err := h.messageRepo.FindByContact(userID, id, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
	})
}

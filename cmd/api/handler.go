package api

import (
	approvalDelivery "unibox-backend/internal/approval/delivery"
	approvalUsecasePkg "unibox-backend/internal/approval/usecase"
	authUsecasePkg "unibox-backend/internal/auth/usecase"
	contactDelivery "unibox-backend/internal/contact/delivery"
	contactUsecasePkg "unibox-backend/internal/contact/usecase"
	messageRepo "unibox-backend/internal/message/repository"
	syncDelivery "unibox-backend/internal/sync/delivery"
	syncUsecasePkg "unibox-backend/internal/sync/usecase"
	"unibox-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase     authUsecasePkg.AuthUsecase
	config          *config.Config
	contactHandler  *contactDelivery.ContactHandler
	approvalHandler *approvalDelivery.ApprovalHandler
	syncHandler     *syncDelivery.SyncHandler
}

func NewHandler(
	authUc authUsecasePkg.AuthUsecase,
	contactUc contactUsecasePkg.ContactUsecase,
	approvalUc approvalUsecasePkg.ApprovalUsecase,
	syncUc syncUsecasePkg.SyncUsecase,
	messages messageRepo.MessageRepository,
	cfg *config.Config,
) *Handler {
	return &Handler{
		authUsecase:     authUc,
		config:          cfg,
		contactHandler:  contactDelivery.NewContactHandler(contactUc, messages),
		approvalHandler: approvalDelivery.NewApprovalHandler(approvalUc),
		syncHandler:     syncDelivery.NewSyncHandler(syncUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.contactHandler, h.approvalHandler, h.syncHandler)

	return r.Run(addr)
}

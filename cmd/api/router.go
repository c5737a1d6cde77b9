package api

import (
	"net/http"

	approvalDelivery "unibox-backend/internal/approval/delivery"
	"unibox-backend/internal/auth/delivery"
	authUsecase "unibox-backend/internal/auth/usecase"
	contactDelivery "unibox-backend/internal/contact/delivery"
	syncDelivery "unibox-backend/internal/sync/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	authUc authUsecase.AuthUsecase,
	contactHandler *contactDelivery.ContactHandler,
	approvalHandler *approvalDelivery.ApprovalHandler,
	syncHandler *syncDelivery.SyncHandler,
) {
	authHandler := delivery.NewAuthHandler(authUc)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
		}

		// Contact routes (protected)
		contacts := api.Group("/contacts")
		contacts.Use(delivery.AuthMiddleware(authUc))
		{
			contacts.GET("", contactHandler.GetContacts)
			contacts.GET("/:id", contactHandler.GetContactByID)
			contacts.GET("/:id/messages", contactHandler.GetContactMessages)
		}

		// Approval routes (protected)
		approvals := api.Group("/approvals")
		approvals.Use(delivery.AuthMiddleware(authUc))
		{
			approvals.GET("/pending", approvalHandler.GetPending)
			approvals.POST("/:id/decision", approvalHandler.Decide)
			approvals.GET("/blacklist", approvalHandler.GetBlacklist)
		}

		// Sync routes (protected)
		syncGroup := api.Group("/sync")
		syncGroup.Use(delivery.AuthMiddleware(authUc))
		{
			syncGroup.POST("", syncHandler.TriggerSync)
		}

		// Message send (protected)
		messages := api.Group("/messages")
		messages.Use(delivery.AuthMiddleware(authUc))
		{
			messages.POST("/send", syncHandler.SendMessage)
		}
	}
}

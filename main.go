package main

import (
	"context"
	"log"

	api "unibox-backend/cmd/api"
	approvaldomain "unibox-backend/internal/approval/domain"
	approvalRepo "unibox-backend/internal/approval/repository"
	approvalUsecase "unibox-backend/internal/approval/usecase"
	authdomain "unibox-backend/internal/auth/domain"
	authRepo "unibox-backend/internal/auth/repository"
	authUsecase "unibox-backend/internal/auth/usecase"
	contactdomain "unibox-backend/internal/contact/domain"
	contactRepo "unibox-backend/internal/contact/repository"
	contactUsecase "unibox-backend/internal/contact/usecase"
	messagedomain "unibox-backend/internal/message/domain"
	messageRepo "unibox-backend/internal/message/repository"
	syncdomain "unibox-backend/internal/sync/domain"
	syncRepo "unibox-backend/internal/sync/repository"
	"unibox-backend/internal/sync/scheduler"
	syncUsecase "unibox-backend/internal/sync/usecase"
	"unibox-backend/pkg/ai"
	"unibox-backend/pkg/cache"
	"unibox-backend/pkg/config"
	"unibox-backend/pkg/database"
	"unibox-backend/pkg/platform"
	"unibox-backend/pkg/ratelimit"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&contactdomain.UnifiedContact{},
		&contactdomain.PlatformIdentity{},
		&messagedomain.Message{},
		&approvaldomain.PendingApproval{},
		&approvaldomain.PendingMessageStub{},
		&approvaldomain.BlacklistEntry{},
		&syncdomain.SyncState{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepository := authRepo.NewUserRepository(db)
	contactRepository := contactRepo.NewContactRepository(db)
	identityIndex := contactRepo.NewIdentityIndexRepository(db)
	messageRepository := messageRepo.NewMessageRepository(db)
	approvalRepository := approvalRepo.NewApprovalRepository(db)
	blacklistRepository := approvalRepo.NewBlacklistRepository(db)
	syncStateRepository := syncRepo.NewSyncStateRepository(db, cfg.SyncCooldown)

	// Platform adapters share one rate-limit aware client
	limiter := ratelimit.NewClient()
	credentialStore := authRepo.NewCredentialStore(userRepository, cfg.EncryptionKey)
	adapters := []platform.Adapter{
		platform.NewGmailAdapter(cfg.GoogleClientID, cfg.GoogleClientSecret, credentialStore, limiter),
		platform.NewIMAPAdapter(credentialStore),
	}

	// Optional AI message insights
	insightService, err := ai.NewInsightService(ai.ProviderType(cfg.AIProvider), cfg.OllamaBaseURL, cfg.OllamaModel)
	if err != nil {
		log.Printf("Warning: Failed to initialize AI insight service: %v", err)
	} else if insightService != nil {
		log.Printf("AI insight service initialized with provider: %s", cfg.AIProvider)
	}

	// Initialize use cases (dependency injection)
	approvalGate := approvalUsecase.NewApprovalUsecase(approvalRepository, blacklistRepository, contactRepository, identityIndex, messageRepository)
	resolver := contactUsecase.NewResolver(cfg.AutoMergeThreshold, cfg.AutoCreateThreshold)
	merger := contactUsecase.NewMerger(contactRepository, identityIndex, messageRepository)
	contactService := contactUsecase.NewContactUsecase(contactRepository, messageRepository)
	syncService := syncUsecase.NewSyncUsecase(
		adapters,
		contactRepository,
		identityIndex,
		messageRepository,
		syncStateRepository,
		approvalGate,
		resolver,
		merger,
		insightService,
		cache.New(1000),
		cfg.MessageFetchSize,
	)
	authService := authUsecase.NewAuthUsecase(userRepository, cfg)

	// Kick off a sync pass right after login
	authService.SetSyncCallback(func(userID string) {
		syncService.SyncAllPlatforms(context.Background(), userID)
	})

	// Background scheduler keeps every user fresh within the cooldown window
	syncScheduler := scheduler.NewSyncScheduler(syncService, userRepository, cfg.SyncInterval)
	syncScheduler.Start()
	defer syncScheduler.Stop()

	// Initialize HTTP handler
	handler := api.NewHandler(authService, contactService, approvalGate, syncService, messageRepository, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

package scheduler

import (
	"context"
	"log"
	"time"

	authrepo "unibox-backend/internal/auth/repository"
	syncusecase "unibox-backend/internal/sync/usecase"
)

// SyncScheduler periodically kicks off a sync run for every known user.
// The per-platform cooldown inside the sync state store keeps this cheap:
// platforms synced recently are skipped.
type SyncScheduler struct {
	syncUsecase syncusecase.SyncUsecase
	userRepo    authrepo.UserRepository
	interval    time.Duration
	stopChan    chan struct{}
}

// NewSyncScheduler creates a new scheduler
func NewSyncScheduler(syncUsecase syncusecase.SyncUsecase, userRepo authrepo.UserRepository, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SyncScheduler{
		syncUsecase: syncUsecase,
		userRepo:    userRepo,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *SyncScheduler) Start() {
	log.Printf("[SyncScheduler] Starting background sync scheduler (interval: %s)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runAll()
			case <-s.stopChan:
				log.Println("[SyncScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
}

func (s *SyncScheduler) runAll() {
	userIDs, err := s.userRepo.AllUserIDs()
	if err != nil {
		log.Printf("[SyncScheduler] Error listing users: %v", err)
		return
	}

	for _, userID := range userIDs {
		report := s.syncUsecase.SyncAllPlatforms(context.Background(), userID)
		if len(report.Errors) > 0 {
			log.Printf("[SyncScheduler] user=%s sync finished with %d errors", userID, len(report.Errors))
		}
	}
}

package repository

import (
	"errors"
	"time"

	syncdomain "unibox-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// syncStateRepository implements SyncStateRepository with GORM
type syncStateRepository struct {
	db       *gorm.DB
	cooldown time.Duration
}

// NewSyncStateRepository creates a new instance of syncStateRepository.
// cooldown is how long after a completed sync the platform is left alone,
// on the assumption that push notifications cover that window.
func NewSyncStateRepository(db *gorm.DB, cooldown time.Duration) SyncStateRepository {
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	return &syncStateRepository{db: db, cooldown: cooldown}
}

func (r *syncStateRepository) Get(userID, platform string) (*syncdomain.SyncState, error) {
	var state syncdomain.SyncState
	err := r.db.Where("user_id = ? AND platform = ?", userID, platform).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *syncStateRepository) ShouldSync(userID, platform string) (*syncdomain.SyncDecision, error) {
	state, err := r.Get(userID, platform)
	if err != nil {
		return nil, err
	}

	if state == nil {
		return &syncdomain.SyncDecision{ShouldSync: true, Reason: syncdomain.ReasonInitialSync}, nil
	}
	if state.IsCurrentlySyncing {
		return &syncdomain.SyncDecision{ShouldSync: false, Reason: syncdomain.ReasonSyncInProgress}, nil
	}
	if !state.InitialSyncComplete {
		return &syncdomain.SyncDecision{
			ShouldSync:           true,
			Reason:               syncdomain.ReasonInitialIncomplete,
			LastMessageTimestamp: state.LastMessageTimestamp,
		}, nil
	}
	if time.Since(state.LastSyncTimestamp) < r.cooldown {
		return &syncdomain.SyncDecision{ShouldSync: false, Reason: syncdomain.ReasonCooldown}, nil
	}
	return &syncdomain.SyncDecision{
		ShouldSync:           true,
		Reason:               syncdomain.ReasonIncremental,
		LastMessageTimestamp: state.LastMessageTimestamp,
	}, nil
}

func (r *syncStateRepository) MarkInitialSyncComplete(userID, platform string) error {
	state, err := r.ensure(userID, platform)
	if err != nil {
		return err
	}
	state.InitialSyncComplete = true
	state.UpdatedAt = time.Now()
	return r.db.Save(state).Error
}

func (r *syncStateRepository) UpdateLastSync(userID, platform string, newMessageCount int, latestTimestamp time.Time) error {
	state, err := r.ensure(userID, platform)
	if err != nil {
		return err
	}

	now := time.Now()
	state.LastSyncTimestamp = now
	if newMessageCount > 0 {
		state.TotalMessagesProcessed += int64(newMessageCount)
	}
	// Watermark only advances; an older observation never rewinds it
	if latestTimestamp.After(state.LastMessageTimestamp) {
		state.LastMessageTimestamp = latestTimestamp
	}
	state.UpdatedAt = now
	return r.db.Save(state).Error
}

func (r *syncStateRepository) SetSyncInProgress(userID, platform string, inProgress bool) error {
	state, err := r.ensure(userID, platform)
	if err != nil {
		return err
	}
	state.IsCurrentlySyncing = inProgress
	state.UpdatedAt = time.Now()
	return r.db.Save(state).Error
}

// ensure loads the state row, creating it on first sync attempt
func (r *syncStateRepository) ensure(userID, platform string) (*syncdomain.SyncState, error) {
	state, err := r.Get(userID, platform)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return state, nil
	}

	now := time.Now()
	state = &syncdomain.SyncState{
		ID:        uuid.New().String(),
		UserID:    userID,
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.Create(state).Error; err != nil {
		return nil, err
	}
	return state, nil
}

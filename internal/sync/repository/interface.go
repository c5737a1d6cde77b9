package repository

import (
	"time"

	syncdomain "unibox-backend/internal/sync/domain"
)

// SyncStateRepository is the per (user, platform) sync bookkeeping store
type SyncStateRepository interface {
	Get(userID, platform string) (*syncdomain.SyncState, error)
	ShouldSync(userID, platform string) (*syncdomain.SyncDecision, error)
	MarkInitialSyncComplete(userID, platform string) error
	// UpdateLastSync records a finished attempt. The message watermark and the
	// processed counter only ever move forward.
	UpdateLastSync(userID, platform string, newMessageCount int, latestTimestamp time.Time) error
	SetSyncInProgress(userID, platform string, inProgress bool) error
}

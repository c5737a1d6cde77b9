package domain

import "time"

// SyncState is per (user, platform) bookkeeping of incremental sync
// progress. lastMessageTimestamp and totalMessagesProcessed are monotonic:
// they never move backwards, even when a later sync observes older messages.
type SyncState struct {
	ID                     string    `json:"id" gorm:"primaryKey"`
	UserID                 string    `json:"user_id" gorm:"uniqueIndex:idx_user_platform_sync;not null"`
	Platform               string    `json:"platform" gorm:"uniqueIndex:idx_user_platform_sync;not null"`
	InitialSyncComplete    bool      `json:"initial_sync_complete"`
	LastSyncTimestamp      time.Time `json:"last_sync_timestamp"`
	LastMessageTimestamp   time.Time `json:"last_message_timestamp"`
	TotalMessagesProcessed int64     `json:"total_messages_processed"`
	IsCurrentlySyncing     bool      `json:"is_currently_syncing"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Reasons reported by the shouldSync decision
const (
	ReasonInitialSync       = "initial sync"
	ReasonInitialIncomplete = "initial sync incomplete"
	ReasonSyncInProgress    = "sync already in progress"
	ReasonCooldown          = "synced within cooldown window"
	ReasonIncremental       = "incremental sync due"
)

// SyncDecision answers "should this platform sync now, and from where?"
type SyncDecision struct {
	ShouldSync           bool      `json:"should_sync"`
	Reason               string    `json:"reason"`
	LastMessageTimestamp time.Time `json:"last_message_timestamp,omitempty"`
}

// PlatformSyncResult is one platform's contribution to a sync run. Errors
// here never abort other platforms.
type PlatformSyncResult struct {
	Platform    string   `json:"platform"`
	Synced      bool     `json:"synced"`
	SkipReason  string   `json:"skip_reason,omitempty"`
	NewContacts int      `json:"new_contacts"`
	NewMessages int      `json:"new_messages"`
	Pending     int      `json:"pending"`
	Blocked     int      `json:"blocked"`
	Errors      []string `json:"errors,omitempty"`
}

// SyncReport aggregates a full syncAllPlatforms run
type SyncReport struct {
	Platforms           []PlatformSyncResult `json:"platforms"`
	TotalContacts       int                  `json:"total_contacts"`
	TotalMessages       int                  `json:"total_messages"`
	CrossPlatformMerges int                  `json:"cross_platform_merges"`
	Errors              []string             `json:"errors,omitempty"`
}

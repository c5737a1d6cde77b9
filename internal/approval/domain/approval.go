package domain

import "time"

// Gate outcomes for an incoming message
const (
	OutcomeSaved   = "saved"
	OutcomeBlocked = "blocked"
	OutcomePending = "pending"
)

// PendingApproval accumulates messages from an unresolved sender until the
// user approves or rejects them. At most one open approval exists per
// (user, platform, sender); further messages append to it.
type PendingApproval struct {
	ID                  string              `json:"id" gorm:"primaryKey"`
	UserID              string              `json:"user_id" gorm:"uniqueIndex:idx_user_platform_sender;not null"`
	Platform            string              `json:"platform" gorm:"uniqueIndex:idx_user_platform_sender;not null"`
	SenderID            string              `json:"sender_id" gorm:"uniqueIndex:idx_user_platform_sender;not null"`
	SenderName          string              `json:"sender_name,omitempty"`
	SenderEmail         string              `json:"sender_email,omitempty"`
	SenderHandle        string              `json:"sender_handle,omitempty"`
	MessageCount        int                 `json:"message_count"`
	FirstMessageDate    time.Time           `json:"first_message_date"`
	LastMessageDate     time.Time           `json:"last_message_date"`
	PreviewContent      string              `json:"preview_content,omitempty"`
	PotentialMatchID    string              `json:"potential_match_id,omitempty"`
	PotentialMatchScore int                 `json:"potential_match_score,omitempty"`
	MatchReasons        string              `json:"match_reasons,omitempty"`
	Stubs               []PendingMessageStub `json:"stubs" gorm:"foreignKey:ApprovalID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// PendingMessageStub holds one held-back message awaiting a decision
type PendingMessageStub struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	ApprovalID        string    `json:"approval_id" gorm:"index;not null"`
	PlatformMessageID string    `json:"platform_message_id"`
	ThreadID          string    `json:"thread_id,omitempty"`
	Subject           string    `json:"subject,omitempty"`
	Content           string    `json:"content" gorm:"type:text"`
	SentAt            time.Time `json:"sent_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// BlacklistEntry drops a sender before they reach the approval gate or the
// identity resolver.
type BlacklistEntry struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"uniqueIndex:idx_blacklist_sender;not null"`
	Platform   string    `json:"platform" gorm:"uniqueIndex:idx_blacklist_sender;not null"`
	SenderID   string    `json:"sender_id" gorm:"uniqueIndex:idx_blacklist_sender;not null"`
	SenderName string    `json:"sender_name,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

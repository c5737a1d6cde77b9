package domain

import "time"

// Message is a persisted message tied to a unified contact.
// (user_id, platform, platform_message_id) is the natural key:
// re-ingesting the same platform message is a no-op.
type Message struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	UserID            string    `json:"user_id" gorm:"uniqueIndex:idx_user_platform_msg;not null"`
	ContactID         string    `json:"contact_id" gorm:"index;not null"`
	Platform          string    `json:"platform" gorm:"uniqueIndex:idx_user_platform_msg;not null"`
	PlatformMessageID string    `json:"platform_message_id" gorm:"uniqueIndex:idx_user_platform_msg;not null"`
	ThreadID          string    `json:"thread_id,omitempty" gorm:"index"`
	Subject           string    `json:"subject,omitempty"`
	Content           string    `json:"content" gorm:"type:text"`
	Summary           string    `json:"summary,omitempty" gorm:"type:text"`
	Urgency           string    `json:"urgency,omitempty"`
	Category          string    `json:"category,omitempty"`
	Metadata          string    `json:"metadata,omitempty" gorm:"type:text"`
	SentAt            time.Time `json:"sent_at" gorm:"index"`
	CreatedAt         time.Time `json:"created_at"`
}

package domain

import (
	"strings"
	"time"
)

type ContactStatus string

const (
	StatusActive             ContactStatus = "ACTIVE"
	StatusPendingMergeReview ContactStatus = "PENDING_MERGE_REVIEW"
	StatusArchivedDuplicate  ContactStatus = "ARCHIVED_AS_DUPLICATE"
)

// UnifiedContact is one record per real-world person, aggregating identities
// from multiple external platforms. Contacts are never hard-deleted except
// when merged away into another contact.
type UnifiedContact struct {
	ID          string             `json:"id" gorm:"primaryKey"`
	UserID      string             `json:"user_id" gorm:"index;not null"`
	DisplayName string             `json:"display_name"`
	Email       string             `json:"email,omitempty" gorm:"index"`
	PhotoURL    string             `json:"photo_url,omitempty"`
	Status      ContactStatus      `json:"status" gorm:"index;default:ACTIVE"`
	Identities  []PlatformIdentity `json:"identities" gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// PlatformIdentity links a UnifiedContact to one external platform. A given
// (user, platform, platform-native id) maps to exactly one contact at a time.
type PlatformIdentity struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	ContactID  string    `json:"contact_id" gorm:"index;not null"`
	UserID     string    `json:"user_id" gorm:"uniqueIndex:idx_user_platform_native;not null"`
	Platform   string    `json:"platform" gorm:"uniqueIndex:idx_user_platform_native;not null"`
	PlatformID string    `json:"platform_id" gorm:"uniqueIndex:idx_user_platform_native;not null"`
	Handle     string    `json:"handle,omitempty"`
	Email      string    `json:"email,omitempty"`
	Metadata   string    `json:"metadata,omitempty" gorm:"type:text"`
	AddedAt    time.Time `json:"added_at"`
}

// HasIdentity reports whether the contact is already bound to the exact
// (platform, platform-native id) pair.
func (c *UnifiedContact) HasIdentity(platform, platformID string) bool {
	for i := range c.Identities {
		if c.Identities[i].Platform == platform && c.Identities[i].PlatformID == platformID {
			return true
		}
	}
	return false
}

// EmailDomain returns the part after '@' of the contact's email, lowercased
func (c *UnifiedContact) EmailDomain() string {
	return EmailDomain(c.Email)
}

func EmailDomain(email string) string {
	if idx := strings.LastIndex(email, "@"); idx >= 0 && idx < len(email)-1 {
		return strings.ToLower(email[idx+1:])
	}
	return ""
}

package repository

import (
	contactdomain "unibox-backend/internal/contact/domain"
)

// ContactRepository persists unified contacts and their platform identities
type ContactRepository interface {
	Create(contact *contactdomain.UnifiedContact) error
	FindByID(userID, id string) (*contactdomain.UnifiedContact, error)
	FindAllByUser(userID string) ([]*contactdomain.UnifiedContact, error)
	FindActiveByUser(userID string) ([]*contactdomain.UnifiedContact, error)
	Update(contact *contactdomain.UnifiedContact) error
	Delete(userID, id string) error
	AddIdentity(identity *contactdomain.PlatformIdentity) error
}

// IdentityIndexRepository is the indexed (platform, platform-native id) ->
// contact lookup, maintained alongside contact writes. Replaces string-path
// probing into raw metadata for "already linked" checks. Rebind moves every
// identity binding from one contact onto another during a merge.
type IdentityIndexRepository interface {
	Lookup(userID, platform, platformID string) (contactID string, err error)
	Rebind(userID, fromContactID, toContactID string) error
}

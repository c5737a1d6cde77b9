package repository

import (
	"errors"

	contactdomain "unibox-backend/internal/contact/domain"

	"gorm.io/gorm"
)

// identityIndexRepository answers "already linked?" through the platform
// identity table's unique index instead of probing raw metadata.
type identityIndexRepository struct {
	db *gorm.DB
}

// NewIdentityIndexRepository creates a new instance of identityIndexRepository
func NewIdentityIndexRepository(db *gorm.DB) IdentityIndexRepository {
	return &identityIndexRepository{db: db}
}

func (r *identityIndexRepository) Lookup(userID, platform, platformID string) (string, error) {
	var identity contactdomain.PlatformIdentity
	err := r.db.Select("contact_id").
		Where("user_id = ? AND platform = ? AND platform_id = ?", userID, platform, platformID).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return identity.ContactID, nil
}

// Rebind moves every platform identity binding from one contact onto
// another, used by the consolidation merge pass.
func (r *identityIndexRepository) Rebind(userID, fromContactID, toContactID string) error {
	return r.db.Model(&contactdomain.PlatformIdentity{}).
		Where("user_id = ? AND contact_id = ?", userID, fromContactID).
		Update("contact_id", toContactID).Error
}

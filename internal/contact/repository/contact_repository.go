package repository

import (
	"errors"
	"time"

	contactdomain "unibox-backend/internal/contact/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// contactRepository implements ContactRepository with GORM
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new instance of contactRepository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(contact *contactdomain.UnifiedContact) error {
	now := time.Now()
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	if contact.Status == "" {
		contact.Status = contactdomain.StatusActive
	}
	contact.CreatedAt = now
	contact.UpdatedAt = now
	for i := range contact.Identities {
		if contact.Identities[i].ID == "" {
			contact.Identities[i].ID = uuid.New().String()
		}
		contact.Identities[i].ContactID = contact.ID
		contact.Identities[i].UserID = contact.UserID
		if contact.Identities[i].AddedAt.IsZero() {
			contact.Identities[i].AddedAt = now
		}
	}
	return r.db.Create(contact).Error
}

func (r *contactRepository) FindByID(userID, id string) (*contactdomain.UnifiedContact, error) {
	var contact contactdomain.UnifiedContact
	err := r.db.Preload("Identities").Where("user_id = ? AND id = ?", userID, id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) FindAllByUser(userID string) ([]*contactdomain.UnifiedContact, error) {
	var contacts []*contactdomain.UnifiedContact
	err := r.db.Preload("Identities").
		Where("user_id = ? AND status <> ?", userID, contactdomain.StatusArchivedDuplicate).
		Order("created_at ASC").
		Find(&contacts).Error
	return contacts, err
}

func (r *contactRepository) FindActiveByUser(userID string) ([]*contactdomain.UnifiedContact, error) {
	var contacts []*contactdomain.UnifiedContact
	err := r.db.Preload("Identities").
		Where("user_id = ? AND status = ?", userID, contactdomain.StatusActive).
		Order("created_at ASC").
		Find(&contacts).Error
	return contacts, err
}

func (r *contactRepository) Update(contact *contactdomain.UnifiedContact) error {
	contact.UpdatedAt = time.Now()
	return r.db.Save(contact).Error
}

func (r *contactRepository) Delete(userID, id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND contact_id = ?", userID, id).
			Delete(&contactdomain.PlatformIdentity{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND id = ?", userID, id).
			Delete(&contactdomain.UnifiedContact{}).Error
	})
}

func (r *contactRepository) AddIdentity(identity *contactdomain.PlatformIdentity) error {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.AddedAt.IsZero() {
		identity.AddedAt = time.Now()
	}
	return r.db.Create(identity).Error
}

package usecase

import (
	contactdomain "unibox-backend/internal/contact/domain"
	contactrepo "unibox-backend/internal/contact/repository"
	messagerepo "unibox-backend/internal/message/repository"
)

// ContactWithStats is a contact decorated with its message count
type ContactWithStats struct {
	*contactdomain.UnifiedContact
	MessageCount int64 `json:"message_count"`
}

// ContactUsecase serves the unified contact list and single-contact views
type ContactUsecase interface {
	ListContacts(userID string) ([]*ContactWithStats, error)
	GetContact(userID, contactID string) (*ContactWithStats, error)
}

type contactUsecase struct {
	contactRepo contactrepo.ContactRepository
	messageRepo messagerepo.MessageRepository
}

// NewContactUsecase creates a new instance of contactUsecase
func NewContactUsecase(contactRepo contactrepo.ContactRepository, messageRepo messagerepo.MessageRepository) ContactUsecase {
	return &contactUsecase{
		contactRepo: contactRepo,
		messageRepo: messageRepo,
	}
}

func (u *contactUsecase) ListContacts(userID string) ([]*ContactWithStats, error) {
	contacts, err := u.contactRepo.FindAllByUser(userID)
	if err != nil {
		return nil, err
	}

	result := make([]*ContactWithStats, 0, len(contacts))
	for _, contact := range contacts {
		count, err := u.messageRepo.CountByContact(userID, contact.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, &ContactWithStats{
			UnifiedContact: contact,
			MessageCount:   count,
		})
	}
	return result, nil
}

func (u *contactUsecase) GetContact(userID, contactID string) (*ContactWithStats, error) {
	contact, err := u.contactRepo.FindByID(userID, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, nil
	}

	count, err := u.messageRepo.CountByContact(userID, contact.ID)
	if err != nil {
		return nil, err
	}
	return &ContactWithStats{UnifiedContact: contact, MessageCount: count}, nil
}

package repository

import (
	messagedomain "unibox-backend/internal/message/domain"
)

// MessageRepository persists messages against unified contacts
type MessageRepository interface {
	// Create inserts a message; returns (false, nil) without writing when the
	// natural key (user, platform, platform message id) already exists.
	Create(message *messagedomain.Message) (created bool, err error)
	Exists(userID, platform, platformMessageID string) (bool, error)
	FindRecentByUser(userID string, limit int) ([]*messagedomain.Message, error)
	FindByContact(userID, contactID string, limit, offset int) ([]*messagedomain.Message, int64, error)
	CountByContact(userID, contactID string) (int64, error)
	ReassignContact(userID, fromContactID, toContactID string) error
}

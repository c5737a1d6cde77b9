package repository

import (
	"errors"
	"time"

	messagedomain "unibox-backend/internal/message/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageRepository implements MessageRepository with GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *messagedomain.Message) (bool, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now()

	// ON CONFLICT DO NOTHING on the natural key keeps re-ingestion idempotent
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform"}, {Name: "platform_message_id"}},
		DoNothing: true,
	}).Create(message)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *messageRepository) Exists(userID, platform, platformMessageID string) (bool, error) {
	var message messagedomain.Message
	err := r.db.Select("id").
		Where("user_id = ? AND platform = ? AND platform_message_id = ?", userID, platform, platformMessageID).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *messageRepository) FindRecentByUser(userID string, limit int) ([]*messagedomain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []*messagedomain.Message
	err := r.db.Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) FindByContact(userID, contactID string, limit, offset int) ([]*messagedomain.Message, int64, error) {
	if limit <= 0 {
		limit = 20
	}

	var total int64
	query := r.db.Model(&messagedomain.Message{}).
		Where("user_id = ? AND contact_id = ?", userID, contactID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []*messagedomain.Message
	err := r.db.Where("user_id = ? AND contact_id = ?", userID, contactID).
		Order("sent_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, total, err
}

func (r *messageRepository) CountByContact(userID, contactID string) (int64, error) {
	var count int64
	err := r.db.Model(&messagedomain.Message{}).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) ReassignContact(userID, fromContactID, toContactID string) error {
	return r.db.Model(&messagedomain.Message{}).
		Where("user_id = ? AND contact_id = ?", userID, fromContactID).
		Update("contact_id", toContactID).Error
}

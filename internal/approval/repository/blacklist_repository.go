package repository

import (
	"errors"
	"time"

	approvaldomain "unibox-backend/internal/approval/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// blacklistRepository implements BlacklistRepository with GORM
type blacklistRepository struct {
	db *gorm.DB
}

// NewBlacklistRepository creates a new instance of blacklistRepository
func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &blacklistRepository{db: db}
}

func (r *blacklistRepository) Create(entry *approvaldomain.BlacklistEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now()
	return r.db.Create(entry).Error
}

func (r *blacklistRepository) IsBlacklisted(userID, platform, senderID string) (bool, error) {
	var entry approvaldomain.BlacklistEntry
	err := r.db.Select("id").
		Where("user_id = ? AND platform = ? AND sender_id = ?", userID, platform, senderID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *blacklistRepository) FindAllByUser(userID string) ([]*approvaldomain.BlacklistEntry, error) {
	var entries []*approvaldomain.BlacklistEntry
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&entries).Error
	return entries, err
}

func (r *blacklistRepository) Delete(userID, id string) error {
	return r.db.Where("user_id = ? AND id = ?", userID, id).
		Delete(&approvaldomain.BlacklistEntry{}).Error
}

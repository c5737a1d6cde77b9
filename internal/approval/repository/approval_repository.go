package repository

import (
	"errors"
	"time"

	approvaldomain "unibox-backend/internal/approval/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// approvalRepository implements ApprovalRepository with GORM
type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository creates a new instance of approvalRepository
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(approval *approvaldomain.PendingApproval) error {
	now := time.Now()
	if approval.ID == "" {
		approval.ID = uuid.New().String()
	}
	approval.CreatedAt = now
	approval.UpdatedAt = now
	for i := range approval.Stubs {
		if approval.Stubs[i].ID == "" {
			approval.Stubs[i].ID = uuid.New().String()
		}
		approval.Stubs[i].ApprovalID = approval.ID
		approval.Stubs[i].CreatedAt = now
	}
	return r.db.Create(approval).Error
}

func (r *approvalRepository) FindByID(userID, id string) (*approvaldomain.PendingApproval, error) {
	var approval approvaldomain.PendingApproval
	err := r.db.Preload("Stubs").Where("user_id = ? AND id = ?", userID, id).First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) FindBySender(userID, platform, senderID string) (*approvaldomain.PendingApproval, error) {
	var approval approvaldomain.PendingApproval
	err := r.db.Preload("Stubs").
		Where("user_id = ? AND platform = ? AND sender_id = ?", userID, platform, senderID).
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) FindAllByUser(userID string) ([]*approvaldomain.PendingApproval, error) {
	var approvals []*approvaldomain.PendingApproval
	err := r.db.Preload("Stubs").
		Where("user_id = ?", userID).
		Order("last_message_date DESC").
		Find(&approvals).Error
	return approvals, err
}

func (r *approvalRepository) Update(approval *approvaldomain.PendingApproval) error {
	approval.UpdatedAt = time.Now()
	return r.db.Omit("Stubs").Save(approval).Error
}

func (r *approvalRepository) AppendStub(approvalID string, stub *approvaldomain.PendingMessageStub) error {
	if stub.ID == "" {
		stub.ID = uuid.New().String()
	}
	stub.ApprovalID = approvalID
	stub.CreatedAt = time.Now()
	return r.db.Create(stub).Error
}

func (r *approvalRepository) Delete(userID, id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("approval_id = ?", id).
			Delete(&approvaldomain.PendingMessageStub{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND id = ?", userID, id).
			Delete(&approvaldomain.PendingApproval{}).Error
	})
}

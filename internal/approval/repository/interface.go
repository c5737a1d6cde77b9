package repository

import (
	approvaldomain "unibox-backend/internal/approval/domain"
)

// ApprovalRepository persists pending approvals and their message stubs
type ApprovalRepository interface {
	Create(approval *approvaldomain.PendingApproval) error
	FindByID(userID, id string) (*approvaldomain.PendingApproval, error)
	FindBySender(userID, platform, senderID string) (*approvaldomain.PendingApproval, error)
	FindAllByUser(userID string) ([]*approvaldomain.PendingApproval, error)
	Update(approval *approvaldomain.PendingApproval) error
	AppendStub(approvalID string, stub *approvaldomain.PendingMessageStub) error
	Delete(userID, id string) error
}

// BlacklistRepository persists blocked senders
type BlacklistRepository interface {
	Create(entry *approvaldomain.BlacklistEntry) error
	IsBlacklisted(userID, platform, senderID string) (bool, error)
	FindAllByUser(userID string) ([]*approvaldomain.BlacklistEntry, error)
	Delete(userID, id string) error
}

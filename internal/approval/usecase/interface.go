package usecase

import (
	approvaldomain "unibox-backend/internal/approval/domain"
	contactdomain "unibox-backend/internal/contact/domain"
	"unibox-backend/pkg/platform"
)

// GateResult is the approval gate's verdict for one incoming message
type GateResult struct {
	Outcome   string // saved | blocked | pending
	ContactID string // set when Outcome == saved
}

// DecisionResult reports an approve/reject transition
type DecisionResult struct {
	Action           string `json:"action"`
	ContactID        string `json:"contact_id,omitempty"`
	ImportedMessages int    `json:"imported_messages,omitempty"`
}

// ApprovalUsecase routes messages from unknown senders through
// pending-approval or blacklist, and applies user decisions.
type ApprovalUsecase interface {
	HandleIncoming(userID string, msg *platform.Message) (*GateResult, error)
	Decide(userID, pendingID, action string) (*DecisionResult, error)
	OpenMergeReview(userID string, identity *platform.Identity, contactID string, match *contactdomain.ScoredMatch) error
	ListPending(userID string) ([]*approvaldomain.PendingApproval, error)
	ListBlacklist(userID string) ([]*approvaldomain.BlacklistEntry, error)
}

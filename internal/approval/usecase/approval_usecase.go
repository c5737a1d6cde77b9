package usecase

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	approvaldomain "unibox-backend/internal/approval/domain"
	approvalrepo "unibox-backend/internal/approval/repository"
	contactdomain "unibox-backend/internal/contact/domain"
	contactrepo "unibox-backend/internal/contact/repository"
	messagedomain "unibox-backend/internal/message/domain"
	messagerepo "unibox-backend/internal/message/repository"
	"unibox-backend/pkg/platform"
)

const previewLength = 120

var (
	// ErrApprovalNotFound covers decisions on already-settled approvals:
	// approve and reject are terminal and mutually exclusive.
	ErrApprovalNotFound = errors.New("pending approval not found")
	ErrUnknownAction    = errors.New("unknown approval action")
)

// approvalUsecase implements ApprovalUsecase
type approvalUsecase struct {
	approvalRepo  approvalrepo.ApprovalRepository
	blacklistRepo approvalrepo.BlacklistRepository
	contactRepo   contactrepo.ContactRepository
	identityIndex contactrepo.IdentityIndexRepository
	messageRepo   messagerepo.MessageRepository
}

// NewApprovalUsecase creates a new instance of approvalUsecase
func NewApprovalUsecase(
	approvalRepo approvalrepo.ApprovalRepository,
	blacklistRepo approvalrepo.BlacklistRepository,
	contactRepo contactrepo.ContactRepository,
	identityIndex contactrepo.IdentityIndexRepository,
	messageRepo messagerepo.MessageRepository,
) ApprovalUsecase {
	return &approvalUsecase{
		approvalRepo:  approvalRepo,
		blacklistRepo: blacklistRepo,
		contactRepo:   contactRepo,
		identityIndex: identityIndex,
		messageRepo:   messageRepo,
	}
}

// HandleIncoming classifies one message. Blacklisted senders are dropped
// before anything else looks at them; known ACTIVE contacts get the message
// saved; everyone else lands on a pending approval.
func (u *approvalUsecase) HandleIncoming(userID string, msg *platform.Message) (*GateResult, error) {
	blocked, err := u.blacklistRepo.IsBlacklisted(userID, msg.Platform, msg.SenderID)
	if err != nil {
		return nil, fmt.Errorf("blacklist check: %w", err)
	}
	if blocked {
		return &GateResult{Outcome: approvaldomain.OutcomeBlocked}, nil
	}

	contactID, err := u.identityIndex.Lookup(userID, msg.Platform, msg.SenderID)
	if err != nil {
		return nil, fmt.Errorf("identity lookup: %w", err)
	}
	if contactID != "" {
		contact, err := u.contactRepo.FindByID(userID, contactID)
		if err != nil {
			return nil, fmt.Errorf("load contact: %w", err)
		}
		if contact != nil && contact.Status == contactdomain.StatusActive {
			return &GateResult{Outcome: approvaldomain.OutcomeSaved, ContactID: contact.ID}, nil
		}
	}

	if err := u.appendPending(userID, msg); err != nil {
		return nil, err
	}
	return &GateResult{Outcome: approvaldomain.OutcomePending}, nil
}

// appendPending finds or creates the sender's open approval and adds the
// message as a stub, keeping the aggregate counters current.
func (u *approvalUsecase) appendPending(userID string, msg *platform.Message) error {
	stub := &approvaldomain.PendingMessageStub{
		PlatformMessageID: msg.PlatformMessageID,
		ThreadID:          msg.ThreadID,
		Subject:           msg.Subject,
		Content:           msg.Content,
		SentAt:            msg.SentAt,
	}

	approval, err := u.approvalRepo.FindBySender(userID, msg.Platform, msg.SenderID)
	if err != nil {
		return fmt.Errorf("find pending approval: %w", err)
	}

	if approval == nil {
		approval = &approvaldomain.PendingApproval{
			UserID:           userID,
			Platform:         msg.Platform,
			SenderID:         msg.SenderID,
			SenderName:       msg.SenderName,
			SenderEmail:      msg.SenderEmail,
			MessageCount:     1,
			FirstMessageDate: msg.SentAt,
			LastMessageDate:  msg.SentAt,
			PreviewContent:   truncate(msg.Content, previewLength),
			Stubs:            []approvaldomain.PendingMessageStub{*stub},
		}
		if err := u.approvalRepo.Create(approval); err != nil {
			return fmt.Errorf("create pending approval: %w", err)
		}
		return nil
	}

	// Re-delivered platform messages must not inflate the counters
	for _, existing := range approval.Stubs {
		if existing.PlatformMessageID == msg.PlatformMessageID {
			return nil
		}
	}

	if err := u.approvalRepo.AppendStub(approval.ID, stub); err != nil {
		return fmt.Errorf("append stub: %w", err)
	}

	approval.MessageCount++
	if msg.SentAt.After(approval.LastMessageDate) {
		approval.LastMessageDate = msg.SentAt
		approval.PreviewContent = truncate(msg.Content, previewLength)
	}
	if msg.SentAt.Before(approval.FirstMessageDate) {
		approval.FirstMessageDate = msg.SentAt
	}
	if err := u.approvalRepo.Update(approval); err != nil {
		return fmt.Errorf("update pending approval: %w", err)
	}
	return nil
}

// Decide applies a terminal approve or reject transition. Either way the
// approval and its stubs are gone afterwards; a later message from the same
// sender starts fresh under the new state.
func (u *approvalUsecase) Decide(userID, pendingID, action string) (*DecisionResult, error) {
	approval, err := u.approvalRepo.FindByID(userID, pendingID)
	if err != nil {
		return nil, fmt.Errorf("load pending approval: %w", err)
	}
	if approval == nil {
		return nil, ErrApprovalNotFound
	}

	switch action {
	case "approve":
		return u.approve(userID, approval)
	case "reject":
		return u.reject(userID, approval)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (u *approvalUsecase) approve(userID string, approval *approvaldomain.PendingApproval) (*DecisionResult, error) {
	displayName := approval.SenderName
	if displayName == "" {
		displayName = approval.SenderEmail
	}
	if displayName == "" {
		displayName = approval.SenderID
	}

	contact := &contactdomain.UnifiedContact{
		UserID:      userID,
		DisplayName: displayName,
		Email:       approval.SenderEmail,
		Status:      contactdomain.StatusActive,
		Identities: []contactdomain.PlatformIdentity{{
			Platform:   approval.Platform,
			PlatformID: approval.SenderID,
			Handle:     approval.SenderHandle,
			Email:      approval.SenderEmail,
		}},
	}
	if err := u.contactRepo.Create(contact); err != nil {
		return nil, fmt.Errorf("create contact from approval: %w", err)
	}

	imported := 0
	for _, stub := range approval.Stubs {
		created, err := u.messageRepo.Create(&messagedomain.Message{
			UserID:            userID,
			ContactID:         contact.ID,
			Platform:          approval.Platform,
			PlatformMessageID: stub.PlatformMessageID,
			ThreadID:          stub.ThreadID,
			Subject:           stub.Subject,
			Content:           stub.Content,
			SentAt:            stub.SentAt,
		})
		if err != nil {
			log.Printf("[Approval] failed to import stub %s: %v", stub.ID, err)
			continue
		}
		if created {
			imported++
		}
	}

	if err := u.approvalRepo.Delete(userID, approval.ID); err != nil {
		return nil, fmt.Errorf("delete settled approval: %w", err)
	}

	log.Printf("[Approval] user=%s approved sender %s/%s, contact=%s, imported=%d",
		userID, approval.Platform, approval.SenderID, contact.ID, imported)
	return &DecisionResult{Action: "approve", ContactID: contact.ID, ImportedMessages: imported}, nil
}

func (u *approvalUsecase) reject(userID string, approval *approvaldomain.PendingApproval) (*DecisionResult, error) {
	entry := &approvaldomain.BlacklistEntry{
		UserID:     userID,
		Platform:   approval.Platform,
		SenderID:   approval.SenderID,
		SenderName: approval.SenderName,
		Reason:     "rejected from pending approval",
	}
	if err := u.blacklistRepo.Create(entry); err != nil {
		return nil, fmt.Errorf("create blacklist entry: %w", err)
	}

	if err := u.approvalRepo.Delete(userID, approval.ID); err != nil {
		return nil, fmt.Errorf("delete settled approval: %w", err)
	}

	log.Printf("[Approval] user=%s rejected sender %s/%s", userID, approval.Platform, approval.SenderID)
	return &DecisionResult{Action: "reject"}, nil
}

// OpenMergeReview records an ambiguous identity match for user review. The
// new contact is already created with PENDING_MERGE_REVIEW status; the
// review row points at the best-scoring candidate.
func (u *approvalUsecase) OpenMergeReview(userID string, identity *platform.Identity, contactID string, match *contactdomain.ScoredMatch) error {
	existing, err := u.approvalRepo.FindBySender(userID, identity.Platform, identity.PlatformID)
	if err != nil {
		return fmt.Errorf("find merge review: %w", err)
	}
	if existing != nil {
		return nil
	}

	now := time.Now()
	review := &approvaldomain.PendingApproval{
		UserID:              userID,
		Platform:            identity.Platform,
		SenderID:            identity.PlatformID,
		SenderName:          identity.Name,
		SenderEmail:         identity.Email,
		SenderHandle:        identity.Handle,
		FirstMessageDate:    now,
		LastMessageDate:     now,
		PotentialMatchID:    match.ContactID,
		PotentialMatchScore: match.Score,
		MatchReasons:        strings.Join(match.Reasons, "; "),
	}
	if err := u.approvalRepo.Create(review); err != nil {
		return fmt.Errorf("create merge review: %w", err)
	}
	return nil
}

func (u *approvalUsecase) ListPending(userID string) ([]*approvaldomain.PendingApproval, error) {
	return u.approvalRepo.FindAllByUser(userID)
}

func (u *approvalUsecase) ListBlacklist(userID string) ([]*approvaldomain.BlacklistEntry, error) {
	return u.blacklistRepo.FindAllByUser(userID)
}

// truncate cuts on a rune boundary so a multi-byte character straddling the
// limit never leaves invalid UTF-8 behind.
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

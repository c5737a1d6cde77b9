package usecase

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	approvaldomain "unibox-backend/internal/approval/domain"
	contactdomain "unibox-backend/internal/contact/domain"
	messagedomain "unibox-backend/internal/message/domain"
	"unibox-backend/pkg/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApprovalRepo struct {
	approvals map[string]*approvaldomain.PendingApproval
	nextID    int
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{approvals: make(map[string]*approvaldomain.PendingApproval)}
}

func (r *fakeApprovalRepo) Create(approval *approvaldomain.PendingApproval) error {
	r.nextID++
	approval.ID = fmt.Sprintf("approval-%d", r.nextID)
	r.approvals[approval.ID] = approval
	return nil
}

func (r *fakeApprovalRepo) FindByID(userID, id string) (*approvaldomain.PendingApproval, error) {
	approval, ok := r.approvals[id]
	if !ok || approval.UserID != userID {
		return nil, nil
	}
	return approval, nil
}

func (r *fakeApprovalRepo) FindBySender(userID, platformName, senderID string) (*approvaldomain.PendingApproval, error) {
	for _, approval := range r.approvals {
		if approval.UserID == userID && approval.Platform == platformName && approval.SenderID == senderID {
			return approval, nil
		}
	}
	return nil, nil
}

func (r *fakeApprovalRepo) FindAllByUser(userID string) ([]*approvaldomain.PendingApproval, error) {
	var result []*approvaldomain.PendingApproval
	for _, approval := range r.approvals {
		if approval.UserID == userID {
			result = append(result, approval)
		}
	}
	return result, nil
}

func (r *fakeApprovalRepo) Update(approval *approvaldomain.PendingApproval) error {
	r.approvals[approval.ID] = approval
	return nil
}

func (r *fakeApprovalRepo) AppendStub(approvalID string, stub *approvaldomain.PendingMessageStub) error {
	approval, ok := r.approvals[approvalID]
	if !ok {
		return fmt.Errorf("approval %s not found", approvalID)
	}
	stub.ApprovalID = approvalID
	approval.Stubs = append(approval.Stubs, *stub)
	return nil
}

func (r *fakeApprovalRepo) Delete(userID, id string) error {
	delete(r.approvals, id)
	return nil
}

type fakeBlacklistRepo struct {
	entries []*approvaldomain.BlacklistEntry
}

func (r *fakeBlacklistRepo) Create(entry *approvaldomain.BlacklistEntry) error {
	entry.ID = fmt.Sprintf("bl-%d", len(r.entries)+1)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeBlacklistRepo) IsBlacklisted(userID, platformName, senderID string) (bool, error) {
	for _, entry := range r.entries {
		if entry.UserID == userID && entry.Platform == platformName && entry.SenderID == senderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBlacklistRepo) FindAllByUser(userID string) ([]*approvaldomain.BlacklistEntry, error) {
	var result []*approvaldomain.BlacklistEntry
	for _, entry := range r.entries {
		if entry.UserID == userID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeBlacklistRepo) Delete(userID, id string) error {
	for i, entry := range r.entries {
		if entry.UserID == userID && entry.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeContactStore struct {
	contacts map[string]*contactdomain.UnifiedContact
	nextID   int
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{contacts: make(map[string]*contactdomain.UnifiedContact)}
}

func (r *fakeContactStore) Create(contact *contactdomain.UnifiedContact) error {
	r.nextID++
	contact.ID = fmt.Sprintf("contact-%d", r.nextID)
	for i := range contact.Identities {
		contact.Identities[i].ContactID = contact.ID
		contact.Identities[i].UserID = contact.UserID
	}
	r.contacts[contact.ID] = contact
	return nil
}

func (r *fakeContactStore) FindByID(userID, id string) (*contactdomain.UnifiedContact, error) {
	contact, ok := r.contacts[id]
	if !ok || contact.UserID != userID {
		return nil, nil
	}
	return contact, nil
}

func (r *fakeContactStore) FindAllByUser(userID string) ([]*contactdomain.UnifiedContact, error) {
	var result []*contactdomain.UnifiedContact
	for _, contact := range r.contacts {
		if contact.UserID == userID {
			result = append(result, contact)
		}
	}
	return result, nil
}

func (r *fakeContactStore) FindActiveByUser(userID string) ([]*contactdomain.UnifiedContact, error) {
	var result []*contactdomain.UnifiedContact
	for _, contact := range r.contacts {
		if contact.UserID == userID && contact.Status == contactdomain.StatusActive {
			result = append(result, contact)
		}
	}
	return result, nil
}

func (r *fakeContactStore) Update(contact *contactdomain.UnifiedContact) error {
	r.contacts[contact.ID] = contact
	return nil
}

func (r *fakeContactStore) Delete(userID, id string) error {
	delete(r.contacts, id)
	return nil
}

func (r *fakeContactStore) AddIdentity(identity *contactdomain.PlatformIdentity) error {
	contact, ok := r.contacts[identity.ContactID]
	if !ok {
		return fmt.Errorf("contact %s not found", identity.ContactID)
	}
	contact.Identities = append(contact.Identities, *identity)
	return nil
}

// fakeIdentityIndex is a view over the contact store's identities
type fakeIdentityIndex struct {
	contacts *fakeContactStore
}

func (x *fakeIdentityIndex) Lookup(userID, platformName, platformID string) (string, error) {
	for _, contact := range x.contacts.contacts {
		if contact.UserID != userID {
			continue
		}
		if contact.HasIdentity(platformName, platformID) {
			return contact.ID, nil
		}
	}
	return "", nil
}

func (x *fakeIdentityIndex) Rebind(userID, fromContactID, toContactID string) error { return nil }

type fakeMessageStore struct {
	messages map[string]*messagedomain.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[string]*messagedomain.Message)}
}

func (r *fakeMessageStore) Create(message *messagedomain.Message) (bool, error) {
	key := message.UserID + "|" + message.Platform + "|" + message.PlatformMessageID
	if _, exists := r.messages[key]; exists {
		return false, nil
	}
	r.messages[key] = message
	return true, nil
}

func (r *fakeMessageStore) Exists(userID, platformName, platformMessageID string) (bool, error) {
	_, ok := r.messages[userID+"|"+platformName+"|"+platformMessageID]
	return ok, nil
}

func (r *fakeMessageStore) FindRecentByUser(userID string, limit int) ([]*messagedomain.Message, error) {
	var result []*messagedomain.Message
	for _, message := range r.messages {
		if message.UserID == userID {
			result = append(result, message)
		}
	}
	return result, nil
}

func (r *fakeMessageStore) FindByContact(userID, contactID string, limit, offset int) ([]*messagedomain.Message, int64, error) {
	var result []*messagedomain.Message
	for _, message := range r.messages {
		if message.UserID == userID && message.ContactID == contactID {
			result = append(result, message)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeMessageStore) CountByContact(userID, contactID string) (int64, error) {
	result, _, err := r.FindByContact(userID, contactID, 0, 0)
	return int64(len(result)), err
}

func (r *fakeMessageStore) ReassignContact(userID, fromContactID, toContactID string) error {
	for _, message := range r.messages {
		if message.UserID == userID && message.ContactID == fromContactID {
			message.ContactID = toContactID
		}
	}
	return nil
}

func newGateUnderTest() (ApprovalUsecase, *fakeApprovalRepo, *fakeBlacklistRepo, *fakeContactStore, *fakeMessageStore) {
	approvals := newFakeApprovalRepo()
	blacklist := &fakeBlacklistRepo{}
	contacts := newFakeContactStore()
	messages := newFakeMessageStore()
	gate := NewApprovalUsecase(approvals, blacklist, contacts, &fakeIdentityIndex{contacts: contacts}, messages)
	return gate, approvals, blacklist, contacts, messages
}

func incoming(platformName, msgID, senderID, senderName, content string, sentAt time.Time) *platform.Message {
	return &platform.Message{
		Platform:          platformName,
		PlatformMessageID: msgID,
		SenderID:          senderID,
		SenderName:        senderName,
		Content:           content,
		SentAt:            sentAt,
	}
}

func TestHandleIncomingKnownActiveContactSaves(t *testing.T) {
	gate, approvals, _, contacts, _ := newGateUnderTest()

	require.NoError(t, contacts.Create(&contactdomain.UnifiedContact{
		UserID: "user-1", DisplayName: "Jane", Status: contactdomain.StatusActive,
		Identities: []contactdomain.PlatformIdentity{{Platform: "gmail", PlatformID: "jane@x.com"}},
	}))

	result, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "jane@x.com", "Jane", "hi", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, approvaldomain.OutcomeSaved, result.Outcome)
	assert.NotEmpty(t, result.ContactID)
	assert.Empty(t, approvals.approvals)
}

func TestHandleIncomingUnknownSenderAggregates(t *testing.T) {
	gate, approvals, _, _, _ := newGateUnderTest()

	day1 := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	day3 := day1.Add(48 * time.Hour)

	result, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "stranger@x.com", "Stranger", "first message", day1))
	require.NoError(t, err)
	assert.Equal(t, approvaldomain.OutcomePending, result.Outcome)

	result, err = gate.HandleIncoming("user-1", incoming("gmail", "m2", "stranger@x.com", "Stranger", "second message", day3))
	require.NoError(t, err)
	assert.Equal(t, approvaldomain.OutcomePending, result.Outcome)

	require.Len(t, approvals.approvals, 1, "one approval per sender, not per message")
	for _, approval := range approvals.approvals {
		assert.Equal(t, 2, approval.MessageCount)
		assert.Equal(t, day1, approval.FirstMessageDate)
		assert.Equal(t, day3, approval.LastMessageDate)
		assert.Equal(t, "second message", approval.PreviewContent, "preview follows the newest message")
		assert.Len(t, approval.Stubs, 2)
	}
}

func TestPendingPreviewTruncatesOnRuneBoundary(t *testing.T) {
	gate, approvals, _, _, _ := newGateUnderTest()

	content := "résumé " + strings.Repeat("é", 120)
	_, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "cv@x.com", "CV", content, time.Now()))
	require.NoError(t, err)

	require.Len(t, approvals.approvals, 1)
	for _, approval := range approvals.approvals {
		assert.LessOrEqual(t, len(approval.PreviewContent), 120)
		assert.True(t, utf8.ValidString(approval.PreviewContent), "preview never splits a rune")
	}
}

func TestHandleIncomingRedeliveryDoesNotInflateCounters(t *testing.T) {
	gate, approvals, _, _, _ := newGateUnderTest()
	sentAt := time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)

	_, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "s@x.com", "S", "hello", sentAt))
	require.NoError(t, err)
	_, err = gate.HandleIncoming("user-1", incoming("gmail", "m1", "s@x.com", "S", "hello", sentAt))
	require.NoError(t, err)

	for _, approval := range approvals.approvals {
		assert.Equal(t, 1, approval.MessageCount)
		assert.Len(t, approval.Stubs, 1)
	}
}

func TestHandleIncomingBlacklistedSenderNeverPersists(t *testing.T) {
	gate, approvals, blacklist, _, messages := newGateUnderTest()

	require.NoError(t, blacklist.Create(&approvaldomain.BlacklistEntry{
		UserID: "user-1", Platform: "gmail", SenderID: "spam@x.com",
	}))

	result, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "spam@x.com", "Spam", "buy now", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, approvaldomain.OutcomeBlocked, result.Outcome)
	assert.Empty(t, approvals.approvals, "blocked senders never reach the pending queue")
	assert.Empty(t, messages.messages)
}

func TestDecideApproveCreatesContactAndImportsStubs(t *testing.T) {
	gate, approvals, _, contacts, messages := newGateUnderTest()
	day := time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC)

	_, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "new@x.com", "Newcomer", "first", day))
	require.NoError(t, err)
	_, err = gate.HandleIncoming("user-1", incoming("gmail", "m2", "new@x.com", "Newcomer", "second", day.Add(time.Hour)))
	require.NoError(t, err)

	var pendingID string
	for id := range approvals.approvals {
		pendingID = id
	}

	result, err := gate.Decide("user-1", pendingID, "approve")
	require.NoError(t, err)
	assert.Equal(t, "approve", result.Action)
	assert.Equal(t, 2, result.ImportedMessages)

	contact, err := contacts.FindByID("user-1", result.ContactID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, contactdomain.StatusActive, contact.Status)
	assert.True(t, contact.HasIdentity("gmail", "new@x.com"))

	assert.Len(t, messages.messages, 2)
	assert.Empty(t, approvals.approvals, "settled approvals are removed")

	// Next message from the now-known sender saves directly
	next, err := gate.HandleIncoming("user-1", incoming("gmail", "m3", "new@x.com", "Newcomer", "third", day.Add(2*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, approvaldomain.OutcomeSaved, next.Outcome)
}

func TestDecideRejectBlacklistsAndDiscards(t *testing.T) {
	gate, approvals, blacklist, _, messages := newGateUnderTest()

	_, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "bad@x.com", "Bad", "offer", time.Now()))
	require.NoError(t, err)

	var pendingID string
	for id := range approvals.approvals {
		pendingID = id
	}

	result, err := gate.Decide("user-1", pendingID, "reject")
	require.NoError(t, err)
	assert.Equal(t, "reject", result.Action)
	assert.Zero(t, result.ImportedMessages)
	assert.Empty(t, messages.messages, "rejected stubs are never imported")
	require.Len(t, blacklist.entries, 1)

	// Further traffic from the sender is blocked outright
	next, err := gate.HandleIncoming("user-1", incoming("gmail", "m2", "bad@x.com", "Bad", "again", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, approvaldomain.OutcomeBlocked, next.Outcome)
}

func TestDecideIsTerminal(t *testing.T) {
	gate, approvals, _, _, _ := newGateUnderTest()

	_, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "once@x.com", "Once", "hello", time.Now()))
	require.NoError(t, err)

	var pendingID string
	for id := range approvals.approvals {
		pendingID = id
	}

	_, err = gate.Decide("user-1", pendingID, "approve")
	require.NoError(t, err)

	// A second decision on the same approval fails either way
	_, err = gate.Decide("user-1", pendingID, "reject")
	assert.ErrorIs(t, err, ErrApprovalNotFound)
	_, err = gate.Decide("user-1", pendingID, "approve")
	assert.ErrorIs(t, err, ErrApprovalNotFound)
}

func TestDecideUnknownAction(t *testing.T) {
	gate, approvals, _, _, _ := newGateUnderTest()

	_, err := gate.HandleIncoming("user-1", incoming("gmail", "m1", "x@x.com", "X", "hello", time.Now()))
	require.NoError(t, err)

	var pendingID string
	for id := range approvals.approvals {
		pendingID = id
	}

	_, err = gate.Decide("user-1", pendingID, "snooze")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestOpenMergeReviewIsIdempotentPerSender(t *testing.T) {
	gate, approvals, _, _, _ := newGateUnderTest()

	identity := &platform.Identity{Platform: "telegram", PlatformID: "tg-7", Name: "Maybe Jane"}
	match := &contactdomain.ScoredMatch{ContactID: "c-existing", Score: 75, Reasons: []string{"name tokens match within email domain"}}

	require.NoError(t, gate.OpenMergeReview("user-1", identity, "c-new", match))
	require.NoError(t, gate.OpenMergeReview("user-1", identity, "c-new", match))

	require.Len(t, approvals.approvals, 1)
	for _, review := range approvals.approvals {
		assert.Equal(t, "c-existing", review.PotentialMatchID)
		assert.Equal(t, 75, review.PotentialMatchScore)
	}
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	approvaldomain "unibox-backend/internal/approval/domain"
	approvalusecase "unibox-backend/internal/approval/usecase"
	contactdomain "unibox-backend/internal/contact/domain"
	contactusecase "unibox-backend/internal/contact/usecase"
	messagedomain "unibox-backend/internal/message/domain"
	syncdomain "unibox-backend/internal/sync/domain"
	"unibox-backend/pkg/cache"
	"unibox-backend/pkg/platform"
	"unibox-backend/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory stores ----

type memContactRepo struct {
	mu       sync.Mutex
	contacts map[string]*contactdomain.UnifiedContact
	nextID   int
	clock    time.Time
}

func newMemContactRepo() *memContactRepo {
	return &memContactRepo{
		contacts: make(map[string]*contactdomain.UnifiedContact),
		clock:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memContactRepo) Create(contact *contactdomain.UnifiedContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	if contact.ID == "" {
		contact.ID = fmt.Sprintf("contact-%03d", r.nextID)
	}
	if contact.Status == "" {
		contact.Status = contactdomain.StatusActive
	}
	contact.CreatedAt = r.clock
	for i := range contact.Identities {
		contact.Identities[i].ContactID = contact.ID
		contact.Identities[i].UserID = contact.UserID
	}
	r.contacts[contact.ID] = contact
	return nil
}

func (r *memContactRepo) FindByID(userID, id string) (*contactdomain.UnifiedContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[id]
	if !ok || contact.UserID != userID {
		return nil, nil
	}
	return contact, nil
}

func (r *memContactRepo) FindAllByUser(userID string) ([]*contactdomain.UnifiedContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*contactdomain.UnifiedContact
	for _, contact := range r.contacts {
		if contact.UserID == userID && contact.Status != contactdomain.StatusArchivedDuplicate {
			result = append(result, contact)
		}
	}
	return result, nil
}

func (r *memContactRepo) FindActiveByUser(userID string) ([]*contactdomain.UnifiedContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*contactdomain.UnifiedContact
	for _, contact := range r.contacts {
		if contact.UserID == userID && contact.Status == contactdomain.StatusActive {
			result = append(result, contact)
		}
	}
	return result, nil
}

func (r *memContactRepo) Update(contact *contactdomain.UnifiedContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[contact.ID] = contact
	return nil
}

func (r *memContactRepo) Delete(userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts, id)
	return nil
}

func (r *memContactRepo) AddIdentity(identity *contactdomain.PlatformIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[identity.ContactID]
	if !ok {
		return fmt.Errorf("contact %s not found", identity.ContactID)
	}
	contact.Identities = append(contact.Identities, *identity)
	return nil
}

type memIdentityIndex struct {
	contacts *memContactRepo
}

func (x *memIdentityIndex) Lookup(userID, platformName, platformID string) (string, error) {
	x.contacts.mu.Lock()
	defer x.contacts.mu.Unlock()
	for _, contact := range x.contacts.contacts {
		if contact.UserID == userID && contact.HasIdentity(platformName, platformID) {
			return contact.ID, nil
		}
	}
	return "", nil
}

func (x *memIdentityIndex) Rebind(userID, fromContactID, toContactID string) error {
	x.contacts.mu.Lock()
	defer x.contacts.mu.Unlock()
	from, to := x.contacts.contacts[fromContactID], x.contacts.contacts[toContactID]
	if from == nil || to == nil {
		return fmt.Errorf("contact not found")
	}
	for _, identity := range from.Identities {
		identity.ContactID = toContactID
		to.Identities = append(to.Identities, identity)
	}
	from.Identities = nil
	return nil
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*messagedomain.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{messages: make(map[string]*messagedomain.Message)}
}

func (r *memMessageRepo) Create(message *messagedomain.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := message.UserID + "|" + message.Platform + "|" + message.PlatformMessageID
	if _, exists := r.messages[key]; exists {
		return false, nil
	}
	r.messages[key] = message
	return true, nil
}

func (r *memMessageRepo) Exists(userID, platformName, platformMessageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.messages[userID+"|"+platformName+"|"+platformMessageID]
	return ok, nil
}

func (r *memMessageRepo) FindRecentByUser(userID string, limit int) ([]*messagedomain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*messagedomain.Message
	for _, message := range r.messages {
		if message.UserID == userID {
			result = append(result, message)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memMessageRepo) FindByContact(userID, contactID string, limit, offset int) ([]*messagedomain.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*messagedomain.Message
	for _, message := range r.messages {
		if message.UserID == userID && message.ContactID == contactID {
			result = append(result, message)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memMessageRepo) CountByContact(userID, contactID string) (int64, error) {
	result, _, err := r.FindByContact(userID, contactID, 0, 0)
	return int64(len(result)), err
}

func (r *memMessageRepo) ReassignContact(userID, fromContactID, toContactID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range r.messages {
		if message.UserID == userID && message.ContactID == fromContactID {
			message.ContactID = toContactID
		}
	}
	return nil
}

// memSyncStateRepo mirrors the production decision order with an injectable
// clock so cooldown behaviour is testable without waiting.
type memSyncStateRepo struct {
	mu       sync.Mutex
	states   map[string]*syncdomain.SyncState
	cooldown time.Duration
	now      func() time.Time
}

func newMemSyncStateRepo(cooldown time.Duration) *memSyncStateRepo {
	return &memSyncStateRepo{
		states:   make(map[string]*syncdomain.SyncState),
		cooldown: cooldown,
		now:      time.Now,
	}
}

func (r *memSyncStateRepo) key(userID, platformName string) string {
	return userID + "|" + platformName
}

func (r *memSyncStateRepo) Get(userID, platformName string) (*syncdomain.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[r.key(userID, platformName)], nil
}

func (r *memSyncStateRepo) ShouldSync(userID, platformName string) (*syncdomain.SyncDecision, error) {
	state, _ := r.Get(userID, platformName)
	if state == nil {
		return &syncdomain.SyncDecision{ShouldSync: true, Reason: syncdomain.ReasonInitialSync}, nil
	}
	if state.IsCurrentlySyncing {
		return &syncdomain.SyncDecision{ShouldSync: false, Reason: syncdomain.ReasonSyncInProgress}, nil
	}
	if !state.InitialSyncComplete {
		return &syncdomain.SyncDecision{ShouldSync: true, Reason: syncdomain.ReasonInitialIncomplete, LastMessageTimestamp: state.LastMessageTimestamp}, nil
	}
	if r.now().Sub(state.LastSyncTimestamp) < r.cooldown {
		return &syncdomain.SyncDecision{ShouldSync: false, Reason: syncdomain.ReasonCooldown}, nil
	}
	return &syncdomain.SyncDecision{ShouldSync: true, Reason: syncdomain.ReasonIncremental, LastMessageTimestamp: state.LastMessageTimestamp}, nil
}

func (r *memSyncStateRepo) ensure(userID, platformName string) *syncdomain.SyncState {
	key := r.key(userID, platformName)
	state, ok := r.states[key]
	if !ok {
		state = &syncdomain.SyncState{UserID: userID, Platform: platformName}
		r.states[key] = state
	}
	return state
}

func (r *memSyncStateRepo) MarkInitialSyncComplete(userID, platformName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure(userID, platformName).InitialSyncComplete = true
	return nil
}

func (r *memSyncStateRepo) UpdateLastSync(userID, platformName string, newMessageCount int, latestTimestamp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.ensure(userID, platformName)
	state.LastSyncTimestamp = r.now()
	if newMessageCount > 0 {
		state.TotalMessagesProcessed += int64(newMessageCount)
	}
	if latestTimestamp.After(state.LastMessageTimestamp) {
		state.LastMessageTimestamp = latestTimestamp
	}
	return nil
}

func (r *memSyncStateRepo) SetSyncInProgress(userID, platformName string, inProgress bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure(userID, platformName).IsCurrentlySyncing = inProgress
	return nil
}

// memGate is a minimal approval gate: blacklisted senders block, senders
// bound to an active contact save, everyone else goes pending.
type memGate struct {
	mu        sync.Mutex
	contacts  *memContactRepo
	blacklist map[string]bool
	pending   map[string]int
	reviews   []string
	handled   int
}

func newMemGate(contacts *memContactRepo) *memGate {
	return &memGate{
		contacts:  contacts,
		blacklist: make(map[string]bool),
		pending:   make(map[string]int),
	}
}

func (g *memGate) HandleIncoming(userID string, msg *platform.Message) (*approvalusecase.GateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handled++
	if g.blacklist[msg.Platform+"|"+msg.SenderID] {
		return &approvalusecase.GateResult{Outcome: approvaldomain.OutcomeBlocked}, nil
	}

	g.contacts.mu.Lock()
	defer g.contacts.mu.Unlock()
	for _, contact := range g.contacts.contacts {
		if contact.UserID == userID && contact.Status == contactdomain.StatusActive &&
			contact.HasIdentity(msg.Platform, msg.SenderID) {
			return &approvalusecase.GateResult{Outcome: approvaldomain.OutcomeSaved, ContactID: contact.ID}, nil
		}
	}
	g.pending[msg.Platform+"|"+msg.SenderID]++
	return &approvalusecase.GateResult{Outcome: approvaldomain.OutcomePending}, nil
}

func (g *memGate) Decide(userID, pendingID, action string) (*approvalusecase.DecisionResult, error) {
	return nil, nil
}

func (g *memGate) OpenMergeReview(userID string, identity *platform.Identity, contactID string, match *contactdomain.ScoredMatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reviews = append(g.reviews, identity.Platform+"|"+identity.PlatformID)
	return nil
}

func (g *memGate) ListPending(userID string) ([]*approvaldomain.PendingApproval, error) {
	return nil, nil
}

func (g *memGate) ListBlacklist(userID string) ([]*approvaldomain.BlacklistEntry, error) {
	return nil, nil
}

// fakeAdapter serves canned contacts and messages
type fakeAdapter struct {
	name            string
	authed          bool
	identities      []*platform.Identity
	messages        []*platform.Message
	contactsErr     error
	messagesErr     error
	ignoreSince     bool // re-serve the full history regardless of the watermark
	fetchSinceCalls []time.Time
}

func (a *fakeAdapter) Name() string                                        { return a.name }
func (a *fakeAdapter) IsAuthenticated(ctx context.Context, userID string) bool { return a.authed }

func (a *fakeAdapter) FetchContacts(ctx context.Context, userID string) ([]*platform.Identity, error) {
	if a.contactsErr != nil {
		return nil, a.contactsErr
	}
	return a.identities, nil
}

func (a *fakeAdapter) FetchMessages(ctx context.Context, userID string, opts platform.FetchOptions) ([]*platform.Message, error) {
	a.fetchSinceCalls = append(a.fetchSinceCalls, opts.Since)
	if a.messagesErr != nil {
		return nil, a.messagesErr
	}
	var result []*platform.Message
	for _, msg := range a.messages {
		if a.ignoreSince || msg.SentAt.After(opts.Since) {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (a *fakeAdapter) SendMessage(ctx context.Context, userID string, out *platform.OutgoingMessage) (*platform.SendResult, error) {
	return &platform.SendResult{PlatformMessageID: "sent-1"}, nil
}

type fixture struct {
	contacts  *memContactRepo
	messages  *memMessageRepo
	syncState *memSyncStateRepo
	gate      *memGate
}

func newSyncUnderTest(adapters []platform.Adapter, cooldown time.Duration) (SyncUsecase, *fixture) {
	contacts := newMemContactRepo()
	messages := newMemMessageRepo()
	syncState := newMemSyncStateRepo(cooldown)
	gate := newMemGate(contacts)
	index := &memIdentityIndex{contacts: contacts}

	uc := NewSyncUsecase(
		adapters,
		contacts,
		index,
		messages,
		syncState,
		gate,
		contactusecase.NewResolver(90, 40),
		contactusecase.NewMerger(contacts, index, messages),
		nil,
		cache.New(100),
		100,
	)
	return uc, &fixture{contacts: contacts, messages: messages, syncState: syncState, gate: gate}
}

func gmailIdentity(id, name, email string) *platform.Identity {
	return &platform.Identity{Platform: "gmail", PlatformID: id, Name: name, Email: email}
}

func gmailMessage(msgID, senderID, content string, sentAt time.Time) *platform.Message {
	return &platform.Message{
		Platform:          "gmail",
		PlatformMessageID: msgID,
		ThreadID:          "thread-" + msgID,
		SenderID:          senderID,
		Content:           content,
		SentAt:            sentAt,
	}
}

func TestSyncAllPlatformsFirstRun(t *testing.T) {
	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		name:   "gmail",
		authed: true,
		identities: []*platform.Identity{
			gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com"),
		},
		messages: []*platform.Message{
			gmailMessage("m1", "jane@x.com", "hello from jane", base),
			gmailMessage("m2", "jane@x.com", "second distinct note about the project", base.Add(time.Hour)),
		},
	}
	uc, fx := newSyncUnderTest([]platform.Adapter{adapter}, time.Hour)

	report := uc.SyncAllPlatforms(context.Background(), "user-1")

	require.Len(t, report.Platforms, 1)
	assert.True(t, report.Platforms[0].Synced)
	assert.Equal(t, 1, report.Platforms[0].NewContacts)
	assert.Equal(t, 2, report.Platforms[0].NewMessages)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.TotalContacts)

	state, _ := fx.syncState.Get("user-1", "gmail")
	require.NotNil(t, state)
	assert.True(t, state.InitialSyncComplete)
	assert.False(t, state.IsCurrentlySyncing, "in-progress flag is cleared")
	assert.Equal(t, base.Add(time.Hour), state.LastMessageTimestamp, "watermark advances to the newest message")
	assert.Equal(t, int64(2), state.TotalMessagesProcessed)
}

func TestSyncSecondRunWithinCooldownSkips(t *testing.T) {
	base := time.Date(2026, 8, 11, 9, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		name:       "gmail",
		authed:     true,
		identities: []*platform.Identity{gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com")},
		messages:   []*platform.Message{gmailMessage("m1", "jane@x.com", "hello", base)},
	}
	uc, _ := newSyncUnderTest([]platform.Adapter{adapter}, time.Hour)

	first := uc.SyncAllPlatforms(context.Background(), "user-1")
	assert.Equal(t, 1, first.TotalMessages)

	second := uc.SyncAllPlatforms(context.Background(), "user-1")
	require.Len(t, second.Platforms, 1)
	assert.False(t, second.Platforms[0].Synced)
	assert.Equal(t, syncdomain.ReasonCooldown, second.Platforms[0].SkipReason)
	assert.Zero(t, second.TotalMessages)
}

func TestSyncIncrementalUsesWatermark(t *testing.T) {
	base := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		name:       "gmail",
		authed:     true,
		identities: []*platform.Identity{gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com")},
		messages:   []*platform.Message{gmailMessage("m1", "jane@x.com", "hello", base)},
	}
	uc, fx := newSyncUnderTest([]platform.Adapter{adapter}, time.Hour)

	clock := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	fx.syncState.now = func() time.Time { return clock }

	first := uc.SyncAllPlatforms(context.Background(), "user-1")
	assert.Equal(t, 1, first.TotalMessages)

	// Past the cooldown, with one new message on the platform
	clock = clock.Add(2 * time.Hour)
	adapter.messages = append(adapter.messages,
		gmailMessage("m2", "jane@x.com", "a brand new update arrived since", base.Add(3*time.Hour)))

	second := uc.SyncAllPlatforms(context.Background(), "user-1")
	require.Len(t, second.Platforms, 1)
	assert.True(t, second.Platforms[0].Synced)
	assert.Equal(t, 1, second.Platforms[0].NewMessages, "only the message past the watermark lands")

	// The incremental fetch asked for messages after the stored watermark
	lastSince := adapter.fetchSinceCalls[len(adapter.fetchSinceCalls)-1]
	assert.Equal(t, base, lastSince)
}

func TestSyncIdempotentReplayCreatesNothing(t *testing.T) {
	base := time.Date(2026, 8, 13, 9, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		name:       "gmail",
		authed:     true,
		identities: []*platform.Identity{gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com")},
		messages:   []*platform.Message{gmailMessage("m1", "jane@x.com", "hello", base)},
	}
	uc, fx := newSyncUnderTest([]platform.Adapter{adapter}, 0) // no cooldown: replay immediately

	clock := base
	fx.syncState.now = func() time.Time { return clock }
	fx.syncState.cooldown = time.Nanosecond

	first := uc.SyncAllPlatforms(context.Background(), "user-1")
	assert.Equal(t, 1, first.TotalMessages)
	assert.Equal(t, 1, first.TotalContacts)

	// Platform re-serves everything; watermark filtering plus the unique
	// message key keep the store unchanged.
	clock = clock.Add(time.Hour)
	adapter.fetchSinceCalls = nil
	second := uc.SyncAllPlatforms(context.Background(), "user-1")
	assert.Zero(t, second.TotalMessages)
	assert.Equal(t, 1, second.TotalContacts)
	assert.Len(t, fx.messages.messages, 1)
}

func TestFailedFirstSyncStaysIncompleteAndRetries(t *testing.T) {
	base := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		name:        "gmail",
		authed:      true,
		contactsErr: ratelimit.ErrExhausted,
		messagesErr: ratelimit.ErrExhausted,
	}
	uc, fx := newSyncUnderTest([]platform.Adapter{adapter}, time.Hour)

	first := uc.SyncAllPlatforms(context.Background(), "user-1")
	require.Len(t, first.Platforms, 1)
	assert.False(t, first.Platforms[0].Synced)
	assert.NotEmpty(t, first.Errors)

	state, _ := fx.syncState.Get("user-1", "gmail")
	require.NotNil(t, state)
	assert.False(t, state.InitialSyncComplete, "a failed first sync never counts as done")

	// The platform recovers: the very next run retries instead of sitting
	// out the cooldown.
	adapter.contactsErr, adapter.messagesErr = nil, nil
	adapter.identities = []*platform.Identity{gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com")}
	adapter.messages = []*platform.Message{gmailMessage("m1", "jane@x.com", "hello", base)}

	second := uc.SyncAllPlatforms(context.Background(), "user-1")
	require.Len(t, second.Platforms, 1)
	assert.True(t, second.Platforms[0].Synced)
	assert.Equal(t, 1, second.Platforms[0].NewMessages)

	state, _ = fx.syncState.Get("user-1", "gmail")
	require.NotNil(t, state)
	assert.True(t, state.InitialSyncComplete)
}

func TestSyncReplaySkipsAlreadyStoredMessages(t *testing.T) {
	base := time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		name:        "gmail",
		authed:      true,
		ignoreSince: true, // platform re-serves its full history on every fetch
		identities:  []*platform.Identity{gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com")},
		messages:    []*platform.Message{gmailMessage("m1", "jane@x.com", "hello", base)},
	}
	uc, fx := newSyncUnderTest([]platform.Adapter{adapter}, time.Hour)

	clock := base
	fx.syncState.now = func() time.Time { return clock }
	fx.syncState.cooldown = time.Nanosecond

	first := uc.SyncAllPlatforms(context.Background(), "user-1")
	assert.Equal(t, 1, first.TotalMessages)
	assert.Equal(t, 1, fx.gate.handled)

	clock = clock.Add(time.Hour)
	second := uc.SyncAllPlatforms(context.Background(), "user-1")
	assert.Zero(t, second.TotalMessages)
	assert.Equal(t, 1, fx.gate.handled, "stored messages never re-enter the gate")
	assert.Len(t, fx.messages.messages, 1)
}

func TestSyncPlatformFailureIsolated(t *testing.T) {
	base := time.Date(2026, 8, 14, 9, 0, 0, 0, time.UTC)
	healthy := &fakeAdapter{
		name:       "gmail",
		authed:     true,
		identities: []*platform.Identity{gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com")},
		messages:   []*platform.Message{gmailMessage("m1", "jane@x.com", "hello", base)},
	}
	broken := &fakeAdapter{name: "imap", authed: false}

	uc, fx := newSyncUnderTest([]platform.Adapter{healthy, broken}, time.Hour)
	report := uc.SyncAllPlatforms(context.Background(), "user-1")

	require.Len(t, report.Platforms, 2)
	byName := map[string]syncdomain.PlatformSyncResult{}
	for _, p := range report.Platforms {
		byName[p.Platform] = p
	}
	assert.True(t, byName["gmail"].Synced)
	assert.Equal(t, 1, byName["gmail"].NewMessages)
	assert.False(t, byName["imap"].Synced)
	assert.Equal(t, "not authenticated", byName["imap"].SkipReason)
	assert.NotEmpty(t, report.Errors, "the failure is reported, not swallowed")

	// The broken platform never opened a sync state
	state, _ := fx.syncState.Get("user-1", "imap")
	assert.Nil(t, state)
}

func TestSyncWhileInProgressSkips(t *testing.T) {
	adapter := &fakeAdapter{name: "gmail", authed: true}
	uc, fx := newSyncUnderTest([]platform.Adapter{adapter}, time.Hour)

	require.NoError(t, fx.syncState.SetSyncInProgress("user-1", "gmail", true))

	report := uc.SyncAllPlatforms(context.Background(), "user-1")
	require.Len(t, report.Platforms, 1)
	assert.False(t, report.Platforms[0].Synced)
	assert.Equal(t, syncdomain.ReasonSyncInProgress, report.Platforms[0].SkipReason)
}

func TestSyncConsolidatesAcrossPlatforms(t *testing.T) {
	base := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	gmail := &fakeAdapter{
		name:       "gmail",
		authed:     true,
		identities: []*platform.Identity{gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com")},
		messages:   []*platform.Message{gmailMessage("m1", "jane@x.com", "hello over email", base)},
	}
	telegram := &fakeAdapter{
		name:   "telegram",
		authed: true,
		identities: []*platform.Identity{{
			Platform: "telegram", PlatformID: "tg-jane", Name: "Jane Doe", Email: "jane@x.com",
		}},
		messages: []*platform.Message{{
			Platform: "telegram", PlatformMessageID: "t1", ThreadID: "tg-thread",
			SenderID: "tg-jane", Content: "hello over telegram instead", SentAt: base.Add(time.Minute),
		}},
	}

	uc, fx := newSyncUnderTest([]platform.Adapter{gmail, telegram}, time.Hour)
	report := uc.SyncAllPlatforms(context.Background(), "user-1")

	assert.Equal(t, 2, report.TotalMessages)
	assert.Equal(t, 1, report.TotalContacts, "both identities collapse into one person")

	all, err := fx.contacts.FindAllByUser("user-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	survivor := all[0]
	assert.True(t, survivor.HasIdentity("gmail", "jane@x.com"))
	assert.True(t, survivor.HasIdentity("telegram", "tg-jane"))

	count, err := fx.messages.CountByContact("user-1", survivor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "no message lost in the merge")
}

func TestSyncBotIdentityRejectedWithoutError(t *testing.T) {
	base := time.Date(2026, 8, 16, 9, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		name:   "gmail",
		authed: true,
		identities: []*platform.Identity{
			gmailIdentity("noreply@shop.com", "Shop Updates", "noreply@shop.com"),
			gmailIdentity("jane@x.com", "Jane Doe", "jane@x.com"),
		},
		messages: []*platform.Message{gmailMessage("m1", "jane@x.com", "hello", base)},
	}
	uc, _ := newSyncUnderTest([]platform.Adapter{adapter}, time.Hour)

	report := uc.SyncAllPlatforms(context.Background(), "user-1")
	require.Len(t, report.Platforms, 1)
	assert.Equal(t, 1, report.Platforms[0].NewContacts, "the automated sender is dropped silently")
	assert.Empty(t, report.Errors)
}

func TestSyncMessagesFromUnknownSendersGoPending(t *testing.T) {
	base := time.Date(2026, 8, 17, 9, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		name:   "gmail",
		authed: true,
		messages: []*platform.Message{
			gmailMessage("m1", "stranger@x.com", "who dis", base),
		},
	}
	uc, fx := newSyncUnderTest([]platform.Adapter{adapter}, time.Hour)

	report := uc.SyncAllPlatforms(context.Background(), "user-1")
	require.Len(t, report.Platforms, 1)
	assert.Equal(t, 1, report.Platforms[0].Pending)
	assert.Zero(t, report.TotalMessages)
	assert.Empty(t, fx.messages.messages)

	state, _ := fx.syncState.Get("user-1", "gmail")
	require.NotNil(t, state)
	assert.Equal(t, base, state.LastMessageTimestamp, "watermark advances past held-back messages")
}

func TestSendMessageRoutesToNamedAdapter(t *testing.T) {
	gmail := &fakeAdapter{name: "gmail", authed: true}
	uc, _ := newSyncUnderTest([]platform.Adapter{gmail}, time.Hour)

	result, err := uc.SendMessage(context.Background(), "user-1", "gmail", &platform.OutgoingMessage{
		To: "jane@x.com", Body: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", result.PlatformMessageID)

	_, err = uc.SendMessage(context.Background(), "user-1", "matrix", &platform.OutgoingMessage{To: "x"})
	assert.Error(t, err)
}

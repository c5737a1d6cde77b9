package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	approvaldomain "unibox-backend/internal/approval/domain"
	approvalusecase "unibox-backend/internal/approval/usecase"
	contactdomain "unibox-backend/internal/contact/domain"
	contactrepo "unibox-backend/internal/contact/repository"
	contactusecase "unibox-backend/internal/contact/usecase"
	messagedomain "unibox-backend/internal/message/domain"
	messagerepo "unibox-backend/internal/message/repository"
	messageusecase "unibox-backend/internal/message/usecase"
	syncdomain "unibox-backend/internal/sync/domain"
	syncrepo "unibox-backend/internal/sync/repository"
	"unibox-backend/pkg/ai"
	"unibox-backend/pkg/cache"
	"unibox-backend/pkg/platform"
	"unibox-backend/pkg/ratelimit"

	"github.com/codeGROOVE-dev/retry"
)

const (
	dedupSeedSize  = 50
	insightTimeout = 20 * time.Second
)

// syncUsecase implements SyncUsecase. Adapters are injected, never pulled
// from a global registry, so tests run against fakes without process state.
type syncUsecase struct {
	adapters      []platform.Adapter
	contactRepo   contactrepo.ContactRepository
	identityIndex contactrepo.IdentityIndexRepository
	messageRepo   messagerepo.MessageRepository
	syncStateRepo syncrepo.SyncStateRepository
	approvalGate  approvalusecase.ApprovalUsecase
	resolver      *contactusecase.Resolver
	merger        *contactusecase.Merger
	insight       ai.InsightService
	userCache     *cache.Store
	fetchSize     int
}

// NewSyncUsecase creates a new instance of syncUsecase
func NewSyncUsecase(
	adapters []platform.Adapter,
	contactRepo contactrepo.ContactRepository,
	identityIndex contactrepo.IdentityIndexRepository,
	messageRepo messagerepo.MessageRepository,
	syncStateRepo syncrepo.SyncStateRepository,
	approvalGate approvalusecase.ApprovalUsecase,
	resolver *contactusecase.Resolver,
	merger *contactusecase.Merger,
	insight ai.InsightService,
	userCache *cache.Store,
	fetchSize int,
) SyncUsecase {
	if fetchSize <= 0 {
		fetchSize = 100
	}
	return &syncUsecase{
		adapters:      adapters,
		contactRepo:   contactRepo,
		identityIndex: identityIndex,
		messageRepo:   messageRepo,
		syncStateRepo: syncStateRepo,
		approvalGate:  approvalGate,
		resolver:      resolver,
		merger:        merger,
		insight:       insight,
		userCache:     userCache,
		fetchSize:     fetchSize,
	}
}

func (u *syncUsecase) SyncAllPlatforms(ctx context.Context, userID string) *syncdomain.SyncReport {
	report := &syncdomain.SyncReport{}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, adapter := range u.adapters {
		wg.Add(1)
		go func(a platform.Adapter) {
			defer wg.Done()
			result := u.syncPlatform(ctx, userID, a)
			mu.Lock()
			report.Platforms = append(report.Platforms, *result)
			report.TotalMessages += result.NewMessages
			report.Errors = append(report.Errors, result.Errors...)
			mu.Unlock()
		}(adapter)
	}
	// Consolidation must not start before every platform has finished
	wg.Wait()

	consolidation, err := u.merger.Consolidate(userID)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("consolidation: %v", err))
	} else {
		report.CrossPlatformMerges = consolidation.Merges
		report.Errors = append(report.Errors, consolidation.Errors...)
	}

	if contacts, err := u.contactRepo.FindAllByUser(userID); err == nil {
		report.TotalContacts = len(contacts)
	} else {
		report.Errors = append(report.Errors, fmt.Sprintf("count contacts: %v", err))
	}

	log.Printf("[Sync] user=%s finished: %d platforms, %d new messages, %d merges, %d errors",
		userID, len(report.Platforms), report.TotalMessages, report.CrossPlatformMerges, len(report.Errors))
	return report
}

// syncPlatform runs one platform's pipeline. Its errors stay inside its own
// result; the in-progress flag is cleared on every exit path.
func (u *syncUsecase) syncPlatform(ctx context.Context, userID string, adapter platform.Adapter) *syncdomain.PlatformSyncResult {
	result := &syncdomain.PlatformSyncResult{Platform: adapter.Name()}

	if !adapter.IsAuthenticated(ctx, userID) {
		result.SkipReason = "not authenticated"
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", adapter.Name(), platform.ErrNotAuthenticated))
		return result
	}

	decision, err := u.syncStateRepo.ShouldSync(userID, adapter.Name())
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: should-sync check: %v", adapter.Name(), err))
		return result
	}
	if !decision.ShouldSync {
		result.SkipReason = decision.Reason
		return result
	}

	// The flag goes up before any network call and comes down no matter how
	// this function exits.
	if err := u.syncStateRepo.SetSyncInProgress(userID, adapter.Name(), true); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: mark in progress: %v", adapter.Name(), err))
		return result
	}
	defer func() {
		if err := u.syncStateRepo.SetSyncInProgress(userID, adapter.Name(), false); err != nil {
			log.Printf("[Sync] user=%s platform=%s failed to clear in-progress flag: %v", userID, adapter.Name(), err)
		}
	}()

	result.Synced = true
	contactsFetched := u.syncContacts(ctx, userID, adapter, result)
	latest, messagesFetched := u.syncMessages(ctx, userID, adapter, decision.LastMessageTimestamp, result)

	if err := u.syncStateRepo.UpdateLastSync(userID, adapter.Name(), result.NewMessages, latest); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: update sync state: %v", adapter.Name(), err))
	}

	// A first sync whose fetches failed stays incomplete, so the next run
	// retries instead of sitting out the cooldown.
	initial := decision.Reason == syncdomain.ReasonInitialSync || decision.Reason == syncdomain.ReasonInitialIncomplete
	if initial && result.Synced && contactsFetched && messagesFetched {
		if err := u.syncStateRepo.MarkInitialSyncComplete(userID, adapter.Name()); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: mark initial complete: %v", adapter.Name(), err))
		}
	}
	return result
}

// syncContacts fetches and resolves the platform's contact list, reporting
// whether the fetch itself went through. Contacts already known from a prior
// sync are not re-fetched on every run; the per-user cache marker gates the
// refresh.
func (u *syncUsecase) syncContacts(ctx context.Context, userID string, adapter platform.Adapter, result *syncdomain.PlatformSyncResult) bool {
	cacheKey := "contacts_fetched:" + adapter.Name()
	if _, ok := u.userCache.Get(userID, cacheKey); ok {
		return true
	}

	identities, err := adapter.FetchContacts(ctx, userID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: fetch contacts: %v", adapter.Name(), err))
		if errors.Is(err, platform.ErrNotAuthenticated) || errors.Is(err, ratelimit.ErrExhausted) {
			// Platform-level failure: give up on this platform, others continue
			result.Synced = false
		}
		return false
	}

	existing, err := u.contactRepo.FindAllByUser(userID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: load contacts: %v", adapter.Name(), err))
		return false
	}

	for _, identity := range identities {
		created, err := u.resolveIdentity(userID, identity, existing)
		if err != nil {
			if errors.Is(err, contactusecase.ErrBotIdentity) {
				// A rejection, not a failure
				log.Printf("[Resolver] user=%s dropped %s/%s: %v", userID, identity.Platform, identity.PlatformID, err)
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: resolve %s: %v", adapter.Name(), identity.PlatformID, err))
			continue
		}
		if created != nil {
			existing = append(existing, created)
			result.NewContacts++
		}
	}

	u.userCache.Put(userID, cacheKey, time.Now().Format(time.RFC3339))
	return true
}

// resolveIdentity scores one incoming identity and applies the threshold
// policy. Returns the newly created contact, when one was created.
func (u *syncUsecase) resolveIdentity(userID string, identity *platform.Identity, existing []*contactdomain.UnifiedContact) (*contactdomain.UnifiedContact, error) {
	// Indexed short-circuit: the pair is already bound to a contact
	if contactID, err := u.identityIndex.Lookup(userID, identity.Platform, identity.PlatformID); err != nil {
		return nil, fmt.Errorf("identity lookup: %w", err)
	} else if contactID != "" {
		return nil, nil
	}

	matches, err := u.resolver.Resolve(identity, existing)
	if err != nil {
		return nil, err
	}

	metadata, err := platform.EncodeMetadata(identity.Metadata)
	if err != nil {
		return nil, err
	}
	newIdentity := contactdomain.PlatformIdentity{
		UserID:     userID,
		Platform:   identity.Platform,
		PlatformID: identity.PlatformID,
		Handle:     identity.Handle,
		Email:      identity.Email,
		Metadata:   metadata,
	}

	resolution := u.resolver.Decide(matches)
	switch resolution.Action {
	case contactdomain.ActionMerge:
		target := findContact(existing, resolution.Best.ContactID)
		if target == nil {
			return nil, fmt.Errorf("match candidate %s not loaded", resolution.Best.ContactID)
		}
		if target.HasIdentity(identity.Platform, identity.PlatformID) {
			return nil, nil
		}
		newIdentity.ContactID = target.ID
		if err := u.contactRepo.AddIdentity(&newIdentity); err != nil {
			return nil, fmt.Errorf("attach identity: %w", err)
		}
		target.Identities = append(target.Identities, newIdentity)
		if target.Email == "" && identity.Email != "" {
			target.Email = identity.Email
			if err := u.contactRepo.Update(target); err != nil {
				return nil, fmt.Errorf("update merged contact: %w", err)
			}
		}
		return nil, nil

	case contactdomain.ActionReview:
		contact := &contactdomain.UnifiedContact{
			UserID:      userID,
			DisplayName: displayName(identity),
			Email:       identity.Email,
			PhotoURL:    "",
			Status:      contactdomain.StatusPendingMergeReview,
			Identities:  []contactdomain.PlatformIdentity{newIdentity},
		}
		if err := u.contactRepo.Create(contact); err != nil {
			return nil, fmt.Errorf("create review contact: %w", err)
		}
		// A failed review record is a persistence error to report, never a
		// silent downgrade to auto-create.
		if err := u.approvalGate.OpenMergeReview(userID, identity, contact.ID, resolution.Best); err != nil {
			return contact, fmt.Errorf("open merge review: %w", err)
		}
		return contact, nil

	default: // ActionCreate
		contact := &contactdomain.UnifiedContact{
			UserID:      userID,
			DisplayName: displayName(identity),
			Email:       identity.Email,
			Status:      contactdomain.StatusActive,
			Identities:  []contactdomain.PlatformIdentity{newIdentity},
		}
		if err := u.contactRepo.Create(contact); err != nil {
			return nil, fmt.Errorf("create contact: %w", err)
		}
		return contact, nil
	}
}

// syncMessages fetches messages since the watermark, routes each through the
// approval gate and the dedup filter, and persists the survivors. Returns
// the latest message timestamp observed and whether the fetch went through.
func (u *syncUsecase) syncMessages(ctx context.Context, userID string, adapter platform.Adapter, since time.Time, result *syncdomain.PlatformSyncResult) (time.Time, bool) {
	latest := since

	messages, err := adapter.FetchMessages(ctx, userID, platform.FetchOptions{
		Limit: u.fetchSize,
		Since: since,
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: fetch messages: %v", adapter.Name(), err))
		if errors.Is(err, platform.ErrNotAuthenticated) || errors.Is(err, ratelimit.ErrExhausted) {
			result.Synced = false
		}
		return latest, false
	}

	dedup := messageusecase.NewDeduplicationFilter()
	if recent, err := u.messageRepo.FindRecentByUser(userID, dedupSeedSize); err == nil {
		dedup.Seed(recent)
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: seed dedup window: %v", adapter.Name(), err))
	}

	for _, msg := range messages {
		if msg.SentAt.After(latest) {
			latest = msg.SentAt
		}

		// Re-served messages skip the gate and filter entirely
		if exists, err := u.messageRepo.Exists(userID, msg.Platform, msg.PlatformMessageID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: check %s: %v", adapter.Name(), msg.PlatformMessageID, err))
			continue
		} else if exists {
			continue
		}

		gateResult, err := u.approvalGate.HandleIncoming(userID, msg)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: gate %s: %v", adapter.Name(), msg.PlatformMessageID, err))
			continue
		}

		switch gateResult.Outcome {
		case approvaldomain.OutcomeBlocked:
			result.Blocked++
			continue
		case approvaldomain.OutcomePending:
			result.Pending++
			continue
		}

		stored, err := u.buildMessage(userID, gateResult.ContactID, msg)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: convert %s: %v", adapter.Name(), msg.PlatformMessageID, err))
			continue
		}

		if dedup.IsDuplicate(stored) {
			continue
		}

		u.enrich(ctx, stored)

		// Each message persists independently; one failure never sinks the batch
		var created bool
		err = retry.Do(func() error {
			var createErr error
			created, createErr = u.messageRepo.Create(stored)
			return createErr
		}, retry.Attempts(3), retry.LastErrorOnly(true))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: persist %s: %v", adapter.Name(), msg.PlatformMessageID, err))
			continue
		}
		if created {
			result.NewMessages++
		}
	}
	return latest, true
}

func (u *syncUsecase) buildMessage(userID, contactID string, msg *platform.Message) (*messagedomain.Message, error) {
	metadata, err := platform.EncodeMetadata(msg.Metadata)
	if err != nil {
		return nil, err
	}
	return &messagedomain.Message{
		UserID:            userID,
		ContactID:         contactID,
		Platform:          msg.Platform,
		PlatformMessageID: msg.PlatformMessageID,
		ThreadID:          msg.ThreadID,
		Subject:           msg.Subject,
		Content:           msg.Content,
		Metadata:          metadata,
		SentAt:            msg.SentAt,
	}, nil
}

// enrich attaches optional AI insight. Failure leaves the raw content in
// place; persistence never waits on the model being healthy.
func (u *syncUsecase) enrich(ctx context.Context, msg *messagedomain.Message) {
	if u.insight == nil {
		return
	}
	insightCtx, cancel := context.WithTimeout(ctx, insightTimeout)
	defer cancel()

	insight, err := u.insight.AnalyzeMessage(insightCtx, msg.Content)
	if err != nil {
		log.Printf("[Insight] analysis failed for %s: %v", msg.PlatformMessageID, err)
		return
	}
	if insight.CleanedContent != "" {
		msg.Content = insight.CleanedContent
	}
	msg.Summary = insight.Summary
	msg.Urgency = insight.Urgency
	msg.Category = insight.Category
}

func (u *syncUsecase) SendMessage(ctx context.Context, userID, platformName string, out *platform.OutgoingMessage) (*platform.SendResult, error) {
	for _, adapter := range u.adapters {
		if adapter.Name() == platformName {
			return adapter.SendMessage(ctx, userID, out)
		}
	}
	return nil, fmt.Errorf("no adapter configured for platform %q", platformName)
}

func findContact(contacts []*contactdomain.UnifiedContact, id string) *contactdomain.UnifiedContact {
	for _, contact := range contacts {
		if contact.ID == id {
			return contact
		}
	}
	return nil
}

func displayName(identity *platform.Identity) string {
	if identity.Name != "" {
		return identity.Name
	}
	if identity.Email != "" {
		return identity.Email
	}
	if identity.Handle != "" {
		return identity.Handle
	}
	return identity.PlatformID
}

package usecase

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	contactdomain "unibox-backend/internal/contact/domain"
	contactrepo "unibox-backend/internal/contact/repository"
	messagerepo "unibox-backend/internal/message/repository"

	"github.com/codeGROOVE-dev/retry"
	"unibox-backend/pkg/fuzzy"
)

// ConsolidationResult reports the outcome of a cross-platform merge pass
type ConsolidationResult struct {
	Merges int      `json:"merges"`
	Errors []string `json:"errors,omitempty"`
}

// Merger runs the cross-platform consolidation pass: contacts that share an
// exact email (or, lacking one, an exact name) collapse into the
// earliest-created contact. The pass is idempotent: once converged,
// re-running it changes nothing.
type Merger struct {
	contactRepo   contactrepo.ContactRepository
	identityIndex contactrepo.IdentityIndexRepository
	messageRepo   messagerepo.MessageRepository
}

func NewMerger(
	contactRepo contactrepo.ContactRepository,
	identityIndex contactrepo.IdentityIndexRepository,
	messageRepo messagerepo.MessageRepository,
) *Merger {
	return &Merger{
		contactRepo:   contactRepo,
		identityIndex: identityIndex,
		messageRepo:   messageRepo,
	}
}

// Consolidate merges every duplicate group for the user. Only ACTIVE contacts
// take part: a contact awaiting merge review is the user's call, not the
// pass's. A failed group is left unmerged and reported; the remaining groups
// still merge.
func (m *Merger) Consolidate(userID string) (*ConsolidationResult, error) {
	contacts, err := m.contactRepo.FindActiveByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("load contacts for consolidation: %w", err)
	}

	result := &ConsolidationResult{}
	for key, group := range groupForMerge(contacts) {
		if len(group) < 2 {
			continue
		}
		if err := m.mergeGroup(userID, group); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("merge group %q: %v", key, err))
			continue
		}
		result.Merges += len(group) - 1
	}
	return result, nil
}

// groupForMerge buckets contacts by exact lowercased email, falling back to
// exact normalized name for contacts without one. Grouping is deterministic,
// so the merge outcome does not depend on iteration order.
func groupForMerge(contacts []*contactdomain.UnifiedContact) map[string][]*contactdomain.UnifiedContact {
	groups := make(map[string][]*contactdomain.UnifiedContact)
	for _, contact := range contacts {
		var key string
		if contact.Email != "" {
			key = "email:" + strings.ToLower(contact.Email)
		} else if name := fuzzy.NormalizeString(contact.DisplayName); name != "" {
			key = "name:" + name
		} else {
			continue
		}
		groups[key] = append(groups[key], contact)
	}
	return groups
}

func (m *Merger) mergeGroup(userID string, group []*contactdomain.UnifiedContact) error {
	// Earliest-created contact survives; ties break on id for determinism
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].CreatedAt.Equal(group[j].CreatedAt) {
			return group[i].ID < group[j].ID
		}
		return group[i].CreatedAt.Before(group[j].CreatedAt)
	})
	primary := group[0]

	for _, other := range group[1:] {
		if err := m.mergeInto(userID, primary, other); err != nil {
			return err
		}
		log.Printf("[Merge] user=%s merged contact %s into %s", userID, other.ID, primary.ID)
	}

	primary.UpdatedAt = time.Now()
	return m.contactRepo.Update(primary)
}

// mergeInto moves everything the duplicate owns onto the primary, then
// deletes it. Each store write retries independently so a transient failure
// does not leave the group half-done without reporting.
func (m *Merger) mergeInto(userID string, primary, other *contactdomain.UnifiedContact) error {
	// Union metadata: fill gaps on the primary, never overwrite
	if primary.Email == "" && other.Email != "" {
		primary.Email = other.Email
	}
	if primary.DisplayName == "" && other.DisplayName != "" {
		primary.DisplayName = other.DisplayName
	}
	if primary.PhotoURL == "" && other.PhotoURL != "" {
		primary.PhotoURL = other.PhotoURL
	}

	err := retry.Do(func() error {
		return m.identityIndex.Rebind(userID, other.ID, primary.ID)
	}, retry.Attempts(3), retry.LastErrorOnly(true))
	if err != nil {
		return fmt.Errorf("rebind identities: %w", err)
	}

	err = retry.Do(func() error {
		return m.messageRepo.ReassignContact(userID, other.ID, primary.ID)
	}, retry.Attempts(3), retry.LastErrorOnly(true))
	if err != nil {
		return fmt.Errorf("reassign messages: %w", err)
	}

	err = retry.Do(func() error {
		return m.contactRepo.Delete(userID, other.ID)
	}, retry.Attempts(3), retry.LastErrorOnly(true))
	if err != nil {
		return fmt.Errorf("delete merged contact: %w", err)
	}
	return nil
}

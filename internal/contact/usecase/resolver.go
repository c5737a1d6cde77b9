package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	contactdomain "unibox-backend/internal/contact/domain"
	"unibox-backend/pkg/fuzzy"
	"unibox-backend/pkg/platform"
)

const (
	maxMatches         = 5
	fuzzyNameThreshold = 0.70
)

// ErrBotIdentity rejects automated accounts before any matching happens.
// This is a validation rejection, not a failure.
var ErrBotIdentity = errors.New("identity rejected as automated account")

// Resolver scores an incoming platform identity against the user's existing
// unified contacts. Strategies run independently; a contact keeps its best
// score across all of them.
type Resolver struct {
	autoMergeThreshold  int
	autoCreateThreshold int
}

func NewResolver(autoMergeThreshold, autoCreateThreshold int) *Resolver {
	if autoMergeThreshold <= 0 {
		autoMergeThreshold = 90
	}
	if autoCreateThreshold <= 0 {
		autoCreateThreshold = 40
	}
	return &Resolver{
		autoMergeThreshold:  autoMergeThreshold,
		autoCreateThreshold: autoCreateThreshold,
	}
}

// Resolve returns candidate matches sorted by descending score, one entry per
// contact, top 5 kept. A definitive platform link short-circuits scoring.
func (r *Resolver) Resolve(identity *platform.Identity, existing []*contactdomain.UnifiedContact) ([]contactdomain.ScoredMatch, error) {
	if verdict := EvaluateBotRules(identity); verdict.IsBot {
		return nil, fmt.Errorf("%w: %s", ErrBotIdentity, strings.Join(verdict.Reasons, "; "))
	}

	best := make(map[string]*contactdomain.ScoredMatch)

	record := func(contactID string, score int, reason string, definitive bool) {
		match, ok := best[contactID]
		if !ok {
			best[contactID] = &contactdomain.ScoredMatch{
				ContactID:  contactID,
				Score:      score,
				Reasons:    []string{reason},
				Definitive: definitive,
			}
			return
		}
		match.Reasons = append(match.Reasons, reason)
		if score > match.Score {
			match.Score = score
		}
		if definitive {
			match.Definitive = true
		}
	}

	for _, contact := range existing {
		// Strategy 1: definitive link on the exact (platform, native id) pair.
		// Always wins regardless of other scores.
		if contact.HasIdentity(identity.Platform, identity.PlatformID) {
			record(contact.ID, contactdomain.ScoreDefinitiveLink, "already linked on "+identity.Platform, true)
			continue
		}

		// Strategy 2: exact email match
		if identity.Email != "" && strings.EqualFold(contact.Email, identity.Email) {
			record(contact.ID, contactdomain.ScoreExactEmail, "exact email match", false)
		}

		// Strategy 3: name tokens overlap within the same email domain
		if r.nameAndDomainMatch(identity, contact) {
			record(contact.ID, contactdomain.ScoreNameAndDomain, "name tokens match within email domain", false)
		}

		// Strategy 4: handle appears inside the contact's email or name
		if r.handleMatch(identity, contact) {
			record(contact.ID, contactdomain.ScoreHandleMatch, "handle substring match", false)
		}

		// Strategy 5: fuzzy display-name similarity
		if sim := fuzzy.NameSimilarity(identity.Name, contact.DisplayName); sim >= fuzzyNameThreshold {
			record(contact.ID, contactdomain.ScoreFuzzyName, fmt.Sprintf("fuzzy name similarity %.2f", sim), false)
		}
	}

	matches := make([]contactdomain.ScoredMatch, 0, len(best))
	for _, match := range best {
		matches = append(matches, *match)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ContactID < matches[j].ContactID
	})
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches, nil
}

// Decide applies the caller-facing threshold policy to scored matches
func (r *Resolver) Decide(matches []contactdomain.ScoredMatch) contactdomain.Resolution {
	if len(matches) == 0 {
		return contactdomain.Resolution{Action: contactdomain.ActionCreate}
	}

	top := matches[0]
	if top.Definitive || top.Score >= r.autoMergeThreshold {
		return contactdomain.Resolution{Action: contactdomain.ActionMerge, Best: &top}
	}
	if top.Score < r.autoCreateThreshold {
		return contactdomain.Resolution{Action: contactdomain.ActionCreate, Best: &top}
	}
	return contactdomain.Resolution{Action: contactdomain.ActionReview, Best: &top}
}

// nameAndDomainMatch requires at least 2 of the identity's name tokens (or
// all of them when it has fewer) to appear among the contact's name tokens,
// restricted to contacts sharing the identity's email domain.
func (r *Resolver) nameAndDomainMatch(identity *platform.Identity, contact *contactdomain.UnifiedContact) bool {
	domain := contactdomain.EmailDomain(identity.Email)
	if domain == "" || contact.EmailDomain() != domain {
		return false
	}

	identityTokens := fuzzy.Tokens(identity.Name)
	contactTokens := fuzzy.Tokens(contact.DisplayName)
	if len(identityTokens) == 0 || len(contactTokens) == 0 {
		return false
	}

	required := 2
	if len(identityTokens) < required {
		required = len(identityTokens)
	}
	return fuzzy.TokenOverlap(identityTokens, contactTokens) >= required
}

func (r *Resolver) handleMatch(identity *platform.Identity, contact *contactdomain.UnifiedContact) bool {
	handle := strings.ToLower(strings.TrimSpace(identity.Handle))
	if handle == "" {
		return false
	}
	if contact.Email != "" && strings.Contains(strings.ToLower(contact.Email), handle) {
		return true
	}
	return contact.DisplayName != "" && strings.Contains(strings.ToLower(contact.DisplayName), handle)
}

package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	messagedomain "unibox-backend/internal/message/domain"
	"unibox-backend/pkg/fuzzy"
)

const (
	dedupWindowSize     = 50
	contentCompareChars = 200
	similarityThreshold = 0.80
)

// DeduplicationFilter detects duplicate messages two ways: a compound key
// collision (thread/subject + contact + day) and near-identical content
// reaching the system under a different key. The content comparison window
// is bounded so cost stays flat regardless of batch size.
type DeduplicationFilter struct {
	seenKeys map[string]struct{}
	window   []string // normalized content prefixes, oldest first
}

func NewDeduplicationFilter() *DeduplicationFilter {
	return &DeduplicationFilter{
		seenKeys: make(map[string]struct{}),
	}
}

// Seed preloads the filter with already-persisted messages so a new batch is
// compared against recent history, not just itself.
func (f *DeduplicationFilter) Seed(messages []*messagedomain.Message) {
	for _, msg := range messages {
		f.remember(msg)
	}
}

// Key builds the compound primary dedup key: threadId when present, else a
// subject|contact fallback, always combined with the contact and the
// message's day.
func (f *DeduplicationFilter) Key(msg *messagedomain.Message) string {
	base := msg.ThreadID
	if base == "" {
		base = msg.Subject + "|" + msg.ContactID
	}
	return fmt.Sprintf("%s|%s|%s", base, msg.ContactID, msg.SentAt.Format("2006-01-02"))
}

// IsDuplicate reports whether the message collides with anything already
// seen, by key or by content similarity. Non-duplicates are remembered.
func (f *DeduplicationFilter) IsDuplicate(msg *messagedomain.Message) bool {
	key := f.Key(msg)
	if _, ok := f.seenKeys[key]; ok {
		return true
	}

	candidate := normalizeContent(msg.Content)
	if candidate != "" {
		for _, prev := range f.window {
			if fuzzy.SimilarityRatio(candidate, prev) >= similarityThreshold {
				return true
			}
		}
	}

	f.remember(msg)
	return false
}

// Dedupe filters a batch, keeping first occurrences in order
func (f *DeduplicationFilter) Dedupe(messages []*messagedomain.Message) []*messagedomain.Message {
	kept := make([]*messagedomain.Message, 0, len(messages))
	for _, msg := range messages {
		if !f.IsDuplicate(msg) {
			kept = append(kept, msg)
		}
	}
	return kept
}

func (f *DeduplicationFilter) remember(msg *messagedomain.Message) {
	f.seenKeys[f.Key(msg)] = struct{}{}

	content := normalizeContent(msg.Content)
	if content == "" {
		return
	}
	f.window = append(f.window, content)
	if len(f.window) > dedupWindowSize {
		f.window = f.window[1:] // evict oldest
	}
}

// normalizeContent lowercases and bounds the comparison prefix, cutting on a
// rune boundary so the prefix stays valid UTF-8.
func normalizeContent(content string) string {
	content = strings.ToLower(strings.TrimSpace(content))
	if len(content) > contentCompareChars {
		cut := contentCompareChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}
	return content
}

package platform

import (
	"encoding/json"
	"fmt"
)

const (
	PlatformGmail = "gmail"
	PlatformIMAP  = "imap"
)

// Metadata is the per-platform payload attached to identities and messages.
// One concrete shape exists per known platform; raw platform data is decoded
// and validated at the adapter boundary, never stored as an untyped blob.
type Metadata interface {
	PlatformName() string
}

// GmailMetadata carries Gmail-specific message attributes
type GmailMetadata struct {
	ThreadID  string   `json:"thread_id,omitempty"`
	LabelIDs  []string `json:"label_ids,omitempty"`
	HistoryID uint64   `json:"history_id,omitempty"`
}

func (GmailMetadata) PlatformName() string { return PlatformGmail }

// IMAPMetadata carries IMAP-specific message attributes
type IMAPMetadata struct {
	Mailbox string   `json:"mailbox,omitempty"`
	UID     uint32   `json:"uid,omitempty"`
	Flags   []string `json:"flags,omitempty"`
}

func (IMAPMetadata) PlatformName() string { return PlatformIMAP }

// EncodeMetadata serializes metadata for storage. Nil encodes as empty.
func EncodeMetadata(m Metadata) (string, error) {
	if m == nil {
		return "", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode %s metadata: %w", m.PlatformName(), err)
	}
	return string(raw), nil
}

// DecodeMetadata parses stored metadata back into its platform shape
func DecodeMetadata(platformName, raw string) (Metadata, error) {
	if raw == "" {
		return nil, nil
	}
	switch platformName {
	case PlatformGmail:
		var m GmailMetadata
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode gmail metadata: %w", err)
		}
		return m, nil
	case PlatformIMAP:
		var m IMAPMetadata
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode imap metadata: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platformName)
	}
}

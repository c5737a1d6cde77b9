package platform

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// ErrNotAuthenticated is returned when a user has no usable credentials for a
// platform.
var ErrNotAuthenticated = errors.New("platform credentials missing or expired")

// Identity is a contact as one platform reports it
type Identity struct {
	Platform   string
	PlatformID string
	Name       string
	Handle     string
	Email      string
	Metadata   Metadata
}

// Message is an inbound message as one platform reports it
type Message struct {
	Platform          string
	PlatformMessageID string
	ThreadID          string
	Subject           string
	SenderID          string
	SenderName        string
	SenderEmail       string
	Content           string
	SentAt            time.Time
	Metadata          Metadata
}

// FetchOptions narrows a message fetch
type FetchOptions struct {
	Limit     int
	Since     time.Time
	ContactID string
}

// OutgoingMessage is a message to deliver through a platform
type OutgoingMessage struct {
	To      string
	Subject string
	Body    string
}

// SendResult reports the platform's acknowledgement of a send
type SendResult struct {
	PlatformMessageID string
	ThreadID          string
}

// Adapter is the common shape every messaging source implements
type Adapter interface {
	Name() string
	IsAuthenticated(ctx context.Context, userID string) bool
	FetchContacts(ctx context.Context, userID string) ([]*Identity, error)
	FetchMessages(ctx context.Context, userID string, opts FetchOptions) ([]*Message, error)
	SendMessage(ctx context.Context, userID string, out *OutgoingMessage) (*SendResult, error)
}

// Credentials holds the per-user secrets an adapter needs. OAuth tokens are
// opaque here; acquiring them is someone else's job.
type Credentials struct {
	Email        string
	AccessToken  string
	RefreshToken string
	IMAPServer   string
	IMAPPort     int
	IMAPPassword string
}

// CredentialStore supplies adapter credentials per user and persists refreshed
// OAuth tokens.
type CredentialStore interface {
	Credentials(userID string) (*Credentials, error)
	UpdateOAuthToken(userID string, token *oauth2.Token) error
}

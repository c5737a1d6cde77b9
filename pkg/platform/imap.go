package platform

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// IMAPAdapter exposes a generic IMAP mailbox through the common Adapter
// shape. Connections are short-lived: dial, work, logout.
type IMAPAdapter struct {
	creds CredentialStore
}

func NewIMAPAdapter(creds CredentialStore) *IMAPAdapter {
	return &IMAPAdapter{creds: creds}
}

func (a *IMAPAdapter) Name() string { return PlatformIMAP }

func (a *IMAPAdapter) IsAuthenticated(ctx context.Context, userID string) bool {
	c, err := a.creds.Credentials(userID)
	if err != nil || c == nil {
		return false
	}
	return c.IMAPServer != "" && c.IMAPPassword != ""
}

func (a *IMAPAdapter) connect(userID string) (*client.Client, *Credentials, error) {
	creds, err := a.creds.Credentials(userID)
	if err != nil {
		return nil, nil, err
	}
	if creds == nil || creds.IMAPServer == "" || creds.IMAPPassword == "" {
		return nil, nil, ErrNotAuthenticated
	}

	port := creds.IMAPPort
	if port == 0 {
		port = 993
	}

	c, err := client.DialTLS(fmt.Sprintf("%s:%d", creds.IMAPServer, port), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("imap dial: %w", err)
	}
	if err := c.Login(creds.Email, creds.IMAPPassword); err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("imap login: %w", ErrNotAuthenticated)
	}
	return c, creds, nil
}

// FetchContacts derives identities from the senders in the inbox, the same
// way the Gmail adapter does.
func (a *IMAPAdapter) FetchContacts(ctx context.Context, userID string) ([]*Identity, error) {
	messages, err := a.FetchMessages(ctx, userID, FetchOptions{Limit: 100})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	identities := make([]*Identity, 0)
	for _, msg := range messages {
		key := msg.SenderEmail
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		identities = append(identities, &Identity{
			Platform:   PlatformIMAP,
			PlatformID: key,
			Name:       msg.SenderName,
			Email:      key,
		})
	}
	return identities, nil
}

func (a *IMAPAdapter) FetchMessages(ctx context.Context, userID string, opts FetchOptions) ([]*Message, error) {
	c, _, err := a.connect(userID)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("imap select: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	if !opts.Since.IsZero() {
		criteria.Since = opts.Since
	} else {
		criteria.Since = time.Now().AddDate(0, -1, 0)
	}
	// The contact id on this platform is the sender address
	if opts.ContactID != "" {
		criteria.Header.Add("From", opts.ContactID)
	}

	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(ids) > limit {
		ids = ids[len(ids)-limit:] // newest sequence numbers last
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchFlags, section.FetchItem()}

	ch := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, ch)
	}()

	var messages []*Message
	for msg := range ch {
		converted := convertIMAPMessage(msg, section)
		if converted != nil {
			messages = append(messages, converted)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	return messages, nil
}

// SendMessage is unsupported: outbound mail for IMAP accounts would need an
// SMTP collaborator that is not configured here.
func (a *IMAPAdapter) SendMessage(ctx context.Context, userID string, out *OutgoingMessage) (*SendResult, error) {
	return nil, fmt.Errorf("imap adapter cannot send messages")
}

func convertIMAPMessage(msg *imap.Message, section *imap.BodySectionName) *Message {
	if msg.Envelope == nil {
		return nil
	}

	out := &Message{
		Platform:          PlatformIMAP,
		PlatformMessageID: msg.Envelope.MessageId,
		Subject:           msg.Envelope.Subject,
		SentAt:            msg.Envelope.Date,
		Metadata: IMAPMetadata{
			Mailbox: "INBOX",
			UID:     msg.Uid,
			Flags:   msg.Flags,
		},
	}
	if out.PlatformMessageID == "" {
		out.PlatformMessageID = fmt.Sprintf("uid-%d", msg.Uid)
	}

	if len(msg.Envelope.From) > 0 {
		from := msg.Envelope.From[0]
		out.SenderName = from.PersonalName
		out.SenderEmail = strings.ToLower(from.Address())
		out.SenderID = out.SenderEmail
	}

	if body := msg.GetBody(section); body != nil {
		raw, err := io.ReadAll(body)
		if err == nil {
			out.Content = extractTextBody(string(raw))
		}
	}
	return out
}

// extractTextBody strips the RFC822 header block, leaving the body text
func extractTextBody(raw string) string {
	if idx := strings.Index(raw, "\r\n\r\n"); idx >= 0 {
		return strings.TrimSpace(raw[idx+4:])
	}
	if idx := strings.Index(raw, "\n\n"); idx >= 0 {
		return strings.TrimSpace(raw[idx+2:])
	}
	return strings.TrimSpace(raw)
}

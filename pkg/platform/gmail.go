package platform

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"unibox-backend/pkg/ratelimit"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GmailAdapter exposes a Gmail account through the common Adapter shape.
// Every API call goes through the rate-limited client so quota responses are
// retried with backoff instead of failing the sync.
type GmailAdapter struct {
	clientID     string
	clientSecret string
	creds        CredentialStore
	limiter      *ratelimit.Client
}

func NewGmailAdapter(clientID, clientSecret string, creds CredentialStore, limiter *ratelimit.Client) *GmailAdapter {
	return &GmailAdapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		creds:        creds,
		limiter:      limiter,
	}
}

func (a *GmailAdapter) Name() string { return PlatformGmail }

func (a *GmailAdapter) IsAuthenticated(ctx context.Context, userID string) bool {
	c, err := a.creds.Credentials(userID)
	if err != nil || c == nil {
		return false
	}
	return c.AccessToken != "" || c.RefreshToken != ""
}

// notifyTokenSource wraps an oauth2 token source so refreshed tokens are
// written back to the credential store.
type notifyTokenSource struct {
	src     oauth2.TokenSource
	current *oauth2.Token
	userID  string
	creds   CredentialStore
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.creds.UpdateOAuthToken(s.userID, t); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
	}
	return t, nil
}

func (a *GmailAdapter) service(ctx context.Context, userID string) (*gmail.Service, error) {
	c, err := a.creds.Credentials(userID)
	if err != nil {
		return nil, err
	}
	if c == nil || (c.AccessToken == "" && c.RefreshToken == "") {
		return nil, ErrNotAuthenticated
	}

	token := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	// Force a refresh attempt when we hold a refresh token
	if c.RefreshToken != "" {
		token.Expiry = time.Now()
	}

	cfg := &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrapped := &notifyTokenSource{
		src:     cfg.TokenSource(ctx, token),
		current: token,
		userID:  userID,
		creds:   a.creds,
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, wrapped)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// FetchContacts derives identities from the senders of recent mail. Gmail has
// no first-class contact list on this scope, so the inbox is the source of
// truth for who the user talks to.
func (a *GmailAdapter) FetchContacts(ctx context.Context, userID string) ([]*Identity, error) {
	messages, err := a.FetchMessages(ctx, userID, FetchOptions{Limit: 100})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]*Identity)
	order := make([]string, 0)
	for _, msg := range messages {
		key := msg.SenderEmail
		if key == "" {
			key = msg.SenderID
		}
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = &Identity{
			Platform:   PlatformGmail,
			PlatformID: key,
			Name:       msg.SenderName,
			Email:      msg.SenderEmail,
		}
		order = append(order, key)
	}

	identities := make([]*Identity, 0, len(seen))
	for _, key := range order {
		identities = append(identities, seen[key])
	}
	return identities, nil
}

func (a *GmailAdapter) FetchMessages(ctx context.Context, userID string, opts FetchOptions) ([]*Message, error) {
	srv, err := a.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	limit := int64(opts.Limit)
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500 // Gmail API maximum
	}

	q := buildGmailQuery(opts)

	var listResp *gmail.ListMessagesResponse
	err = a.limiter.Call(ctx, ratelimit.Key(userID, "gmail.messages.list"), func(ctx context.Context) error {
		call := srv.Users.Messages.List("me").MaxResults(limit)
		if q != "" {
			call = call.Q(q)
		}
		var callErr error
		listResp, callErr = call.Context(ctx).Do()
		return wrapGmailErr(callErr)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", err)
	}

	messages := make([]*Message, 0, len(listResp.Messages))
	for _, stub := range listResp.Messages {
		var full *gmail.Message
		err = a.limiter.Call(ctx, ratelimit.Key(userID, "gmail.messages.get"), func(ctx context.Context) error {
			var callErr error
			full, callErr = srv.Users.Messages.Get("me", stub.Id).Format("full").Context(ctx).Do()
			return wrapGmailErr(callErr)
		})
		if err != nil {
			// Skip individual messages we cannot fetch; the rest of the batch still counts
			continue
		}
		messages = append(messages, convertGmailMessage(full))
	}
	return messages, nil
}

func (a *GmailAdapter) SendMessage(ctx context.Context, userID string, out *OutgoingMessage) (*SendResult, error) {
	srv, err := a.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	var raw strings.Builder
	raw.WriteString("To: " + out.To + "\r\n")
	raw.WriteString("Subject: " + out.Subject + "\r\n")
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	raw.WriteString(out.Body)

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw.String())),
	}

	var sent *gmail.Message
	err = a.limiter.Call(ctx, ratelimit.Key(userID, "gmail.messages.send"), func(ctx context.Context) error {
		var callErr error
		sent, callErr = srv.Users.Messages.Send("me", msg).Context(ctx).Do()
		return wrapGmailErr(callErr)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to send message: %w", err)
	}
	return &SendResult{PlatformMessageID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// buildGmailQuery renders the fetch options as a Gmail search query. The
// contact id on this platform is the sender address, so a contact-scoped
// fetch becomes a from: term.
func buildGmailQuery(opts FetchOptions) string {
	var terms []string
	if !opts.Since.IsZero() {
		terms = append(terms, "after:"+strconv.FormatInt(opts.Since.Unix(), 10))
	}
	if opts.ContactID != "" {
		terms = append(terms, "from:"+opts.ContactID)
	}
	return strings.Join(terms, " ")
}

// wrapGmailErr converts Gmail quota responses into rate-limit errors the
// limiter understands.
func wrapGmailErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		retryAfter := time.Second
		if v := apiErr.Header.Get("Retry-After"); v != "" {
			if secs, parseErr := strconv.Atoi(v); parseErr == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &ratelimit.RateLimitError{RetryAfter: retryAfter}
	}
	return err
}

func convertGmailMessage(msg *gmail.Message) *Message {
	out := &Message{
		Platform:          PlatformGmail,
		PlatformMessageID: msg.Id,
		ThreadID:          msg.ThreadId,
		SentAt:            time.UnixMilli(msg.InternalDate),
		Metadata: GmailMetadata{
			ThreadID:  msg.ThreadId,
			LabelIDs:  msg.LabelIds,
			HistoryID: msg.HistoryId,
		},
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				out.Subject = header.Value
			case "From":
				out.SenderName, out.SenderEmail = parseAddress(header.Value)
				out.SenderID = out.SenderEmail
			}
		}
		out.Content = extractBody(msg.Payload)
	}
	if out.Content == "" {
		out.Content = msg.Snippet
	}
	return out
}

// parseAddress splits `Display Name <user@host>` into its parts
func parseAddress(addr string) (name, email string) {
	addr = strings.TrimSpace(addr)
	if open := strings.LastIndex(addr, "<"); open >= 0 {
		close := strings.LastIndex(addr, ">")
		if close > open {
			email = strings.TrimSpace(addr[open+1 : close])
			name = strings.Trim(strings.TrimSpace(addr[:open]), `"`)
			return name, email
		}
	}
	if strings.Contains(addr, "@") {
		return "", addr
	}
	return addr, ""
}

func extractBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(decoded)
		}
	}
	// Prefer the plain-text part of multipart messages
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" {
			if body := extractBody(part); body != "" {
				return body
			}
		}
	}
	for _, part := range payload.Parts {
		if body := extractBody(part); body != "" {
			return body
		}
	}
	return ""
}

package repository

import (
	"unibox-backend/pkg/platform"
	"unibox-backend/pkg/utils/crypto"

	"golang.org/x/oauth2"
)

// credentialStore adapts the user repository to the platform.CredentialStore
// interface the adapters consume. IMAP passwords come out decrypted.
type credentialStore struct {
	users         UserRepository
	encryptionKey string
}

// NewCredentialStore creates a new instance of credentialStore
func NewCredentialStore(users UserRepository, encryptionKey string) platform.CredentialStore {
	return &credentialStore{users: users, encryptionKey: encryptionKey}
}

func (s *credentialStore) Credentials(userID string) (*platform.Credentials, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	creds := &platform.Credentials{
		Email:        user.Email,
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		IMAPServer:   user.ImapServer,
		IMAPPort:     user.ImapPort,
	}
	if user.ImapPassword != "" {
		decrypted, err := crypto.Decrypt(user.ImapPassword, s.encryptionKey)
		if err != nil {
			return nil, err
		}
		creds.IMAPPassword = decrypted
	}
	return creds, nil
}

func (s *credentialStore) UpdateOAuthToken(userID string, token *oauth2.Token) error {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	user.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		user.RefreshToken = token.RefreshToken
	}
	user.TokenExpiry = token.Expiry
	return s.users.Update(user)
}

package authsdk

import (
	"context"
	"sync"
	"time"
)

// refreshSkew refreshes slightly before the access token actually expires.
const refreshSkew = 30 * time.Second

// Session holds an access token and transparently rotates it through the
// client's refresh cookie once it is about to expire.
type Session struct {
	client *Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// LoginSession logs in and returns a Session.
func (c *Client) LoginSession(ctx context.Context, email, password string) (*Session, error) {
	tokens, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s := &Session{client: c}
	s.store(tokens)
	return s, nil
}

func (s *Session) store(t *TokenResponse) {
	s.accessToken = t.AccessToken
	s.expiresAt = t.ExpiresAt(time.Now()).Add(-refreshSkew)
}

// AccessToken returns a usable access token, refreshing it if needed.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	tokens, err := s.client.Refresh(ctx)
	if err != nil {
		return "", err
	}
	s.store(tokens)
	return s.accessToken, nil
}

func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.Me(ctx, token)
}

// Logout revokes the session and forgets the access token.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.accessToken = ""
	s.mu.Unlock()

	return s.client.Logout(ctx)
}

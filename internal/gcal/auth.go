package gcal

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrSignedOut is returned by AccessToken when no session is active.
var ErrSignedOut = errors.New("gcal: not signed in")

// Authenticator owns the Google session. The client only ever asks for the
// current access token; how it was obtained is the authenticator's business.
type Authenticator interface {
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is an Authenticator backed by a pre-issued bearer token, e.g.
// from HOURCAL_GOOGLE_TOKEN. SignIn activates the token, SignOut forgets the
// session until the next SignIn.
type StaticToken struct {
	mu       sync.Mutex
	token    string
	signedIn bool
}

// NewStaticToken returns a signed-in authenticator for token.
func NewStaticToken(token string) *StaticToken {
	token = strings.TrimSpace(token)
	return &StaticToken{token: token, signedIn: token != ""}
}

func (s *StaticToken) SignIn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return errors.New("gcal: no access token configured")
	}
	s.signedIn = true
	return nil
}

func (s *StaticToken) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.signedIn = false
	s.mu.Unlock()
	return nil
}

func (s *StaticToken) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.signedIn {
		return "", ErrSignedOut
	}
	return s.token, nil
}

package authinterceptor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sipwell/sipwell-client/internal/authapi"
	"github.com/sipwell/sipwell-client/internal/models"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (models.TokenSet, error)
	Register(ctx context.Context, profile authapi.RegisterRequest) error
}

// Session creates and destroys the token pair used by the interceptor.
type Session struct {
	store         TokenStore
	authenticator Authenticator
}

func NewSession(store TokenStore, authenticator Authenticator) (*Session, error) {
	if store == nil {
		return &Session{}, fmt.Errorf("token store is not initialized")
	}
	if authenticator == nil {
		return &Session{}, fmt.Errorf("authenticator is not initialized")
	}
	return &Session{store: store, authenticator: authenticator}, nil
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	tokens, err := s.authenticator.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := s.store.SetPair(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return err
	}
	slog.Info("SESSION", "message", "logged in", "refreshToken", tokens.HasRefreshToken())
	return nil
}

// Register creates the account and logs in with the same credentials.
func (s *Session) Register(ctx context.Context, profile authapi.RegisterRequest) error {
	if err := s.authenticator.Register(ctx, profile); err != nil {
		return err
	}
	if err := s.Login(ctx, profile.Email, profile.Password); err != nil {
		return fmt.Errorf("the account was created but logging in failed: %w", err)
	}
	return nil
}

// Logout removes both tokens. Already logged out is not an error.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	slog.Info("SESSION", "message", "logged out")
	return nil
}

// Authenticated reports whether an access token is stored.
func (s *Session) Authenticated(ctx context.Context) (bool, error) {
	token, err := s.store.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

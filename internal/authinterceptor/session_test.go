package authinterceptor

import (
	"context"
	"fmt"
	"testing"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/authapi"
	"github.com/sipwell/sipwell-client/internal/db"
	"github.com/sipwell/sipwell-client/internal/models"
	"github.com/sipwell/sipwell-client/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	users      map[string]string
	registered []authapi.RegisterRequest
}

func (f *fakeAuthenticator) Login(_ context.Context, email, password string) (models.TokenSet, error) {
	if f.users[email] != password || password == "" {
		return models.TokenSet{}, fmt.Errorf("%w: Invalid email or password", apperrors.ErrInvalidCredentials)
	}
	return models.TokenSet{AccessToken: "access-" + email, RefreshToken: "refresh-" + email}, nil
}

func (f *fakeAuthenticator) Register(_ context.Context, profile authapi.RegisterRequest) error {
	if _, found := f.users[profile.Email]; found {
		return fmt.Errorf("%w: User already exists", apperrors.ErrInvalidCredentials)
	}
	f.users[profile.Email] = profile.Password
	f.registered = append(f.registered, profile)
	return nil
}

func newTestSession(t *testing.T) (*Session, *tokenstore.TokenStore, *fakeAuthenticator) {
	store, err := tokenstore.NewTokenStore(tokenstore.WithTokenRepository(db.NewMemoryAdapter()))
	require.NoError(t, err)
	authenticator := &fakeAuthenticator{users: map[string]string{"ada@sipwell.app": "secret"}}
	session, err := NewSession(store, authenticator)
	require.NoError(t, err)
	return session, store, authenticator
}

func TestSessionLoginLogout(t *testing.T) {
	ctx := context.Background()
	session, store, _ := newTestSession(t)

	require.NoError(t, session.Login(ctx, "ada@sipwell.app", "secret"))
	authenticated, err := session.Authenticated(ctx)
	require.NoError(t, err)
	assert.True(t, authenticated)
	tokens, err := store.TokenSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TokenSet{AccessToken: "access-ada@sipwell.app", RefreshToken: "refresh-ada@sipwell.app"}, tokens)

	require.NoError(t, session.Logout(ctx))
	authenticated, err = session.Authenticated(ctx)
	require.NoError(t, err)
	assert.False(t, authenticated)
}

func TestSessionLoginFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	session, store, _ := newTestSession(t)

	err := session.Login(ctx, "ada@sipwell.app", "wrong")

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	tokens, err := store.TokenSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TokenSet{}, tokens)
}

func TestSessionRegisterLogsIn(t *testing.T) {
	ctx := context.Background()
	session, store, authenticator := newTestSession(t)

	err := session.Register(ctx, authapi.RegisterRequest{Name: "Grace", Email: "grace@sipwell.app", Password: "pw"})

	require.NoError(t, err)
	assert.Len(t, authenticator.registered, 1)
	access, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-grace@sipwell.app", access)
}

func TestSessionRegisterRejected(t *testing.T) {
	session, _, _ := newTestSession(t)

	err := session.Register(context.Background(), authapi.RegisterRequest{Email: "ada@sipwell.app", Password: "x"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogoutWhenLoggedOut(t *testing.T) {
	session, _, _ := newTestSession(t)

	assert.NoError(t, session.Logout(context.Background()))
}

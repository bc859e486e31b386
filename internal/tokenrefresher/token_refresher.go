// Package tokenrefresher refreshes the access token shortly before it expires, so that
// requests rarely have to recover from an expired token.
package tokenrefresher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sipwell/sipwell-client/internal/config"
)

type AccessTokenReader interface {
	AccessToken(ctx context.Context) (string, error)
}

// SessionRefresher is satisfied by the auth interceptor, so that scheduled refreshes
// are shared with the ones triggered by failing requests.
type SessionRefresher interface {
	Refresh(ctx context.Context) (string, error)
}

type TokenRefresher struct {
	ExpiresSoon time.Duration
	Interval    time.Duration

	tokenStore AccessTokenReader
	refresher  SessionRefresher
}

func (tr *TokenRefresher) GetScheduler() (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)

	refreshExpiringTokenTask := func(job gocron.Job) {
		_, err := tr.RefreshIfExpiring(job.Context())
		if err != nil {
			slog.Error("TOKEN REFRESHER", "message", "RefreshIfExpiring failed", "error", err)
		}
	}

	_, err := s.Every(tr.Interval).
		DoWithJobDetails(refreshExpiringTokenTask)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RefreshIfExpiring refreshes the session when the stored access token expires within
// ExpiresSoon. Tokens that are not JWTs or carry no expiry are left alone.
func (tr *TokenRefresher) RefreshIfExpiring(ctx context.Context) (bool, error) {
	token, err := tr.tokenStore.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}
	expiresAt, ok := AccessTokenExpiry(token)
	if !ok {
		slog.Debug("TOKEN REFRESHER", "message", "access token has no readable expiry, skipping")
		return false, nil
	}
	if time.Until(expiresAt) > tr.ExpiresSoon {
		return false, nil
	}
	slog.Debug("TOKEN REFRESHER", "message", "access token expires soon", "expiresAt", expiresAt)
	if _, err := tr.refresher.Refresh(ctx); err != nil {
		return false, err
	}
	slog.Info("TOKEN REFRESHER", "message", "access token refreshed ahead of expiry")
	return true, nil
}

// AccessTokenExpiry reads the exp claim without verifying the signature, the client
// cannot verify it and only uses it as a hint.
func AccessTokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

type TokenRefresherOption func(*TokenRefresher) error

func WithConfig(refreshConfig config.ProactiveRefreshConfig) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.ExpiresSoon = refreshConfig.ExpiresSoon
		tr.Interval = refreshConfig.Interval
		return nil
	}
}

func WithTokenStore(store AccessTokenReader) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.tokenStore = store
		return nil
	}
}

func WithSessionRefresher(refresher SessionRefresher) TokenRefresherOption {
	return func(tr *TokenRefresher) error {
		tr.refresher = refresher
		return nil
	}
}

// NewTokenRefresher creates a new TokenRefresher that refreshes the access token when it is expiring soon.
func NewTokenRefresher(options ...TokenRefresherOption) (*TokenRefresher, error) {
	tr := TokenRefresher{}
	for _, opt := range options {
		err := opt(&tr)
		if err != nil {
			return &TokenRefresher{}, err
		}
	}
	if tr.ExpiresSoon <= 0 {
		return &TokenRefresher{}, fmt.Errorf("invalid value for ExpiresSoon (%s)", tr.ExpiresSoon)
	}
	if tr.Interval <= 0 {
		return &TokenRefresher{}, fmt.Errorf("invalid value for Interval (%s)", tr.Interval)
	}
	if tr.tokenStore == nil {
		return &TokenRefresher{}, fmt.Errorf("token store not initialized")
	}
	if tr.refresher == nil {
		return &TokenRefresher{}, fmt.Errorf("session refresher not initialized")
	}
	return &tr, nil
}

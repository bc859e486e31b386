// Package authinterceptor attaches the session tokens to outgoing requests and recovers
// from expired access tokens with a single shared refresh.
package authinterceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/authapi"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/models"
	"github.com/sipwell/sipwell-client/internal/pipeline"
	"golang.org/x/sync/singleflight"
)

const headerAuthorization = "Authorization"

// refreshKey is the single slot of the refresh coordinator
const refreshKey = "refresh"

type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetPair(ctx context.Context, accessToken, refreshToken string) error
	Clear(ctx context.Context) error
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error)
	IsRefreshPath(path string) bool
}

// RefreshError is returned when a request failed authentication and the session could not be refreshed.
type RefreshError struct {
	// Cause wraps one of apperrors.ErrNoRefreshToken, ErrRefreshRejected or ErrRefreshUnavailable
	Cause error
	// Original is the auth failure response that triggered the refresh
	Original *pipeline.Response
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("request failed with status %d and the session could not be refreshed: %v", e.Original.StatusCode, e.Cause)
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}

// SessionEnded tells whether the tokens were cleared because of this error.
func (e *RefreshError) SessionEnded() bool {
	return !errors.Is(e.Cause, apperrors.ErrRefreshUnavailable)
}

type Interceptor struct {
	store            TokenStore
	refresher        Refresher
	refreshTimeout   time.Duration
	group            singleflight.Group
	// lock guards the generation and the outcome of the last settled refresh. The
	// generation moves before the singleflight slot is released, so a request holding
	// the lock either sees the new generation or joins the refresh still in flight.
	lock             sync.Mutex
	generation       uint64
	lastToken        string
	lastErr          error
	metrics          *Metrics
	onSessionCleared func(cause error)
}

// Middleware returns the interceptor as a pipeline middleware.
func (i *Interceptor) Middleware() pipeline.Middleware {
	return func(next pipeline.Handler) pipeline.Handler {
		return func(ctx context.Context, req *pipeline.Request) (*pipeline.Response, error) {
			return i.handle(ctx, req, next)
		}
	}
}

func (i *Interceptor) handle(ctx context.Context, req *pipeline.Request, next pipeline.Handler) (*pipeline.Response, error) {
	callerAuth := req.Header.Get(headerAuthorization) != ""
	sentGeneration := i.currentGeneration()
	sentToken := ""
	if !callerAuth {
		token, err := i.store.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot read the access token: %w", err)
		}
		if token != "" {
			req.Header.Set(headerAuthorization, "Bearer "+token)
			sentToken = token
		}
	}

	res, err := next(ctx, req)
	if err != nil {
		return res, err
	}
	if authapi.ClassifyAuthFailure(res.StatusCode, res.Message()) != authapi.Expired {
		return res, nil
	}
	if callerAuth || req.Retried() || i.refresher.IsRefreshPath(req.Path) {
		slog.Debug(
			"AUTH INTERCEPTOR",
			"message",
			"auth failure is terminal for this request",
			"path",
			req.Path,
			"status",
			res.StatusCode,
			"callerAuth",
			callerAuth,
			"retried",
			req.Retried(),
			"requestID",
			req.Header.Get(pipeline.HeaderRequestID),
		)
		return res, nil
	}

	req.MarkRetried()
	token, err := i.freshToken(ctx, sentGeneration, sentToken)
	if err != nil {
		slog.Info(
			"AUTH INTERCEPTOR",
			"message",
			"could not recover from auth failure",
			"path",
			req.Path,
			"error",
			err,
			"requestID",
			req.Header.Get(pipeline.HeaderRequestID),
		)
		return nil, &RefreshError{Cause: err, Original: res}
	}
	req.Header.Set(headerAuthorization, "Bearer "+token)
	i.metrics.retries.Inc()
	slog.Debug(
		"AUTH INTERCEPTOR",
		"message",
		"retrying request with refreshed token",
		"path",
		req.Path,
		"requestID",
		req.Header.Get(pipeline.HeaderRequestID),
	)
	return next(ctx, req)
}

func (i *Interceptor) currentGeneration() uint64 {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.generation
}

// freshToken returns an access token newer than the one sent at sentGeneration. A
// refresh settled since then is reused, otherwise the request joins or starts the
// refresh in flight. Nothing is read from the store before the slot is taken.
func (i *Interceptor) freshToken(ctx context.Context, sentGeneration uint64, sentToken string) (string, error) {
	i.lock.Lock()
	if i.generation != sentGeneration {
		token, err := i.lastToken, i.lastErr
		i.lock.Unlock()
		i.metrics.sharedWaits.Inc()
		return token, err
	}
	ch := i.group.DoChan(refreshKey, i.refreshFunc(ctx, sentToken))
	i.lock.Unlock()
	return i.await(ctx, ch)
}

// Refresh obtains a new access token. Concurrent callers share one refresh, which runs
// detached from the cancellation of the caller that started it.
func (i *Interceptor) Refresh(ctx context.Context) (string, error) {
	i.lock.Lock()
	ch := i.group.DoChan(refreshKey, i.refreshFunc(ctx, ""))
	i.lock.Unlock()
	return i.await(ctx, ch)
}

// refreshFunc runs in the singleflight slot. When the stored access token is no longer
// the one the starting request sent, the session was renewed elsewhere and that token is
// used without calling the backend.
func (i *Interceptor) refreshFunc(ctx context.Context, sentToken string) func() (any, error) {
	return func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.refreshTimeout)
		defer cancel()
		var token string
		var err error
		stored, storeErr := i.store.AccessToken(refreshCtx)
		if sentToken != "" && storeErr == nil && stored != "" && stored != sentToken {
			token = stored
		} else {
			token, err = i.refresh(refreshCtx)
		}
		i.lock.Lock()
		i.generation++
		i.lastToken, i.lastErr = token, err
		i.lock.Unlock()
		return token, err
	}
}

func (i *Interceptor) await(ctx context.Context, ch <-chan singleflight.Result) (string, error) {
	select {
	case res := <-ch:
		if res.Shared {
			i.metrics.sharedWaits.Inc()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", apperrors.ErrRefreshUnavailable, ctx.Err())
	}
}

func (i *Interceptor) refresh(ctx context.Context) (string, error) {
	refreshToken, err := i.store.RefreshToken(ctx)
	if err != nil {
		i.metrics.refreshes.WithLabelValues(resultUnavailable).Inc()
		return "", fmt.Errorf("%w: cannot read the refresh token: %w", apperrors.ErrRefreshUnavailable, err)
	}
	if refreshToken == "" {
		i.metrics.refreshes.WithLabelValues(resultNoRefreshToken).Inc()
		i.endSession(ctx, apperrors.ErrNoRefreshToken)
		return "", apperrors.ErrNoRefreshToken
	}

	slog.Debug("AUTH INTERCEPTOR", "message", "refreshing the access token")
	tokens, err := i.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRefreshUnavailable):
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			err = fmt.Errorf("%w: %w", apperrors.ErrRefreshUnavailable, err)
		case errors.Is(err, apperrors.ErrNoRefreshToken), errors.Is(err, apperrors.ErrRefreshRejected):
			i.metrics.refreshes.WithLabelValues(resultRejected).Inc()
			i.endSession(ctx, err)
			return "", err
		default:
			// anything that is not clearly transient ends the session
			err = fmt.Errorf("%w: %w", apperrors.ErrRefreshRejected, err)
			i.metrics.refreshes.WithLabelValues(resultRejected).Inc()
			i.endSession(ctx, err)
			return "", err
		}
		slog.Warn("AUTH INTERCEPTOR", "message", "refresh is unavailable, keeping the session", "error", err)
		i.metrics.refreshes.WithLabelValues(resultUnavailable).Inc()
		return "", err
	}

	if err := i.store.SetPair(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		i.metrics.refreshes.WithLabelValues(resultUnavailable).Inc()
		return "", fmt.Errorf("%w: cannot store the refreshed tokens: %w", apperrors.ErrRefreshUnavailable, err)
	}
	i.metrics.refreshes.WithLabelValues(resultSuccess).Inc()
	slog.Debug("AUTH INTERCEPTOR", "message", "access token refreshed", "tokens", tokens.String())
	return tokens.AccessToken, nil
}

func (i *Interceptor) endSession(ctx context.Context, cause error) {
	if err := i.store.Clear(ctx); err != nil {
		slog.Error("AUTH INTERCEPTOR", "message", "clearing the session failed", "error", err)
	}
	i.metrics.sessionsCleared.Inc()
	slog.Info("AUTH INTERCEPTOR", "message", "session ended", "cause", cause)
	if i.onSessionCleared != nil {
		i.onSessionCleared(cause)
	}
}

type InterceptorOption func(*Interceptor) error

func WithTokenStore(store TokenStore) InterceptorOption {
	return func(i *Interceptor) error {
		i.store = store
		return nil
	}
}

func WithRefresher(refresher Refresher) InterceptorOption {
	return func(i *Interceptor) error {
		i.refresher = refresher
		return nil
	}
}

func WithRefreshTimeout(timeout time.Duration) InterceptorOption {
	return func(i *Interceptor) error {
		i.refreshTimeout = timeout
		return nil
	}
}

func WithConfig(authConfig config.AuthConfig) InterceptorOption {
	return WithRefreshTimeout(authConfig.RefreshTimeout)
}

func WithMetrics(metrics *Metrics) InterceptorOption {
	return func(i *Interceptor) error {
		i.metrics = metrics
		return nil
	}
}

// WithSessionClearedHook registers a function called after the tokens were removed
// because the session could not be refreshed.
func WithSessionClearedHook(hook func(cause error)) InterceptorOption {
	return func(i *Interceptor) error {
		i.onSessionCleared = hook
		return nil
	}
}

func NewInterceptor(options ...InterceptorOption) (*Interceptor, error) {
	i := Interceptor{refreshTimeout: 10 * time.Second}
	for _, opt := range options {
		err := opt(&i)
		if err != nil {
			return &Interceptor{}, err
		}
	}
	if i.store == nil {
		return &Interceptor{}, fmt.Errorf("token store is not initialized")
	}
	if i.refresher == nil {
		return &Interceptor{}, fmt.Errorf("refresher is not initialized")
	}
	if i.refreshTimeout <= 0 {
		return &Interceptor{}, fmt.Errorf("invalid refresh timeout %s", i.refreshTimeout)
	}
	if i.metrics == nil {
		i.metrics = NewMetrics(nil)
	}
	return &i, nil
}

package authinterceptor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/authapi"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/db"
	"github.com/sipwell/sipwell-client/internal/models"
	"github.com/sipwell/sipwell-client/internal/pipeline"
	"github.com/sipwell/sipwell-client/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store        *tokenstore.TokenStore
	client       *pipeline.Client
	interceptor  *Interceptor
	metrics      *Metrics
	refreshCalls atomic.Int32
	// refreshTokens holds the refresh token of every refresh call
	refreshTokens chan string
}

type harnessOptions struct {
	// refreshURL overrides where the refresh calls go, used to simulate an unreachable backend
	refreshURL         string
	interceptorOptions []InterceptorOption
}

func newHarness(
	t *testing.T,
	protected http.HandlerFunc,
	refresh http.HandlerFunc,
	opts harnessOptions,
) *harness {
	h := &harness{refreshTokens: make(chan string, 10)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		h.refreshCalls.Add(1)
		refresh(w, r)
	})
	mux.HandleFunc("/", protected)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := tokenstore.NewTokenStore(tokenstore.WithTokenRepository(db.NewMemoryAdapter()))
	require.NoError(t, err)
	h.store = store
	refreshURL := srv.URL
	if opts.refreshURL != "" {
		refreshURL = opts.refreshURL
	}
	authClient, err := pipeline.NewClient(pipeline.WithBaseURL(refreshURL))
	require.NoError(t, err)
	adapter, err := authapi.NewAdapter(
		authapi.WithClient(authClient),
		authapi.WithRefreshCandidates(authapi.RefreshCandidate{
			Path:  "/api/auth/refresh",
			Shape: config.RefreshShapeSnakeCase,
		}),
	)
	require.NoError(t, err)
	h.metrics = NewMetrics(prometheus.NewRegistry())
	interceptor, err := NewInterceptor(append([]InterceptorOption{
		WithTokenStore(store),
		WithRefresher(adapter),
		WithMetrics(h.metrics),
	}, opts.interceptorOptions...)...)
	require.NoError(t, err)
	h.interceptor = interceptor
	client, err := pipeline.NewClient(
		pipeline.WithBaseURL(srv.URL),
		pipeline.WithMiddlewares(interceptor.Middleware()),
	)
	require.NoError(t, err)
	h.client = client
	return h
}

func (h *harness) tokens(t *testing.T) models.TokenSet {
	tokens, err := h.store.TokenSet(context.Background())
	require.NoError(t, err)
	return tokens
}

// acceptOnly answers 200 for the given bearer token and 401 for anything else.
func acceptOnly(token string, seen *[]string, lock *sync.Mutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			lock.Lock()
			*seen = append(*seen, r.Header.Get("Authorization"))
			lock.Unlock()
		}
		if r.Header.Get("Authorization") == "Bearer "+token {
			_, _ = w.Write([]byte(`{"ok": true}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "jwt expired"}`))
	}
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func get(h *harness) (*pipeline.Response, error) {
	return h.client.Do(context.Background(), pipeline.NewRequest(http.MethodGet, "/water/daily", nil))
}

func TestAttachesStoredToken(t *testing.T) {
	seen, lock := []string{}, sync.Mutex{}
	h := newHarness(t, acceptOnly("A1", &seen, &lock), respond(http.StatusInternalServerError, ``), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	res, err := get(h)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"Bearer A1"}, seen)
	assert.Equal(t, int32(0), h.refreshCalls.Load())
}

func TestNoTokenSendsNoHeader(t *testing.T) {
	seen, lock := []string{}, sync.Mutex{}
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		lock.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		lock.Unlock()
		w.WriteHeader(http.StatusOK)
	}, respond(http.StatusInternalServerError, ``), harnessOptions{})

	_, err := get(h)

	require.NoError(t, err)
	assert.Equal(t, []string{""}, seen)
}

func TestCallerAuthorizationIsKept(t *testing.T) {
	seen, lock := []string{}, sync.Mutex{}
	h := newHarness(t, acceptOnly("A1", &seen, &lock), respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))
	req := pipeline.NewRequest(http.MethodGet, "/water/daily", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	res, err := h.client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, []string{"Basic dXNlcjpwYXNz"}, seen)
	assert.Equal(t, int32(0), h.refreshCalls.Load())
	assert.Equal(t, models.TokenSet{AccessToken: "A1", RefreshToken: "R1"}, h.tokens(t))
}

func TestNonAuthFailuresPassThrough(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"message": "token expired"}`},
		{name: "business rule", status: http.StatusForbidden, body: `{"message": "not your log"}`},
		{name: "validation", status: http.StatusBadRequest, body: `{"message": "amount is required"}`},
		{name: "server error", status: http.StatusInternalServerError, body: ``},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t, respond(test.status, test.body), respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
			require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

			res, err := get(h)

			require.NoError(t, err)
			assert.Equal(t, test.status, res.StatusCode)
			assert.Equal(t, test.body, string(res.Body))
			assert.Equal(t, int32(0), h.refreshCalls.Load())
		})
	}
}

func TestExpiredMessageOnForbiddenRefreshes(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer A2" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "Token has expired"}`))
	}, respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	res, err := get(h)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, int32(1), h.refreshCalls.Load())
}

// Scenario A and the refresh token carryover.
func TestRefreshAndRetry(t *testing.T) {
	seen, lock := []string{}, sync.Mutex{}
	h := newHarness(t, acceptOnly("A2", &seen, &lock), func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "A2"}`))
	}, harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	res, err := get(h)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `{"ok": true}`, string(res.Body))
	assert.Equal(t, []string{"Bearer A1", "Bearer A2"}, seen)
	assert.Equal(t, int32(1), h.refreshCalls.Load())
	assert.Equal(t, models.TokenSet{AccessToken: "A2", RefreshToken: "R1"}, h.tokens(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.refreshes.WithLabelValues(resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.retries))
}

func TestRefreshStoresNewRefreshToken(t *testing.T) {
	h := newHarness(t, acceptOnly("A2", nil, nil), respond(http.StatusOK, `{"accessToken": "A2", "refreshToken": "R2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	_, err := get(h)

	require.NoError(t, err)
	assert.Equal(t, models.TokenSet{AccessToken: "A2", RefreshToken: "R2"}, h.tokens(t))
}

func TestRefreshSendsStoredRefreshToken(t *testing.T) {
	received := make(chan string, 1)
	h := newHarness(t, acceptOnly("A2", nil, nil), func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received <- string(body)
		_, _ = w.Write([]byte(`{"access_token": "A2"}`))
	}, harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	_, err := get(h)

	require.NoError(t, err)
	assert.Equal(t, `{"refresh_token":"R1"}`, <-received)
}

// A request is retried at most once, a second auth failure is returned as it is.
func TestNoDoubleRetry(t *testing.T) {
	h := newHarness(t, acceptOnly("never", nil, nil), respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	res, err := get(h)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.True(t, res.Request.Retried())
	assert.Equal(t, int32(1), h.refreshCalls.Load())
}

func TestAlreadyRetriedRequestIsTerminal(t *testing.T) {
	h := newHarness(t, acceptOnly("A2", nil, nil), respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))
	req := pipeline.NewRequest(http.MethodGet, "/water/daily", nil)
	req.MarkRetried()

	res, err := h.client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, int32(0), h.refreshCalls.Load())
}

func TestFailingRefreshCallIsNotRefreshed(t *testing.T) {
	h := newHarness(t, acceptOnly("A2", nil, nil), respond(http.StatusUnauthorized, `{"message": "jwt expired"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	res, err := h.client.Do(context.Background(), pipeline.NewRequest(http.MethodPost, "/api/auth/refresh", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, int32(1), h.refreshCalls.Load())
	assert.Equal(t, models.TokenSet{AccessToken: "A1", RefreshToken: "R1"}, h.tokens(t))
}

// Scenario C, three requests failing together share one refresh.
func TestConcurrentFailuresShareOneRefresh(t *testing.T) {
	const n = 3
	arrived := make(chan struct{}, n)
	release := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			<-arrived
		}
		close(release)
	}()
	var retries atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer A1":
			arrived <- struct{}{}
			<-release
			w.WriteHeader(http.StatusUnauthorized)
		case "Bearer A2":
			retries.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}, respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	wg := sync.WaitGroup{}
	statuses := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := get(h)
			if assert.NoError(t, err) {
				statuses <- res.StatusCode
			}
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, int32(1), h.refreshCalls.Load())
	assert.Equal(t, int32(n), retries.Load())
	assert.Equal(t, models.TokenSet{AccessToken: "A2", RefreshToken: "R1"}, h.tokens(t))
}

// laggingStore answers the access token reads after the first fast ones with the value
// read before a delay, the first slow read is held until settled reports true.
type laggingStore struct {
	TokenStore
	fast    int32
	reads   atomic.Int32
	settled func() bool
}

func (s *laggingStore) AccessToken(ctx context.Context) (string, error) {
	token, err := s.TokenStore.AccessToken(ctx)
	if s.reads.Add(1) == s.fast+1 {
		deadline := time.Now().Add(2 * time.Second)
		for !s.settled() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		// let the finished refresh release its slot
		time.Sleep(20 * time.Millisecond)
	}
	return token, err
}

func TestLateSiblingReusesSettledRefresh(t *testing.T) {
	const n = 2
	arrived := make(chan struct{}, n)
	release := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			<-arrived
		}
		close(release)
	}()
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer A1":
			arrived <- struct{}{}
			<-release
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message": "jwt expired"}`))
		case "Bearer A2":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}, respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))
	// the sends and the first read after them are fast, the next one is slow and stale
	slow := &laggingStore{TokenStore: h.store, fast: n + 1, settled: func() bool {
		token, err := h.store.AccessToken(context.Background())
		return err == nil && token == "A2"
	}}
	interceptor, err := NewInterceptor(
		WithTokenStore(slow),
		WithRefresher(h.interceptor.refresher),
		WithMetrics(NewMetrics(prometheus.NewRegistry())),
	)
	require.NoError(t, err)
	client, err := pipeline.NewClient(
		pipeline.WithBaseURL(h.client.BaseURL().String()),
		pipeline.WithMiddlewares(interceptor.Middleware()),
	)
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	statuses := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := client.Do(context.Background(), pipeline.NewRequest(http.MethodGet, "/water/daily", nil))
			if assert.NoError(t, err) {
				statuses <- res.StatusCode
			}
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, int32(1), h.refreshCalls.Load())
}

func TestSiblingRefreshIsReused(t *testing.T) {
	var h *harness
	h = newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer A3" {
			w.WriteHeader(http.StatusOK)
			return
		}
		// another request refreshed the session while this one was in flight
		require.NoError(t, h.store.SetPair(r.Context(), "A3", "R3"))
		w.WriteHeader(http.StatusUnauthorized)
	}, respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	res, err := get(h)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, int32(0), h.refreshCalls.Load())
}

// Scenario B.
func TestMissingRefreshToken(t *testing.T) {
	cleared := []error{}
	h := newHarness(t, acceptOnly("A2", nil, nil), respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{
		interceptorOptions: []InterceptorOption{WithSessionClearedHook(func(cause error) {
			cleared = append(cleared, cause)
		})},
	})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", ""))

	res, err := get(h)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
	assert.Equal(t, int32(0), h.refreshCalls.Load())
	assert.Equal(t, models.TokenSet{}, h.tokens(t))
	require.Len(t, cleared, 1)
	assert.ErrorIs(t, cleared[0], apperrors.ErrNoRefreshToken)
	refreshErr := &RefreshError{}
	require.True(t, errors.As(err, &refreshErr))
	assert.True(t, refreshErr.SessionEnded())
}

func TestLoggedOutRequestFailsWithoutRefresh(t *testing.T) {
	h := newHarness(t, acceptOnly("A2", nil, nil), respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})

	_, err := get(h)

	assert.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
	assert.Equal(t, int32(0), h.refreshCalls.Load())
}

// Scenario D.
func TestRejectedRefreshClearsSession(t *testing.T) {
	h := newHarness(t, acceptOnly("A2", nil, nil), respond(http.StatusForbidden, `{"message": "refresh token invalid"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	res, err := get(h)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperrors.ErrRefreshRejected)
	assert.NotErrorIs(t, err, apperrors.ErrRefreshUnavailable)
	assert.ErrorContains(t, err, "refresh token invalid")
	refreshErr := &RefreshError{}
	require.True(t, errors.As(err, &refreshErr))
	assert.Equal(t, http.StatusUnauthorized, refreshErr.Original.StatusCode)
	assert.Equal(t, models.TokenSet{}, h.tokens(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.sessionsCleared))
}

// Scenario E.
func TestRefreshTimeoutKeepsSession(t *testing.T) {
	h := newHarness(t, acceptOnly("A2", nil, nil), func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, harnessOptions{interceptorOptions: []InterceptorOption{WithRefreshTimeout(100 * time.Millisecond)}})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	_, err := get(h)

	assert.ErrorIs(t, err, apperrors.ErrRefreshUnavailable)
	assert.NotErrorIs(t, err, apperrors.ErrRefreshRejected)
	refreshErr := &RefreshError{}
	require.True(t, errors.As(err, &refreshErr))
	assert.False(t, refreshErr.SessionEnded())
	assert.Equal(t, models.TokenSet{AccessToken: "A1", RefreshToken: "R1"}, h.tokens(t))
}

// A refresh endpoint that cannot be reached keeps the session.
func TestUnreachableRefreshKeepsSession(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	h := newHarness(t, acceptOnly("A2", nil, nil), respond(http.StatusOK, ``), harnessOptions{refreshURL: closed.URL})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	_, err := get(h)

	assert.ErrorIs(t, err, apperrors.ErrRefreshUnavailable)
	assert.Equal(t, models.TokenSet{AccessToken: "A1", RefreshToken: "R1"}, h.tokens(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.refreshes.WithLabelValues(resultUnavailable)))
}

func TestServerErrorOnRefreshKeepsSession(t *testing.T) {
	h := newHarness(t, acceptOnly("A2", nil, nil), respond(http.StatusBadGateway, `upstream down`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	_, err := get(h)

	assert.ErrorIs(t, err, apperrors.ErrRefreshUnavailable)
	assert.Equal(t, models.TokenSet{AccessToken: "A1", RefreshToken: "R1"}, h.tokens(t))
}

func TestTransportErrorsPassThrough(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}, respond(http.StatusOK, `{"access_token": "A2"}`), harnessOptions{})
	require.NoError(t, h.store.SetPair(context.Background(), "A1", "R1"))

	_, err := get(h)

	assert.Error(t, err)
	refreshErr := &RefreshError{}
	assert.False(t, errors.As(err, &refreshErr))
	assert.Equal(t, int32(0), h.refreshCalls.Load())
}

// Package authapi talks to the authentication endpoints of the backend and hides the
// differences between deployments in field names and routes.
package authapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/models"
	"github.com/sipwell/sipwell-client/internal/pipeline"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
)

type Adapter struct {
	// client must not carry the auth interceptor
	client       *pipeline.Client
	httpClient   *http.Client
	loginPath    string
	registerPath string
	candidates   []RefreshCandidate
	oauth2       *oauth2.Config
	breaker      *gobreaker.CircuitBreaker
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the user profile sent when creating an account.
type RegisterRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Age       int     `json:"age"`
	Gender    string  `json:"gender,omitempty"`
	Weight    float64 `json:"weight"`
	Height    float64 `json:"height,omitempty"`
	Activity  string  `json:"activity"`
	Climate   string  `json:"climate"`
	Pregnancy bool    `json:"pregnancy"`
	Unit      string  `json:"unit"`
}

// Login exchanges the credentials for a token pair.
func (a *Adapter) Login(ctx context.Context, email, password string) (models.TokenSet, error) {
	req, err := pipeline.NewJSONRequest(http.MethodPost, a.loginPath, Credentials{Email: email, Password: password})
	if err != nil {
		return models.TokenSet{}, err
	}
	res, err := a.client.Do(ctx, req)
	if err != nil {
		return models.TokenSet{}, fmt.Errorf("login request failed: %w", err)
	}
	if err := credentialsError(res); err != nil {
		return models.TokenSet{}, err
	}
	tokens, ok := ExtractTokens(res.Body)
	if !ok {
		slog.Error("AUTH ADAPTER", "message", "login response has no access token", "status", res.StatusCode)
		return models.TokenSet{}, apperrors.ErrMalformedResponse
	}
	return tokens, nil
}

// Register creates the account. It does not log in.
func (a *Adapter) Register(ctx context.Context, profile RegisterRequest) error {
	req, err := pipeline.NewJSONRequest(http.MethodPost, a.registerPath, profile)
	if err != nil {
		return err
	}
	res, err := a.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("register request failed: %w", err)
	}
	return credentialsError(res)
}

// credentialStatuses are the answers where the backend judged the submitted credentials
// or profile. Anything else, such as a 404 from a wrong path, stays a StatusError.
var credentialStatuses = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
}

// credentialsError maps a login or register response to an error, nil for success.
func credentialsError(res *pipeline.Response) error {
	switch {
	case res.IsSuccess():
		return nil
	case slices.Contains(credentialStatuses, res.StatusCode):
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidCredentials, res.Message())
	default:
		return &pipeline.StatusError{StatusCode: res.StatusCode, Message: res.Message(), Body: res.Body}
	}
}

// IsRefreshPath tells whether a request path targets one of the refresh endpoints.
func (a *Adapter) IsRefreshPath(path string) bool {
	path = strings.TrimRight(strings.SplitN(path, "?", 2)[0], "/")
	if path == "" {
		return false
	}
	for _, candidate := range a.candidates {
		candidatePath := strings.TrimRight(candidate.Path, "/")
		if candidatePath != "" && strings.HasSuffix(path, candidatePath) {
			return true
		}
	}
	if a.oauth2 != nil && path == strings.TrimRight(a.oauth2.Endpoint.TokenURL, "/") {
		return true
	}
	return false
}

type AdapterOption func(*Adapter) error

// WithClient sets the pipeline used for the auth calls, it should not include the auth interceptor.
func WithClient(client *pipeline.Client) AdapterOption {
	return func(a *Adapter) error {
		a.client = client
		return nil
	}
}

// WithHTTPClient sets the client used for the oauth2 refresh grant.
func WithHTTPClient(httpClient *http.Client) AdapterOption {
	return func(a *Adapter) error {
		a.httpClient = httpClient
		return nil
	}
}

func WithRefreshCandidates(candidates ...RefreshCandidate) AdapterOption {
	return func(a *Adapter) error {
		a.candidates = candidates
		return nil
	}
}

func WithBreaker(maxFailures uint32, openTimeout time.Duration) AdapterOption {
	return func(a *Adapter) error {
		a.breaker = newBreaker(maxFailures, openTimeout)
		return nil
	}
}

func WithAuthConfig(authConfig config.AuthConfig) AdapterOption {
	return func(a *Adapter) error {
		a.loginPath = authConfig.LoginPath
		a.registerPath = authConfig.RegisterPath
		candidates, err := BuildCandidates(authConfig.RefreshPaths, authConfig.RefreshPayloadShapes)
		if err != nil {
			return err
		}
		a.candidates = candidates
		if authConfig.OAuth2.Enabled {
			a.oauth2 = &oauth2.Config{
				ClientID:     authConfig.OAuth2.ClientID,
				ClientSecret: string(authConfig.OAuth2.ClientSecret),
				Endpoint:     oauth2.Endpoint{TokenURL: authConfig.OAuth2.TokenURL},
				Scopes:       authConfig.OAuth2.Scopes,
			}
		}
		if authConfig.Breaker.Enabled {
			a.breaker = newBreaker(authConfig.Breaker.MaxFailures, authConfig.Breaker.OpenTimeout)
		}
		return nil
	}
}

func NewAdapter(options ...AdapterOption) (*Adapter, error) {
	a := Adapter{loginPath: "/api/auth/login", registerPath: "/api/auth/register"}
	for _, opt := range options {
		err := opt(&a)
		if err != nil {
			return &Adapter{}, err
		}
	}
	if a.client == nil {
		return &Adapter{}, fmt.Errorf("auth pipeline client is not initialized")
	}
	if len(a.candidates) == 0 && a.oauth2 == nil {
		return &Adapter{}, fmt.Errorf("no refresh candidates are configured")
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &a, nil
}

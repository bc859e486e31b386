package authapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/models"
	"github.com/sipwell/sipwell-client/internal/pipeline"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
)

// RefreshCandidate is one (route, payload shape) pair the refresh token can be posted to.
type RefreshCandidate struct {
	Path  string
	Shape string
}

func (c RefreshCandidate) payload(refreshToken string) map[string]string {
	switch c.Shape {
	case config.RefreshShapeCamelCase:
		return map[string]string{"refreshToken": refreshToken}
	case config.RefreshShapeToken:
		return map[string]string{"token": refreshToken}
	case config.RefreshShapeCombined:
		return map[string]string{
			"refresh_token": refreshToken,
			"refreshToken":  refreshToken,
			"token":         refreshToken,
		}
	default:
		return map[string]string{"refresh_token": refreshToken}
	}
}

// BuildCandidates pairs every path with every shape, paths first.
func BuildCandidates(paths, shapes []string) ([]RefreshCandidate, error) {
	output := make([]RefreshCandidate, 0, len(paths)*len(shapes))
	for _, shape := range shapes {
		if !slices.Contains(config.KnownRefreshPayloadShapes, shape) {
			return nil, fmt.Errorf("unknown refresh payload shape %q", shape)
		}
	}
	for _, path := range paths {
		for _, shape := range shapes {
			output = append(output, RefreshCandidate{Path: path, Shape: shape})
		}
	}
	return output, nil
}

type candidateOutcome int

const (
	outcomeSuccess candidateOutcome = iota
	// the refresh token is definitely invalid
	outcomeRejected
	// try the next candidate
	outcomeNext
	// the backend cannot be reached, more candidates will not help
	outcomeStop
)

// Refresh exchanges the refresh token for a new token pair. The returned refresh token is
// empty when the backend did not issue a new one.
//
// Errors wrap apperrors.ErrRefreshRejected when the backend definitively refused the
// refresh token and apperrors.ErrRefreshUnavailable for everything else.
func (a *Adapter) Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error) {
	if refreshToken == "" {
		return models.TokenSet{}, apperrors.ErrNoRefreshToken
	}
	var lastErr error
	for _, candidate := range a.candidates {
		tokens, outcome, err := a.tryCandidate(ctx, candidate, refreshToken)
		switch outcome {
		case outcomeSuccess:
			return tokens, nil
		case outcomeRejected:
			return models.TokenSet{}, err
		case outcomeStop:
			return models.TokenSet{}, fmt.Errorf("%w: %w", apperrors.ErrRefreshUnavailable, err)
		}
		lastErr = err
	}
	if a.oauth2 != nil {
		tokens, outcome, err := a.tryOAuth2(ctx, refreshToken)
		switch outcome {
		case outcomeSuccess:
			return tokens, nil
		case outcomeRejected:
			return models.TokenSet{}, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no refresh candidate is configured")
	}
	return models.TokenSet{}, fmt.Errorf("%w: %w", apperrors.ErrRefreshUnavailable, lastErr)
}

func (a *Adapter) tryCandidate(
	ctx context.Context,
	candidate RefreshCandidate,
	refreshToken string,
) (models.TokenSet, candidateOutcome, error) {
	req, err := pipeline.NewJSONRequest(http.MethodPost, candidate.Path, candidate.payload(refreshToken))
	if err != nil {
		return models.TokenSet{}, outcomeStop, err
	}
	res, err := a.send(ctx, req)
	if err != nil {
		slog.Debug(
			"AUTH ADAPTER",
			"message",
			"refresh candidate could not be reached",
			"path",
			candidate.Path,
			"shape",
			candidate.Shape,
			"error",
			err,
		)
		return models.TokenSet{}, outcomeStop, err
	}
	slog.Debug(
		"AUTH ADAPTER",
		"message",
		"refresh candidate answered",
		"path",
		candidate.Path,
		"shape",
		candidate.Shape,
		"status",
		res.StatusCode,
	)
	switch {
	case res.IsSuccess():
		tokens, ok := ExtractTokens(res.Body)
		if !ok {
			return models.TokenSet{}, outcomeNext, apperrors.ErrMalformedResponse
		}
		return tokens, outcomeSuccess, nil
	case res.StatusCode == http.StatusBadRequest ||
		res.StatusCode == http.StatusUnauthorized ||
		res.StatusCode == http.StatusForbidden:
		return models.TokenSet{}, outcomeRejected, fmt.Errorf(
			"%w: %s answered %d: %s",
			apperrors.ErrRefreshRejected,
			candidate.Path,
			res.StatusCode,
			res.Message(),
		)
	case res.StatusCode == http.StatusTooManyRequests:
		return models.TokenSet{}, outcomeStop, fmt.Errorf("%s answered %d", candidate.Path, res.StatusCode)
	default:
		// 404 and 405 mean the route does not exist in this deployment, 5xx may be route specific
		return models.TokenSet{}, outcomeNext, fmt.Errorf("%s answered %d: %s", candidate.Path, res.StatusCode, res.Message())
	}
}

func (a *Adapter) tryOAuth2(ctx context.Context, refreshToken string) (models.TokenSet, candidateOutcome, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	var token *oauth2.Token
	err := a.guard(func() (bool, error) {
		var err error
		token, err = a.oauth2.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err == nil {
			return false, nil
		}
		retrieveErr := &oauth2.RetrieveError{}
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			return false, err
		}
		return true, err
	})
	if err == nil {
		if token.AccessToken == "" {
			return models.TokenSet{}, outcomeNext, apperrors.ErrMalformedResponse
		}
		return models.TokenSet{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}, outcomeSuccess, nil
	}
	retrieveErr := &oauth2.RetrieveError{}
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return models.TokenSet{}, outcomeRejected, fmt.Errorf("%w: %w", apperrors.ErrRefreshRejected, err)
		}
	}
	return models.TokenSet{}, outcomeNext, err
}

// send posts a refresh request through the circuit breaker. Only transport errors and 5xx
// responses count as breaker failures, a 5xx is still returned as a response.
func (a *Adapter) send(ctx context.Context, req *pipeline.Request) (*pipeline.Response, error) {
	var res *pipeline.Response
	err := a.guard(func() (bool, error) {
		var err error
		res, err = a.client.Do(ctx, req)
		if err != nil {
			return true, err
		}
		if res.StatusCode >= 500 {
			return true, fmt.Errorf("server error %d", res.StatusCode)
		}
		return false, nil
	})
	if res != nil {
		return res, nil
	}
	return nil, err
}

// guard runs fn through the breaker when there is one. fn reports whether its error
// is a failure of the backend (as opposed to a refusal).
func (a *Adapter) guard(fn func() (backendFailure bool, err error)) error {
	if a.breaker == nil {
		_, err := fn()
		return err
	}
	var refusal error
	_, err := a.breaker.Execute(func() (any, error) {
		backendFailure, err := fn()
		if err != nil && !backendFailure {
			refusal = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return err
	}
	return refusal
}

func newBreaker(maxFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "token-refresh",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("AUTH ADAPTER", "message", "circuit breaker changed state", "name", name, "from", from, "to", to)
		},
	})
}

package models

import (
	"fmt"

	"github.com/sipwell/sipwell-client/internal/apperrors"
)

// TokenSet is the access and refresh token pair that represents a session.
// The refresh token is optional, an empty value means "not issued".
type TokenSet struct {
	AccessToken  string
	RefreshToken string
}

func (s TokenSet) Validate() error {
	if s.AccessToken == "" {
		return apperrors.ErrEmptyAccessToken
	}
	return nil
}

func (s TokenSet) HasRefreshToken() bool {
	return s.RefreshToken != ""
}

// String implements the Stringer interface for printing the token set in logs
func (s TokenSet) String() string {
	return fmt.Sprintf(
		"TokenSet<AccessToken: %s, RefreshToken: %s>",
		redact(s.AccessToken),
		redact(s.RefreshToken),
	)
}

func redact(value string) string {
	if value == "" {
		return "absent"
	}
	return fmt.Sprintf("redacted-%d-chars", len(value))
}

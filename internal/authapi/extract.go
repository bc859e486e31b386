package authapi

import (
	"strings"

	"github.com/sipwell/sipwell-client/internal/models"
	"github.com/sipwell/sipwell-client/internal/payloads"
)

// The field names are tried in order, the first non-empty string wins.
var accessTokenPaths = payloads.ParsePaths(
	"access_token",
	"accessToken",
	"token",
	"data.access_token",
	"data.accessToken",
	"data.token",
	"tokens.access_token",
	"tokens.accessToken",
)

var refreshTokenPaths = payloads.ParsePaths(
	"refresh_token",
	"refreshToken",
	"data.refresh_token",
	"data.refreshToken",
	"tokens.refresh_token",
	"tokens.refreshToken",
)

// ExtractTokens reads the token pair from a login or refresh response body.
// ok is false when the body has no usable access token.
func ExtractTokens(body []byte) (tokens models.TokenSet, ok bool) {
	access, ok := payloads.FirstString(body, accessTokenPaths...)
	if !ok {
		return models.TokenSet{}, false
	}
	refresh, _ := payloads.FirstString(body, refreshTokenPaths...)
	return models.TokenSet{AccessToken: access, RefreshToken: refresh}, true
}

type Classification int

const (
	// NotAuth is any response that says nothing about the access token
	NotAuth Classification = iota
	// Expired means the access token is missing, invalid or expired and a refresh may help
	Expired
	// Rejected is a 400 or 403 about something other than the token
	Rejected
)

func (c Classification) String() string {
	switch c {
	case Expired:
		return "expired"
	case Rejected:
		return "rejected"
	default:
		return "not-auth"
	}
}

// ExpiredTokenPhrases are matched case-insensitively against the message of 400 and 403 responses.
// The backend does not always use 401 for an expired token.
var ExpiredTokenPhrases = []string{
	"jwt expired",
	"token expired",
	"expired token",
	"token has expired",
	"token is expired",
	"invalid token",
	"token is invalid",
	"jwt malformed",
	"invalid signature",
	"no token provided",
}

// ClassifyAuthFailure decides whether a response is an auth failure that a refresh can fix.
func ClassifyAuthFailure(status int, message string) Classification {
	switch status {
	case 401:
		return Expired
	case 400, 403:
		lowered := strings.ToLower(message)
		for _, phrase := range ExpiredTokenPhrases {
			if strings.Contains(lowered, phrase) {
				return Expired
			}
		}
		return Rejected
	default:
		return NotAuth
	}
}

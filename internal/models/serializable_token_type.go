package models

import "fmt"

type TokenType string

const AccessTokenType TokenType = "AccessToken"
const RefreshTokenType TokenType = "RefreshToken"

// The keys under which the tokens are persisted. Every reader and writer of
// the token store uses these, changing them logs out existing installations.
const (
	AccessTokenKey  string = "auth_token"
	RefreshTokenKey string = "refresh_token"
)

// Key returns the storage key of the token type.
func (o TokenType) Key() string {
	switch o {
	case AccessTokenType:
		return AccessTokenKey
	case RefreshTokenType:
		return RefreshTokenKey
	default:
		return "unknown:" + string(o)
	}
}

func (o TokenType) Validate() error {
	switch o {
	case AccessTokenType, RefreshTokenType:
		return nil
	default:
		return fmt.Errorf("unknown token type: %s", string(o))
	}
}

// TokenTypeFromKey maps a storage key back to its token type.
func TokenTypeFromKey(key string) (TokenType, error) {
	switch key {
	case AccessTokenKey:
		return AccessTokenType, nil
	case RefreshTokenKey:
		return RefreshTokenType, nil
	default:
		return "", fmt.Errorf("unknown token key: %s", key)
	}
}

func (o TokenType) MarshalText() (data []byte, err error) {
	return []byte(o), nil
}

func (o TokenType) MarshalBinary() (data []byte, err error) {
	return []byte(o), nil
}

func (o *TokenType) UnmarshalText(data []byte) error {
	*o = TokenType(string(data))
	return nil
}

func (o *TokenType) UnmarshalBinary(data []byte) error {
	*o = TokenType(string(data))
	return nil
}

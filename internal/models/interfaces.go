package models

import (
	"context"
)

type Encryptor interface {
	Encrypt(value string) (encrypted string, err error)
	Decrypt(value string) (decrypted string, err error)
}

type IDGenerator interface {
	ID() (string, error)
}

// TokenGetter returns apperrors.ErrTokenNotFound when nothing is stored under the key.
type TokenGetter interface {
	GetToken(ctx context.Context, key string) (string, error)
}

// TokenPairSetter stores the access token and, when it is not empty, the refresh token.
type TokenPairSetter interface {
	SetTokenPair(ctx context.Context, accessToken, refreshToken string) error
}

type TokenRemover interface {
	RemoveTokens(ctx context.Context) error
}

// TokenRepository represents the interface used to persist the session tokens
type TokenRepository interface {
	TokenGetter
	TokenPairSetter
	TokenRemover
}

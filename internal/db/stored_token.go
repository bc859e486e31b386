package db

import (
	"time"

	"github.com/sipwell/sipwell-client/internal/models"
)

// storedToken is the persisted form of a single token.
type storedToken struct {
	Type      models.TokenType `mapstructure:"type"`
	Value     string           `mapstructure:"value"`
	UpdatedAt time.Time        `mapstructure:"updatedAt"`
}

func encryptValue(enc models.Encryptor, value string) (string, error) {
	if enc == nil {
		return value, nil
	}
	return enc.Encrypt(value)
}

func decryptValue(enc models.Encryptor, value string) (string, error) {
	if enc == nil {
		return value, nil
	}
	return enc.Decrypt(value)
}

// tokensToStore lists the tokens written by SetTokenPair, an empty refresh token is skipped
// so that a previously stored one survives.
func tokensToStore(accessToken, refreshToken string) []storedToken {
	now := time.Now().UTC()
	output := []storedToken{{Type: models.AccessTokenType, Value: accessToken, UpdatedAt: now}}
	if refreshToken != "" {
		output = append(output, storedToken{Type: models.RefreshTokenType, Value: refreshToken, UpdatedAt: now})
	}
	return output
}

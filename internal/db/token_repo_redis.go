package db

import (
	"context"
	"log/slog"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/models"
)

const tokenKeyPrefix string = "sipwell:token"

// GetToken reads the value stored under one of the token keys from Redis, decrypting if necessary.
func (r RedisAdapter) GetToken(ctx context.Context, key string) (string, error) {
	tokenType, err := models.TokenTypeFromKey(key)
	if err != nil {
		return "", err
	}
	raw, err := r.rdb.HGetAll(ctx, r.redisKey(tokenType)).Result()
	if err != nil {
		return "", err
	}
	output, err := r.decodeHash(raw)
	if err != nil {
		if err == apperrors.ErrMissingDBResource {
			err = apperrors.ErrTokenNotFound
		}
		return "", err
	}
	return decryptValue(r.encryptor, output.Value)
}

// SetTokenPair writes the access token and, if present, the refresh token to Redis.
func (r RedisAdapter) SetTokenPair(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return apperrors.ErrEmptyAccessToken
	}
	for _, token := range tokensToStore(accessToken, refreshToken) {
		encValue, err := encryptValue(r.encryptor, token.Value)
		if err != nil {
			return err
		}
		token.Value = encValue
		slog.Debug(
			"TOKEN STORE",
			"message",
			"saving token in redis",
			"type",
			token.Type,
			"encrypted",
			r.encryptor != nil,
		)
		err = r.rdb.HSet(ctx, r.redisKey(token.Type), r.hashFields(token)...).Err()
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveTokens deletes both keys with a single DEL, which redis applies atomically.
func (r RedisAdapter) RemoveTokens(ctx context.Context) error {
	return r.rdb.Del(
		ctx,
		r.redisKey(models.AccessTokenType),
		r.redisKey(models.RefreshTokenType),
	).Err()
}

func (r RedisAdapter) redisKey(tokenType models.TokenType) string {
	if r.keyPrefix == "" {
		return tokenKeyPrefix + ":" + tokenType.Key()
	}
	return tokenKeyPrefix + ":" + r.keyPrefix + ":" + tokenType.Key()
}

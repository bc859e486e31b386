package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/db"
	"github.com/sipwell/sipwell-client/internal/models"
)

// TokenStore is the single place where the session tokens are read and written.
// It wraps one of the repositories from the db package.
type TokenStore struct {
	tokenRepo models.TokenRepository
}

// Get returns apperrors.ErrTokenNotFound when the key is absent.
func (ts *TokenStore) Get(ctx context.Context, key string) (string, error) {
	value, err := ts.tokenRepo.GetToken(ctx, key)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", apperrors.ErrTokenNotFound
	}
	return value, nil
}

// AccessToken returns the stored access token or "" if there is none.
func (ts *TokenStore) AccessToken(ctx context.Context) (string, error) {
	return ts.optional(ctx, models.AccessTokenKey)
}

// RefreshToken returns the stored refresh token or "" if there is none.
func (ts *TokenStore) RefreshToken(ctx context.Context) (string, error) {
	return ts.optional(ctx, models.RefreshTokenKey)
}

func (ts *TokenStore) TokenSet(ctx context.Context) (models.TokenSet, error) {
	access, err := ts.AccessToken(ctx)
	if err != nil {
		return models.TokenSet{}, err
	}
	refresh, err := ts.RefreshToken(ctx)
	if err != nil {
		return models.TokenSet{}, err
	}
	return models.TokenSet{AccessToken: access, RefreshToken: refresh}, nil
}

func (ts *TokenStore) optional(ctx context.Context, key string) (string, error) {
	value, err := ts.Get(ctx, key)
	if errors.Is(err, apperrors.ErrTokenNotFound) {
		return "", nil
	}
	return value, err
}

// SetPair stores the access token and the refresh token, an empty refresh token leaves the stored one in place.
func (ts *TokenStore) SetPair(ctx context.Context, accessToken, refreshToken string) error {
	tokens := models.TokenSet{AccessToken: accessToken, RefreshToken: refreshToken}
	if err := tokens.Validate(); err != nil {
		return err
	}
	err := ts.tokenRepo.SetTokenPair(ctx, accessToken, refreshToken)
	if err != nil {
		slog.Error("TOKEN STORE", "message", "SetTokenPair failed", "error", err)
		return err
	}
	slog.Debug("TOKEN STORE", "message", "stored tokens", "tokens", tokens.String())
	return nil
}

// Clear removes both tokens. Failures are returned so that callers know the session may still exist.
func (ts *TokenStore) Clear(ctx context.Context) error {
	err := ts.tokenRepo.RemoveTokens(ctx)
	if err != nil {
		slog.Error("TOKEN STORE", "message", "RemoveTokens failed", "error", err)
		return err
	}
	slog.Debug("TOKEN STORE", "message", "cleared tokens")
	return nil
}

// Close releases the backend if it holds resources.
func (ts *TokenStore) Close() error {
	if closer, ok := ts.tokenRepo.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type TokenStoreOption func(*TokenStore) error

// WithConfig builds the backend selected by the token store configuration.
func WithConfig(storeConfig config.TokenStoreConfig, redisConfig config.RedisConfig) TokenStoreOption {
	return func(ts *TokenStore) error {
		switch storeConfig.Type {
		case config.TokenStoreTypeMemory:
			ts.tokenRepo = db.NewMemoryAdapter()
		case config.TokenStoreTypeSQLite:
			options := []db.SQLiteAdapterOption{db.WithSQLitePath(storeConfig.SQLitePath)}
			if storeConfig.Encryption.Enabled {
				options = append(options, db.WithSQLiteEncryption(string(storeConfig.Encryption.SecretKey)))
			}
			adapter, err := db.NewSQLiteAdapter(options...)
			if err != nil {
				return err
			}
			ts.tokenRepo = adapter
		case config.TokenStoreTypeRedis:
			options := []db.RedisAdapterOption{
				db.WithRedisConfig(redisConfig),
				db.WithKeyPrefix(storeConfig.KeyPrefix),
			}
			if storeConfig.Encryption.Enabled {
				options = append(options, db.WithEncryption(string(storeConfig.Encryption.SecretKey)))
			}
			adapter, err := db.NewRedisAdapter(options...)
			if err != nil {
				return err
			}
			ts.tokenRepo = adapter
		default:
			return fmt.Errorf("unknown token store type %q", storeConfig.Type)
		}
		slog.Info("TOKEN STORE", "message", "token store initialized", "type", storeConfig.Type)
		return nil
	}
}

func WithTokenRepository(repo models.TokenRepository) TokenStoreOption {
	return func(ts *TokenStore) error {
		ts.tokenRepo = repo
		return nil
	}
}

func NewTokenStore(options ...TokenStoreOption) (*TokenStore, error) {
	ts := TokenStore{}
	for _, opt := range options {
		err := opt(&ts)
		if err != nil {
			return &TokenStore{}, err
		}
	}
	if ts.tokenRepo == nil {
		return &TokenStore{}, fmt.Errorf("token repository not initialized")
	}
	return &ts, nil
}

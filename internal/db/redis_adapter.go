package db

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/models"
)

// RedisAdapter keeps every token in its own hash so a partial write never mixes
// the fields of two tokens.
type RedisAdapter struct {
	rdb       LimitedRedisClient
	encryptor models.Encryptor
	keyPrefix string
}

func (RedisAdapter) hashFields(token storedToken) []any {
	return []any{
		"type", string(token.Type),
		"value", token.Value,
		"updatedAt", token.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// decodeHash returns ErrMissingDBResource for an empty hash, that is what HGETALL
// answers for a key that does not exist.
func (RedisAdapter) decodeHash(hash map[string]string) (storedToken, error) {
	var output storedToken
	if len(hash) == 0 {
		return output, apperrors.ErrMissingDBResource
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		Result: &output,
	})
	if err != nil {
		return output, err
	}
	if err := decoder.Decode(hash); err != nil {
		return output, fmt.Errorf("the stored token hash is malformed: %w", err)
	}
	return output, nil
}

func newRedisClient(redisConfig config.RedisConfig) (LimitedRedisClient, error) {
	switch redisConfig.Type {
	case config.DBTypeRedisMock:
		return NewMockRedisClient(), nil
	case config.DBTypeRedis:
	default:
		return nil, fmt.Errorf("unrecognized persistence type %v", redisConfig.Type)
	}
	if len(redisConfig.Addresses) == 0 {
		return nil, fmt.Errorf("no redis addresses provided")
	}
	if redisConfig.IsSentinel {
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       redisConfig.MasterName,
			SentinelAddrs:    redisConfig.Addresses,
			SentinelPassword: string(redisConfig.Password),
			Password:         string(redisConfig.Password),
			DB:               redisConfig.DBIndex,
		}), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addresses[0],
		Password: string(redisConfig.Password),
		DB:       redisConfig.DBIndex,
	}), nil
}

type RedisAdapterOption func(*RedisAdapter) error

func WithRedisConfig(redisConfig config.RedisConfig) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		rdb, err := newRedisClient(redisConfig)
		if err != nil {
			return err
		}
		r.rdb = rdb
		return nil
	}
}

func WithRedisClient(rdb LimitedRedisClient) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.rdb = rdb
		return nil
	}
}

func WithEncryption(secretKey string) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		encryptor, err := NewGCMEncryptor(secretKey)
		if err != nil {
			return fmt.Errorf("cannot set up token encryption: %w", err)
		}
		r.encryptor = encryptor
		return nil
	}
}

// WithKeyPrefix namespaces the keys, one prefix per account sharing a redis.
func WithKeyPrefix(prefix string) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.keyPrefix = prefix
		return nil
	}
}

func NewRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	adapter := RedisAdapter{}
	for _, opt := range options {
		if err := opt(&adapter); err != nil {
			return nil, err
		}
	}
	if adapter.rdb == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}
	return &adapter, nil
}

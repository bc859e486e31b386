package config

import (
	"fmt"
	"log/slog"
)

const (
	TokenStoreTypeMemory string = "memory"
	TokenStoreTypeSQLite string = "sqlite"
	TokenStoreTypeRedis  string = "redis"
)

type TokenEncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

type TokenStoreConfig struct {
	Type       string
	SQLitePath string
	// KeyPrefix namespaces the stored keys, so that several profiles can share one redis
	KeyPrefix  string
	Encryption TokenEncryptionConfig
}

func (c *TokenStoreConfig) Validate(e RunningEnvironment) error {
	switch c.Type {
	case TokenStoreTypeMemory:
		if e == Production {
			slog.Warn("the in-memory token store does not persist sessions across restarts")
		}
	case TokenStoreTypeSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("the sqlite token store requires a path")
		}
	case TokenStoreTypeRedis:
	default:
		return fmt.Errorf(
			"unknown token store type %q (must be one of %s, %s, %s)",
			c.Type,
			TokenStoreTypeMemory,
			TokenStoreTypeSQLite,
			TokenStoreTypeRedis,
		)
	}
	if c.Encryption.Enabled && len(c.Encryption.SecretKey) != 32 {
		return fmt.Errorf(
			"token encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.Encryption.SecretKey),
		)
	}
	return nil
}

package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// tokenRecord is one row of the tokens table, keyed by the stable storage key.
type tokenRecord struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (tokenRecord) TableName() string {
	return "tokens"
}

// SQLiteAdapter persists the tokens in a local sqlite file so that a session survives restarts.
type SQLiteAdapter struct {
	db        *gorm.DB
	encryptor models.Encryptor
}

type SQLiteAdapterOption func(*SQLiteAdapter) error

// WithSQLitePath opens (and creates if needed) the database file at path.
// The special path ":memory:" gives a private in-memory database.
func WithSQLitePath(path string) SQLiteAdapterOption {
	return func(s *SQLiteAdapter) error {
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("failed to create token database directory: %w", err)
			}
		}
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return fmt.Errorf("failed to open token database: %w", err)
		}
		if path == ":memory:" {
			// every new connection would see a fresh empty database otherwise
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			sqlDB.SetMaxOpenConns(1)
		}
		s.db = db
		return nil
	}
}

func WithGormDB(db *gorm.DB) SQLiteAdapterOption {
	return func(s *SQLiteAdapter) error {
		s.db = db
		return nil
	}
}

func WithSQLiteEncryption(secretKey string) SQLiteAdapterOption {
	return func(s *SQLiteAdapter) error {
		encryptor, err := NewGCMEncryptor(secretKey)
		if err != nil {
			return err
		}
		s.encryptor = encryptor
		return nil
	}
}

func NewSQLiteAdapter(options ...SQLiteAdapterOption) (*SQLiteAdapter, error) {
	adapter := SQLiteAdapter{}
	for _, opt := range options {
		err := opt(&adapter)
		if err != nil {
			return &SQLiteAdapter{}, err
		}
	}
	if adapter.db == nil {
		return &SQLiteAdapter{}, fmt.Errorf("sqlite database is not initialized")
	}
	if err := adapter.db.AutoMigrate(&tokenRecord{}); err != nil {
		return &SQLiteAdapter{}, fmt.Errorf("failed to migrate token database: %w", err)
	}
	return &adapter, nil
}

func (s *SQLiteAdapter) GetToken(ctx context.Context, key string) (string, error) {
	if _, err := models.TokenTypeFromKey(key); err != nil {
		return "", err
	}
	var record tokenRecord
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrTokenNotFound
		}
		return "", err
	}
	return decryptValue(s.encryptor, record.Value)
}

// SetTokenPair upserts both rows in a single transaction.
func (s *SQLiteAdapter) SetTokenPair(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return apperrors.ErrEmptyAccessToken
	}
	records := []tokenRecord{}
	for _, token := range tokensToStore(accessToken, refreshToken) {
		value, err := encryptValue(s.encryptor, token.Value)
		if err != nil {
			return err
		}
		records = append(records, tokenRecord{Key: token.Type.Key(), Value: value, UpdatedAt: token.UpdatedAt})
	}
	slog.Debug("TOKEN STORE", "message", "saving tokens in sqlite", "count", len(records))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&records).Error
	})
}

func (s *SQLiteAdapter) RemoveTokens(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where(
			"key IN ?",
			[]string{models.AccessTokenKey, models.RefreshTokenKey},
		).Delete(&tokenRecord{}).Error
	})
}

func (s *SQLiteAdapter) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package db

import (
	"context"
	"sync"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/models"
)

// MemoryAdapter keeps the tokens in process memory, sessions do not survive a restart.
type MemoryAdapter struct {
	lock   *sync.RWMutex
	tokens map[models.TokenType]storedToken
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{lock: &sync.RWMutex{}, tokens: map[models.TokenType]storedToken{}}
}

func (m *MemoryAdapter) GetToken(_ context.Context, key string) (string, error) {
	tokenType, err := models.TokenTypeFromKey(key)
	if err != nil {
		return "", err
	}
	m.lock.RLock()
	defer m.lock.RUnlock()
	token, found := m.tokens[tokenType]
	if !found {
		return "", apperrors.ErrTokenNotFound
	}
	return token.Value, nil
}

func (m *MemoryAdapter) SetTokenPair(_ context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return apperrors.ErrEmptyAccessToken
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, token := range tokensToStore(accessToken, refreshToken) {
		m.tokens[token.Type] = token
	}
	return nil
}

func (m *MemoryAdapter) RemoveTokens(_ context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	clear(m.tokens)
	return nil
}

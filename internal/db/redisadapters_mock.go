package db

import (
	"context"
	"encoding"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Implements the LimitedRedis client struct
// Only suitable for testing and local development
// The value set for the IntCmd or similar results is always 1 regardless of how many records were affected
// Contexts are completely ignored
type MockRedisClient struct {
	lock  *sync.Mutex
	store map[string]any
	// failWith makes every command fail, used to simulate an unreachable server
	failWith error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{lock: &sync.Mutex{}, store: map[string]any{}}
}

func NewMockRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	return NewRedisAdapter(append([]RedisAdapterOption{WithRedisClient(NewMockRedisClient())}, options...)...)
}

// FailWith makes all subsequent commands return err, nil restores normal operation.
func (m *MockRedisClient) FailWith(err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.failWith = err
}

func convertValuesToMap(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return map[string]any{}, fmt.Errorf("number of provided values must be even")
	}
	output := map[string]any{}
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return map[string]any{}, fmt.Errorf("hash field names must be strings, got %T", values[i])
		}
		output[key] = values[i+1]
	}
	return output, nil
}

func (m *MockRedisClient) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.IntCmd{}
	if m.failWith != nil {
		res.SetErr(m.failWith)
		return &res
	}
	val, err := convertValuesToMap(values...)
	if err != nil {
		res.SetErr(err)
		return &res
	}
	existing, found := m.store[key].(map[string]any)
	if !found {
		existing = map[string]any{}
	}
	for k, v := range val {
		existing[k] = v
	}
	m.store[key] = existing
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.IntCmd{}
	if m.failWith != nil {
		res.SetErr(m.failWith)
		return &res
	}
	for _, k := range keys {
		delete(m.store, k)
	}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.MapStringStringCmd{}
	res.SetVal(map[string]string{})
	if m.failWith != nil {
		res.SetErr(m.failWith)
		return &res
	}
	val, found := m.store[key]
	if !found {
		return &res
	}
	valMap1 := val.(map[string]any)
	valMap2 := map[string]string{}
	for k, v := range valMap1 {
		switch typed := v.(type) {
		case string:
			valMap2[k] = typed
		case encoding.TextMarshaler:
			valString, err := typed.MarshalText()
			if err != nil {
				res.SetErr(err)
				return &res
			}
			valMap2[k] = string(valString)
		default:
			valMap2[k] = fmt.Sprint(typed)
		}
	}
	res.SetVal(valMap2)
	return &res
}

package models

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator implements models.IDGenerator and generates ULIDs for request IDs.
// IDs generated within the same millisecond are monotonically increasing so that
// log lines of concurrent requests sort in issue order.
type ULIDGenerator struct {
	lock    *sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g ULIDGenerator) ID() (string, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func NewULIDGenerator() ULIDGenerator {
	return ULIDGenerator{lock: &sync.Mutex{}, entropy: ulid.Monotonic(rand.Reader, 0)}
}

// RandomGenerator implements models.IDGenerator and generates random url-safe secrets
type RandomGenerator struct {
	Length int
}

func (r RandomGenerator) ID() (string, error) {
	b := make([]byte, r.Length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewRandomGenerator(length int) RandomGenerator {
	return RandomGenerator{length}
}

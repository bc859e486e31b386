package devserver

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

type user struct {
	ID           string
	Email        string
	PasswordHash []byte
	Profile      map[string]any
}

type waterLog struct {
	ID       string    `json:"_id"`
	Amount   float64   `json:"amount"`
	LoggedAt time.Time `json:"timestamp"`
}

type reminder struct {
	Interval            int     `json:"interval"`
	StartTime           string  `json:"startTime"`
	EndTime             string  `json:"endTime"`
	NotificationMessage string  `json:"notificationMessage,omitempty"`
	Paused              bool    `json:"paused"`
	PauseStartTime      *string `json:"pauseStartTime"`
	PauseEndTime        *string `json:"pauseEndTime"`
	SleepMode           bool    `json:"sleepMode"`
}

// memoryStore holds all the backend state, every method is safe for concurrent use.
type memoryStore struct {
	lock          sync.RWMutex
	usersByID     map[string]*user
	usersByEmail  map[string]*user
	refreshTokens map[string]string
	waterLogs     map[string][]waterLog
	reminders     map[string]reminder
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		usersByID:     map[string]*user{},
		usersByEmail:  map[string]*user{},
		refreshTokens: map[string]string{},
		waterLogs:     map[string][]waterLog{},
		reminders:     map[string]reminder{},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// addUser returns false when the email is already taken.
func (m *memoryStore) addUser(u user) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	email := normalizeEmail(u.Email)
	if _, found := m.usersByEmail[email]; found {
		return false
	}
	u.Email = email
	m.usersByID[u.ID] = &u
	m.usersByEmail[email] = &u
	return true
}

func (m *memoryStore) userByEmail(email string) (user, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	u, found := m.usersByEmail[normalizeEmail(email)]
	if !found {
		return user{}, false
	}
	return *u, true
}

func (m *memoryStore) userExists(userID string) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, found := m.usersByID[userID]
	return found
}

func (m *memoryStore) profile(userID string) map[string]any {
	m.lock.RLock()
	defer m.lock.RUnlock()
	u, found := m.usersByID[userID]
	if !found {
		return nil
	}
	profile := maps.Clone(u.Profile)
	if profile == nil {
		profile = map[string]any{}
	}
	profile["id"] = u.ID
	profile["email"] = u.Email
	return profile
}

func (m *memoryStore) updateProfile(userID string, changes map[string]any) map[string]any {
	m.lock.Lock()
	u, found := m.usersByID[userID]
	if found {
		for key, value := range changes {
			if slices.Contains(profileFields, key) {
				u.Profile[key] = value
			}
		}
	}
	m.lock.Unlock()
	return m.profile(userID)
}

func (m *memoryStore) saveRefreshToken(token, userID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.refreshTokens[token] = userID
}

func (m *memoryStore) refreshTokenOwner(token string) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	userID, found := m.refreshTokens[token]
	return userID, found
}

func (m *memoryStore) revokeRefreshToken(token string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	_, found := m.refreshTokens[token]
	delete(m.refreshTokens, token)
	return found
}

func (m *memoryStore) revokeAll() {
	m.lock.Lock()
	defer m.lock.Unlock()
	clear(m.refreshTokens)
}

func (m *memoryStore) addWaterLog(userID string, log waterLog) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.waterLogs[userID] = append(m.waterLogs[userID], log)
}

// logsBetween returns the logs in [from, to) sorted by time.
func (m *memoryStore) logsBetween(userID string, from, to time.Time) []waterLog {
	m.lock.RLock()
	defer m.lock.RUnlock()
	output := []waterLog{}
	for _, log := range m.waterLogs[userID] {
		if !log.LoggedAt.Before(from) && log.LoggedAt.Before(to) {
			output = append(output, log)
		}
	}
	slices.SortFunc(output, func(a, b waterLog) int {
		return a.LoggedAt.Compare(b.LoggedAt)
	})
	return output
}

func (m *memoryStore) allLogs(userID string) []waterLog {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return slices.Clone(m.waterLogs[userID])
}

func (m *memoryStore) updateWaterLog(userID, logID string, amount float64) (waterLog, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	logs := m.waterLogs[userID]
	for i := range logs {
		if logs[i].ID == logID {
			logs[i].Amount = amount
			return logs[i], true
		}
	}
	return waterLog{}, false
}

func (m *memoryStore) deleteWaterLog(userID, logID string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	logs := m.waterLogs[userID]
	index := slices.IndexFunc(logs, func(log waterLog) bool { return log.ID == logID })
	if index < 0 {
		return false
	}
	m.waterLogs[userID] = slices.Delete(logs, index, index+1)
	return true
}

func (m *memoryStore) reminder(userID string) (reminder, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	r, found := m.reminders[userID]
	return r, found
}

// updateReminder applies change to the user's reminder, it returns false when
// there is none and create is not set.
func (m *memoryStore) updateReminder(userID string, create bool, change func(*reminder)) (reminder, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	r, found := m.reminders[userID]
	if !found && !create {
		return reminder{}, false
	}
	change(&r)
	m.reminders[userID] = r
	return r, true
}

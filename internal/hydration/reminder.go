package hydration

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

type ReminderSettings struct {
	// Interval is in minutes
	Interval            int    `json:"interval"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
	NotificationMessage string `json:"notificationMessage,omitempty"`
}

func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{Interval: 60, StartTime: "01:00", EndTime: "22:00"}
}

type pauseRequest struct {
	Paused         bool    `json:"paused"`
	PauseStartTime *string `json:"pauseStartTime"`
	PauseEndTime   *string `json:"pauseEndTime"`
}

var hhmm = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

var timeLayouts = []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04", time.Kitchen, "15:04:05"}

// ToHHMM normalizes a time of day to HH:MM. nil means the value is empty or unreadable.
func ToHHMM(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if hhmm.MatchString(trimmed) {
		return &trimmed
	}
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if layout == time.RFC3339 || layout == time.RFC3339Nano {
			parsed = parsed.Local()
		}
		output := parsed.Format("15:04")
		return &output
	}
	return nil
}

func (c *Client) CreateReminder(ctx context.Context, settings ReminderSettings) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.api.Post(ctx, "/reminder", settings, &raw)
	return raw, err
}

func (c *Client) Reminder(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.api.Get(ctx, "/reminder", &raw)
	return raw, err
}

func (c *Client) UpdateReminder(ctx context.Context, settings ReminderSettings) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.api.Put(ctx, "/reminder/update", settings, &raw)
	return raw, err
}

// PauseReminder pauses the reminders between start and end, unpausing sends null times.
func (c *Client) PauseReminder(ctx context.Context, paused bool, start, end string) (json.RawMessage, error) {
	req := pauseRequest{Paused: paused}
	if paused {
		req.PauseStartTime = ToHHMM(start)
		req.PauseEndTime = ToHHMM(end)
	}
	var raw json.RawMessage
	err := c.api.Put(ctx, "/reminder/pause", req, &raw)
	return raw, err
}

func (c *Client) ToggleSleepMode(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.api.Put(ctx, "/reminder/toggle-sleep-mode", nil, &raw)
	return raw, err
}

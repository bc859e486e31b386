package hydration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sipwell/sipwell-client/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exchange struct {
	method string
	path   string
	body   string
}

func newTestClient(t *testing.T, responses map[string]string) (*Client, *[]exchange) {
	exchanges := []exchange{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		exchanges = append(exchanges, exchange{method: r.Method, path: r.URL.Path, body: string(body)})
		response, found := responses[r.Method+" "+r.URL.Path]
		if !found {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "Cannot ` + r.Method + ` ` + r.URL.Path + `"}`))
			return
		}
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	api, err := pipeline.NewClient(pipeline.WithBaseURL(srv.URL))
	require.NoError(t, err)
	client, err := NewClient(WithPipeline(api))
	require.NoError(t, err)
	return client, &exchanges
}

func TestWaterLogs(t *testing.T) {
	client, exchanges := newTestClient(t, map[string]string{
		"POST /water/add":  `{"message": "added", "log": {"_id": "l1", "amount": 250, "createdAt": "2026-01-01T08:00:00Z"}}`,
		"GET /water/daily": `{"logs": [{"_id": "l1", "amount": "250"}, {"id": 2, "amountMl": 300, "timestamp": "t"}]}`,
		"PUT /water/l1":    `{"id": "l1", "amountMl": 500}`,
		"DELETE /water/l1": `{"message": "deleted"}`,
	})
	ctx := context.Background()

	added, err := client.AddWaterLog(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, &WaterLog{ID: "l1", AmountMl: 250, Timestamp: "2026-01-01T08:00:00Z"}, added)

	logs, err := client.DailyWater(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "l1", logs[0].ID)
	assert.Equal(t, 250.0, logs[0].AmountMl)
	assert.NotEmpty(t, logs[0].Timestamp)
	assert.Equal(t, WaterLog{ID: "2", AmountMl: 300, Timestamp: "t"}, logs[1])
	assert.Equal(t, 550.0, TotalMl(logs))

	updated, err := client.UpdateWaterLog(ctx, "l1", 500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, updated.AmountMl)

	require.NoError(t, client.DeleteWaterLog(ctx, "l1"))
	assert.Equal(t, exchange{method: http.MethodPost, path: "/water/add", body: `{"amount":250}`}, (*exchanges)[0])
	assert.Equal(t, `{"amount":500}`, (*exchanges)[2].body)
	assert.Equal(t, http.MethodDelete, (*exchanges)[3].method)
}

func TestDeleteMissingLog(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{})

	err := client.DeleteWaterLog(context.Background(), "nope")

	statusErr := &pipeline.StatusError{}
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestExtractWaterLog(t *testing.T) {
	assert.Nil(t, ExtractWaterLog([]byte(`{"message": "ok"}`)))
	assert.Nil(t, ExtractWaterLog(nil))
	assert.Equal(t, "e1", ExtractWaterLog([]byte(`{"entry": {"id": "e1"}}`)).ID)
	assert.Equal(t, "r1", ExtractWaterLog([]byte(`{"result": {"_id": "r1"}}`)).ID)
	assert.Equal(t, 100.0, ExtractWaterLog([]byte(`{"amount": 100}`)).AmountMl)
}

func TestExtractWaterLogsBareArray(t *testing.T) {
	logs, err := ExtractWaterLogs([]byte(`[{"id": "a", "amount": 1}]`))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	logs, err = ExtractWaterLogs([]byte(`{"total": 0}`))
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestReminders(t *testing.T) {
	client, exchanges := newTestClient(t, map[string]string{
		"POST /reminder":                  `{"interval": 60}`,
		"GET /reminder":                   `{"interval": 60, "paused": false}`,
		"PUT /reminder/update":            `{}`,
		"PUT /reminder/pause":             `{}`,
		"PUT /reminder/toggle-sleep-mode": `{"sleepMode": true}`,
	})
	ctx := context.Background()

	_, err := client.CreateReminder(ctx, DefaultReminderSettings())
	require.NoError(t, err)
	reminder, err := client.Reminder(ctx)
	require.NoError(t, err)
	_, err = client.UpdateReminder(ctx, ReminderSettings{Interval: 30, StartTime: "08:00", EndTime: "20:00", NotificationMessage: "Drink"})
	require.NoError(t, err)
	_, err = client.PauseReminder(ctx, true, " 13:30 ", "garbage")
	require.NoError(t, err)
	_, err = client.PauseReminder(ctx, false, "13:30", "14:00")
	require.NoError(t, err)
	sleep, err := client.ToggleSleepMode(ctx)
	require.NoError(t, err)

	assert.JSONEq(t, `{"interval": 60, "paused": false}`, string(reminder))
	assert.JSONEq(t, `{"sleepMode": true}`, string(sleep))
	assert.JSONEq(t, `{"interval": 60, "startTime": "01:00", "endTime": "22:00"}`, (*exchanges)[0].body)
	assert.JSONEq(t, `{"interval": 30, "startTime": "08:00", "endTime": "20:00", "notificationMessage": "Drink"}`, (*exchanges)[2].body)
	assert.JSONEq(t, `{"paused": true, "pauseStartTime": "13:30", "pauseEndTime": null}`, (*exchanges)[3].body)
	assert.JSONEq(t, `{"paused": false, "pauseStartTime": null, "pauseEndTime": null}`, (*exchanges)[4].body)
	assert.Equal(t, "", (*exchanges)[5].body)
}

func TestToHHMM(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "07:05", want: "07:05"},
		{in: "2026-03-01T09:15:00", want: "09:15"},
		{in: "3:04PM", want: "15:04"},
		{in: "23:59:59", want: "23:59"},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got := ToHHMM(test.in)
			require.NotNil(t, got)
			assert.Equal(t, test.want, *got)
		})
	}
	assert.Nil(t, ToHHMM(""))
	assert.Nil(t, ToHHMM("24:00"))
	assert.Nil(t, ToHHMM("later"))
}

func TestProfile(t *testing.T) {
	client, exchanges := newTestClient(t, map[string]string{
		"GET /user/profile": `{"name": "Ada", "weight": 60}`,
		"PUT /user/profile": `{"name": "Ada", "weight": 61}`,
	})
	ctx := context.Background()

	profile, err := client.Profile(ctx)
	require.NoError(t, err)
	updated, err := client.UpdateProfile(ctx, Profile{"weight": 61})
	require.NoError(t, err)

	assert.Equal(t, "Ada", profile["name"])
	assert.Equal(t, 61.0, updated["weight"])
	assert.JSONEq(t, `{"weight": 61}`, (*exchanges)[1].body)
}

func TestAnalytics(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{
		"GET /analytics/weekly":    `{"weekly": [{"day": "Mon", "total": 1200}, {"day": "Tue", "total": 900}]}`,
		"GET /analytics/monthly":   `[{"week": 1}]`,
		"GET /analytics/streak":    `{"streak": 4}`,
		"GET /analytics/hydration": `{"score": 87}`,
		"GET /analytics/export":    `{"url": "/exports/1.csv"}`,
	})
	ctx := context.Background()

	weekly, err := client.Weekly(ctx)
	require.NoError(t, err)
	monthly, err := client.Monthly(ctx)
	require.NoError(t, err)
	streak, err := client.Streak(ctx)
	require.NoError(t, err)
	score, err := client.HydrationScore(ctx)
	require.NoError(t, err)
	export, err := client.Export(ctx)
	require.NoError(t, err)

	require.Len(t, weekly, 2)
	day := map[string]any{}
	require.NoError(t, json.Unmarshal(weekly[1], &day))
	assert.Equal(t, "Tue", day["day"])
	assert.Len(t, monthly, 1)
	assert.JSONEq(t, `{"streak": 4}`, string(streak))
	assert.JSONEq(t, `{"score": 87}`, string(score))
	assert.JSONEq(t, `{"url": "/exports/1.csv"}`, string(export))
}

func TestDailyGoal(t *testing.T) {
	tests := []struct {
		name string
		in   GoalInputs
		want float64
	}{
		{"floor", GoalInputs{WeightKg: 30}, MinimumDailyGoalMl},
		{"weight only", GoalInputs{WeightKg: 70}, 2450},
		{"active in the heat", GoalInputs{WeightKg: 70, Activity: "high", Climate: "hot"}, 3650},
		{"moderate and cold", GoalInputs{WeightKg: 70, Activity: "moderate", Climate: "cold"}, 2650},
		{"pregnant over 55", GoalInputs{WeightKg: 60, Pregnancy: true, Age: 56}, 2600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DailyGoalMl(tt.in), 0.001)
		})
	}
}

func TestGoalInputsFromProfile(t *testing.T) {
	in := GoalInputsFromProfile(Profile{
		"weight":    "72.5",
		"age":       float64(40),
		"activity":  "low",
		"climate":   "hot",
		"pregnancy": false,
		"name":      "Ana",
	})
	assert.Equal(t, GoalInputs{WeightKg: 72.5, Age: 40, Activity: "low", Climate: "hot"}, in)
}

package hydration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/sipwell/sipwell-client/internal/payloads"
)

type WaterLog struct {
	ID        string  `json:"id"`
	AmountMl  float64 `json:"amountMl"`
	Timestamp string  `json:"timestamp"`
}

var (
	idPaths        = payloads.ParsePaths("id", "_id")
	amountPaths    = payloads.ParsePaths("amountMl", "amount")
	timestampPaths = payloads.ParsePaths("timestamp", "createdAt")
	// a bare object is only a log when it carries one of these
	recordFieldPaths = payloads.ParsePaths("id", "_id", "amountMl", "amount")
)

// NormalizeWaterLog maps the different spellings of a log record to a WaterLog.
// Missing IDs and timestamps are filled in from the current time.
func NormalizeWaterLog(raw []byte) WaterLog {
	now := time.Now()
	log := WaterLog{}
	id, ok := payloads.FirstID(raw, idPaths...)
	if !ok {
		id = strconv.FormatInt(now.UnixMilli(), 10)
	}
	log.ID = id
	log.AmountMl, _ = payloads.FirstNumber(raw, amountPaths...)
	timestamp, ok := payloads.FirstString(raw, timestampPaths...)
	if !ok {
		timestamp = now.UTC().Format(time.RFC3339)
	}
	log.Timestamp = timestamp
	return log
}

// ExtractWaterLogs returns every log of a list payload.
func ExtractWaterLogs(body []byte) ([]WaterLog, error) {
	output := []WaterLog{}
	array := payloads.ExtractArray(body, payloads.ListKeys...)
	if array == nil {
		return output, nil
	}
	err := payloads.EachObject(array, func(record []byte) {
		output = append(output, NormalizeWaterLog(record))
	})
	return output, err
}

// ExtractWaterLog returns the single log of a payload, nil when there is none.
func ExtractWaterLog(body []byte) *WaterLog {
	body = bytes.TrimSpace(body)
	for _, key := range payloads.RecordKeys {
		value, dataType, _, err := jsonparser.Get(body, key)
		if err == nil && dataType == jsonparser.Object {
			log := NormalizeWaterLog(value)
			return &log
		}
	}
	if _, _, ok := payloads.FirstValue(body, recordFieldPaths...); ok {
		log := NormalizeWaterLog(body)
		return &log
	}
	return nil
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

func (c *Client) AddWaterLog(ctx context.Context, amountMl float64) (*WaterLog, error) {
	var raw json.RawMessage
	if err := c.api.Post(ctx, "/water/add", amountRequest{Amount: amountMl}, &raw); err != nil {
		return nil, err
	}
	return ExtractWaterLog(raw), nil
}

// DailyWater lists the logs of the current day.
func (c *Client) DailyWater(ctx context.Context) ([]WaterLog, error) {
	var raw json.RawMessage
	if err := c.api.Get(ctx, "/water/daily", &raw); err != nil {
		return nil, err
	}
	return ExtractWaterLogs(raw)
}

func (c *Client) UpdateWaterLog(ctx context.Context, id string, amountMl float64) (*WaterLog, error) {
	var raw json.RawMessage
	if err := c.api.Put(ctx, "/water/"+url.PathEscape(id), amountRequest{Amount: amountMl}, &raw); err != nil {
		return nil, err
	}
	return ExtractWaterLog(raw), nil
}

func (c *Client) DeleteWaterLog(ctx context.Context, id string) error {
	return c.api.Delete(ctx, "/water/"+url.PathEscape(id), nil)
}

// TotalMl sums the amounts of logs.
func TotalMl(logs []WaterLog) float64 {
	total := 0.0
	for _, log := range logs {
		total += log.AmountMl
	}
	return total
}

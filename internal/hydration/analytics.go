package hydration

import (
	"context"
	"encoding/json"

	"github.com/sipwell/sipwell-client/internal/payloads"
)

func (c *Client) analytics(ctx context.Context, name string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.api.Get(ctx, "/analytics/"+name, &raw)
	return raw, err
}

// Weekly returns the entries of the weekly report.
func (c *Client) Weekly(ctx context.Context) ([]json.RawMessage, error) {
	raw, err := c.analytics(ctx, "weekly")
	if err != nil {
		return nil, err
	}
	return entries(raw)
}

func (c *Client) Monthly(ctx context.Context) ([]json.RawMessage, error) {
	raw, err := c.analytics(ctx, "monthly")
	if err != nil {
		return nil, err
	}
	return entries(raw)
}

func (c *Client) Streak(ctx context.Context) (json.RawMessage, error) {
	return c.analytics(ctx, "streak")
}

func (c *Client) HydrationScore(ctx context.Context) (json.RawMessage, error) {
	return c.analytics(ctx, "hydration")
}

func (c *Client) Export(ctx context.Context) (json.RawMessage, error) {
	return c.analytics(ctx, "export")
}

func entries(raw []byte) ([]json.RawMessage, error) {
	output := []json.RawMessage{}
	array := payloads.ExtractArray(raw, payloads.ListKeys...)
	if array == nil {
		return output, nil
	}
	err := payloads.EachObject(array, func(record []byte) {
		output = append(output, json.RawMessage(append([]byte{}, record...)))
	})
	return output, err
}

// Package hydration is the typed client of the water, reminder, profile and analytics endpoints.
// All calls go through the shared pipeline and therefore carry the session automatically.
package hydration

import (
	"fmt"

	"github.com/sipwell/sipwell-client/internal/pipeline"
)

type Client struct {
	api *pipeline.Client
}

type ClientOption func(*Client) error

func WithPipeline(api *pipeline.Client) ClientOption {
	return func(c *Client) error {
		c.api = api
		return nil
	}
}

func NewClient(options ...ClientOption) (*Client, error) {
	c := Client{}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Client{}, err
		}
	}
	if c.api == nil {
		return &Client{}, fmt.Errorf("pipeline client is not initialized")
	}
	return &c, nil
}

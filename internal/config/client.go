package config

import (
	"fmt"
	"net/url"
	"time"
)

type ClientConfig struct {
	BaseURL    *url.URL
	Timeout    time.Duration
	UserAgent  string
	RateLimits RateLimits
}

type RateLimits struct {
	Enabled bool
	Rate    float64
	Burst   int
}

func (c *ClientConfig) Validate() error {
	if c.BaseURL == nil {
		return fmt.Errorf("the client base URL is not set")
	}
	if c.BaseURL.Scheme != "http" && c.BaseURL.Scheme != "https" {
		return fmt.Errorf("the client base URL must use http or https, got %q", c.BaseURL.Scheme)
	}
	if c.BaseURL.Host == "" {
		return fmt.Errorf("the client base URL %q has no host", c.BaseURL.String())
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("the client timeout must be positive, got %s", c.Timeout)
	}
	return c.RateLimits.Validate()
}

func (r RateLimits) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Rate <= 0 {
		return fmt.Errorf("the rate limit must be positive, got %v", r.Rate)
	}
	if r.Burst < 1 {
		return fmt.Errorf("the rate limit burst must be at least 1, got %d", r.Burst)
	}
	return nil
}

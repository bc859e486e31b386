package config

import (
	"fmt"
	"time"
)

type SentryConfig struct {
	Enabled     bool
	Dsn         RedactedString
	Environment string
	SampleRate  float64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type MonitoringConfig struct {
	Sentry     SentryConfig
	Prometheus PrometheusConfig
}

type DevServerConfig struct {
	Host                string
	Port                int
	AccessTokenTTL      time.Duration
	RotateRefreshTokens bool
	SigningKey          RedactedString
	RateLimits          RateLimits
}

func (c *DevServerConfig) Validate(e RunningEnvironment) error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid dev server port %d", c.Port)
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("the dev server access token TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if e == Production && c.SigningKey == "" {
		return fmt.Errorf("the dev server needs an explicit signing key in production")
	}
	return c.RateLimits.Validate()
}

package config

import (
	"fmt"
	"slices"
	"time"
)

// The payload shapes understood by the refresh endpoint adapter.
const (
	RefreshShapeSnakeCase string = "refresh_token"
	RefreshShapeCamelCase string = "refreshToken"
	RefreshShapeToken     string = "token"
	RefreshShapeCombined  string = "combined"
)

var KnownRefreshPayloadShapes = []string{
	RefreshShapeSnakeCase,
	RefreshShapeCamelCase,
	RefreshShapeToken,
	RefreshShapeCombined,
}

type AuthConfig struct {
	LoginPath    string
	RegisterPath string
	// NOTE: every path is tried with every payload shape in order until one
	// returns an access token, narrow both lists down to the real backend contract
	// when it is known.
	RefreshPaths         []string
	RefreshPayloadShapes []string
	RefreshTimeout       time.Duration
	OAuth2               OAuth2Config
	Breaker              BreakerConfig
	ProactiveRefresh     ProactiveRefreshConfig
}

type OAuth2Config struct {
	Enabled      bool
	TokenURL     string
	ClientID     string
	ClientSecret RedactedString
	Scopes       []string
}

type BreakerConfig struct {
	Enabled     bool
	MaxFailures uint32
	OpenTimeout time.Duration
}

type ProactiveRefreshConfig struct {
	Enabled     bool
	Interval    time.Duration
	ExpiresSoon time.Duration
}

func (c *AuthConfig) Validate() error {
	if c.LoginPath == "" {
		return fmt.Errorf("the login path is not set")
	}
	if c.RegisterPath == "" {
		return fmt.Errorf("the register path is not set")
	}
	if len(c.RefreshPaths) == 0 && !c.OAuth2.Enabled {
		return fmt.Errorf("at least one refresh path is required when oauth2 refresh is disabled")
	}
	for _, path := range c.RefreshPaths {
		if path == "" {
			return fmt.Errorf("refresh paths cannot be empty")
		}
	}
	if len(c.RefreshPaths) > 0 && len(c.RefreshPayloadShapes) == 0 {
		return fmt.Errorf("at least one refresh payload shape is required")
	}
	for _, shape := range c.RefreshPayloadShapes {
		if !slices.Contains(KnownRefreshPayloadShapes, shape) {
			return fmt.Errorf("unknown refresh payload shape %q (must be one of %v)", shape, KnownRefreshPayloadShapes)
		}
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("the refresh timeout must be positive, got %s", c.RefreshTimeout)
	}
	if c.OAuth2.Enabled {
		if c.OAuth2.TokenURL == "" {
			return fmt.Errorf("oauth2 refresh is enabled but the token URL is not set")
		}
		if c.OAuth2.ClientID == "" {
			return fmt.Errorf("oauth2 refresh is enabled but the client ID is not set")
		}
	}
	if c.Breaker.Enabled && c.Breaker.MaxFailures == 0 {
		return fmt.Errorf("the refresh circuit breaker needs at least one allowed failure")
	}
	if c.ProactiveRefresh.Enabled {
		if c.ProactiveRefresh.Interval <= 0 {
			return fmt.Errorf("the proactive refresh interval must be positive, got %s", c.ProactiveRefresh.Interval)
		}
		if c.ProactiveRefresh.ExpiresSoon <= 0 {
			return fmt.Errorf("the proactive refresh expiry window must be positive, got %s", c.ProactiveRefresh.ExpiresSoon)
		}
	}
	return nil
}

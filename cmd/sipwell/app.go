package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sipwell/sipwell-client/internal/authapi"
	"github.com/sipwell/sipwell-client/internal/authinterceptor"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/hydration"
	"github.com/sipwell/sipwell-client/internal/models"
	"github.com/sipwell/sipwell-client/internal/pipeline"
	"github.com/sipwell/sipwell-client/internal/tokenstore"
)

// app holds the wired client components used by the commands.
type app struct {
	config      config.Config
	store       *tokenstore.TokenStore
	interceptor *authinterceptor.Interceptor
	session     *authinterceptor.Session
	hydration   *hydration.Client
	registry    *prometheus.Registry
}

func newApp(swConfig config.Config) (*app, error) {
	a := app{config: swConfig, registry: prometheus.NewRegistry()}
	store, err := tokenstore.NewTokenStore(tokenstore.WithConfig(swConfig.TokenStore, swConfig.Redis))
	if err != nil {
		return nil, fmt.Errorf("token store initialization failed: %w", err)
	}
	a.store = store
	// the auth calls must not go through the interceptor
	authClient, err := pipeline.NewClient(
		pipeline.WithConfig(swConfig.Client),
		pipeline.WithMiddlewares(pipeline.RequestID(models.NewULIDGenerator()), pipeline.Logger()),
	)
	if err != nil {
		return nil, err
	}
	adapter, err := authapi.NewAdapter(
		authapi.WithClient(authClient),
		authapi.WithHTTPClient(&http.Client{Timeout: swConfig.Client.Timeout}),
		authapi.WithAuthConfig(swConfig.Auth),
	)
	if err != nil {
		return nil, fmt.Errorf("auth adapter initialization failed: %w", err)
	}
	if swConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(swConfig.Monitoring.Sentry.Dsn),
			TracesSampleRate: swConfig.Monitoring.Sentry.SampleRate,
			Environment:      swConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
	}
	a.interceptor, err = authinterceptor.NewInterceptor(
		authinterceptor.WithTokenStore(store),
		authinterceptor.WithRefresher(adapter),
		authinterceptor.WithConfig(swConfig.Auth),
		authinterceptor.WithMetrics(authinterceptor.NewMetrics(a.registry)),
		authinterceptor.WithSessionClearedHook(func(cause error) {
			if swConfig.Monitoring.Sentry.Enabled {
				sentry.CaptureException(cause)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	middlewares := []pipeline.Middleware{pipeline.RequestID(models.NewULIDGenerator()), a.interceptor.Middleware()}
	if swConfig.Client.RateLimits.Enabled {
		middlewares = append(middlewares, pipeline.RateLimit(swConfig.Client.RateLimits.Rate, swConfig.Client.RateLimits.Burst))
	}
	middlewares = append(middlewares, pipeline.Logger())
	api, err := pipeline.NewClient(pipeline.WithConfig(swConfig.Client), pipeline.WithMiddlewares(middlewares...))
	if err != nil {
		return nil, err
	}
	a.hydration, err = hydration.NewClient(hydration.WithPipeline(api))
	if err != nil {
		return nil, err
	}
	a.session, err = authinterceptor.NewSession(store, adapter)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *app) Close() error {
	if a.config.Monitoring.Sentry.Enabled {
		sentry.Flush(sentryFlushTimeout)
	}
	return a.store.Close()
}

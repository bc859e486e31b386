package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/devserver"
)

var logLevel = new(slog.LevelVar)

func main() {
	// Logging setup
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
	// Load configuration
	ch := config.NewConfigHandler()
	swConfig, err := ch.Config()
	if err != nil {
		slog.Error("loading the configuration failed", "error", err)
		os.Exit(1)
	}
	err = swConfig.DevServer.Validate(swConfig.RunningEnvironment)
	if err != nil {
		slog.Error("the dev server config validation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("loaded config", "config", swConfig.DevServer)
	setDebug(swConfig.DebugMode)
	ch.HandleChanges(func(newConfig config.Config, err error) {
		if err != nil {
			slog.Error("reloading the configuration failed", "error", err)
			return
		}
		setDebug(newConfig.DebugMode)
	})
	ch.Watch()
	middlewares := []echo.MiddlewareFunc{devserver.RequestLogger}
	// Sentry
	if swConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(swConfig.Monitoring.Sentry.Dsn),
			TracesSampleRate: swConfig.Monitoring.Sentry.SampleRate,
			Environment:      swConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
		middlewares = append([]echo.MiddlewareFunc{sentryecho.New(sentryecho.Options{})}, middlewares...)
	}
	server, err := devserver.NewServer(devserver.WithConfig(swConfig.DevServer), devserver.WithMiddlewares(middlewares...))
	if err != nil {
		slog.Error("dev server initialization failed", "error", err)
		os.Exit(1)
	}
	e := server.Echo()
	// Start server
	address := fmt.Sprintf("%s:%d", swConfig.DevServer.Host, swConfig.DevServer.Port)
	slog.Info("starting the dev server on address " + address)
	go func() {
		err := e.Start(address)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("the dev server failed", "error", err)
			os.Exit(1)
		}
	}()
	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("received signal to shut down the dev server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("shutting down the dev server gracefully failed", "error", err)
		os.Exit(1)
	}
}

// setDebug is the only setting applied on a config file change, the rest needs a restart.
func setDebug(enabled bool) {
	if enabled {
		logLevel.Set(slog.LevelDebug)
		return
	}
	logLevel.Set(slog.LevelInfo)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sipwell/sipwell-client/internal/tokenrefresher"
	"github.com/spf13/cobra"
)

func keepaliveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "keepalive",
		Short: "Keep the session fresh by refreshing the access token before it expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			refresher, err := tokenrefresher.NewTokenRefresher(
				tokenrefresher.WithConfig(a.config.Auth.ProactiveRefresh),
				tokenrefresher.WithTokenStore(a.store),
				tokenrefresher.WithSessionRefresher(a.interceptor),
			)
			if err != nil {
				return err
			}
			scheduler, err := refresher.GetScheduler()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if a.config.Monitoring.Prometheus.Enabled {
				metrics := newMetricsServer(fmt.Sprintf(":%d", a.config.Monitoring.Prometheus.Port), a.registry)
				go func() {
					err := metrics.ListenAndServe()
					if err != nil && !errors.Is(err, http.ErrServerClosed) {
						slog.Error("prometheus server failed to start", "error", err)
						stop()
					}
				}()
				defer stopMetricsServer(metrics, metricsShutdownTimeout)
			}

			scheduler.StartAsync()
			defer scheduler.Stop()
			cmd.Printf("Refreshing the session every %s, press Ctrl+C to stop\n", refresher.Interval)
			<-ctx.Done()
			return nil
		},
	}
}

const metricsShutdownTimeout = 5 * time.Second

func newMetricsServer(address string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func stopMetricsServer(server *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutting down the prometheus server failed", "error", err)
	}
}

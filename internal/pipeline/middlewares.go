package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sipwell/sipwell-client/internal/models"
	"golang.org/x/time/rate"
)

const HeaderRequestID = "X-Request-ID"

// RequestID sets a fresh request ID on every request that does not carry one yet.
func RequestID(generator models.IDGenerator) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.Header.Get(HeaderRequestID) == "" {
				id, err := generator.ID()
				if err != nil {
					return nil, err
				}
				req.Header.Set(HeaderRequestID, id)
			}
			return next(ctx, req)
		}
	}
}

func Logger() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			res, err := next(ctx, req)
			if err != nil {
				slog.Error(
					"PIPELINE",
					"message",
					"request failed",
					"method",
					req.Method,
					"path",
					req.Path,
					"error",
					err,
					"requestID",
					req.Header.Get(HeaderRequestID),
				)
				return res, err
			}
			slog.Debug(
				"PIPELINE",
				"message",
				"request completed",
				"method",
				req.Method,
				"path",
				req.Path,
				"status",
				res.StatusCode,
				"duration",
				time.Since(start),
				"retried",
				req.Retried(),
				"requestID",
				req.Header.Get(HeaderRequestID),
			)
			return res, nil
		}
	}
}

// RateLimit delays requests so that at most r requests per second (with the given burst) leave the client.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return next(ctx, req)
		}
	}
}

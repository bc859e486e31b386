package devserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const userIDKey string = "userID"

var RequestLogger echo.MiddlewareFunc = middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
	LogStatus:    true,
	LogURI:       true,
	LogError:     true,
	LogRequestID: true,
	LogRoutePath: true,
	LogMethod:    true,
	LogUserAgent: true,
	HandleError:  true,
	LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
		attrs := []slog.Attr{
			slog.String("uri", v.URI),
			slog.Int("status", v.Status),
			slog.String("requestID", v.RequestID),
			slog.String("method", v.Method),
			slog.String("handler", v.RoutePath),
			slog.String("userAgent", v.UserAgent),
		}
		if v.Error == nil {
			slog.Default().LogAttrs(context.Background(), slog.LevelInfo, "REQUEST", attrs...)
			return nil
		}
		attrs = append(attrs, slog.String("error", v.Error.Error()))
		slog.Default().LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR", attrs...)
		// the hub is only attached when sentry is enabled
		if hub := sentryecho.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("requestID", v.RequestID)
			hub.CaptureException(v.Error)
		}
		return nil
	},
})

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// RequireAccessToken rejects requests without a valid, unexpired bearer token
// and stores the token subject for the handlers.
func (s *Server) RequireAccessToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return c.JSON(http.StatusUnauthorized, message("No token provided"))
		}
		userID, err := s.verifyAccessToken(strings.TrimSpace(token))
		switch err {
		case nil:
		case errTokenExpired:
			slog.Debug("DEVSERVER", "message", "rejected expired access token", "requestID", requestID(c))
			return c.JSON(http.StatusUnauthorized, message("jwt expired"))
		default:
			slog.Debug("DEVSERVER", "message", "rejected access token", "error", err, "requestID", requestID(c))
			return c.JSON(http.StatusUnauthorized, message("invalid token"))
		}
		if !s.data.userExists(userID) {
			return c.JSON(http.StatusUnauthorized, message("invalid token"))
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

func currentUser(c echo.Context) string {
	userID, _ := c.Get(userIDKey).(string)
	return userID
}

func message(text string) map[string]string {
	return map[string]string{"message": text}
}

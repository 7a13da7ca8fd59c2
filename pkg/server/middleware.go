package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
)

const userIDKey = "user_id"

// requestLogger attaches a per-request logger to the request context and logs
// each completed request
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			logger := logging.From(req.Context()).With(
				"request_id", requestID,
				"method", req.Method,
				"path", req.URL.Path,
			)
			c.SetRequest(req.WithContext(logging.With(req.Context(), logger)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// commit the error response so the status below is the real one
				c.Error(err)
			}

			logger.Info("request",
				"status", c.Response().Status,
				"duration", time.Since(start),
				"remote_ip", c.RealIP(),
			)
			return nil
		}
	}
}

// authenticate requires a valid bearer token and stores its user ID
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "no token provided")
		}

		userID, err := s.uc.Auth.VerifyToken(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

func userID(c echo.Context) model.UserID {
	id, _ := c.Get(userIDKey).(model.UserID)
	return id
}

// errorStatus maps an error into an HTTP status and a client facing message
func errorStatus(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	}

	detail := func(sentinel error) string {
		return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, detail(model.ErrNotFound)
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, detail(model.ErrUnauthorized)
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, detail(model.ErrInvalidInput)
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, detail(model.ErrConflict)
	case errors.Is(err, model.ErrProviderAuth):
		return http.StatusServiceUnavailable, "completion provider is not configured correctly"
	case errors.Is(err, model.ErrProviderFailure):
		return http.StatusBadGateway, "failed to get a response from the completion provider"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := errorStatus(err)
	logger := logging.From(c.Request().Context())
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "status", code)
	} else {
		logger.Debug("request rejected", "error", err, "status", code)
	}

	if err := c.JSON(code, map[string]string{"error": msg}); err != nil {
		logger.Error("failed to write error response", "error", err)
	}
}

package httpx

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// TokenValidator resolves a bearer token to a principal.
type TokenValidator func(ctx context.Context, token string) (any, error)

const principalKey = "httpx.principal"

// BearerAuth rejects requests without a valid "Authorization: Bearer" header
// and stores the resolved principal on the context.
func BearerAuth(validate TokenValidator) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			if validate == nil {
				return HTTPError(StatusUnauthorized, "auth middleware missing")
			}
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				return HTTPError(StatusUnauthorized, "Access token required")
			}
			principal, err := validate(c.Request().Context(), token)
			if err != nil {
				return HTTPError(StatusUnauthorized, "Invalid or expired token")
			}
			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// Principal returns what BearerAuth stored for the request.
func Principal(c Context) (any, bool) {
	v := c.Get(principalKey)
	return v, v != nil
}

// LoggerMiddleware logs one line per request through logrus.
func LoggerMiddleware(log logrus.FieldLogger) MiddlewareFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			entry := log.WithFields(logrus.Fields{
				"method":  req.Method,
				"path":    req.URL.Path,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
			})
			if c.Response().Status >= StatusInternalError {
				entry.Warn("request failed")
			} else {
				entry.Debug("request served")
			}
			return nil
		}
	}
}

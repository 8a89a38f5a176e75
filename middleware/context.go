package middleware

import (
	"context"

	"github.com/MrEthical07/goContacts/internal/auth"
	"github.com/labstack/echo/v4"
)

type identityContextKey struct{}

// WithIdentity attaches an authenticated identity to ctx.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityContextKey{}).(string)
	return id, ok && id != ""
}

// Identity returns the identity RequireAuth attached to the request.
func Identity(c echo.Context) (string, bool) {
	return IdentityFromContext(c.Request().Context())
}

// ClientIP records the caller address on the request context so the token
// service can put it in audit records.
func ClientIP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithClientIP(req.Context(), c.RealIP())))
			return next(c)
		}
	}
}

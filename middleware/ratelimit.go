package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/goContacts/internal/rate"
	"github.com/labstack/echo/v4"
)

// Admitter decides whether a subject may call a route.
type Admitter interface {
	AdmitRoute(ctx context.Context, route, subject string) (rate.Decision, error)
}

const (
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"

	rateLimitedDetail = "Too many requests"
	unavailableDetail = "Rate limiter unavailable"
)

// RateLimit admits requests to route. The subject is the identity already on
// the request context, or else the client address.
func RateLimit(l Admitter, route string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			subject, ok := IdentityFromContext(req.Context())
			if !ok {
				subject = c.RealIP()
			}

			d, err := l.AdmitRoute(req.Context(), route, subject)
			if err != nil {
				var limited *rate.LimitedError
				if errors.As(err, &limited) {
					c.Response().Header().Set("Retry-After", RetryAfterSeconds(limited.RetryAfter))
					c.Response().Header().Set(HeaderRateLimitRemaining, "0")
					return c.JSON(http.StatusTooManyRequests, map[string]string{"detail": rateLimitedDetail})
				}
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"detail": unavailableDetail})
			}

			c.Response().Header().Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
			return next(c)
		}
	}
}

// RetryAfterSeconds renders d as whole seconds, rounded up, never below 1.
func RetryAfterSeconds(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

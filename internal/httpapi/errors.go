package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/goContacts/internal/auth"
	"github.com/MrEthical07/goContacts/internal/contacts"
	"github.com/MrEthical07/goContacts/internal/media"
	"github.com/MrEthical07/goContacts/internal/rate"
	"github.com/MrEthical07/goContacts/internal/users"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/MrEthical07/goContacts/password"
	"github.com/MrEthical07/goContacts/token"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorBody struct {
	Detail string `json:"detail"`
}

const unauthorizedDetail = "Could not validate credentials"

// writeError maps err to a status code and a {"detail": ...} body.
func (s *Server) writeError(c echo.Context, err error) error {
	var (
		limited    *rate.LimitedError
		invalid    *validationError
		httpErr    *echo.HTTPError
		status     int
		detail     string
		logAsError bool
	)

	switch {
	case errors.As(err, &invalid):
		status, detail = http.StatusUnprocessableEntity, invalid.msg
	case errors.As(err, &httpErr):
		status, detail = httpErr.Code, http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			detail = msg
		}
	case errors.As(err, &limited):
		c.Response().Header().Set("Retry-After", middleware.RetryAfterSeconds(limited.RetryAfter))
		status, detail = http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, detail = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		status, detail = http.StatusForbidden, "Email not confirmed"
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrRevoked),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrExpiredToken),
		errors.Is(err, token.ErrWrongPurpose):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		status, detail = http.StatusUnauthorized, unauthorizedDetail
	case errors.Is(err, auth.ErrAccountExists):
		status, detail = http.StatusConflict, "Account already exists"
	case errors.Is(err, password.ErrTooShort):
		status, detail = http.StatusUnprocessableEntity, "Password too short"
	case errors.Is(err, users.ErrNotFound):
		status, detail = http.StatusNotFound, "Account not found"
	case errors.Is(err, contacts.ErrNotFound):
		status, detail = http.StatusNotFound, "Contact not found"
	case errors.Is(err, contacts.ErrDuplicate):
		status, detail = http.StatusConflict, "Contact with this email or phone number already exists"
	case errors.Is(err, contacts.ErrInvalidWindow):
		status, detail = http.StatusBadRequest, contacts.ErrInvalidWindow.Error()
	case errors.Is(err, media.ErrUnsupportedType):
		status, detail = http.StatusUnsupportedMediaType, "Avatar must be an image"
	case errors.Is(err, auth.ErrAvatarsDisabled):
		status, detail = http.StatusNotImplemented, "Avatar uploads are not configured"
	case errors.Is(err, rate.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		status, detail = http.StatusServiceUnavailable, "Service unavailable"
		logAsError = true
	default:
		status, detail = http.StatusInternalServerError, "Internal server error"
		logAsError = true
	}

	if logAsError {
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.JSON(status, errorBody{Detail: detail})
}

// handleHTTPError renders errors that escape handlers, such as echo's own
// 404 and 405, in the same shape.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if werr := s.writeError(c, err); werr != nil {
		s.logger.Error("write error response", zap.Error(werr))
	}
}

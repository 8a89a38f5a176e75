package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goContacts/internal/auth"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/labstack/echo/v4"
)

var errUnauthenticated = auth.ErrUnauthorized

// multipartOverhead is the slack allowed for form boundaries and headers on
// top of the avatar size limit.
const multipartOverhead = 64 << 10

func (s *Server) handleMe(c echo.Context) error {
	identity, ok := middleware.Identity(c)
	if !ok {
		return s.writeError(c, errUnauthenticated)
	}
	acct, err := s.auth.Me(c.Request().Context(), identity)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, acct)
}

func (s *Server) handleAvatar(c echo.Context) error {
	identity, ok := middleware.Identity(c)
	if !ok {
		return s.writeError(c, errUnauthenticated)
	}

	tooLarge := echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("avatar must be at most %d bytes", s.opts.AvatarMaxBytes))

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, s.opts.AvatarMaxBytes+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return s.writeError(c, tooLarge)
		}
		return s.writeError(c, &validationError{msg: "field 'file' is required"})
	}
	if fh.Size > s.opts.AvatarMaxBytes {
		return s.writeError(c, tooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return s.writeError(c, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	acct, err := s.auth.UpdateAvatar(c.Request().Context(), identity, fh.Header.Get(echo.HeaderContentType), f, fh.Size)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, acct)
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goContacts/internal/users"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/MrEthical07/goContacts/token"
	"github.com/labstack/echo/v4"
)

type signupRequest struct {
	Username string `json:"username" validate:"required,min=5,max=16"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=10"`
}

type signupResponse struct {
	User   users.Account `json:"user"`
	Detail string        `json:"detail"`
}

// loginRequest accepts JSON or the OAuth2 password form, where the email
// travels as username.
type loginRequest struct {
	Email    string `json:"email" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type requestEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &validationError{msg: "invalid request body"}
	}
	return c.Validate(dst)
}

func (s *Server) handleSignup(c echo.Context) error {
	var req signupRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.writeError(c, err)
	}

	acct, err := s.auth.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, signupResponse{
		User:   acct,
		Detail: "User successfully created. Check your email for confirmation.",
	})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.writeError(c, err)
	}

	pair, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// handleRefresh takes the refresh token from the Authorization header, or
// from the JSON body when the header is absent.
func (s *Server) handleRefresh(c echo.Context) error {
	tok, ok := middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		var req refreshRequest
		if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
			return s.writeError(c, token.ErrInvalidToken)
		}
		tok = req.RefreshToken
	}

	pair, err := s.auth.Refresh(c.Request().Context(), tok)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) handleConfirm(c echo.Context) error {
	err := s.auth.Confirm(c.Request().Context(), c.Param("token"))
	if errors.Is(err, token.ErrInvalidToken) {
		return c.JSON(http.StatusBadRequest, errorBody{Detail: "Verification error"})
	}
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Email confirmed"})
}

// handleRequestEmail answers 202 whether or not the address is known.
func (s *Server) handleRequestEmail(c echo.Context) error {
	var req requestEmailRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.writeError(c, err)
	}

	if _, err := s.auth.RequestConfirmation(c.Request().Context(), req.Email); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: "Check your email for confirmation."})
}

func (s *Server) handleLogout(c echo.Context) error {
	identity, ok := middleware.Identity(c)
	if !ok {
		return s.writeError(c, errUnauthenticated)
	}
	if err := s.auth.Logout(c.Request().Context(), identity); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

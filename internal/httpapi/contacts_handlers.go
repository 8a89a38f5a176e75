package httpapi

import (
	"net/http"
	"strconv"

	"github.com/MrEthical07/goContacts/internal/contacts"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/labstack/echo/v4"
)

type contactRequest struct {
	FirstName      string        `json:"first_name" validate:"required,max=50"`
	LastName       string        `json:"last_name" validate:"required,max=50"`
	Email          string        `json:"email" validate:"required,email,max=100"`
	PhoneNumber    string        `json:"phone_number" validate:"required,max=20"`
	Birthday       contacts.Date `json:"birthday"`
	AdditionalData string        `json:"additional_data" validate:"max=300"`
}

func (r contactRequest) contact() contacts.Contact {
	return contacts.Contact{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		Birthday:       r.Birthday,
		AdditionalData: r.AdditionalData,
	}
}

type contactListResponse struct {
	Contacts []contacts.Contact `json:"contacts"`
}

// ownerID resolves the authenticated identity to its account id.
func (s *Server) ownerID(c echo.Context) (int64, error) {
	identity, ok := middleware.Identity(c)
	if !ok {
		return 0, errUnauthenticated
	}
	acct, err := s.auth.Me(c.Request().Context(), identity)
	if err != nil {
		return 0, err
	}
	return acct.ID, nil
}

func (s *Server) bindContact(c echo.Context) (contacts.Contact, error) {
	var req contactRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return contacts.Contact{}, err
	}
	if req.Birthday.IsZero() {
		return contacts.Contact{}, &validationError{msg: "field 'birthday' is required"}
	}
	return req.contact(), nil
}

func contactID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, contacts.ErrNotFound
	}
	return id, nil
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &validationError{msg: "query parameter '" + name + "' must be an integer"}
	}
	return v, nil
}

func (s *Server) handleCreateContact(c echo.Context) error {
	owner, err := s.ownerID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	in, err := s.bindContact(c)
	if err != nil {
		return s.writeError(c, err)
	}

	created, err := s.contacts.Create(c.Request().Context(), owner, in)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListContacts(c echo.Context) error {
	owner, err := s.ownerID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	skip, err := intQuery(c, "skip", 0)
	if err != nil {
		return s.writeError(c, err)
	}
	limit, err := intQuery(c, "limit", contacts.DefaultLimit)
	if err != nil {
		return s.writeError(c, err)
	}

	list, err := s.contacts.List(c.Request().Context(), owner, contacts.Page{Skip: skip, Limit: limit})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, contactListResponse{Contacts: list})
}

func (s *Server) handleGetContact(c echo.Context) error {
	owner, err := s.ownerID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	id, err := contactID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	got, err := s.contacts.Get(c.Request().Context(), owner, id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, got)
}

func (s *Server) handleUpdateContact(c echo.Context) error {
	owner, err := s.ownerID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	id, err := contactID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	in, err := s.bindContact(c)
	if err != nil {
		return s.writeError(c, err)
	}

	updated, err := s.contacts.Update(c.Request().Context(), owner, id, in)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteContact(c echo.Context) error {
	owner, err := s.ownerID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	id, err := contactID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	deleted, err := s.contacts.Delete(c.Request().Context(), owner, id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, deleted)
}

func (s *Server) handleSearchContacts(c echo.Context) error {
	owner, err := s.ownerID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	list, err := s.contacts.Search(c.Request().Context(), owner, c.QueryParam("query"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleBirthdays(c echo.Context) error {
	owner, err := s.ownerID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	days, err := intQuery(c, "days", 7)
	if err != nil {
		return s.writeError(c, err)
	}

	list, err := s.contacts.Upcoming(c.Request().Context(), owner, days)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validationError is a request body that failed its struct tags.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v}
}

// Validate implements echo.Validator. It reports the first failing field.
func (rv *requestValidator) Validate(i any) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("invalid validation error: %w", err)
	}

	first := errs[0]
	field, param := first.Field(), first.Param()
	switch first.Tag() {
	case "required":
		return &validationError{fmt.Sprintf("field '%s' is required", field)}
	case "email":
		return &validationError{fmt.Sprintf("field '%s' must be a valid email address", field)}
	case "min":
		return &validationError{fmt.Sprintf("field '%s' must be at least %s characters long", field, param)}
	case "max":
		return &validationError{fmt.Sprintf("field '%s' must be at most %s characters long", field, param)}
	default:
		return &validationError{fmt.Sprintf("field '%s' validation failed on tag '%s'", field, first.Tag())}
	}
}

package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/suteetoe/backoffice/internal/apperror"
)

// CustomValidator plugs go-playground/validator into echo's c.Validate
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator reports field names using their json tags
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate returns a ValidationError naming the first failing field
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.Validation("invalid request body")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperror.Validation("%s is required", fe.Field())
	case "email":
		return apperror.Validation("%s must be a valid email address", fe.Field())
	case "gt":
		return apperror.Validation("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte", "min":
		return apperror.Validation("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return apperror.Validation("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return apperror.Validation("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return apperror.Validation("%s is invalid", fe.Field())
	}
}

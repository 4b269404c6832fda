package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// It knows the username and colorhex tags besides the built-in ones.
func NewValidator() *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return domain.ValidateUsername(domain.NormalizeUsername(fl.Field().String())) == nil
	})
	_ = v.RegisterValidation("colorhex", func(fl validator.FieldLevel) bool {
		return domain.IsColorHex(fl.Field().String())
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Failures come back as a
// *domain.ValidationError listing every field.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := &domain.ValidationError{Fields: make([]domain.FieldError, 0, len(ve))}
			for _, fe := range ve {
				out.Fields = append(out.Fields, domain.FieldError{Field: fe.Field(), Message: fieldError(fe)})
			}
			return out
		}
		return err
	}
	return nil
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url":
		return field + " must be an absolute URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "username":
		return fmt.Sprintf("%s must be %d-%d letters, numbers or underscores",
			field, domain.UsernameMinLength, domain.UsernameMaxLength)
	case "colorhex":
		return field + " must be a #RRGGBB color"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

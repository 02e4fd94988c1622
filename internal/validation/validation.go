// Package validation wires go-playground/validator with the account field
// rules and flattens its errors into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

const PhoneMessage = "Phone Number must be 10 digits!"

var (
	ErrInvalid = errors.New("validation failed")

	phonePattern = regexp.MustCompile(`^\+?1?\d{10,13}$`)

	shared = New()
)

// FieldErrors maps a field name to its first failing rule.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e[key])
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

func (e FieldErrors) Unwrap() error {
	return ErrInvalid
}

// New returns a validator with the "phone" rule registered and field names
// reported by their json tag.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	return v
}

func IsPhone(value string) bool {
	return phonePattern.MatchString(value)
}

// Phone validates a single phone number.
func Phone(value string) error {
	if !IsPhone(value) {
		return FieldErrors{"phone_number": PhoneMessage}
	}
	return nil
}

// Struct validates payload with the shared validator.
func Struct(payload any) error {
	return Translate(shared.Struct(payload))
}

// Translate converts validator errors into FieldErrors. Other errors pass
// through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "phone":
		return PhoneMessage
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return fmt.Sprintf("failed on %q", fe.Tag())
}

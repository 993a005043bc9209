package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error collects every field failure of one validation pass.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewError builds a single-field validation error.
func NewError(field, message string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: message}}}
}

// HasField reports whether the error carries a failure for field.
func (e *Error) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator used by handlers and services alike.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return strongPassword(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Struct validates s and converts failures into *Error.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts RFC3339 timestamps and plain calendar dates. Dates in the past are valid.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

func strongPassword(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

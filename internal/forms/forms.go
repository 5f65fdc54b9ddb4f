// Package forms validates user input before it is sent to the backend.
// Rules live in `validate` struct tags on the request types in model.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/derickschaefer/campcheck/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names, which match the CLI flag wording.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every failed rule of one form.
type Error struct {
	Fields []FieldError `json:"fields"`
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validate checks v against its tags. It returns nil or *Error.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldName(fe), Message: message(fe)})
	}
	return out
}

// fieldName strips the struct prefix and any slice index.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func message(fe validator.FieldError) string {
	field := strings.ReplaceAll(fieldName(fe), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "please enter a valid email address"
	case "e164":
		return fmt.Sprintf("%s must be a phone number with country code, e.g. +15551234567", field)
	case "eqfield":
		return "passwords do not match"
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("select at least %s of %s", fe.Param(), field)
		default:
			return fmt.Sprintf("%s must be %s or later", field, fe.Param())
		}
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be %s or earlier", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// ─── Forms ────────────────────────────────────────────────────────────────────

// Register checks a registration form.
func Register(r model.RegisterRequest) error { return Validate(r) }

// Login checks a login form.
func Login(r model.LoginRequest) error { return Validate(r) }

// OTP checks an OTP verification form.
func OTP(r model.OTPRequest) error { return Validate(r) }

// Email checks a bare email form (resend OTP, forgot password).
func Email(r model.EmailRequest) error { return Validate(r) }

// ResetPassword checks a password reset form.
func ResetPassword(r model.ResetPasswordRequest) error { return Validate(r) }

// Contact checks share contact details.
func Contact(c model.ContactInfo) error { return Validate(c) }

// Availability checks an availability query, including its contact block.
func Availability(r model.AvailabilityRequest) error { return Validate(r) }

// Share checks a share request: a valid query plus a site with dates.
func Share(r model.AvailabilityRequest) error {
	err := Validate(r)
	var ferr *Error
	switch {
	case err == nil:
		ferr = &Error{}
	case errors.As(err, &ferr):
	default:
		return err
	}
	if strings.TrimSpace(r.SelectedSite.Site) == "" {
		ferr.Fields = append(ferr.Fields, FieldError{Field: "site", Message: "site is required"})
	}
	if len(r.SelectedSite.AvailableDates) == 0 {
		ferr.Fields = append(ferr.Fields, FieldError{Field: "availableDates", Message: "the selected site has no available dates to share"})
	}
	if len(ferr.Fields) == 0 {
		return nil
	}
	return ferr
}

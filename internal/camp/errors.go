package camp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	// Detail is the backend's explanation, flattened to one line.
	Detail string
	// Fields holds per-field validation messages (422 responses).
	Fields []string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// newAPIError extracts a readable message from the several error shapes the
// backend produces:
//
//	{"detail": "text"}
//	{"detail": {"msg": "text"}}
//	{"detail": [{"msg": "a"}, {"msg": "b"}]}
//	{"message": "text"}
//	{"errors": ["a", "b"]}
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	var raw struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Errors  []string        `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		e.Detail = strings.TrimSpace(string(body))
		return e
	}
	e.Detail = flattenDetail(raw.Detail)
	if e.Detail == "" {
		e.Detail = raw.Message
	}
	e.Fields = raw.Errors
	if e.Detail == "" && len(raw.Errors) > 0 {
		e.Detail = strings.Join(raw.Errors, ", ")
	}
	return e
}

func flattenDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	type msg struct {
		Msg string `json:"msg"`
	}
	var list []msg
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, m := range list {
			if m.Msg != "" {
				parts = append(parts, m.Msg)
			}
		}
		return strings.Join(parts, ", ")
	}
	var one msg
	if err := json.Unmarshal(raw, &one); err == nil {
		return one.Msg
	}
	return ""
}

// StatusOf returns the HTTP status of an *APIError anywhere in err's chain,
// or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// ─── User-facing messages ─────────────────────────────────────────────────────

// Backend detail strings for login failures.
const (
	detailNotRegistered = "User not registered. Please register first."
	detailWrongPassword = "The entered password does not match the registered password."
)

// LoginMessage turns a login failure into the message shown to the user.
func LoginMessage(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "An error occurred during login. Please try again."
	}
	if apiErr.Status != http.StatusUnauthorized {
		return "An error occurred during login. Please try again."
	}
	switch apiErr.Detail {
	case detailNotRegistered:
		return "You are not registered. Please sign up first."
	case detailWrongPassword:
		return "Incorrect password. Please try again."
	default:
		return "Invalid login attempt. Please check your credentials."
	}
}

// RegisterMessage turns a registration failure into a user-facing message.
func RegisterMessage(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "Unable to connect to the server. Please try again later."
	}
	switch apiErr.Status {
	case http.StatusUnprocessableEntity:
		if len(apiErr.Fields) > 0 {
			return strings.Join(apiErr.Fields, ", ")
		}
		return "Please check your input data and try again."
	case http.StatusConflict:
		return "Email already exists. Please use a different email."
	case http.StatusBadRequest:
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return "Email already exists. Please use a different email."
	default:
		return "Unable to connect to the server. Please try again later."
	}
}

// OTPMessage turns an OTP verification failure into a user-facing message.
func OTPMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		d := strings.ToLower(apiErr.Detail)
		switch {
		case strings.Contains(d, "expired"):
			return "OTP has expired. Run 'campcheck auth resend-otp' to get a new one."
		case strings.Contains(d, "invalid"):
			return "Invalid OTP. Please try again."
		}
	}
	return "An error occurred while verifying OTP. Please try again later."
}

// DetailMessage returns the backend detail when there is one, else fallback.
func DetailMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

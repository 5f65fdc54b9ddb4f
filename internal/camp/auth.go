package camp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/derickschaefer/campcheck/internal/model"
)

// Account endpoints never carry a bearer token.

// Register creates an account. The backend then emails an OTP.
func (c *Client) Register(ctx context.Context, r model.RegisterRequest) error {
	r.Email = strings.TrimSpace(r.Email)
	if err := c.post(ctx, "register", r, false, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// VerifyOTP confirms the emailed one-time password.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	req := model.OTPRequest{Email: strings.TrimSpace(email), OTP: strings.TrimSpace(otp)}
	if err := c.post(ctx, "verify-otp", req, false, nil); err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	return nil
}

// ResendOTP asks the backend to email a fresh OTP.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	req := model.EmailRequest{Email: strings.TrimSpace(email)}
	if err := c.post(ctx, "resend-otp", req, false, nil); err != nil {
		return fmt.Errorf("resend otp: %w", err)
	}
	return nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, r model.LoginRequest) (string, error) {
	r.Email = strings.TrimSpace(r.Email)
	var out struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "login", r, false, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("login: malformed response: missing token")
	}
	return out.Token, nil
}

// ForgotPassword starts a password reset; the backend emails an OTP.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := model.EmailRequest{Email: strings.TrimSpace(email)}
	if err := c.post(ctx, "forgot-password", req, false, nil); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using the reset OTP.
func (c *Client) ResetPassword(ctx context.Context, r model.ResetPasswordRequest) error {
	r.Email = strings.TrimSpace(r.Email)
	if err := c.post(ctx, "reset-password", r, false, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

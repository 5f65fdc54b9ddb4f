package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/forms"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/render"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Register, sign in and manage your backend account",
	Long: `Account commands for the availability backend.

Availability checks and sharing need a session. Sign up with 'auth register',
confirm the emailed code with 'auth verify', then 'auth login'. The session
token is kept in the local store until 'auth logout'.

Passwords can be passed with --password or typed on stdin when the flag is
omitted.`,
}

var authFlags struct {
	Name        string
	Email       string
	Password    string
	Confirm     string
	OTP         string
	Captcha     string
	NewPassword string
}

// ─── auth register ────────────────────────────────────────────────────────────

var authRegisterCmd = &cobra.Command{
	Use:     "register",
	Short:   "Create an account; the backend emails a one-time code",
	Example: `  campcheck auth register --name "Ana Ruiz" --email ana@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordValue(cmd, authFlags.Password, "Password: ")
		if err != nil {
			return err
		}
		confirm := authFlags.Confirm
		if confirm == "" {
			confirm = password
		}
		req := model.RegisterRequest{
			Name:            strings.TrimSpace(authFlags.Name),
			Email:           strings.TrimSpace(authFlags.Email),
			Password:        password,
			ConfirmPassword: confirm,
		}
		if err := forms.Register(req); err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Client.Register(cmd.Context(), req); err != nil {
			deps.Logger.Debug("register failed", zap.Error(err))
			return errors.New(camp.RegisterMessage(err))
		}
		success(cmd, "Registered %s", req.Email)
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "  Check your email, then run: campcheck auth verify --email %s --otp <code>\n", req.Email)
		}
		return nil
	},
}

// ─── auth verify ──────────────────────────────────────────────────────────────

var authVerifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Confirm the emailed one-time code",
	Example: `  campcheck auth verify --email ana@example.com --otp 482913`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := model.OTPRequest{Email: strings.TrimSpace(authFlags.Email), OTP: strings.TrimSpace(authFlags.OTP)}
		if err := forms.OTP(req); err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Client.VerifyOTP(cmd.Context(), req.Email, req.OTP); err != nil {
			deps.Logger.Debug("otp verification failed", zap.Error(err))
			return errors.New(camp.OTPMessage(err))
		}
		success(cmd, "Email verified. You can now run: campcheck auth login --email %s", req.Email)
		return nil
	},
}

// ─── auth resend-otp ──────────────────────────────────────────────────────────

var authResendCmd = &cobra.Command{
	Use:     "resend-otp",
	Short:   "Email a fresh one-time code",
	Example: `  campcheck auth resend-otp --email ana@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := model.EmailRequest{Email: strings.TrimSpace(authFlags.Email)}
		if err := forms.Email(req); err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Client.ResendOTP(cmd.Context(), req.Email); err != nil {
			return errors.New(camp.DetailMessage(err, "Failed to resend OTP. Please try again."))
		}
		success(cmd, "A new code was sent to %s", req.Email)
		return nil
	},
}

// ─── auth login / logout ──────────────────────────────────────────────────────

var authLoginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Sign in and keep the session token",
	Example: `  campcheck auth login --email ana@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordValue(cmd, authFlags.Password, "Password: ")
		if err != nil {
			return err
		}
		req := model.LoginRequest{
			Email:           strings.TrimSpace(authFlags.Email),
			Password:        password,
			CaptchaResponse: authFlags.Captcha,
		}
		if err := forms.Login(req); err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		token, err := deps.Client.Login(cmd.Context(), req)
		if err != nil {
			deps.Logger.Debug("login failed", zap.Error(err))
			return errors.New(camp.LoginMessage(err))
		}
		if err := deps.Session.Save(token); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		success(cmd, "Logged in as %s", req.Email)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Session.Clear(); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		success(cmd, "Logged out")
		return nil
	},
}

// ─── auth forgot / reset ──────────────────────────────────────────────────────

var authForgotCmd = &cobra.Command{
	Use:     "forgot",
	Short:   "Start a password reset; the backend emails a code",
	Example: `  campcheck auth forgot --email ana@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := model.EmailRequest{Email: strings.TrimSpace(authFlags.Email)}
		if err := forms.Email(req); err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Client.ForgotPassword(cmd.Context(), req.Email); err != nil {
			return errors.New(camp.DetailMessage(err, "Failed to send reset code. Please try again."))
		}
		success(cmd, "Reset code sent to %s", req.Email)
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "  Then run: campcheck auth reset --email %s --otp <code>\n", req.Email)
		}
		return nil
	},
}

var authResetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Set a new password with the emailed reset code",
	Example: `  campcheck auth reset --email ana@example.com --otp 118204`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordValue(cmd, authFlags.NewPassword, "New password: ")
		if err != nil {
			return err
		}
		req := model.ResetPasswordRequest{
			Email:       strings.TrimSpace(authFlags.Email),
			OTP:         strings.TrimSpace(authFlags.OTP),
			NewPassword: password,
		}
		if err := forms.ResetPassword(req); err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Client.ResetPassword(cmd.Context(), req); err != nil {
			return errors.New(camp.DetailMessage(err, "Failed to reset password. Please try again."))
		}
		success(cmd, "Password updated. Log in with: campcheck auth login --email %s", req.Email)
		return nil
	},
}

// ─── auth status ──────────────────────────────────────────────────────────────

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session is stored and when it expires",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		st, err := deps.Session.Status()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if resolveFormat(deps.Config.Format) == render.FormatJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		state := "logged in"
		switch {
		case !st.LoggedIn:
			state = "logged out"
		case st.Expired:
			state = "expired"
		}
		rows := [][]string{{"session", state}}
		if st.Claims.Email != "" {
			rows = append(rows, []string{"email", st.Claims.Email})
		} else if st.Claims.Subject != "" {
			rows = append(rows, []string{"subject", st.Claims.Subject})
		}
		if !st.Claims.ExpiresAt.IsZero() {
			rows = append(rows, []string{"expires", st.Claims.ExpiresAt.Local().Format(time.RFC1123)})
		}
		printKVTable(out, rows)
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authRegisterCmd, authVerifyCmd, authResendCmd, authLoginCmd,
		authLogoutCmd, authForgotCmd, authResetCmd, authStatusCmd)

	for _, c := range []*cobra.Command{authRegisterCmd, authVerifyCmd, authResendCmd, authLoginCmd, authForgotCmd, authResetCmd} {
		c.Flags().StringVar(&authFlags.Email, "email", "", "account email")
	}
	authRegisterCmd.Flags().StringVar(&authFlags.Name, "name", "", "your name")
	authRegisterCmd.Flags().StringVar(&authFlags.Password, "password", "", "password, at least 6 characters (prompted when omitted)")
	authRegisterCmd.Flags().StringVar(&authFlags.Confirm, "confirm-password", "", "password confirmation (defaults to --password)")
	authLoginCmd.Flags().StringVar(&authFlags.Password, "password", "", "password (prompted when omitted)")
	authLoginCmd.Flags().StringVar(&authFlags.Captcha, "captcha", "", "captcha response token, when the backend asks for one")
	authVerifyCmd.Flags().StringVar(&authFlags.OTP, "otp", "", "one-time code from the email")
	authResetCmd.Flags().StringVar(&authFlags.OTP, "otp", "", "reset code from the email")
	authResetCmd.Flags().StringVar(&authFlags.NewPassword, "new-password", "", "new password, at least 6 characters (prompted when omitted)")
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// passwordValue returns flagVal, or reads one line from the command's stdin.
func passwordValue(cmd *cobra.Command, flagVal, prompt string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if !globalFlags.Quiet {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
	}
	return readLine(cmd.InOrStdin())
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/docsum/internal/client"
	"github.com/raphaelgruber/docsum/internal/credential"
	"github.com/raphaelgruber/docsum/internal/validation"
)

// AccountAPI is the subset of the service API used by account flows.
type AccountAPI interface {
	Login(ctx context.Context, req client.LoginRequest) (string, error)
	Register(ctx context.Context, req client.RegisterRequest) error
	ConfirmOTP(ctx context.Context, code string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req client.ResetPasswordRequest) (string, error)
}

// AccountService runs the account flows. Every flow validates its input before
// any request is made; a rejected input is returned as *validation.Error.
type AccountService struct {
	api     AccountAPI
	session *credential.Session
	logger  *slog.Logger
}

// NewAccountService creates an account service storing credentials in session.
func NewAccountService(api AccountAPI, session *credential.Session, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{api: api, session: session, logger: logger}
}

// Login authenticates and stores the returned credential.
func (s *AccountService) Login(ctx context.Context, raw map[string]string) error {
	res := validation.ValidateStrings(validation.SchemaLogin, raw)
	if err := res.Err(); err != nil {
		return err
	}
	in := res.Input.(*validation.LoginInput)

	token, err := s.api.Login(ctx, client.LoginRequest{UserEmail: in.Email, UserPassword: in.Password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := s.session.Set(token); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	s.logger.Info("logged in", "email", in.Email)
	return nil
}

// Register creates an account. The server then sends a confirmation code.
func (s *AccountService) Register(ctx context.Context, raw map[string]string) error {
	res := validation.ValidateStrings(validation.SchemaRegister, raw)
	if err := res.Err(); err != nil {
		return err
	}
	in := res.Input.(*validation.RegisterInput)

	req := client.RegisterRequest{UserName: in.Name, UserEmail: in.Email, UserPassword: in.Password}
	if err := s.api.Register(ctx, req); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	s.logger.Info("registration requested", "email", in.Email)
	return nil
}

// ConfirmRegistration submits the one-time code sent after Register.
func (s *AccountService) ConfirmRegistration(ctx context.Context, raw map[string]string) error {
	res := validation.ValidateStrings(validation.SchemaOTP, raw)
	if err := res.Err(); err != nil {
		return err
	}
	in := res.Input.(*validation.OTPInput)

	if err := s.api.ConfirmOTP(ctx, in.Code); err != nil {
		return fmt.Errorf("confirm registration: %w", err)
	}
	return nil
}

// RequestPasswordReset asks the server to send a reset code.
func (s *AccountService) RequestPasswordReset(ctx context.Context, raw map[string]string) error {
	res := validation.ValidateStrings(validation.SchemaPasswordResetRequest, raw)
	if err := res.Err(); err != nil {
		return err
	}
	in := res.Input.(*validation.PasswordResetRequestInput)

	if err := s.api.ForgotPassword(ctx, in.Email); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	return nil
}

// CompletePasswordReset sets a new password and stores the returned credential.
func (s *AccountService) CompletePasswordReset(ctx context.Context, raw map[string]string) error {
	res := validation.ValidateStrings(validation.SchemaPasswordResetComplete, raw)
	if err := res.Err(); err != nil {
		return err
	}
	in := res.Input.(*validation.PasswordResetCompleteInput)

	token, err := s.api.ResetPassword(ctx, client.ResetPasswordRequest{
		UserEmail:       in.Email,
		UserOTP:         in.OTP,
		UserPassword:    in.Password,
		UserNewPassword: in.NewPassword,
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.session.Set(token); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	s.logger.Info("password reset", "email", in.Email)
	return nil
}

// Logout forgets the stored credential.
func (s *AccountService) Logout() error {
	if err := s.session.Clear(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

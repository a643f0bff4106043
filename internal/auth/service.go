package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tasklane/server/internal/mail"
	"github.com/tasklane/server/internal/model"
	"github.com/tasklane/server/internal/repo"
)

const notifyTimeout = 15 * time.Second

// Service orchestrates registration, verification, login, password reset and
// account deletion. All state transitions are persisted before any mail is
// dispatched, and mail dispatch is best-effort.
type Service struct {
	users    repo.UserRepo
	otp      *OtpManager
	issuer   *TokenIssuer
	notifier mail.Notifier
	logger   *zap.Logger
}

// NewService creates a new auth service.
func NewService(users repo.UserRepo, otp *OtpManager, issuer *TokenIssuer, notifier mail.Notifier, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		otp:      otp,
		issuer:   issuer,
		notifier: notifier,
		logger:   logger,
	}
}

// Register creates an unverified user, generates a verification code,
// dispatches it by mail and mints a bearer token. The plaintext code is
// returned so the transport layer can decide whether to echo it.
// Duplicate emails surface as repo.ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, name, email, password string) (model.User, string, string, error) {
	passwordHash, err := HashPassword(password)
	if err != nil {
		return model.User{}, "", "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, name, email, passwordHash)
	if err != nil {
		return model.User{}, "", "", err
	}

	code, err := s.otp.Generate(ctx, user, model.PurposeVerification)
	if err != nil {
		return model.User{}, "", "", err
	}
	s.dispatch(user.Email, "Email Verification OTP",
		fmt.Sprintf("Your OTP for email verification is: %s", code))

	token, err := s.issuer.Mint(ctx, user)
	if err != nil {
		return model.User{}, "", "", err
	}
	return user, token, code, nil
}

// VerifyEmail consumes a verification-purpose code, stamps the verification
// timestamp and mints a fresh token. The OTP slot is cleared in the same
// statement that sets the timestamp.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return model.User{}, "", err
	}

	if err := s.otp.Validate(user, code, model.PurposeVerification); err != nil {
		return model.User{}, "", err
	}

	if err := s.users.MarkVerified(ctx, user.ID, time.Now()); err != nil {
		return model.User{}, "", err
	}

	user, err = s.users.GetByID(ctx, user.ID)
	if err != nil {
		return model.User{}, "", err
	}

	token, err := s.issuer.Mint(ctx, user)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// Login checks credentials and mints a token. Unknown email and wrong
// password both return ErrInvalidCredentials; an unverified account returns
// ErrEmailNotVerified. Login never changes verification state.
func (s *Service) Login(ctx context.Context, email, password string) (model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return model.User{}, "", ErrInvalidCredentials
	}
	if !CheckPassword(user.PasswordHash, password) {
		return model.User{}, "", ErrInvalidCredentials
	}
	if !user.Verified() {
		return model.User{}, "", ErrEmailNotVerified
	}

	token, err := s.issuer.Mint(ctx, user)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// SendOtp generates a password-reset code for the address and dispatches it.
// Verification state is irrelevant: a never-verified account can still reset
// its password. The previous code, if any, is overwritten.
func (s *Service) SendOtp(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	code, err := s.otp.Generate(ctx, user, model.PurposePasswordReset)
	if err != nil {
		return "", err
	}
	s.dispatch(user.Email, "Password Reset OTP",
		fmt.Sprintf("Your OTP is: %s", code))
	return code, nil
}

// ResetPassword consumes a reset-purpose code and replaces the password hash.
// No token is minted; the caller logs in with the new password afterward.
func (s *Service) ResetPassword(ctx context.Context, email, code, password string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.otp.Validate(user, code, model.PurposePasswordReset); err != nil {
		return err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.ResetPassword(ctx, user.ID, passwordHash)
}

// Logout revokes exactly the presented token.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	return s.issuer.Revoke(ctx, tokenString)
}

// DeleteAccount removes the authenticated user after re-checking ownership:
// the supplied email must match the authenticated account and the password
// must verify. Tokens and to-dos cascade at the schema level.
func (s *Service) DeleteAccount(ctx context.Context, user model.User, email, password string) error {
	if email != user.Email {
		return repo.ErrNotFound
	}
	if !CheckPassword(user.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	return s.users.Delete(ctx, user.ID)
}

// dispatch sends mail in the background. The OTP state it refers to is
// already persisted, so a slow or failing mail server affects nothing but
// deliverability.
func (s *Service) dispatch(to, subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Send(ctx, to, subject, body); err != nil {
			s.logger.Warn("mail dispatch failed",
				zap.String("subject", subject),
				zap.Error(err),
			)
		}
	}()
}

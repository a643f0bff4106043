package auth

import "errors"

var (
	// ErrNoOtpPending means the user has no code outstanding: either none was
	// ever generated or the last one was already consumed.
	ErrNoOtpPending = errors.New("no OTP pending")

	// ErrInvalidOtp means the submitted code does not match the stored one,
	// or the stored code was generated for a different flow.
	ErrInvalidOtp = errors.New("invalid OTP")

	// ErrExpiredOtp means the code's validity window has passed.
	ErrExpiredOtp = errors.New("OTP has expired")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailNotVerified means login was attempted before email verification.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrUnauthenticated means the presented bearer token could not be
	// resolved to a user.
	ErrUnauthenticated = errors.New("unauthenticated")
)

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/tasklane/server/internal/model"
	"github.com/tasklane/server/internal/repo"
)

// OTP codes are 6 digits and valid for 10 minutes. The short window is the
// only real defense on a 1e6 code space, so it is not configurable.
const otpTTL = 10 * time.Minute

// OtpManager generates and validates one-time codes. A user holds at most one
// pending code; generating a new one overwrites the previous slot. Only the
// salted hash of a code is ever persisted.
type OtpManager struct {
	users repo.UserRepo
	salt  string
	now   func() time.Time
}

// NewOtpManager creates a new OTP manager.
func NewOtpManager(users repo.UserRepo, salt string) *OtpManager {
	return &OtpManager{users: users, salt: salt, now: time.Now}
}

// Generate draws a uniform random 6-digit code, persists its hash with the
// expiry and purpose, and returns the plaintext code for dispatch. Persisting
// happens here, before any notification attempt, so a failed send never
// leaves an unpersisted-but-claimed-sent code.
func (m *OtpManager) Generate(ctx context.Context, user model.User, purpose model.OtpPurpose) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	hash := m.hashCode(user.Email, code)
	expiresAt := m.now().Add(otpTTL)
	if err := m.users.SetOtp(ctx, user.ID, hash, expiresAt, purpose); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Validate checks a submitted code against the user's pending slot. The
// checks run in order: empty slot, code/purpose match, then expiry. The code
// is valid strictly before its expiry instant; at or after it, ErrExpiredOtp.
//
// Validate does not consume the code. The caller clears the slot in the same
// statement that applies the consequence (verified flag or new password), so
// a consumed code replays as ErrNoOtpPending.
func (m *OtpManager) Validate(user model.User, code string, purpose model.OtpPurpose) error {
	if user.OtpHash == nil || user.OtpExpiresAt == nil || user.OtpPurpose == nil {
		return ErrNoOtpPending
	}

	submitted := []byte(m.hashCode(user.Email, code))
	stored := []byte(*user.OtpHash)
	if subtle.ConstantTimeCompare(submitted, stored) != 1 {
		return ErrInvalidOtp
	}
	if *user.OtpPurpose != purpose {
		return ErrInvalidOtp
	}
	if !m.now().Before(*user.OtpExpiresAt) {
		return ErrExpiredOtp
	}
	return nil
}

// generateCode returns a uniform random integer in [100000, 999999] as a
// string, using crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// hashCode returns SHA-256(email:code:salt) as hex for storage.
func (m *OtpManager) hashCode(email, code string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", email, code, m.salt)))
	return hex.EncodeToString(sum[:])
}

package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tasklane/server/internal/model"
)

// UserRepo defines the interface for user repository operations.
//
// SetOtp always overwrites the whole OTP slot, and the two consuming
// operations (MarkVerified, ResetPassword) clear the slot in the same
// statement that applies the consequence, so a consumed code can never be
// replayed.
type UserRepo interface {
	Create(ctx context.Context, name, email, passwordHash string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	SetOtp(ctx context.Context, userID uuid.UUID, otpHash string, expiresAt time.Time, purpose model.OtpPurpose) error
	MarkVerified(ctx context.Context, userID uuid.UUID, at time.Time) error
	ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance.
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, name, email, password_hash, email_verified_at,
	otp_hash, otp_expires_at, otp_purpose, created_at, updated_at`

func scanUser(row *sql.Row) (model.User, error) {
	var user model.User
	var idStr string
	var purpose sql.NullString
	err := row.Scan(
		&idStr,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.EmailVerifiedAt,
		&user.OtpHash,
		&user.OtpExpiresAt,
		&purpose,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("parse user ID: %w", err)
	}
	if purpose.Valid {
		p := model.OtpPurpose(purpose.String)
		user.OtpPurpose = &p
	}
	return user, nil
}

// Create inserts a new unverified user. Duplicate emails surface as
// ErrDuplicateEmail.
func (r *userRepo) Create(ctx context.Context, name, email, passwordHash string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		name, email, passwordHash)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by exact email match.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, email)
	return scanUser(row)
}

// SetOtp overwrites the user's OTP slot. Any prior unconsumed code is
// replaced; there is no accumulation.
func (r *userRepo) SetOtp(ctx context.Context, userID uuid.UUID, otpHash string, expiresAt time.Time, purpose model.OtpPurpose) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_hash = $2, otp_expires_at = $3, otp_purpose = $4, updated_at = now()
		WHERE id = $1
	`, userID, otpHash, expiresAt, string(purpose))
	if err != nil {
		return fmt.Errorf("set otp: %w", err)
	}
	return requireRowAffected(result)
}

// MarkVerified stamps email_verified_at and clears the OTP slot in one
// statement.
func (r *userRepo) MarkVerified(ctx context.Context, userID uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email_verified_at = $2,
		    otp_hash = NULL, otp_expires_at = NULL, otp_purpose = NULL,
		    updated_at = now()
		WHERE id = $1
	`, userID, at)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return requireRowAffected(result)
}

// ResetPassword replaces the password hash and clears the OTP slot in one
// statement.
func (r *userRepo) ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2,
		    otp_hash = NULL, otp_expires_at = NULL, otp_purpose = NULL,
		    updated_at = now()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return requireRowAffected(result)
}

// Delete removes the user. Tokens and to-dos cascade at the schema level.
func (r *userRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRowAffected(result)
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency level of a to-do item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is one of the accepted priority values.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is the workflow state of a to-do item. The full six-value set is
// enforced both in request validation and by the table check constraint.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
	StatusNotStarted Status = "not_started"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is one of the accepted status values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted,
		StatusArchived, StatusNotStarted, StatusCancelled:
		return true
	}
	return false
}

// OtpPurpose tags a pending one-time code with the flow that generated it, so
// a password-reset code cannot satisfy email verification and vice versa.
type OtpPurpose string

const (
	PurposeVerification  OtpPurpose = "verification"
	PurposePasswordReset OtpPurpose = "password_reset"
)

// User represents an account. Emails are matched exactly (case-sensitive).
// The OTP slot (OtpHash, OtpExpiresAt, OtpPurpose) is always set and cleared
// as a unit: either all three are nil or all three are present.
type User struct {
	ID              uuid.UUID
	Name            string
	Email           string
	PasswordHash    string
	EmailVerifiedAt *time.Time
	OtpHash         *string
	OtpExpiresAt    *time.Time
	OtpPurpose      *OtpPurpose
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Verified reports whether the user has completed email verification.
func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// AuthToken is the server-side record backing one issued bearer token.
// There is no expiry column: a token lives until it is explicitly revoked,
// and revocation deletes exactly this row.
type AuthToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
}

// ToDo is a task owned by exactly one user. Completed is tracked
// independently of Status.
type ToDo struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description *string
	Completed   bool
	DueDate     *time.Time
	Priority    Priority
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

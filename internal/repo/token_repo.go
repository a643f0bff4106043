package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tasklane/server/internal/model"
)

// TokenRepo defines the interface for bearer token records. Revocation is
// per-row: deleting one record invalidates exactly one issued token and
// leaves the user's other sessions untouched.
type TokenRepo interface {
	Create(ctx context.Context, id, userID uuid.UUID, tokenHash string) error
	FindByHash(ctx context.Context, tokenHash string) (model.AuthToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
}

type tokenRepo struct {
	db *sql.DB
}

// NewTokenRepo creates a new TokenRepo instance.
func NewTokenRepo(db *sql.DB) TokenRepo {
	return &tokenRepo{db: db}
}

// Create inserts a new token record.
func (r *tokenRepo) Create(ctx context.Context, id, userID uuid.UUID, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_tokens (id, user_id, token_hash)
		VALUES ($1, $2, $3)
	`, id, userID, tokenHash)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// FindByHash returns the token record for the given hash.
func (r *tokenRepo) FindByHash(ctx context.Context, tokenHash string) (model.AuthToken, error) {
	var token model.AuthToken
	var idStr, userIDStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, created_at
		FROM auth_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&idStr, &userIDStr, &token.TokenHash, &token.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.AuthToken{}, ErrNotFound
		}
		return model.AuthToken{}, fmt.Errorf("find token: %w", err)
	}
	token.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.AuthToken{}, fmt.Errorf("parse token ID: %w", err)
	}
	token.UserID, err = uuid.Parse(userIDStr)
	if err != nil {
		return model.AuthToken{}, fmt.Errorf("parse token user ID: %w", err)
	}
	return token, nil
}

// DeleteByHash revokes exactly the token with the given hash.
func (r *tokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM auth_tokens WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return requireRowAffected(result)
}

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tasklane/server/internal/model"
	"github.com/tasklane/server/internal/repo"
)

// tokenClaims is the signed payload of an issued bearer token.
type tokenClaims struct {
	UserID uuid.UUID `json:"sub"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and resolves bearer tokens. The token string is an HS256
// JWT, but the server-side auth_tokens row is authoritative: Resolve requires
// the row to exist, so deleting it revokes exactly that token while the
// user's other sessions keep working. Claims carry no expiry; a token lives
// until it is revoked.
type TokenIssuer struct {
	secret []byte
	tokens repo.TokenRepo
	users  repo.UserRepo
}

// NewTokenIssuer creates a new token issuer.
func NewTokenIssuer(secret string, tokens repo.TokenRepo, users repo.UserRepo) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		tokens: tokens,
		users:  users,
	}
}

// Mint creates a new bearer token for the user and records it. Existing
// tokens for the same user are not touched (multi-device).
func (s *TokenIssuer) Mint(ctx context.Context, user model.User) (string, error) {
	recordID := uuid.New()
	claims := &tokenClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       recordID.String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := s.tokens.Create(ctx, recordID, user.ID, HashToken(signed)); err != nil {
		return "", fmt.Errorf("record token: %w", err)
	}
	return signed, nil
}

// Resolve returns the user a valid, unrevoked token belongs to. Every failure
// mode collapses to ErrUnauthenticated.
func (s *TokenIssuer) Resolve(ctx context.Context, tokenString string) (model.User, error) {
	if _, err := s.parse(tokenString); err != nil {
		return model.User{}, ErrUnauthenticated
	}

	record, err := s.tokens.FindByHash(ctx, HashToken(tokenString))
	if err != nil {
		return model.User{}, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return model.User{}, ErrUnauthenticated
	}
	return user, nil
}

// Revoke deletes exactly the presented token's record.
func (s *TokenIssuer) Revoke(ctx context.Context, tokenString string) error {
	if err := s.tokens.DeleteByHash(ctx, HashToken(tokenString)); err != nil {
		return ErrUnauthenticated
	}
	return nil
}

func (s *TokenIssuer) parse(tokenString string) (*tokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// HashToken returns the SHA-256 hex digest stored for a token string.
func HashToken(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

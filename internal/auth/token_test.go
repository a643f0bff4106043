package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/server/internal/repo/memory"
)

func newTestIssuer(t *testing.T) (*TokenIssuer, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	issuer := NewTokenIssuer("test-secret-at-least-32-characters!!", store.Tokens(), store.Users())
	return issuer, store
}

func TestMintAndResolve(t *testing.T) {
	issuer, store := newTestIssuer(t)
	ctx := context.Background()

	user, err := store.Users().Create(ctx, "A", "a@example.com", "hash")
	require.NoError(t, err)

	token, err := issuer.Mint(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resolved, err := issuer.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, user.Email, resolved.Email)
}

func TestResolve_rejectsGarbageAndForeignTokens(t *testing.T) {
	issuer, store := newTestIssuer(t)
	ctx := context.Background()

	user, err := store.Users().Create(ctx, "A", "a@example.com", "hash")
	require.NoError(t, err)

	_, err = issuer.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// A structurally valid token signed with another secret must not resolve.
	other := NewTokenIssuer("a-completely-different-signing-secret", store.Tokens(), store.Users())
	foreign, err := other.Mint(ctx, user)
	require.NoError(t, err)
	_, err = issuer.Resolve(ctx, foreign)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRevoke_onlyThePresentedToken(t *testing.T) {
	issuer, store := newTestIssuer(t)
	ctx := context.Background()

	user, err := store.Users().Create(ctx, "A", "a@example.com", "hash")
	require.NoError(t, err)

	first, err := issuer.Mint(ctx, user)
	require.NoError(t, err)
	second, err := issuer.Mint(ctx, user)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, issuer.Revoke(ctx, second))

	_, err = issuer.Resolve(ctx, second)
	assert.ErrorIs(t, err, ErrUnauthenticated, "revoked token must not resolve")

	resolved, err := issuer.Resolve(ctx, first)
	require.NoError(t, err, "other sessions must survive revocation")
	assert.Equal(t, user.ID, resolved.ID)

	// Revoking an already-revoked token fails.
	assert.ErrorIs(t, issuer.Revoke(ctx, second), ErrUnauthenticated)
}

func TestResolve_failsAfterUserDeleted(t *testing.T) {
	issuer, store := newTestIssuer(t)
	ctx := context.Background()

	user, err := store.Users().Create(ctx, "A", "a@example.com", "hash")
	require.NoError(t, err)
	token, err := issuer.Mint(ctx, user)
	require.NoError(t, err)

	require.NoError(t, store.Users().Delete(ctx, user.ID))

	_, err = issuer.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

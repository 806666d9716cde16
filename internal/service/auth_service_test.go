package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

func TestIssueAndValidateToken(t *testing.T) {
	auth := NewAuthService("test-secret", nil)
	session := &model.Session{ID: "sess-1", UserID: "user-1"}

	token, err := auth.IssueToken(session)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateRejectsForgedToken(t *testing.T) {
	issuer := NewAuthService("secret-a", nil)
	verifier := NewAuthService("secret-b", nil)

	token, err := issuer.IssueToken(&model.Session{ID: "sess-1", UserID: "user-1"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func fakeProviderToken(t *testing.T, claims string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(claims))
	return header + "." + payload + ".sig"
}

func TestVerifyIdentityFromProviderClaims(t *testing.T) {
	auth := NewAuthService("test-secret", nil)

	identity, err := auth.VerifyIdentity(context.Background(), fakeProviderToken(t,
		`{"sub":"u-42","name":"Ada Lovelace","email":"ada@example.com","picture":"http://img"}`))
	require.NoError(t, err)
	assert.Equal(t, "u-42", identity.UserID)
	assert.Equal(t, "Ada Lovelace", identity.Name)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "http://img", identity.Avatar)
}

func TestVerifyIdentityNameFallsBackToEmail(t *testing.T) {
	auth := NewAuthService("test-secret", nil)

	identity, err := auth.VerifyIdentity(context.Background(), fakeProviderToken(t,
		`{"uid":"u-7","email":"grace@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "u-7", identity.UserID)
	assert.Equal(t, "grace", identity.Name)
}

func TestVerifyIdentityRejectsGarbage(t *testing.T) {
	auth := NewAuthService("test-secret", nil)

	_, err := auth.VerifyIdentity(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrIdentityRejected)

	_, err = auth.VerifyIdentity(context.Background(), fakeProviderToken(t, `{"name":"no id"}`))
	assert.ErrorIs(t, err, ErrIdentityRejected)
}

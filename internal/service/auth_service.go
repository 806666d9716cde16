package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// IdentityVerifier is the external identity provider, treated as a black
// box: given an opaque bearer credential it either vouches for a user or
// fails.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*model.Identity, error)
}

// AuthService issues and validates the signed session credentials presented
// at the WebSocket handshake and on authenticated REST calls.
type AuthService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	verifier  IdentityVerifier
}

func NewAuthService(jwtSecret string, verifier IdentityVerifier) *AuthService {
	if verifier == nil {
		verifier = &claimsIdentityVerifier{}
	}
	return &AuthService{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
		verifier:  verifier,
	}
}

// IssueToken signs a session credential for a freshly created session.
func (s *AuthService) IssueToken(session *model.Session) (string, error) {
	claims := &model.SessionClaims{
		SessionID: session.ID,
		UserID:    session.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken parses and verifies a session credential.
func (s *AuthService) ValidateToken(tokenString string) (*model.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*model.SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyIdentity delegates to the external identity provider.
func (s *AuthService) VerifyIdentity(ctx context.Context, credential string) (*model.Identity, error) {
	return s.verifier.Verify(ctx, credential)
}

// claimsIdentityVerifier decodes the claims segment of an upstream-issued
// token. The signature is checked by the identity provider's edge, not here;
// this mirrors the provider integration the platform runs behind.
type claimsIdentityVerifier struct{}

func (claimsIdentityVerifier) Verify(_ context.Context, credential string) (*model.Identity, error) {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return nil, ErrIdentityRejected
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrIdentityRejected
	}

	var claims struct {
		Sub     string `json:"sub"`
		UserID  string `json:"user_id"`
		UID     string `json:"uid"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrIdentityRejected
	}

	userID := claims.Sub
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		userID = claims.UID
	}
	if userID == "" {
		return nil, ErrIdentityRejected
	}

	name := claims.Name
	if name == "" && claims.Email != "" {
		name = strings.Split(claims.Email, "@")[0]
	}
	if name == "" {
		name = "Anonymous User"
	}

	return &model.Identity{
		UserID: userID,
		Name:   name,
		Email:  claims.Email,
		Avatar: claims.Picture,
	}, nil
}

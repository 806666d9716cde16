package model

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the JWT claims bound to a session credential. The token
// is issued at login and presented again at the WebSocket handshake.
type SessionClaims struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	jwt.RegisteredClaims
}

// Identity is what the external identity provider vouches for.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// LoginRequest carries either an identity-provider credential or, for
// anonymous use, a caller-chosen user id.
type LoginRequest struct {
	Credential string    `json:"credential,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	UserData   *UserData `json:"userData,omitempty"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	SessionID string   `json:"sessionId"`
	Token     string   `json:"token"`
	User      Identity `json:"user"`
}

package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds credentials for authenticating an operator.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is the explicit, serialisable description of who is signed in.
type Session struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Role        UserRole `json:"role"`
	DisplayName string   `json:"displayName"`
}

// LoginResponse returns the session together with its signed token.
type LoginResponse struct {
	Username    string   `json:"username"`
	Role        UserRole `json:"role"`
	DisplayName string   `json:"displayName"`
	Token       string   `json:"token"`
	ExpiresIn   int64    `json:"expiresIn"`
}

// SessionClaims is the JWT payload carrying a Session.
type SessionClaims struct {
	Session
	jwt.RegisteredClaims
}

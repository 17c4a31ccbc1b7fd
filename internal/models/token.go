package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload. Name travels in the token so the
// client header can render without a profile fetch; it is refreshed whenever
// the profile name changes.
type JWTClaims struct {
	UserID string   `json:"userId"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

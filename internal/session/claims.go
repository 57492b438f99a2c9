package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the claims the backend signs into its token cookie.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ParseClaims decodes token without verifying its signature. The client
// never holds the signing secret; the claims are only used to report the
// expiry locally.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}

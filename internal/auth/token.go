package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseClaims returns the claims of a JWT without verifying its signature
func ParseClaims(tokenString string) (map[string]any, error) {
	parsed, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("failed to parse JWT claims")
	}

	return claims, nil
}

// IsJWT reports whether a session token looks like a JWT. CDS also issues
// opaque session tokens which carry no expiry.
func IsJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// ValidateToken checks that a JWT session token has not expired. Tokens
// without an exp claim are accepted.
func ValidateToken(token string) error {
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}

	if exp, ok := claims["exp"].(float64); ok {
		expirationTime := time.Unix(int64(exp), 0)
		if time.Now().After(expirationTime) {
			return fmt.Errorf("session token expired at %s", expirationTime.Format(time.RFC3339))
		}
	}

	return nil
}

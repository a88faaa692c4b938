package security

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// RememberMe signs and reads the long-lived client marker used to pre-fill the login form.
// A valid marker only names a username; it never establishes a session.
type RememberMe struct {
	secret []byte
	ttl    time.Duration
}

// NewRememberMe creates a marker signer.
func NewRememberMe(secret string, ttl time.Duration) *RememberMe {
	return &RememberMe{secret: []byte(secret), ttl: ttl}
}

// TTL is how long an issued marker stays valid.
func (r *RememberMe) TTL() time.Duration {
	return r.ttl
}

// Issue returns a signed marker for username.
func (r *RememberMe) Issue(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"purpose":  "remember_me",
		"exp":      now.Add(r.ttl).Unix(),
		"iat":      now.Unix(),
	})
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign remember-me marker: %w", err)
	}
	return signed, nil
}

// Username validates marker and returns the username it carries.
func (r *RememberMe) Username(marker string) (string, error) {
	token, err := jwt.Parse(marker, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid remember-me marker: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid || claims["purpose"] != "remember_me" {
		return "", fmt.Errorf("invalid remember-me marker")
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("invalid remember-me marker")
	}
	return username, nil
}

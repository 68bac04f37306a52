package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenRequest describes an HS256 token signed with the local key. It backs
// the `token issue` command used in development and tests.
type TokenRequest struct {
	Subject  string
	Username string
	Issuer   string
	Audience string
	TTL      time.Duration
}

func IssueToken(key []byte, req TokenRequest) (string, error) {
	if len(key) == 0 {
		return "", errors.New("signing key is empty")
	}
	if req.Subject == "" {
		return "", errors.New("subject is required")
	}
	if req.TTL <= 0 {
		req.TTL = time.Hour
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Subject,
			Issuer:    req.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(req.TTL)),
		},
		Username: req.Username,
	}
	if req.Audience != "" {
		claims.Audience = jwt.ClaimStrings{req.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cppla/blogicum/policy"
)

const tokenIssuer = "blogicum"

// ErrTokenSubject is returned for a token without a usable user id.
var ErrTokenSubject = errors.New("token has no subject")

// Claims is the session token of a blog account. Staff is copied from the
// account when the token is issued.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Staff    bool   `json:"staff,omitempty"`
	jwt.RegisteredClaims
}

// Requester turns the claims into the identity the access rules work with.
func (c *Claims) Requester() policy.Requester {
	return policy.Requester{UserID: c.UserID, Username: c.Username, Staff: c.Staff}
}

// ExpiresAtOr returns the token expiry, or fallback when the claim is absent.
func (c *Claims) ExpiresAtOr(fallback time.Time) time.Time {
	if c.ExpiresAt == nil {
		return fallback
	}
	return c.ExpiresAt.Time
}

// GenerateToken signs a session token for who. Each token gets its own id so
// revoking one session leaves the others alone.
func GenerateToken(secret string, who policy.Requester, ttl time.Duration) (string, error) {
	if !who.Authenticated() {
		return "", ErrTokenSubject
	}
	now := time.Now()
	claims := Claims{
		UserID:   who.UserID,
		Username: who.Username,
		Staff:    who.Staff,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(who.UserID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an HS256 session token and returns its claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	var claims Claims
	if _, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenSubject
	}
	return &claims, nil
}

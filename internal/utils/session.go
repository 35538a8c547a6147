package utils // session token helpers for the dashboard admin login

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// NewSessionToken builds and signs an HS256 JWT marking the bearer as the
// dashboard administrator. There are no users or roles behind the dashboard,
// only a single shared operator password, so the token carries nothing but
// the standard expiry and issued-at claims.
func NewSessionToken(secret string, ttlMin int) (string, time.Time, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub": "dashboard-admin",
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseSessionToken validates a session token's signature and expiry.
func ParseSessionToken(secret, token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid session token")
	}
	return nil
}

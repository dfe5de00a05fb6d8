package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"schoolportal/internal/account"
)

// Claims is the credential payload: the subject's id and a role snapshot
// taken at issue time.
type Claims struct {
	ID   string       `json:"id"`
	Role account.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue mints a signed session token embedding {id, role} with the given TTL.
func Issue(id string, role account.Role, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("signing secret not configured")
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		ID:   id,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse validates a token and returns its claims. Expired, malformed or
// tampered tokens all come back as an error, never a panic.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	if key == "" {
		return Claims{}, errors.New("signing secret not configured")
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if !claims.Role.Valid() {
		return Claims{}, errors.New("unknown role")
	}
	return *claims, nil
}

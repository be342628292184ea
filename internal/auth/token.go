// Package auth issues and verifies session tokens and exposes the gin
// middleware that puts the caller's user id on the request context.
package auth

import (
	"errors"
	"time"

	"campusmarket/backend/internal/apperr"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated user id in the subject.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for userID.
func (i *Issuer) Issue(userID, email string) (string, error) {
	now := i.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify returns the user id of a valid token.
func (i *Issuer) Verify(token string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUnauthenticated, "invalid or expired token", err)
	}
	if claims.Subject == "" {
		return "", apperr.Unauthenticated("invalid or expired token")
	}
	return claims.Subject, nil
}

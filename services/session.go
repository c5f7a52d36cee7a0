package services

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the JWT claims carried by a session token.
type Claims struct {
	UserID uint `json:"id"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and validates bearer tokens. It keeps no server-side
// session table, so a token stays valid until it expires; logout is a client
// side discard.
type SessionIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewSessionIssuer creates an issuer signing with secret. Tokens live for lifetime.
func NewSessionIssuer(secret string, lifetime time.Duration) *SessionIssuer {
	return &SessionIssuer{secret: []byte(secret), lifetime: lifetime, now: time.Now}
}

// WithClock replaces the issuer's time source.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	s.now = now
	return s
}

// Issue signs a token asserting userID.
func (s *SessionIssuer) Issue(userID uint) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.lifetime)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Resolve verifies the token's signature and expiry and returns its claims.
func (s *SessionIssuer) Resolve(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewSessionIssuer("test-secret", time.Hour).WithClock(func() time.Time { return now })

	token, exp, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("expiry = %v", exp)
	}
	claims, err := issuer.Resolve(token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if claims.UserID != 42 || claims.Subject != "42" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewSessionIssuer("test-secret", time.Minute).WithClock(func() time.Time { return now })
	token, _, err := issuer.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(2 * time.Minute)
	_, err = issuer.Resolve(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
	if !errors.Is(err, ErrAuthentication) {
		t.Fatal("expired token is not an authentication error")
	}
}

func TestSessionRejectsTampering(t *testing.T) {
	issuer := NewSessionIssuer("test-secret", time.Hour)
	other := NewSessionIssuer("another-secret", time.Hour)
	foreign, _, _ := other.Issue(1)
	valid, _, _ := issuer.Issue(1)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	parts := strings.Split(valid, ".")
	forged := parts[0] + "." + parts[1] + "x." + parts[2]

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"alg none":     unsigned,
		"garbage":      "not.a.token",
		"empty":        "",
		"forged":       forged,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.Resolve(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/reformante/cotizador-whatsapp-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const adminIssuer = "cotizador-whatsapp"

// AdminClaims are the claims of an operator token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth signs and validates operator tokens (HS256).
type AdminAuth struct {
	secret []byte
}

// NewAdminAuth returns nil for an empty secret: admin routes stay disabled.
func NewAdminAuth(secret string) *AdminAuth {
	if secret == "" {
		return nil
	}
	return &AdminAuth{secret: []byte(secret)}
}

// Issue signs a token for subject valid for ttl.
func (a *AdminAuth) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", &domain.ErrValidation{Field: "subject", Message: "is required"}
	}
	now := time.Now()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    adminIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Validate parses the token and checks signature, expiry, issuer and role.
func (a *AdminAuth) Validate(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(adminIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "token expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Role != "admin" {
		return nil, &domain.ErrUnauthorized{Message: "admin role required"}
	}
	return claims, nil
}

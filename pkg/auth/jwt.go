package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carelink/visit-api/internal/model"
)

// Claims are the verified token claims the identity layer issues. Token
// issuance itself happens outside this service.
type Claims struct {
	UserID   string `json:"uid"`
	TenantID string `json:"tid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Validator parses and verifies bearer tokens.
type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Validate verifies the token signature and returns the caller identity.
func (v *Validator) Validate(tokenString string) (model.CallerIdentity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return model.CallerIdentity{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return model.CallerIdentity{}, fmt.Errorf("invalid token")
	}
	if claims.UserID == "" || claims.TenantID == "" {
		return model.CallerIdentity{}, fmt.Errorf("token missing identity claims")
	}

	return model.CallerIdentity{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Role:     model.Role(claims.Role),
	}, nil
}

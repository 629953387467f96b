// Package auth signs and verifies the HS256 bearer tokens that carry a
// caller's identity: driver ID (subject), company ID, and role.
// Token issuance flows (login, refresh) live in the identity service, not
// here; this package only needs to mint tokens for tests and verify them
// at the API boundary.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fleetlog/backend/internal/domain"
)

// Claims is the JWT payload. The driver ID rides in the registered Subject
// claim; role and company are custom claims.
type Claims struct {
	Role      string `json:"role"`
	CompanyID string `json:"cid"`
	jwt.RegisteredClaims
}

// Sign mints a signed token for the identity, valid for ttl.
func Sign(secret []byte, ident domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:      string(ident.Role),
		CompanyID: ident.CompanyID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.DriverID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth.Sign: %w", err)
	}
	return signed, nil
}

// Parse verifies the token's signature and expiry and returns the identity
// it carries. Only HS256 is accepted; jwt.Parse validates exp/iat itself.
func Parse(secret []byte, tokenStr string) (domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth.Parse: %w", err)
	}
	if !token.Valid {
		return domain.Identity{}, fmt.Errorf("auth.Parse: token is not valid")
	}

	driverID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth.Parse: subject: %w", err)
	}
	companyID, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth.Parse: company: %w", err)
	}

	role := domain.Role(claims.Role)
	if role != domain.RoleDriver && role != domain.RoleAdmin {
		return domain.Identity{}, fmt.Errorf("auth.Parse: unknown role %q", claims.Role)
	}

	return domain.Identity{DriverID: driverID, CompanyID: companyID, Role: role}, nil
}

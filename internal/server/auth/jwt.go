// Package auth issues and validates session tokens and hashes secrets.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/minimart/storefront/internal/common"
)

// Claims is the session payload. Role is the role at issuance time; a later
// change is only seen after the next login.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Identity is the authenticated caller as carried by a valid session.
type Identity struct {
	AccountID string
	Username  string
	Role      string
}

func (c *Claims) Identity() Identity {
	return Identity{AccountID: c.Subject, Username: c.Username, Role: c.Role}
}

// GenerateToken signs an HS256 session token for id valid for ttl from now.
func GenerateToken(id Identity, secretKey []byte, issuer string, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AccountID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: id.Username,
		Role:     id.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates signature, algorithm, expiry and issuer and returns
// the claims. Expired tokens yield common.ErrTokenExpired, anything else
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte, issuer string) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

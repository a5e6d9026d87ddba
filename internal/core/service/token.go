package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// TokenTTL is the fixed validity window of an issued credential.
const TokenTTL = 2 * time.Hour

type tokenClaims struct {
	Phone    string `json:"phone"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 credentials. It keeps no session state.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = TokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(c domain.Claims) (string, error) {
	now := i.now()
	claims := tokenClaims{
		Phone:    c.Phone,
		Username: c.Username,
		Role:     c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *TokenIssuer) Verify(token string) (domain.Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return domain.Claims{}, domain.ErrInvalidOrExpiredToken
	}
	if claims.Phone == "" || !domain.ValidRole(claims.Role) {
		return domain.Claims{}, domain.ErrInvalidOrExpiredToken
	}
	return domain.Claims{Phone: claims.Phone, Username: claims.Username, Role: claims.Role}, nil
}

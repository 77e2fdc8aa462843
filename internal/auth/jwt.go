package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"helpdesk-realtime-api/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing token")
)

// Principal is the verified identity behind a connection or request.
type Principal struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CompanyID *int64    `json:"companyId,omitempty"`
	RoleID    *int64    `json:"roleId,omitempty"`
	ExpiresAt time.Time `json:"-"`
}

// DisplayName prefers the username and falls back to the email.
func (p Principal) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// Verifier validates a bearer credential and yields its principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// Claims represents the JWT claims
type Claims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	CompanyID *int64 `json:"company_id,omitempty"`
	RoleID    *int64 `json:"role_id,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and validates HS256 tokens bound to one issuer and audience.
type Tokens struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
}

// GenerateToken generates a JWT token for the given principal
func (t *Tokens) GenerateToken(p Principal) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:    p.ID,
		Email:     p.Email,
		Username:  p.Username,
		CompanyID: p.CompanyID,
		RoleID:    p.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", p.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (t *Tokens) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify implements Verifier.
func (t *Tokens) Verify(ctx context.Context, token string) (*Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	claims, err := t.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	p := &Principal{
		ID:        claims.UserID,
		Email:     claims.Email,
		Username:  claims.Username,
		CompanyID: claims.CompanyID,
		RoleID:    claims.RoleID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

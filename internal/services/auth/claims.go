package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"realestate/internal/models"
)

// Claims are the session token claims
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Principal is the authenticated caller
type Principal struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"`

	tokenID   string
	expiresAt time.Time
}

// HasRole reports whether the principal holds any of roles
func (p Principal) HasRole(roles ...string) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// ExpiresAt is when the principal's token stops being valid
func (p Principal) ExpiresAt() time.Time {
	return p.expiresAt
}

// IsAdmin reports whether the principal is an admin
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal returns a new context carrying p
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the principal, if any
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// TokenService signs and validates HS256 session tokens
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. The secret must be non-empty.
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Generate issues a token for user
func (s *TokenService) Generate(user models.User) (string, Principal, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Email: user.Email,
		Role:  user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", Principal{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, principalFromClaims(&claims), nil
}

// Validate parses a token and returns its principal
func (s *TokenService) Validate(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return Principal{}, ErrUnauthorized
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return Principal{}, fmt.Errorf("%w: invalid issuer %q", ErrUnauthorized, claims.Issuer)
	}
	if claims.Subject == "" || claims.ID == "" {
		return Principal{}, fmt.Errorf("%w: incomplete claims", ErrUnauthorized)
	}
	return principalFromClaims(claims), nil
}

func principalFromClaims(c *Claims) Principal {
	p := Principal{
		UID:     c.Subject,
		Email:   c.Email,
		Role:    c.Role,
		tokenID: c.ID,
	}
	if c.ExpiresAt != nil {
		p.expiresAt = c.ExpiresAt.Time
	}
	return p
}

package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

const issuer = "library"

// TokenType is carried in the typ claim. Each parser rejects the other type.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims authorize API requests.
type AccessClaims struct {
	Email string            `json:"email"`
	Role  entities.UserRole `json:"role"`
	Type  TokenType         `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims mint new access tokens. Version must match the user's
// current token version.
type RefreshClaims struct {
	Version int       `json:"ver"`
	Type    TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a storage id.
func (c *AccessClaims) UserID() (uint, error) {
	return parseSubject(c.Subject)
}

func (c *RefreshClaims) UserID() (uint, error) {
	return parseSubject(c.Subject)
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenIssuer(cfg config.Auth) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
}

// RefreshTTL is the lifetime of refresh tokens, used for the cookie max age.
func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

func (t *TokenIssuer) IssueAccess(user *entities.User) (string, error) {
	claims := AccessClaims{
		Email:            user.Email,
		Role:             user.Role,
		Type:             TokenTypeAccess,
		RegisteredClaims: t.registered(user.ID, t.accessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
}

func (t *TokenIssuer) IssueRefresh(user *entities.User) (string, error) {
	claims := RefreshClaims{
		Version:          user.TokenVersion,
		Type:             TokenTypeRefresh,
		RegisteredClaims: t.registered(user.ID, t.refreshTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
}

// ParseAccess verifies an access token.
// Returns ErrTokenExpired or ErrInvalidToken on failure.
func (t *TokenIssuer) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.parse(token, claims, t.accessSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token.
func (t *TokenIssuer) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(token, claims, t.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) registered(userID uint, ttl time.Duration) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrInvalidToken
	}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	return nil
}

func parseSubject(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

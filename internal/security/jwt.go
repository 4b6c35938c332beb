package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("unexpected token type")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	TokenTypeSignup  TokenType = "signup"
)

type Claims struct {
	Email string    `json:"email,omitempty"`
	Role  string    `json:"role,omitempty"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: subject", ErrInvalidToken)
	}
	return uint(id), nil
}

// SignupClaims carries a provider profile between the OAuth callback and the
// registration form submit.
type SignupClaims struct {
	Provider     string    `json:"provider"`
	ProviderID   string    `json:"provider_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	BirthDate    string    `json:"birth_date,omitempty"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Type         TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	issuer        string
	audience      string
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

func NewJWTManager(issuer, audience, accessSecret, refreshSecret string) *JWTManager {
	return &JWTManager{
		issuer:        issuer,
		audience:      audience,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

// WithClock replaces the time source used for both signing and validation.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now().UTC()
	return jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{m.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (m *JWTManager) SignAccessToken(userID uint, email, role string, ttl time.Duration) (string, time.Time, error) {
	claims := Claims{
		Email:            email,
		Role:             role,
		Type:             TokenTypeAccess,
		RegisteredClaims: m.registered(strconv.FormatUint(uint64(userID), 10), ttl),
	}
	return m.sign(claims, m.accessSecret, claims.ExpiresAt.Time)
}

func (m *JWTManager) SignRefreshToken(userID uint, ttl time.Duration) (string, time.Time, error) {
	claims := Claims{
		Type:             TokenTypeRefresh,
		RegisteredClaims: m.registered(strconv.FormatUint(uint64(userID), 10), ttl),
	}
	return m.sign(claims, m.refreshSecret, claims.ExpiresAt.Time)
}

func (m *JWTManager) SignSignupToken(claims SignupClaims, ttl time.Duration) (string, error) {
	claims.Type = TokenTypeSignup
	claims.RegisteredClaims = m.registered(claims.Provider+":"+claims.ProviderID, ttl)
	token, _, err := m.sign(claims, m.refreshSecret, claims.ExpiresAt.Time)
	return token, err
}

func (m *JWTManager) sign(claims jwt.Claims, secret []byte, exp time.Time) (string, time.Time, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (m *JWTManager) ParseAccessToken(token string) (*Claims, error) {
	var claims Claims
	if err := m.parse(token, &claims, m.accessSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return &claims, nil
}

func (m *JWTManager) ParseRefreshToken(token string) (*Claims, error) {
	var claims Claims
	if err := m.parse(token, &claims, m.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return &claims, nil
}

func (m *JWTManager) ParseSignupToken(token string) (*SignupClaims, error) {
	var claims SignupClaims
	if err := m.parse(token, &claims, m.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeSignup {
		return nil, ErrWrongTokenType
	}
	return &claims, nil
}

func (m *JWTManager) parse(token string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

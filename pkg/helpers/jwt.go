package helpers

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const confirmAudience = "email-confirm"

// ErrInvalidToken is returned for any token that fails signature, audience,
// expiry, or format checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// JWTManager handles generation and validation of JWT tokens
type JWTManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	ConfirmSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ConfirmTTL    time.Duration

	clock clockwork.Clock
}

func NewJWTManager(accessSecret, refreshSecret, confirmSecret string, accessTTL, refreshTTL, confirmTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		ConfirmSecret: []byte(confirmSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		ConfirmTTL:    confirmTTL,
		clock:         clockwork.NewRealClock(),
	}
}

// WithClock swaps the time source used for issuing and validating tokens.
func (m *JWTManager) WithClock(c clockwork.Clock) *JWTManager {
	m.clock = c
	return m
}

func (m *JWTManager) now() time.Time {
	if m.clock == nil {
		return time.Now()
	}
	return m.clock.Now()
}

type Claims struct {
	UserID    int64  `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (m *JWTManager) sign(userID int64, sid string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID:    userID,
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(secret)
	return s, exp, err
}

func (m *JWTManager) GenerateAccessToken(userID int64, sid string) (string, time.Time, error) {
	return m.sign(userID, sid, m.AccessTTL, m.AccessSecret)
}

func (m *JWTManager) GenerateRefreshToken(userID int64, sid string) (string, time.Time, error) {
	return m.sign(userID, sid, m.RefreshTTL, m.RefreshSecret)
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenStr, m.AccessSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenStr, m.RefreshSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateConfirmationToken signs a short-lived token proving ownership of email.
func (m *JWTManager) GenerateConfirmationToken(email string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		Audience:  jwt.ClaimStrings{confirmAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ConfirmTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.ConfirmSecret)
}

// ParseConfirmationToken returns the email embedded in a valid confirmation token.
func (m *JWTManager) ParseConfirmationToken(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if err := m.parse(tokenStr, m.ConfirmSecret, claims, jwt.WithAudience(confirmAudience)); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (m *JWTManager) parse(tokenStr string, secret []byte, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return ErrInvalidToken
	}
	return nil
}

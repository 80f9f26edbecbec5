package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued bearer token stays valid.
const TokenTTL = time.Hour

var (
	// ErrInvalidToken is the parent of every token validation failure.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)

	ErrEmptySecret = errors.New("token signing secret is empty")
)

// Claims is the payload of a bearer token. The registered exp claim only
// carries whole seconds, so the authoritative expiry travels in
// ExpiresAtMillis; exp is rounded up to the next second to never undercut it.
type Claims struct {
	jwt.RegisteredClaims
	UserID          int64 `json:"uid"`
	ExpiresAtMillis int64 `json:"exp_ms"`
}

// TokenManager issues and validates HS256 bearer tokens with a process-wide secret.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

func NewTokenManager(secret string, opts ...TokenOption) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	m := &TokenManager{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token for userID valid until TokenTTL after issuance.
func (m *TokenManager) Issue(userID int64) (string, error) {
	issuedAt := m.now().UTC()
	expiresAt := ceilTo(issuedAt.Add(TokenTTL), time.Millisecond)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(ceilTo(expiresAt, time.Second)),
		},
		UserID:          userID,
		ExpiresAtMillis: expiresAt.UnixMilli(),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature and expiry and returns the embedded user id.
// A token is accepted up to and including its expiry instant.
func (m *TokenManager) Validate(tokenString string) (int64, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return 0, ErrTokenSignature
		default:
			return 0, ErrTokenMalformed
		}
	}

	if claims.ExpiresAtMillis <= 0 || claims.UserID <= 0 {
		return 0, ErrTokenMalformed
	}
	if m.now().After(time.UnixMilli(claims.ExpiresAtMillis)) {
		return 0, ErrTokenExpired
	}

	return claims.UserID, nil
}

// ceilTo rounds t up to a multiple of d.
func ceilTo(t time.Time, d time.Duration) time.Time {
	r := t.Truncate(d)
	if r.Before(t) {
		r = r.Add(d)
	}
	return r
}

// internal/app/system/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Token purposes. Session tokens authenticate API calls; email tokens prove
// an address was verified by OTP and are accepted only by registration.
const (
	PurposeSession     = "session"
	PurposeEmailVerify = "email_verify"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongPurpose = errors.New("token not valid for this use")
)

// Claims is the bearer token payload.
type Claims struct {
	UserID     string `json:"user_id,omitempty"`
	ActiveRole string `json:"active_role,omitempty"`
	Email      string `json:"email,omitempty"`
	Purpose    string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	emailTTL time.Duration
	issuer   string
	now      func() time.Time
}

// NewTokenManager returns a manager whose session tokens live for ttl.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:   []byte(secret),
		ttl:      ttl,
		emailTTL: 30 * time.Minute,
		issuer:   "churchhub",
		now:      time.Now,
	}
}

// IssueSession signs a session token for userID with activeRole.
func (m *TokenManager) IssueSession(userID primitive.ObjectID, activeRole string) (string, error) {
	return m.sign(Claims{
		UserID:     userID.Hex(),
		ActiveRole: activeRole,
		Purpose:    PurposeSession,
	}, m.ttl)
}

// IssueEmailVerification signs a short-lived proof that email passed OTP.
func (m *TokenManager) IssueEmailVerification(email string) (string, error) {
	return m.sign(Claims{Email: email, Purpose: PurposeEmailVerify}, m.emailTTL)
}

func (m *TokenManager) sign(c Claims, ttl time.Duration) (string, error) {
	now := m.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    m.issuer,
		Subject:   c.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies the signature, expiry and purpose of a token.
func (m *TokenManager) Parse(token, purpose string) (*Claims, error) {
	var c Claims
	t, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !t.Valid {
		return nil, ErrInvalidToken
	}
	if c.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return &c, nil
}

// TTL is the session token lifetime.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

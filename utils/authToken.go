package utils

import (
	"time"

	"github.com/o1egl/paseto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenClaims struct represents the data in the token (UserID, Role, Expiry).
type TokenClaims struct {
	UserID   uint      `json:"userId"`
	Role     string    `json:"role"`
	UniqueID string    `json:"uniqueId"`
	Expiry   time.Time `json:"expiry"`
}

// TokenMaker issues and validates PASETO v2 local tokens.
type TokenMaker struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenMaker requires a 32 byte symmetric key.
func NewTokenMaker(symmetricKey string, ttl time.Duration) (*TokenMaker, error) {
	if len(symmetricKey) != 32 {
		return nil, errors.Errorf("SYMMETRIC_KEY must be 32 bytes long, got %d", len(symmetricKey))
	}
	return &TokenMaker{key: []byte(symmetricKey), ttl: ttl, now: time.Now}, nil
}

func (m *TokenMaker) TTL() time.Duration {
	return m.ttl
}

// GenerateAccessToken generates the access token for a user.
func (m *TokenMaker) GenerateAccessToken(userID uint, role, uniqueID string) (string, error) {
	claims := TokenClaims{
		UserID:   userID,
		Role:     role,
		UniqueID: uniqueID,
		Expiry:   m.now().Add(m.ttl),
	}
	token, err := paseto.NewV2().Encrypt(m.key, claims, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate token")
	}
	return token, nil
}

// ValidateToken decrypts the token and checks expiry.
func (m *TokenMaker) ValidateToken(tokenString string) (*TokenClaims, error) {
	var claims TokenClaims
	if err := paseto.NewV2().Decrypt(tokenString, m.key, &claims, nil); err != nil {
		log.Debug().Err(err).Msg("token decryption failed")
		return nil, ErrTokenInvalid
	}
	if m.now().After(claims.Expiry) {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

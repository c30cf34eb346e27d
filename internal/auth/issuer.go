package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Issuer mints credentials with the same claims shape the Validator expects.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer builds an Issuer. A nil clock means time.Now.
func NewIssuer(secret string, now func() time.Time) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("issuer secret must not be empty")
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(secret), now: now}, nil
}

// Mint signs a token for clientID. A ttl of zero produces a token without expiry.
func (i *Issuer) Mint(clientID string, permissions []string, ttl time.Duration) (string, error) {
	if clientID == "" {
		return "", errors.New("client id must not be empty")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	issued := i.now()
	claims := Claims{
		ClientID:    clientID,
		Permissions: lo.Uniq(permissions),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       id.String(),
			IssuedAt: jwt.NewNumericDate(issued),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issued.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GenerateSecret returns a random 32-byte secret, hex encoded.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation failures. ErrInvalidToken maps to 401, ErrForbidden to 403.
var (
	ErrInvalidToken = errors.New("invalid authentication token")
	ErrForbidden    = errors.New("insufficient permissions")
)

// signingMethod is the only algorithm accepted or produced.
var signingMethod = jwt.SigningMethodHS256

// Validator decodes bearer credentials against a single shared secret.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	secret []byte
	now    func() time.Time
}

// NewValidator builds a Validator. A nil clock means time.Now.
func NewValidator(secret string, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{secret: []byte(secret), now: now}
}

// ExtractToken strips an optional "Bearer " prefix from a header value.
func ExtractToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	const prefix = "bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		header = header[len(prefix):]
	}
	return strings.TrimSpace(header)
}

// Validate decodes credential and enforces the crawl permission.
func (v *Validator) Validate(credential string) (Claims, error) {
	token := ExtractToken(credential)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty credential", ErrInvalidToken)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !claims.CanCrawl() {
		return claims, ErrForbidden
	}
	return claims, nil
}

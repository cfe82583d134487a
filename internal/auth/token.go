package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification errors. The HTTP boundary collapses all of these into
// one generic 401; the distinction exists for logs and tests.
var (
	// ErrTokenMalformed indicates the token could not be parsed at all.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenExpired indicates the token's expiry is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenSignature indicates the signature does not verify.
	ErrTokenSignature = errors.New("invalid token signature")
)

// signingMethods maps configured algorithm names to jwt signing methods.
var signingMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Claims is the payload carried by an access token: the subject (the
// user's email) plus the registered expiry.
type Claims struct {
	jwt.RegisteredClaims
}

// Subject returns the token subject (the user's email).
func (c *Claims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Codec signs and verifies access tokens with a process-wide symmetric
// secret. Construct it once at startup and share it; it is immutable and
// safe for concurrent use.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewCodec creates a token codec. algorithm must be one of HS256, HS384 or
// HS512 and ttl must be positive.
func NewCodec(secret, algorithm string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}

	method, ok := signingMethods[algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	return &Codec{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
	}, nil
}

// Issue signs a token for the given subject using the default lifetime.
func (c *Codec) Issue(subject string) (string, error) {
	return c.IssueWithTTL(subject, c.ttl)
}

// IssueWithTTL signs a token for the given subject expiring after ttl.
// Expiry is carried at second granularity (JWT NumericDate).
func (c *Codec) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(c.method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a token string. The signing method is pinned
// to the configured algorithm, so a token signed any other way fails with
// ErrTokenSignature. Claims are returned only when the signature verifies
// and the token is unexpired.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, ErrTokenSignature
		}
		return c.secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrTokenSignature):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	if !token.Valid {
		return nil, ErrTokenSignature
	}

	return claims, nil
}

// Package auth issues and verifies account tokens and gates protected
// requests on them.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// DefaultIssuer is the iss claim written and required when no WithIssuer
// option is given.
const DefaultIssuer = "weatherdash"

// Claims are the JWT claims carried by an account token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

type settings struct {
	now    func() time.Time
	issuer string
}

// Option customises an Issuer or Verifier.
type Option func(*settings)

// WithClock replaces time.Now. Tests use it to mint and check tokens at
// fixed instants.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIssuer sets the iss claim.
func WithIssuer(issuer string) Option {
	return func(s *settings) { s.issuer = issuer }
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now, issuer: DefaultIssuer}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Issuer signs HS256 tokens for user IDs.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	settings
}

func NewIssuer(secret []byte, lifetime time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty signing secret")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", lifetime)
	}
	return &Issuer{secret: secret, lifetime: lifetime, settings: newSettings(opts)}, nil
}

// Issue returns a signed token for userID valid for the configured lifetime.
func (i *Issuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("empty user id")
	}

	now := i.now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("token id: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verifier checks tokens produced by an Issuer with the same secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	settings
}

func NewVerifier(secret []byte, opts ...Option) *Verifier {
	s := newSettings(opts)
	return &Verifier{
		secret:   secret,
		settings: s,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.now),
			jwt.WithIssuer(s.issuer),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
		),
	}
}

// Verify returns the token claims. The error is common.ErrTokenExpired
// for a correctly signed token past its exp, common.ErrInvalidToken for
// anything else.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

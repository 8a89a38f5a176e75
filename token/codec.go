package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tags what a token may be used for.
type Purpose string

const (
	PurposeAccess       Purpose = "access_token"
	PurposeRefresh      Purpose = "refresh_token"
	PurposeEmailConfirm Purpose = "email_token"
)

const minSecretLength = 32

// Config configures a Codec. Secret is the process-wide HMAC key; it is
// injected at startup and never rotated in-process.
type Config struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

// Claims is the decoded payload of a token.
type Claims struct {
	Purpose Purpose `json:"scope"`
	jwt.RegisteredClaims
}

// Identity returns the subject the token was issued to.
func (c *Claims) Identity() string {
	return c.Subject
}

// Codec signs and verifies tokens. It is immutable and safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretLength)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Codec{
		secret: secret,
		issuer: cfg.Issuer,
		now:    now,
		// Expiry is checked by Decode against the injected clock so the
		// signature is always verified first.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Encode issues a token for identity with the given purpose, valid for ttl.
func (c *Codec) Encode(identity string, purpose Purpose, ttl time.Duration) (string, error) {
	if identity == "" {
		return "", errors.New("token identity is empty")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	if !purpose.valid() {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}

	now := c.now()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt(now, ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies tokenString and returns its claims if it is signed by this
// codec, not expired, and carries the expected purpose.
func (c *Codec) Decode(tokenString string, expected Purpose) (*Claims, error) {
	claims := &Claims{}
	tok, err := c.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing sub or exp", ErrInvalidToken)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if c.now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	if claims.Purpose != expected {
		return nil, ErrWrongPurpose
	}

	return claims, nil
}

// expiresAt rounds now+ttl up to the next whole second. NumericDate keeps
// seconds only, so truncating would cut the lifetime short.
func expiresAt(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if whole := exp.Truncate(time.Second); whole.Before(exp) {
		return whole.Add(time.Second)
	}
	return exp
}

func (p Purpose) valid() bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposeEmailConfirm:
		return true
	default:
		return false
	}
}

package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zapcore"
)

// Algorithm names a supported HMAC signing algorithm.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"

	// DefaultAlgorithm is used when Options.Algorithm is empty.
	DefaultAlgorithm = HS256

	// MinTTL is the shortest lifetime a token can carry.
	MinTTL = time.Second

	maxLeeway = 2 * time.Minute
)

// Claims written by the provider itself. The identifier claim may not reuse them.
const (
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
	claimTokenID   = "jti"
	claimIssuer    = "iss"
	claimAbilities = "abilities"
)

var reservedClaims = map[string]struct{}{
	claimExpiresAt: {},
	claimIssuedAt:  {},
	claimTokenID:   {},
	claimIssuer:    {},
	claimAbilities: {},
	"nbf":          {},
}

var (
	// ErrConfiguration marks an invalid provider setup.
	ErrConfiguration = errors.New("token: invalid configuration")
	// ErrInvalidSubject is returned when issuing for a zero identifier.
	ErrInvalidSubject = errors.New("token: invalid subject identifier")
	// ErrInvalidTTL is returned when an issue override asks for a lifetime below MinTTL.
	ErrInvalidTTL = errors.New("token: invalid ttl override")
	// ErrInvalidIssuedAt is returned when WithIssuedAt is given a zero time.
	ErrInvalidIssuedAt = errors.New("token: invalid issued-at override")
	// ErrSigning wraps failures of the signing step.
	ErrSigning = errors.New("token: signing failed")
)

// Options configures a Provider. It is read-only once the provider is built.
type Options struct {
	SigningKey      []byte
	Algorithm       Algorithm
	TTL             time.Duration
	IdentifierClaim string
	Issuer          string
	Leeway          time.Duration
}

// Validate checks the options and reports the first problem found.
func (o Options) Validate() error {
	if len(o.SigningKey) == 0 {
		return configError("signing key is empty")
	}
	if _, err := o.signingMethod(); err != nil {
		return err
	}
	if o.TTL < MinTTL {
		return configError(fmt.Sprintf("ttl must be at least %s, got %s", MinTTL, o.TTL))
	}
	claim := strings.TrimSpace(o.IdentifierClaim)
	if claim == "" {
		return configError("identifier claim name is empty")
	}
	if claim != o.IdentifierClaim {
		return configError("identifier claim name has surrounding whitespace")
	}
	if _, reserved := reservedClaims[claim]; reserved {
		return configError(fmt.Sprintf("identifier claim %q is reserved", claim))
	}
	if o.Leeway < 0 || o.Leeway > maxLeeway {
		return configError(fmt.Sprintf("leeway must be within 0..%s", maxLeeway))
	}
	return nil
}

func (o Options) algorithm() Algorithm {
	if o.Algorithm == "" {
		return DefaultAlgorithm
	}
	return o.Algorithm
}

func (o Options) signingMethod() (jwt.SigningMethod, error) {
	switch o.algorithm() {
	case HS256:
		return jwt.SigningMethodHS256, nil
	case HS384:
		return jwt.SigningMethodHS384, nil
	case HS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, configError(fmt.Sprintf("unsupported algorithm %q", o.Algorithm))
	}
}

// String omits the signing key.
func (o Options) String() string {
	return fmt.Sprintf("token.Options{Algorithm:%s TTL:%s IdentifierClaim:%q Issuer:%q Leeway:%s SigningKey:[redacted]}",
		o.algorithm(), o.TTL, o.IdentifierClaim, o.Issuer, o.Leeway)
}

// GoString omits the signing key.
func (o Options) GoString() string {
	return o.String()
}

// MarshalLogObject lets zap log the options without the signing key.
func (o Options) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("algorithm", string(o.algorithm()))
	enc.AddDuration("ttl", o.TTL)
	enc.AddString("identifier_claim", o.IdentifierClaim)
	if o.Issuer != "" {
		enc.AddString("issuer", o.Issuer)
	}
	enc.AddDuration("leeway", o.Leeway)
	return nil
}

func configError(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, msg)
}

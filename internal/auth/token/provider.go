// Package token issues and verifies stateless JWT access tokens for tokenable subjects.
package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider issues and verifies stateless JWT access tokens.
// It holds no mutable state and is safe for concurrent use.
type Provider struct {
	opts   Options
	method jwt.SigningMethod
	parser *jwt.Parser
	now    func() time.Time
	logger *zap.Logger
}

// Option customises a Provider.
type Option func(*Provider)

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock replaces time.Now for both issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvider validates opts and builds a provider.
func NewProvider(opts Options, options ...Option) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	method, err := opts.signingMethod()
	if err != nil {
		return nil, err
	}

	opts.SigningKey = slices.Clone(opts.SigningKey)
	p := &Provider{
		opts:   opts,
		method: method,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, apply := range options {
		apply(p)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithJSONNumber(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(p.now),
	}
	if opts.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(opts.Leeway))
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	p.parser = jwt.NewParser(parserOpts...)

	return p, nil
}

// Options returns the provider configuration.
func (p *Provider) Options() Options {
	opts := p.opts
	opts.SigningKey = slices.Clone(p.opts.SigningKey)
	return opts
}

type issueParams struct {
	issuedAt    time.Time
	issuedAtSet bool
	ttl         time.Duration
}

// IssueOption overrides defaults for a single Issue call.
type IssueOption func(*issueParams)

// WithIssuedAt sets the issue time instead of the provider clock.
// A zero time makes Issue fail with ErrInvalidIssuedAt.
func WithIssuedAt(t time.Time) IssueOption {
	return func(ip *issueParams) {
		ip.issuedAt = t
		ip.issuedAtSet = true
	}
}

// WithTTL sets the lifetime instead of the configured TTL.
func WithTTL(ttl time.Duration) IssueOption {
	return func(ip *issueParams) { ip.ttl = ttl }
}

// Issue signs a token for the subject. The caller is expected to have
// resolved the subject against storage already.
func (p *Provider) Issue(id Identifier, abilities []string, overrides ...IssueOption) (*Token, error) {
	if id.IsZero() {
		return nil, ErrInvalidSubject
	}

	params := issueParams{ttl: p.opts.TTL}
	for _, apply := range overrides {
		apply(&params)
	}
	if params.ttl < MinTTL {
		return nil, fmt.Errorf("%w: %s is below %s", ErrInvalidTTL, params.ttl, MinTTL)
	}
	switch {
	case !params.issuedAtSet:
		params.issuedAt = p.now()
	case params.issuedAt.IsZero():
		return nil, ErrInvalidIssuedAt
	}

	// Claims carry milliseconds: issuedAt+ttl-1ms < expiresAt <= issuedAt+ttl.
	issuedAt := params.issuedAt.Truncate(time.Millisecond)
	expiresAt := params.issuedAt.Add(params.ttl).Truncate(time.Millisecond)
	tokenID := uuid.NewString()
	granted := slices.Clone(abilities)

	claims := jwt.MapClaims{
		p.opts.IdentifierClaim: id.claimValue(),
		claimIssuedAt:          numericDateClaim(issuedAt),
		claimExpiresAt:         numericDateClaim(expiresAt),
		claimTokenID:           tokenID,
	}
	if p.opts.Issuer != "" {
		claims[claimIssuer] = p.opts.Issuer
	}
	if len(granted) > 0 {
		claims[claimAbilities] = granted
	}

	raw, err := jwt.NewWithClaims(p.method, claims).SignedString(p.opts.SigningKey)
	if err != nil {
		p.logger.Error("token signing failed", zap.String("algorithm", p.method.Alg()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	return newToken(raw, tokenID, id, issuedAt, expiresAt, granted), nil
}

// Verify checks the signature and expiry of raw and rebuilds its descriptor.
// Every failure yields the same rejected Outcome.
func (p *Provider) Verify(raw string) Outcome {
	parsed, err := p.parser.ParseWithClaims(raw, &accessClaims{}, p.keyFunc)
	if err != nil {
		return p.reject(classify(err))
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return p.reject(reasonClaims)
	}

	id, err := identifierFromClaim(claims.MapClaims[p.opts.IdentifierClaim])
	if err != nil || id.IsZero() {
		return p.reject(reasonMissingIdentifier)
	}

	abilities, err := abilitiesFromClaim(claims.MapClaims[claimAbilities])
	if err != nil {
		return p.reject(reasonClaims)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return p.reject(reasonClaims)
	}
	issuedAt := p.now()
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		issuedAt = iat.Time
	}
	tokenID, _ := claims.MapClaims[claimTokenID].(string)

	return Outcome{token: newToken(raw, tokenID, id, issuedAt, exp.Time, abilities)}
}

func (p *Provider) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != p.method.Alg() {
		return nil, errUnexpectedAlgorithm
	}
	return p.opts.SigningKey, nil
}

func (p *Provider) reject(reason rejectReason) Outcome {
	p.logger.Debug("access token rejected", zap.String("reason", string(reason)))
	return Outcome{reason: reason}
}

func abilitiesFromClaim(v any) ([]string, error) {
	if v == nil {
		return []string{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("abilities claim has type %T", v)
	}
	abilities := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("ability has type %T", item)
		}
		abilities = append(abilities, s)
	}
	return abilities, nil
}

var errUnexpectedAlgorithm = errors.New("unexpected signing algorithm")

func classify(err error) rejectReason {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return reasonMalformed
	case errors.Is(err, errUnexpectedAlgorithm):
		return reasonAlgorithm
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return reasonSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return reasonExpired
	default:
		return reasonClaims
	}
}

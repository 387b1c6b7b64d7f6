package token

import (
	"encoding/json"
	"slices"
	"time"
)

// Kind tags the token family a descriptor belongs to.
type Kind string

// KindBearerJWT is the only kind this package produces.
const KindBearerJWT Kind = "bearer/jwt"

// AbilityAll grants every ability.
const AbilityAll = "*"

const redacted = "[redacted]"

// Secret holds the raw token string. Printing or marshalling it redacts the value.
type Secret struct {
	value string
}

// Release returns the raw token string.
func (s Secret) Release() string {
	return s.value
}

func (s Secret) String() string {
	return redacted
}

// GoString redacts under %#v.
func (s Secret) GoString() string {
	return redacted
}

// MarshalJSON redacts the value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// Token describes an access token that was just issued or just verified.
// It is immutable and never persisted.
type Token struct {
	id         string
	identifier Identifier
	value      Secret
	issuedAt   time.Time
	expiresAt  time.Time
	abilities  []string
}

func newToken(raw, id string, identifier Identifier, issuedAt, expiresAt time.Time, abilities []string) *Token {
	if abilities == nil {
		abilities = []string{}
	}
	return &Token{
		id:         id,
		identifier: identifier,
		value:      Secret{value: raw},
		issuedAt:   issuedAt,
		expiresAt:  expiresAt,
		abilities:  abilities,
	}
}

// ID returns the jti claim; empty when a verified token carried none.
func (t *Token) ID() string { return t.id }

// Identifier returns the subject's primary key.
func (t *Token) Identifier() Identifier { return t.identifier }

// Value returns the raw signed string wrapped as a Secret.
func (t *Token) Value() Secret { return t.value }

// IssuedAt returns the embedded issue time.
func (t *Token) IssuedAt() time.Time { return t.issuedAt }

// ExpiresAt returns the embedded expiry.
func (t *Token) ExpiresAt() time.Time { return t.expiresAt }

// Kind is always KindBearerJWT.
func (t *Token) Kind() Kind { return KindBearerJWT }

// Abilities returns a copy of the granted abilities, never nil.
func (t *Token) Abilities() []string {
	return slices.Clone(t.abilities)
}

// Can reports whether the token grants ability, directly or through AbilityAll.
func (t *Token) Can(ability string) bool {
	for _, a := range t.abilities {
		if a == AbilityAll || a == ability {
			return true
		}
	}
	return false
}

// IsExpired reports whether the token is expired at now.
func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.expiresAt)
}

type tokenJSON struct {
	Type       string     `json:"type"`
	ID         string     `json:"id,omitempty"`
	Identifier Identifier `json:"identifier"`
	Abilities  []string   `json:"abilities"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// MarshalJSON never includes the raw value.
func (t *Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenJSON{
		Type:       string(t.Kind()),
		ID:         t.id,
		Identifier: t.identifier,
		Abilities:  t.Abilities(),
		IssuedAt:   t.issuedAt,
		ExpiresAt:  t.expiresAt,
	})
}

package token

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Redacts(t *testing.T) {
	s := Secret{value: "raw.jwt.value"}

	assert.Equal(t, "raw.jwt.value", s.Release())
	assert.Equal(t, "[redacted]", s.String())
	assert.Equal(t, "[redacted]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[redacted]", fmt.Sprintf("%#v", s))

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `"[redacted]"`, string(b))
}

func TestToken_MarshalJSONOmitsValue(t *testing.T) {
	tok := newToken("raw.jwt.value", "jti-1", IntID(42), t0, t0.Add(time.Minute), []string{"read"})

	b, err := json.Marshal(tok)
	require.NoError(t, err)

	assert.NotContains(t, string(b), "raw.jwt.value")
	assert.JSONEq(t, `{
		"type": "bearer/jwt",
		"id": "jti-1",
		"identifier": 42,
		"abilities": ["read"],
		"issued_at": "2026-03-14T09:26:53Z",
		"expires_at": "2026-03-14T09:27:53Z"
	}`, string(b))
}

func TestToken_StringIdentifierJSON(t *testing.T) {
	tok := newToken("raw", "", StringID("42"), t0, t0.Add(time.Minute), nil)

	b, err := json.Marshal(tok)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "42", decoded["identifier"])
	assert.Equal(t, []any{}, decoded["abilities"])
	assert.NotContains(t, decoded, "id")
}

func TestToken_Can(t *testing.T) {
	scoped := newToken("raw", "", IntID(1), t0, t0.Add(time.Minute), []string{"posts:read", "posts:write"})
	assert.True(t, scoped.Can("posts:read"))
	assert.False(t, scoped.Can("users:delete"))

	wildcard := newToken("raw", "", IntID(1), t0, t0.Add(time.Minute), []string{AbilityAll})
	assert.True(t, wildcard.Can("users:delete"))

	none := newToken("raw", "", IntID(1), t0, t0.Add(time.Minute), nil)
	assert.False(t, none.Can("posts:read"))
	assert.Equal(t, []string{}, none.Abilities())
}

func TestToken_IsExpired(t *testing.T) {
	tok := newToken("raw", "", IntID(1), t0, t0.Add(time.Minute), nil)

	assert.False(t, tok.IsExpired(t0.Add(59*time.Second)))
	assert.True(t, tok.IsExpired(t0.Add(time.Minute)))
	assert.True(t, tok.IsExpired(t0.Add(2*time.Minute)))
}

func TestIdentifier(t *testing.T) {
	assert.True(t, Identifier{}.IsZero())
	assert.True(t, IntID(0).IsZero())
	assert.True(t, StringID("").IsZero())
	assert.False(t, IntID(-1).IsZero())
	assert.False(t, StringID("0").IsZero())

	n, ok := IntID(1<<62 + 7).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(1<<62+7), n)
	assert.Equal(t, "4611686018427387911", IntID(1<<62+7).String())

	_, ok = StringID("7").Int64()
	assert.False(t, ok)
	assert.Equal(t, "7", StringID("7").String())
}

func TestIdentifierFromClaim(t *testing.T) {
	id, err := identifierFromClaim(json.Number("9007199254740993"))
	require.NoError(t, err)
	assert.Equal(t, IntID(9007199254740993), id)

	id, err = identifierFromClaim("abc")
	require.NoError(t, err)
	assert.Equal(t, StringID("abc"), id)

	for _, bad := range []any{nil, json.Number("1.5"), json.Number("1e400"), true, 3.0, []any{"a"}} {
		_, err := identifierFromClaim(bad)
		assert.Error(t, err, "accepted %v", bad)
	}
}

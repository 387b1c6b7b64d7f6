package token

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOptions_Validate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Options)
		errMsg string
	}{
		{"valid defaults", func(o *Options) {}, ""},
		{"valid hs384", func(o *Options) { o.Algorithm = HS384 }, ""},
		{"valid hs512", func(o *Options) { o.Algorithm = HS512 }, ""},
		{"valid issuer", func(o *Options) { o.Issuer = "svc" }, ""},
		{"valid minimum ttl", func(o *Options) { o.TTL = MinTTL }, ""},
		{"valid max leeway", func(o *Options) { o.Leeway = 2 * time.Minute }, ""},
		{"empty key", func(o *Options) { o.SigningKey = nil }, "signing key is empty"},
		{"unsupported algorithm", func(o *Options) { o.Algorithm = "RS256" }, "unsupported algorithm"},
		{"lowercase algorithm", func(o *Options) { o.Algorithm = "hs256" }, "unsupported algorithm"},
		{"none algorithm", func(o *Options) { o.Algorithm = "none" }, "unsupported algorithm"},
		{"zero ttl", func(o *Options) { o.TTL = 0 }, "ttl must be at least"},
		{"negative ttl", func(o *Options) { o.TTL = -time.Hour }, "ttl must be at least"},
		{"sub-second ttl", func(o *Options) { o.TTL = 500 * time.Millisecond }, "ttl must be at least"},
		{"empty claim", func(o *Options) { o.IdentifierClaim = "" }, "identifier claim name is empty"},
		{"blank claim", func(o *Options) { o.IdentifierClaim = "  " }, "identifier claim name is empty"},
		{"padded claim", func(o *Options) { o.IdentifierClaim = " id" }, "surrounding whitespace"},
		{"reserved exp", func(o *Options) { o.IdentifierClaim = "exp" }, "reserved"},
		{"reserved abilities", func(o *Options) { o.IdentifierClaim = "abilities" }, "reserved"},
		{"negative leeway", func(o *Options) { o.Leeway = -time.Second }, "leeway"},
		{"large leeway", func(o *Options) { o.Leeway = 3 * time.Minute }, "leeway"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions()
			tc.modify(&opts)

			err := opts.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tc.errMsg)

			_, err = NewProvider(opts)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestOptions_DefaultAlgorithm(t *testing.T) {
	opts := testOptions()
	method, err := opts.signingMethod()
	require.NoError(t, err)
	assert.Equal(t, "HS256", method.Alg())
}

func TestOptions_NeverPrintsKey(t *testing.T) {
	opts := testOptions()
	opts.SigningKey = []byte("super-secret-material")

	for _, out := range []string{
		opts.String(),
		fmt.Sprintf("%v", opts),
		fmt.Sprintf("%+v", opts),
		fmt.Sprintf("%#v", opts),
	} {
		assert.NotContains(t, out, "super-secret-material")
		assert.True(t, strings.Contains(out, "[redacted]"))
	}

	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("provider configured", zap.Object("options", opts))
	entry := logs.All()[0]
	fields := entry.ContextMap()["options"].(map[string]any)
	assert.Equal(t, "HS256", fields["algorithm"])
	assert.Equal(t, "id", fields["identifier_claim"])
	assert.NotContains(t, fields, "signing_key")
	assert.NotContains(t, fmt.Sprint(fields), "super-secret-material")
}

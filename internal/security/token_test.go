package security_test

import (
	"encoding/base64"
	"testing"

	"comparador/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := security.NewToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err, "token must be URL-safe base64")
		assert.Len(t, raw, security.TokenBytes)
		assert.False(t, seen[tok], "duplicate token")
		seen[tok] = true
	}
}

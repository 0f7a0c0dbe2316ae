package entity_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"andiamo/entity"
)

func TestNewSecureToken(t *testing.T) {
	seen := map[string]struct{}{}

	for i := 0; i < 1000; i++ {
		token := entity.NewSecureToken()
		require.NotEmpty(t, token)

		// The token is embedded in URLs as-is.
		assert.Equal(t, token, url.PathEscape(token))

		_, duplicate := seen[token]
		require.False(t, duplicate, "token %s generated twice", token)
		seen[token] = struct{}{}
	}
}

package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestPreviewTokenRoundTrip(t *testing.T) {
	token, err := GeneratePreviewToken(7, "page-uuid-1", time.Hour, testSecret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyPreviewToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "page-uuid-1", claims.PageUUID)
	assert.Greater(t, claims.ExpiresAt, time.Now().Unix())
}

func TestPreviewTokenRejections(t *testing.T) {
	token, err := GeneratePreviewToken(7, "page-uuid-1", time.Hour, testSecret)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := VerifyPreviewToken(token, "other-secret")
		assert.Error(t, err)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.SplitN(token, ".", 2)
		require.Len(t, parts, 2)
		tampered := parts[0] + "x." + parts[1]
		_, err := VerifyPreviewToken(tampered, testSecret)
		assert.Error(t, err)
	})

	t.Run("malformed token", func(t *testing.T) {
		for _, bad := range []string{"", "no-dot", "a.b.c!", "!!!.###"} {
			_, err := VerifyPreviewToken(bad, testSecret)
			assert.Error(t, err, "token %q must not verify", bad)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := GeneratePreviewToken(7, "page-uuid-1", -time.Minute, testSecret)
		require.NoError(t, err)
		_, err = VerifyPreviewToken(expired, testSecret)
		assert.Error(t, err)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := GeneratePreviewToken(7, "page-uuid-1", time.Hour, "")
		assert.Error(t, err)
		_, err = VerifyPreviewToken(token, "")
		assert.Error(t, err)
	})
}

package credential_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/Abraxas-365/keygate/pkg/iam/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	h := credential.NewHasher(credential.DefaultIterations)

	for _, password := range []string{"correct horse battery", "qwerty123456", "~!@#$%^&*()_+ {}|"} {
		hash, salt, err := h.Hash(password)
		require.NoError(t, err)

		assert.True(t, h.Verify(password, salt, hash), password)
		assert.False(t, h.Verify(password+"x", salt, hash), password)
	}
}

func TestHashUsesFreshSaltOfNativeLength(t *testing.T) {
	h := credential.NewHasher(0)

	hash1, salt1, err := h.Hash("same-password-here")
	require.NoError(t, err)
	hash2, salt2, err := h.Hash("same-password-here")
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)

	raw, err := base64.URLEncoding.DecodeString(salt1)
	require.NoError(t, err)
	assert.Len(t, raw, credential.KeyLength)
}

func TestVerifyRejectsMalformedSalt(t *testing.T) {
	h := credential.NewHasher(0)
	hash, _, err := h.Hash("password-password")
	require.NoError(t, err)

	assert.False(t, h.Verify("password-password", "%%%not-base64%%%", hash))
}

func TestAsyncVariants(t *testing.T) {
	h := credential.NewHasher(0)
	ctx := context.Background()

	hash, salt, err := h.HashAsync(ctx, "offloaded-password")
	require.NoError(t, err)

	ok, err := h.VerifyAsync(ctx, "offloaded-password", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyAsync(ctx, "other-password", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

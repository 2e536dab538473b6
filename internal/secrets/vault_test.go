package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	v, err := NewVault("master")
	require.NoError(t, err)

	sealed, err := v.Seal("canvas-token-123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, prefix))
	assert.NotContains(t, sealed, "canvas-token-123")

	again, err := v.Seal("canvas-token-123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")

	plain, err := v.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "canvas-token-123", plain)
}

func TestEmptyStaysEmpty(t *testing.T) {
	v, err := NewVault("master")
	require.NoError(t, err)

	sealed, err := v.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := v.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestOpenRejectsTampering(t *testing.T) {
	v, err := NewVault("master")
	require.NoError(t, err)
	other, err := NewVault("other")
	require.NoError(t, err)

	sealed, err := v.Seal("token")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err)

	_, err = v.Open("plain-token")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = v.Open(prefix + "!!!")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = v.Open(prefix + "AAAA")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNewVaultNeedsSecret(t *testing.T) {
	_, err := NewVault("")
	assert.Error(t, err)
}

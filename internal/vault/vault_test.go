package vault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundtrip(t *testing.T) {
	v, err := New("unit-test-key")
	require.NoError(t, err)

	for _, plaintext := range []string{
		"",
		"session-string",
		"1BVtsOHYBu0…very long opaque session payload with unicode ✓",
		strings.Repeat("x", 4096),
	} {
		sealed, err := v.Seal(plaintext)
		require.NoError(t, err)
		require.NotEmpty(t, sealed)

		parts := strings.Split(sealed, ":")
		require.Len(t, parts, 3)
		assert.Len(t, parts[0], ivSize*2)
		assert.Len(t, parts[2], tagSize*2)

		got, err := v.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestSealDistinctIVs(t *testing.T) {
	v, err := New("unit-test-key")
	require.NoError(t, err)

	a, err := v.Seal("same plaintext")
	require.NoError(t, err)
	b, err := v.Seal("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	for _, sealed := range []string{a, b} {
		got, err := v.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "same plaintext", got)
	}
}

func TestOpenTamperedValue(t *testing.T) {
	v, err := New("unit-test-key")
	require.NoError(t, err)

	sealed, err := v.Seal("keep out")
	require.NoError(t, err)

	// Flip every hex character in turn; each mutation must fail closed.
	for i := 0; i < len(sealed); i++ {
		if sealed[i] == ':' {
			continue
		}
		flip := byte('0')
		if sealed[i] == '0' {
			flip = '1'
		}
		tampered := sealed[:i] + string(flip) + sealed[i+1:]
		_, err := v.Open(tampered)
		assert.ErrorIs(t, err, ErrIntegrity, "position %d", i)
	}
}

func TestOpenMalformedInput(t *testing.T) {
	v, err := New("unit-test-key")
	require.NoError(t, err)

	for _, sealed := range []string{
		"",
		"onlyonesegment",
		"aa:bb",
		"aa:bb:cc:dd",
		"zz:bb:cc",
		strings.Repeat("ab", ivSize) + ":nothex:" + strings.Repeat("ab", tagSize),
		strings.Repeat("ab", ivSize) + ":abcd:" + "aabb",
		"abcd:aabb:" + strings.Repeat("ab", tagSize),
	} {
		_, err := v.Open(sealed)
		assert.ErrorIs(t, err, ErrIntegrity, "input %q", sealed)
	}
}

func TestKeyDerivation(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	// Short keys are padded, long keys truncated; both must roundtrip.
	short, err := New("k")
	require.NoError(t, err)
	long, err := New(strings.Repeat("q", 100))
	require.NoError(t, err)

	for _, v := range []*Vault{short, long} {
		sealed, err := v.Seal("payload")
		require.NoError(t, err)
		got, err := v.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "payload", got)
	}

	// A different key must not open the value.
	sealed, err := short.Seal("payload")
	require.NoError(t, err)
	_, err = long.Open(sealed)
	assert.ErrorIs(t, err, ErrIntegrity)
}

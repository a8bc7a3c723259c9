package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedEscrow(t *testing.T) {
	seed, err := GenerateSeed()
	require.NoError(t, err)

	shares, err := SplitSeed(seed, 5, 3)
	require.NoError(t, err)
	assert.Len(t, shares, 5)

	combined, err := CombineSeed([][]byte{shares[0], shares[2], shares[4]})
	require.NoError(t, err)
	assert.Equal(t, seed, combined)

	combined, err = CombineSeed(shares)
	require.NoError(t, err)
	assert.Equal(t, seed, combined)

	insufficient, err := CombineSeed(shares[:2])
	require.NoError(t, err)
	assert.NotEqual(t, seed, insufficient)
}

func TestSplitSeed_InvalidParameters(t *testing.T) {
	seed, err := GenerateSeed()
	require.NoError(t, err)

	_, err = SplitSeed(seed, 5, 6)
	assert.Error(t, err, "threshold > total shares")

	_, err = SplitSeed(seed, 5, 1)
	assert.Error(t, err, "threshold < 2")

	_, err = SplitSeed(seed[:16], 5, 3)
	assert.Error(t, err, "short seed")

	_, err = CombineSeed(nil)
	assert.Error(t, err)
}

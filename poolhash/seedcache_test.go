package poolhash

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeedCacheReusesVMForSameSeed(t *testing.T) {
	sc := NewSeedCache(RandomXFlags{})
	defer sc.Close()

	seed := hex.EncodeToString([]byte("epoch-seed-one-aaaaaaaaaaaaaaaaa"))
	input := []byte("candidate hashing blob")

	h1, err := sc.RandomXHash(input, seed)
	require.NoError(t, err)
	require.Len(t, h1, 32)

	sc.mu.Lock()
	entriesBefore := len(sc.entries)
	sc.mu.Unlock()

	h2, err := sc.RandomXHash(input, seed)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	sc.mu.Lock()
	entriesAfter := len(sc.entries)
	sc.mu.Unlock()
	require.Equal(t, entriesBefore, entriesAfter, "second call for the same seed must not allocate a new VM")
}

func TestSeedCacheEvictsThirdDistinctSeed(t *testing.T) {
	sc := NewSeedCache(RandomXFlags{})
	defer sc.Close()

	seeds := []string{
		hex.EncodeToString([]byte("seed-one-aaaaaaaaaaaaaaaaaaaaaaa")),
		hex.EncodeToString([]byte("seed-two-aaaaaaaaaaaaaaaaaaaaaaa")),
		hex.EncodeToString([]byte("seed-three-aaaaaaaaaaaaaaaaaaaaa")),
	}
	for _, s := range seeds {
		_, err := sc.RandomXHash([]byte("x"), s)
		require.NoError(t, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	require.LessOrEqual(t, len(sc.entries), 2)
	require.NotEqual(t, seeds[0], sc.entries[0].seed, "oldest seed should have been evicted")
}

package poolhash

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// maxTarget represents 2^256 - 1, the numerator of the difficulty formula.
// It is built from 32 0xFF bytes, the same byte pattern the original pool
// used (interpreted there as little-endian, which for an all-0xFF value is
// numerically identical to a big-endian interpretation).
var maxTarget = new(big.Int).SetBytes(bytesOfOnes(32))

func bytesOfOnes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xFF
	}
	return b
}

// CalculateDifficulty reverses hashHex's bytes, interprets the result as a
// big-endian unsigned 256-bit integer H, and returns floor(2^256-1 / H).
// hashHex must decode to exactly 32 bytes.
func CalculateDifficulty(hashHex string) (*big.Int, error) {
	raw, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, fmt.Errorf("poolhash: decode hash: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("poolhash: hash must be 32 bytes, got %d", len(raw))
	}

	reversed := make([]byte, 32)
	for i, b := range raw {
		reversed[31-i] = b
	}
	h := new(big.Int).SetBytes(reversed)
	if h.Sign() == 0 {
		return nil, fmt.Errorf("poolhash: hash is zero, difficulty undefined")
	}

	diff := new(big.Int).Div(maxTarget, h)
	return diff, nil
}

// Package poolhash implements the stateless cryptographic primitives the
// pool's protocol engine relies on: Keccak-256, Monero's transaction
// tree-hash, RandomX proof-of-work evaluation (with a mandatory per-seed VM
// cache), and difficulty calculation from a raw hash. All of it is grounded
// on original_source/src/algo/hash.rs and src/algo/randomx.rs, styled after
// the donor node's mining/randomx package.
package poolhash

import "golang.org/x/crypto/sha3"

// Keccak256 returns the 32-byte Keccak-256 digest of input. This is the
// "plain" Keccak used throughout Monero's codebase, not the NIST SHA3-256
// variant (different padding) — golang.org/x/crypto/sha3's NewLegacyKeccak256
// implements exactly that variant.
func Keccak256(input []byte) [32]byte {
	var out [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(input)
	copy(out[:], h.Sum(nil))
	return out
}

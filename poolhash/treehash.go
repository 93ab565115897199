package poolhash

import "fmt"

// TreeHash computes Monero's transaction tree-hash over hashes, a list of
// 32-byte values (normally {miner_tx_hash, tx_hash_1, ..., tx_hash_n}). It
// is a direct, bit-exact port of Monero's tree_hash (mirrored by
// original_source/src/algo/hash.rs's get_tree_hash): pairs are reduced in
// input order, with a leading partial layer when the count is not a power
// of two.
//
// n=1 returns hashes[0] unchanged; n=2 returns Keccak256(h0||h1); n>=3 cuts
// to the largest power of two <= n, pairs off the excess tail hashes first,
// then repeatedly halves by pairwise Keccak256 until two values remain.
func TreeHash(hashes [][32]byte) ([32]byte, error) {
	count := len(hashes)
	if count == 0 {
		return [32]byte{}, fmt.Errorf("poolhash: tree_hash requires at least one hash")
	}
	if count == 1 {
		return hashes[0], nil
	}
	if count == 2 {
		return concatKeccak(hashes[0], hashes[1]), nil
	}

	cut := largestPowerOfTwoAtMost(count)
	buffer := make([][32]byte, cut)

	// The first (2*cut - count) inputs carry over unchanged into the head
	// of the buffer; the remaining 2*(count-cut) inputs are paired off
	// into the tail.
	head := 2*cut - count
	copy(buffer[:head], hashes[:head])
	for i, j := head, head; i < count; i, j = i+2, j+1 {
		buffer[j] = concatKeccak(hashes[i], hashes[i+1])
	}

	for cut > 2 {
		cut >>= 1
		for i, j := 0, 0; j < cut; i, j = i+2, j+1 {
			buffer[j] = concatKeccak(buffer[i], buffer[i+1])
		}
	}
	return concatKeccak(buffer[0], buffer[1]), nil
}

func concatKeccak(a, b [32]byte) [32]byte {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Keccak256(buf[:])
}

func largestPowerOfTwoAtMost(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

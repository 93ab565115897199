// Package poolcodec implements the Template Codec: parsing a block-template
// binary blob into its logical parts and reassembling it with injected
// pool-nonce and miner-nonce bytes, and deriving the hashing blob a miner
// actually hashes. Grounded on original_source/src/algo/hash.rs, styled
// after blockchain/merkle.go's function-per-concern layout.
package poolcodec

import (
	"encoding/hex"
	"fmt"

	"github.com/AndesWebDesign/rustpool/poolhash"
)

// minerNonceOffset is the 4-byte "miner nonce" field miners vary while
// searching.
const minerNonceOffset = 39

// HashingBlob derives the hex-encoded hashing blob from a full block
// template: it gathers {hash(miner_tx), tx_hashes...}, computes their
// tree-hash, and emits (blob[0:39] || 4 zero bytes || tree_hash) as hex,
// followed by the transaction count as lowercase hex with an even digit
// count (left-padded with a leading zero if odd).
//
// Returns ("", err) on any parse failure; callers treat that as "skip this
// template", never propagating the underlying error further up the call
// chain than logging it.
func HashingBlob(templateBytes []byte) (string, error) {
	block, err := parseBlock(templateBytes)
	if err != nil {
		return "", err
	}
	if len(templateBytes) < minerNonceOffset {
		return "", fmt.Errorf("poolcodec: template shorter than miner-nonce offset")
	}

	hashes := make([][32]byte, 0, 1+len(block.txHashes))
	hashes = append(hashes, minerTxHash(templateBytes, block.minerTxStart, block.minerTxEnd, block.minerTx.version))
	hashes = append(hashes, block.txHashes...)

	merkleRoot, err := poolhash.TreeHash(hashes)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, minerNonceOffset+4+32)
	out = append(out, templateBytes[:minerNonceOffset]...)
	out = append(out, make([]byte, 4)...)
	out = append(out, merkleRoot[:]...)

	txCountHex := fmt.Sprintf("%x", len(hashes))
	if len(txCountHex)%2 != 0 {
		txCountHex = "0" + txCountHex
	}

	return hex.EncodeToString(out) + txCountHex, nil
}

// InjectPoolNonce replaces the reserveSize bytes starting at
// reservedOffset in templateBytes with the decoded poolNonceHex, returning
// a new byte slice of the same length as templateBytes. Bytes outside
// [reservedOffset, reservedOffset+reserveSize) are copied unchanged.
func InjectPoolNonce(templateBytes []byte, poolNonceHex string, reservedOffset, reserveSize int) ([]byte, error) {
	nonce, err := hex.DecodeString(poolNonceHex)
	if err != nil {
		return nil, fmt.Errorf("poolcodec: decode pool nonce: %w", err)
	}
	if len(nonce) != reserveSize {
		return nil, fmt.Errorf("poolcodec: pool nonce length %d does not match reserve size %d", len(nonce), reserveSize)
	}
	if reservedOffset < 0 || reservedOffset+reserveSize > len(templateBytes) {
		return nil, fmt.Errorf("poolcodec: reserved region [%d,%d) out of bounds for template of length %d",
			reservedOffset, reservedOffset+reserveSize, len(templateBytes))
	}

	out := make([]byte, len(templateBytes))
	copy(out, templateBytes)
	copy(out[reservedOffset:reservedOffset+reserveSize], nonce)
	return out, nil
}

// InjectMinerNonce overwrites bytes[39:43] of templateBytes with the 4-byte
// miner nonce decoded from minerNonceHex, returning a new byte slice of the
// same length.
func InjectMinerNonce(templateBytes []byte, minerNonceHex string) ([]byte, error) {
	nonce, err := hex.DecodeString(minerNonceHex)
	if err != nil {
		return nil, fmt.Errorf("poolcodec: decode miner nonce: %w", err)
	}
	if len(nonce) != 4 {
		return nil, fmt.Errorf("poolcodec: miner nonce must be 4 bytes, got %d", len(nonce))
	}
	if len(templateBytes) < minerNonceOffset+4 {
		return nil, fmt.Errorf("poolcodec: template too short for miner-nonce field")
	}

	out := make([]byte, len(templateBytes))
	copy(out, templateBytes)
	copy(out[minerNonceOffset:minerNonceOffset+4], nonce)
	return out, nil
}

// ValidateTemplate deserializes templateBytes and checks that the miner
// transaction has exactly one output, with exactly one public key on that
// output, equal to poolWallet's decoded key. Returns false (never an error)
// on any parse failure or mismatch, per the codec's failure policy.
func ValidateTemplate(templateBytes []byte, poolWalletKeyHex string) bool {
	block, err := parseBlock(templateBytes)
	if err != nil {
		log.Debugf("validate_template: parse failed: %v", err)
		return false
	}
	if len(block.minerTx.outputs) != 1 {
		log.Warnf("validate_template: expected exactly one miner-tx output, got %d", len(block.minerTx.outputs))
		return false
	}

	wantKey, err := hex.DecodeString(poolWalletKeyHex)
	if err != nil || len(wantKey) != 32 {
		log.Warnf("validate_template: pool wallet key is not a valid 32-byte hex value")
		return false
	}

	gotKey := block.minerTx.outputs[0].key
	for i := range wantKey {
		if gotKey[i] != wantKey[i] {
			log.Warnf("validate_template: miner transaction key does not match pool wallet")
			return false
		}
	}
	return true
}

package poolcodec

import (
	"errors"
	"fmt"

	"github.com/AndesWebDesign/rustpool/poolhash"
)

// This file implements just enough of Monero's binary block/transaction wire
// format to support the Template Codec's two consumers: hashingBlob (needs
// the miner transaction's hash, plus the raw tx_hashes list that already
// follows it in the blob) and validateTemplate (needs the miner
// transaction's single output key). It is grounded on
// original_source/src/algo/hash.rs, which leans on the monero-rs crate's
// Block/Transaction deserializers for the same two operations; this is a
// from-scratch Go decoder of the same wire format, scoped to what those two
// operations need rather than full consensus-level transaction validation.
//
// Supported miner transactions: version 1 (plain hash of the prefix) and
// version 2 with RCTTypeNull signatures (the only RingCT type a coinbase
// transaction ever carries — no prunable data, no real ring signatures).
// A non-coinbase, fully-signed RingCT transaction is never the miner_tx and
// is not decoded here.

var errTruncated = errors.New("poolcodec: truncated monero binary data")

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) remaining() int { return len(r.buf) - r.pos }

func (r *byteReader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, errTruncated
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readBytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, errTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readVarint reads Monero's LEB128-style variable length integer.
func (r *byteReader) readVarint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("poolcodec: varint overflow")
		}
	}
}

// moneroBlock is the decoded shape of a getblocktemplate blob sufficient
// for the codec's needs.
type moneroBlock struct {
	minerTxStart int // offset of miner_tx within the original blob
	minerTxEnd   int // exclusive
	minerTx      moneroTx
	txHashes     [][32]byte
}

type moneroTxOutput struct {
	amount uint64
	key    [32]byte
}

type moneroTx struct {
	version uint64
	outputs []moneroTxOutput
}

// parseBlock decodes blob into a moneroBlock. Failures are reported as an
// error; callers treat any error as "skip this template" without
// propagating further.
func parseBlock(blob []byte) (*moneroBlock, error) {
	r := &byteReader{buf: blob}

	// block_header: major_version, minor_version, timestamp (varints),
	// prev_id (32 bytes), nonce (4 bytes).
	if _, err := r.readVarint(); err != nil { // major_version
		return nil, err
	}
	if _, err := r.readVarint(); err != nil { // minor_version
		return nil, err
	}
	if _, err := r.readVarint(); err != nil { // timestamp
		return nil, err
	}
	if _, err := r.readBytes(32); err != nil { // prev_id
		return nil, err
	}
	if _, err := r.readBytes(4); err != nil { // nonce
		return nil, err
	}

	minerTxStart := r.pos
	tx, err := parseTransaction(r)
	if err != nil {
		return nil, fmt.Errorf("poolcodec: parse miner_tx: %w", err)
	}
	minerTxEnd := r.pos

	txCount, err := r.readVarint()
	if err != nil {
		return nil, fmt.Errorf("poolcodec: read tx_hashes count: %w", err)
	}
	hashes := make([][32]byte, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		raw, err := r.readBytes(32)
		if err != nil {
			return nil, fmt.Errorf("poolcodec: read tx_hash %d: %w", i, err)
		}
		var h [32]byte
		copy(h[:], raw)
		hashes = append(hashes, h)
	}

	return &moneroBlock{
		minerTxStart: minerTxStart,
		minerTxEnd:   minerTxEnd,
		minerTx:      *tx,
		txHashes:     hashes,
	}, nil
}

const (
	txinGenTag     = 0xff
	txinToKeyTag   = 0x02
	txoutToKeyTag  = 0x02
	txoutTaggedKey = 0x06
)

func parseTransaction(r *byteReader) (*moneroTx, error) {
	version, err := r.readVarint()
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if _, err := r.readVarint(); err != nil { // unlock_time
		return nil, fmt.Errorf("read unlock_time: %w", err)
	}

	vinCount, err := r.readVarint()
	if err != nil {
		return nil, fmt.Errorf("read vin count: %w", err)
	}
	for i := uint64(0); i < vinCount; i++ {
		if err := skipTxin(r); err != nil {
			return nil, fmt.Errorf("vin %d: %w", i, err)
		}
	}

	voutCount, err := r.readVarint()
	if err != nil {
		return nil, fmt.Errorf("read vout count: %w", err)
	}
	outputs := make([]moneroTxOutput, 0, voutCount)
	for i := uint64(0); i < voutCount; i++ {
		out, err := parseTxout(r)
		if err != nil {
			return nil, fmt.Errorf("vout %d: %w", i, err)
		}
		outputs = append(outputs, out)
	}

	extraLen, err := r.readVarint()
	if err != nil {
		return nil, fmt.Errorf("read extra length: %w", err)
	}
	if _, err := r.readBytes(int(extraLen)); err != nil {
		return nil, fmt.Errorf("read extra: %w", err)
	}

	if version >= 2 {
		// rct_signatures: a single type byte; RCTTypeNull (0) carries no
		// further base or prunable data, which is always the case for a
		// coinbase transaction.
		rctType, err := r.readByte()
		if err != nil {
			return nil, fmt.Errorf("read rct type: %w", err)
		}
		if rctType != 0 {
			return nil, fmt.Errorf("unsupported rct signature type %d (only RCTTypeNull coinbase supported)", rctType)
		}
	}

	return &moneroTx{version: version, outputs: outputs}, nil
}

func skipTxin(r *byteReader) error {
	tag, err := r.readByte()
	if err != nil {
		return err
	}
	switch tag {
	case txinGenTag:
		if _, err := r.readVarint(); err != nil { // height
			return err
		}
	case txinToKeyTag:
		if _, err := r.readVarint(); err != nil { // amount
			return err
		}
		offsetCount, err := r.readVarint()
		if err != nil {
			return err
		}
		for i := uint64(0); i < offsetCount; i++ {
			if _, err := r.readVarint(); err != nil {
				return err
			}
		}
		if _, err := r.readBytes(32); err != nil { // key_image
			return err
		}
	default:
		return fmt.Errorf("unsupported txin tag 0x%02x", tag)
	}
	return nil
}

func parseTxout(r *byteReader) (moneroTxOutput, error) {
	amount, err := r.readVarint()
	if err != nil {
		return moneroTxOutput{}, err
	}
	tag, err := r.readByte()
	if err != nil {
		return moneroTxOutput{}, err
	}
	var out moneroTxOutput
	out.amount = amount
	switch tag {
	case txoutToKeyTag:
		key, err := r.readBytes(32)
		if err != nil {
			return moneroTxOutput{}, err
		}
		copy(out.key[:], key)
	case txoutTaggedKey:
		key, err := r.readBytes(32)
		if err != nil {
			return moneroTxOutput{}, err
		}
		copy(out.key[:], key)
		if _, err := r.readByte(); err != nil { // view_tag
			return moneroTxOutput{}, err
		}
	default:
		return moneroTxOutput{}, fmt.Errorf("unsupported txout tag 0x%02x", tag)
	}
	return out, nil
}

// minerTxHash computes the transaction hash of the miner_tx that spans
// blob[start:end], following Monero's rule: version 1 transactions hash
// their serialized bytes directly; version >= 2 transactions hash the
// concatenation of (prefix_hash, rct_base_hash, prunable_hash). For a
// RCTTypeNull coinbase, there is no prunable data, so prunable_hash is the
// all-zero hash, and rct_base_hash is the hash of the single type byte.
func minerTxHash(blob []byte, start, end int, version uint64) [32]byte {
	prefixAndMaybeMore := blob[start:end]
	if version < 2 {
		return poolhash.Keccak256(prefixAndMaybeMore)
	}

	// The last byte of the encoded transaction is the rct_signatures type
	// byte (RCTTypeNull, verified during parsing); everything before it is
	// the prefix.
	prefix := prefixAndMaybeMore[:len(prefixAndMaybeMore)-1]
	rctTypeByte := prefixAndMaybeMore[len(prefixAndMaybeMore)-1:]

	prefixHash := poolhash.Keccak256(prefix)
	rctBaseHash := poolhash.Keccak256(rctTypeByte)
	var prunableHash [32]byte // null_hash: RCTTypeNull has no prunable data

	var buf [96]byte
	copy(buf[0:32], prefixHash[:])
	copy(buf[32:64], rctBaseHash[:])
	copy(buf[64:96], prunableHash[:])
	return poolhash.Keccak256(buf[:])
}

//go:build !cgo
// +build !cgo

// Package randomx wraps the RandomX proof-of-work C library. This file is
// the non-cgo stub: it lets the pool build and run its protocol-level logic
// (and tests) on a machine without the RandomX C library installed. It is
// never a substitute for the real hasher in production.
package randomx

// Flags configures RandomX cache/dataset/VM allocation.
type Flags int

const (
	FlagDefault     Flags = 0
	FlagLargePages  Flags = 1 << 0
	FlagHardAES     Flags = 1 << 1
	FlagFullMem     Flags = 1 << 2
	FlagJIT         Flags = 1 << 3
	FlagSecure      Flags = 1 << 4
	FlagArgon2SSSE3 Flags = 1 << 5
	FlagArgon2AVX2  Flags = 1 << 6
)

// Cache is a stub RandomX cache; it stores the seed rather than expanding it.
type Cache struct{ seed []byte }

// NewCache returns a stub cache holding seed.
func NewCache(seed []byte, flags Flags) (*Cache, error) {
	return &Cache{seed: append([]byte(nil), seed...)}, nil
}

// Close is a no-op for the stub cache.
func (c *Cache) Close() {}

// Dataset is a stub RandomX dataset.
type Dataset struct{ cache *Cache }

// NewDataset returns a stub dataset referencing cache.
func NewDataset(cache *Cache, flags Flags) (*Dataset, error) {
	return &Dataset{cache: cache}, nil
}

// Close is a no-op for the stub dataset.
func (d *Dataset) Close() {}

// VM is a stub RandomX virtual machine.
type VM struct {
	cache   *Cache
	dataset *Dataset
}

// NewVM returns a stub VM bound to cache and dataset.
func NewVM(cache *Cache, dataset *Dataset, flags Flags) (*VM, error) {
	return &VM{cache: cache, dataset: dataset}, nil
}

// CalcHash returns a deterministic but non-cryptographic 32-byte value
// derived from input and the cache seed, so stub builds still distinguish
// distinct inputs instead of echoing them back verbatim.
func (vm *VM) CalcHash(input []byte) []byte {
	hash := make([]byte, 32)
	mix := byte(0)
	if vm.cache != nil {
		for _, b := range vm.cache.seed {
			mix ^= b
		}
	}
	for i := range hash {
		if i < len(input) {
			hash[i] = input[i] ^ mix
		} else {
			hash[i] = mix
		}
	}
	return hash
}

// Close is a no-op for the stub VM.
func (vm *VM) Close() {}

// GetFlags returns the default flags for the stub implementation.
func GetFlags() Flags {
	return FlagDefault
}

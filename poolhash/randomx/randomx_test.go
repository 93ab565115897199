//go:build cgo
// +build cgo

package randomx

import (
	"encoding/hex"
	"testing"
)

func TestRandomXBasic(t *testing.T) {
	seed := []byte("rustpool test seed 123")

	cache, err := NewCache(seed, FlagDefault)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cache.Close()

	vm, err := NewVM(cache, nil, FlagDefault)
	if err != nil {
		t.Fatalf("failed to create vm: %v", err)
	}
	defer vm.Close()

	input := []byte("hello rustpool")
	hash := vm.CalcHash(input)

	if len(hash) != 32 {
		t.Errorf("expected hash length 32, got %d", len(hash))
	}

	allZeros := true
	for _, b := range hash {
		if b != 0 {
			allZeros = false
			break
		}
	}
	if allZeros {
		t.Error("hash should not be all zeros")
	}

	t.Logf("randomx hash: %s", hex.EncodeToString(hash))
}

func TestRandomXDeterministic(t *testing.T) {
	seed := []byte("deterministic test")
	input := []byte("test input")

	cache1, err := NewCache(seed, FlagDefault)
	if err != nil {
		t.Fatal(err)
	}
	defer cache1.Close()
	vm1, err := NewVM(cache1, nil, FlagDefault)
	if err != nil {
		t.Fatal(err)
	}
	defer vm1.Close()
	hash1 := vm1.CalcHash(input)

	cache2, err := NewCache(seed, FlagDefault)
	if err != nil {
		t.Fatal(err)
	}
	defer cache2.Close()
	vm2, err := NewVM(cache2, nil, FlagDefault)
	if err != nil {
		t.Fatal(err)
	}
	defer vm2.Close()
	hash2 := vm2.CalcHash(input)

	if hex.EncodeToString(hash1) != hex.EncodeToString(hash2) {
		t.Errorf("hashes should be identical:\n%s\n%s", hex.EncodeToString(hash1), hex.EncodeToString(hash2))
	}
}

func TestRandomXDifferentInputs(t *testing.T) {
	seed := []byte("test seed")

	cache, err := NewCache(seed, FlagDefault)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	vm, err := NewVM(cache, nil, FlagDefault)
	if err != nil {
		t.Fatal(err)
	}
	defer vm.Close()

	hash1 := vm.CalcHash([]byte("input1"))
	hash2 := vm.CalcHash([]byte("input2"))

	if hex.EncodeToString(hash1) == hex.EncodeToString(hash2) {
		t.Error("different inputs should produce different hashes")
	}
}

func TestDetection(t *testing.T) {
	if !IsRealImplementation() {
		t.Error("expected real RandomX implementation with cgo enabled")
	}
	t.Logf("implementation: %s", GetImplementationInfo())
}

package randomx

import (
	"fmt"
	"runtime"
)

// IsRealImplementation reports whether the CGO-backed RandomX is linked in,
// as opposed to the development stub.
func IsRealImplementation() bool {
	cache, err := NewCache([]byte("rustpool-detect"), FlagDefault)
	if err != nil {
		return false
	}
	defer cache.Close()

	vm, err := NewVM(cache, nil, FlagDefault)
	if err != nil {
		return false
	}
	defer vm.Close()

	hash := vm.CalcHash([]byte("rustpool-detect"))
	if len(hash) != 32 {
		return false
	}

	// The stub's CalcHash is a reversible XOR of the input; the real
	// implementation's output has no such relationship to the input.
	probe := []byte("rustpool-detect")
	looksStubbed := true
	mix := hash[0] ^ probe[0]
	for i := range probe {
		if hash[i]^probe[i] != mix {
			looksStubbed = false
			break
		}
	}
	return !looksStubbed
}

// GetImplementationInfo describes the active RandomX implementation.
func GetImplementationInfo() string {
	if IsRealImplementation() {
		return fmt.Sprintf("RandomX (flags: 0x%x, arch: %s)", GetFlags(), runtime.GOARCH)
	}
	return "RandomX stub (development only, not suitable for production shares)"
}

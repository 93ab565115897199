package poolhash

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/AndesWebDesign/rustpool/poolhash/randomx"
)

// RandomXFlags selects the runtime behavior of the RandomX hasher. Full
// memory mode builds the ~2GB dataset for faster hashing at the cost of
// the multi-minute dataset build; large pages and the secure-JIT flag are
// passed straight through to the C library.
type RandomXFlags struct {
	FullMemory  bool
	LargePages  bool
	SecureFlag  bool
}

func (f RandomXFlags) toNative() randomx.Flags {
	flags := randomx.FlagDefault
	if f.FullMemory {
		flags |= randomx.FlagFullMem
	}
	if f.LargePages {
		flags |= randomx.FlagLargePages
	}
	if f.SecureFlag {
		flags |= randomx.FlagSecure
	}
	return flags
}

// seedEntry bundles a cache/dataset/VM triple for one seed. CalcHash must
// be serialized per VM (the underlying C VM is not safe for concurrent
// use), hence the per-entry mutex.
type seedEntry struct {
	mu      sync.Mutex
	seed    string
	cache   *randomx.Cache
	dataset *randomx.Dataset
	vm      *randomx.VM
}

func (e *seedEntry) close() {
	if e.vm != nil {
		e.vm.Close()
	}
	if e.dataset != nil {
		e.dataset.Close()
	}
	if e.cache != nil {
		e.cache.Close()
	}
}

// SeedCache caches initialized RandomX VMs keyed by seed hash:
// cache+dataset initialization is expensive (hundreds of MB and seconds
// of work), and a fresh RandomX epoch only changes the seed every so
// often. This corrects original_source/src/algo/randomx.rs's
// get_rx_hash, which builds a fresh cache and VM on every call.
//
// At most two seeds are kept live at once (the current epoch and the one
// about to roll over); a third distinct seed evicts the oldest entry.
type SeedCache struct {
	flags RandomXFlags

	mu      sync.Mutex
	entries []*seedEntry // ordered oldest-first, length <= 2
}

// NewSeedCache returns an empty cache configured with flags.
func NewSeedCache(flags RandomXFlags) *SeedCache {
	return &SeedCache{flags: flags}
}

// Close releases every cached VM/dataset/cache.
func (sc *SeedCache) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, e := range sc.entries {
		e.close()
	}
	sc.entries = nil
}

func (sc *SeedCache) entryFor(seedHex string) (*seedEntry, error) {
	sc.mu.Lock()
	for _, e := range sc.entries {
		if e.seed == seedHex {
			sc.mu.Unlock()
			return e, nil
		}
	}
	sc.mu.Unlock()

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("poolhash: decode seed: %w", err)
	}

	nativeFlags := sc.flags.toNative()
	cache, err := randomx.NewCache(seed, nativeFlags)
	if err != nil {
		return nil, fmt.Errorf("poolhash: new cache: %w", err)
	}

	var dataset *randomx.Dataset
	if sc.flags.FullMemory {
		dataset, err = randomx.NewDataset(cache, nativeFlags)
		if err != nil {
			cache.Close()
			return nil, fmt.Errorf("poolhash: new dataset: %w", err)
		}
	}

	vm, err := randomx.NewVM(cache, dataset, nativeFlags)
	if err != nil {
		if dataset != nil {
			dataset.Close()
		}
		cache.Close()
		return nil, fmt.Errorf("poolhash: new vm: %w", err)
	}

	entry := &seedEntry{seed: seedHex, cache: cache, dataset: dataset, vm: vm}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, e := range sc.entries {
		if e.seed == seedHex {
			// Lost the race to build this seed; drop ours, reuse theirs.
			entry.close()
			return e, nil
		}
	}
	if len(sc.entries) >= 2 {
		evicted := sc.entries[0]
		sc.entries = sc.entries[1:]
		evicted.close()
	}
	sc.entries = append(sc.entries, entry)
	return entry, nil
}

// RandomXHash computes the RandomX hash of input against the VM cached for
// seedHex, building and caching that VM if this is the first use of the
// seed.
func (sc *SeedCache) RandomXHash(input []byte, seedHex string) ([]byte, error) {
	entry, err := sc.entryFor(seedHex)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	hash := entry.vm.CalcHash(input)
	if hash == nil {
		return nil, fmt.Errorf("poolhash: randomx hash failed for seed %s", seedHex)
	}
	return hash, nil
}

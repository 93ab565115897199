//go:build cgo
// +build cgo

// Package randomx wraps the RandomX proof-of-work C library. It is adapted
// from the Shell node's mining/randomx CGO bindings: the wrapper types
// (Cache/Dataset/VM/Flags) model the upstream RandomX C API directly, and
// NewCache/NewDataset/NewVM take the Flags to use as an explicit
// parameter; poolhash layers the per-seed VM cache on top.
package randomx

/*
#cgo CFLAGS: -I../../../third_party/randomx/src
#cgo LDFLAGS: -L../../../third_party/randomx/build -lrandomx -lstdc++ -lm
#cgo darwin LDFLAGS: -framework IOKit

#include "randomx_wrapper.h"
#include <stdlib.h>
*/
import "C"
import (
	"errors"
	"runtime"
	"sync"
	"unsafe"
)

// Flags configures RandomX cache/dataset/VM allocation.
type Flags int

const (
	FlagDefault     Flags = C.RANDOMX_FLAG_DEFAULT
	FlagLargePages  Flags = C.RANDOMX_FLAG_LARGE_PAGES
	FlagHardAES     Flags = C.RANDOMX_FLAG_HARD_AES
	FlagFullMem     Flags = C.RANDOMX_FLAG_FULL_MEM
	FlagJIT         Flags = C.RANDOMX_FLAG_JIT
	FlagSecure      Flags = C.RANDOMX_FLAG_SECURE
	FlagArgon2SSSE3 Flags = C.RANDOMX_FLAG_ARGON2_SSSE3
	FlagArgon2AVX2  Flags = C.RANDOMX_FLAG_ARGON2_AVX2
)

// RealCache is the CGO-backed RandomX cache.
type RealCache struct {
	ptr  *C.randomx_cache
	mu   sync.Mutex
	seed []byte
}

// NewCache allocates and initializes a RandomX cache from seed using flags.
func NewCache(seed []byte, flags Flags) (*Cache, error) {
	if len(seed) == 0 {
		return nil, errors.New("randomx: empty seed")
	}

	cachePtr := C.randomx_alloc_cache(C.randomx_flags(flags))
	if cachePtr == nil {
		return nil, errors.New("randomx: failed to allocate cache")
	}

	seedPtr := C.CBytes(seed)
	defer C.free(seedPtr)
	C.randomx_init_cache(cachePtr, seedPtr, C.size_t(len(seed)))

	realCache := &RealCache{
		ptr:  cachePtr,
		seed: append([]byte(nil), seed...),
	}
	runtime.SetFinalizer(realCache, (*RealCache).finalize)

	return &Cache{impl: realCache}, nil
}

func (c *RealCache) finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ptr != nil {
		C.randomx_release_cache(c.ptr)
		c.ptr = nil
	}
}

// RealDataset is the CGO-backed RandomX full dataset (full-memory mode).
type RealDataset struct {
	ptr *C.randomx_dataset
	mu  sync.Mutex
}

// NewDataset builds a full dataset from an initialized cache.
func NewDataset(cache *Cache, flags Flags) (*Dataset, error) {
	if cache == nil || cache.impl == nil {
		return nil, errors.New("randomx: nil cache")
	}
	realCache := cache.impl.(*RealCache)

	datasetPtr := C.randomx_alloc_dataset(C.randomx_flags(flags))
	if datasetPtr == nil {
		return nil, errors.New("randomx: failed to allocate dataset")
	}

	itemCount := C.randomx_dataset_item_count()
	C.randomx_init_dataset(datasetPtr, realCache.ptr, 0, itemCount)

	realDataset := &RealDataset{ptr: datasetPtr}
	runtime.SetFinalizer(realDataset, (*RealDataset).finalize)

	return &Dataset{impl: realDataset}, nil
}

func (d *RealDataset) finalize() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ptr != nil {
		C.randomx_release_dataset(d.ptr)
		d.ptr = nil
	}
}

// RealVM is the CGO-backed RandomX virtual machine. Not safe for concurrent
// CalcHash calls from multiple goroutines; callers must serialize per VM
// (poolhash's seed cache does this with a per-entry mutex).
type RealVM struct {
	ptr     *C.randomx_vm
	cache   *RealCache
	dataset *RealDataset
}

// NewVM creates a VM bound to cache (and, in full-memory mode, dataset).
func NewVM(cache *Cache, dataset *Dataset, flags Flags) (*VM, error) {
	if cache == nil || cache.impl == nil {
		return nil, errors.New("randomx: nil cache")
	}
	realCache := cache.impl.(*RealCache)

	var realDataset *RealDataset
	var datasetPtr *C.randomx_dataset
	if dataset != nil && dataset.impl != nil {
		realDataset = dataset.impl.(*RealDataset)
		datasetPtr = realDataset.ptr
	}

	vmPtr := C.randomx_create_vm(C.randomx_flags(flags), realCache.ptr, datasetPtr)
	if vmPtr == nil {
		return nil, errors.New("randomx: failed to create vm")
	}

	realVM := &RealVM{ptr: vmPtr, cache: realCache, dataset: realDataset}
	runtime.SetFinalizer(realVM, (*RealVM).finalize)

	return &VM{impl: realVM}, nil
}

// CalcHash computes the 32-byte RandomX hash of input.
func (vm *VM) CalcHash(input []byte) []byte {
	if vm == nil || vm.impl == nil || len(input) == 0 {
		return nil
	}
	realVM := vm.impl.(*RealVM)

	output := make([]byte, 32)
	inputPtr := C.CBytes(input)
	defer C.free(inputPtr)

	C.randomx_calculate_hash(realVM.ptr, inputPtr, C.size_t(len(input)), unsafe.Pointer(&output[0]))
	return output
}

func (vm *RealVM) finalize() {
	if vm.ptr != nil {
		C.randomx_destroy_vm(vm.ptr)
		vm.ptr = nil
	}
}

// GetFlags returns the RandomX flags recommended for the current CPU.
func GetFlags() Flags {
	return Flags(C.randomx_get_flags())
}

// Cache, Dataset and VM wrap the CGO-backed implementations behind a
// pointer-free interface so the !cgo stub build can satisfy the same API.
type Cache struct{ impl interface{} }
type Dataset struct{ impl interface{} }
type VM struct{ impl interface{} }

func (c *Cache) Close() {
	if c == nil || c.impl == nil {
		return
	}
	if rc, ok := c.impl.(*RealCache); ok {
		rc.finalize()
	}
}

func (d *Dataset) Close() {
	if d == nil || d.impl == nil {
		return
	}
	if rd, ok := d.impl.(*RealDataset); ok {
		rd.finalize()
	}
}

func (vm *VM) Close() {
	if vm == nil || vm.impl == nil {
		return
	}
	if rv, ok := vm.impl.(*RealVM); ok {
		rv.finalize()
	}
}

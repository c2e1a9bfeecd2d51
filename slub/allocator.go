package slub

import "fmt"
import "unsafe"

import s "github.com/prataprc/gosettings"

import "github.com/bnclabs/goslub/api"

// Allocator dispatches arbitrary sized allocations over nine
// size-class caches, 8 through 2048 bytes in powers of 2, and routes
// anything bigger through the large-object path. Implements
// api.Mallocer{}.
type Allocator struct {
	caches    [api.Numclasses]*Cache
	slabbytes int64
	provider  api.PageProvider

	// large-object accounting
	biglive  map[uintptr]int64 // provider base -> pages
	bigpages int64

	setts     s.Settings
	logprefix string
}

// NewAllocator construct an allocator with one cache per size class.
func NewAllocator(name string, setts s.Settings) *Allocator {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	mallocer := &Allocator{
		slabbytes: api.Slabbytes,
		provider:  pageprovider,
		biglive:   make(map[uintptr]int64),
		setts:     setts,
	}
	mallocer.logprefix = fmt.Sprintf("SLUB [%s]", name)
	size := int64(8)
	for i := 0; i < api.Numclasses; i++ {
		mallocer.caches[i] = NewCache(size, size, setts)
		size <<= 1
	}
	infof("%v started with %v size classes, 8..%v bytes\n",
		mallocer.logprefix, api.Numclasses, api.Maxclassize)
	return mallocer
}

// classindex smallest class i with 8*2^i >= n, requests under 8
// bytes, zero included, land in the first class.
func classindex(n int64) int {
	if n < 8 {
		n = 8
	}
	x, i := int64(8), 0
	for x < n {
		x <<= 1
		i++
	}
	return i
}

//---- operations

// Alloc implement api.Mallocer{} interface.
func (mallocer *Allocator) Alloc(n int64) unsafe.Pointer {
	if mallocer.provider == nil {
		panicerr("%v released", mallocer.logprefix)
	}
	if n > api.Maxclassize {
		return mallocer.bigalloc(n)
	}
	return mallocer.caches[classindex(n)].Allocchunk()
}

// Free implement api.Mallocer{} interface. Large pointers are
// recognized by the header magic just before the user address,
// anything else is treated as a slab pointer and returned to the
// owning cache.
func (mallocer *Allocator) Free(ptr unsafe.Pointer) {
	if mallocer.provider == nil {
		panicerr("%v released", mallocer.logprefix)
	} else if ptr == nil {
		errorf("%v free of nil pointer\n", mallocer.logprefix)
		return
	}
	if hdr := bigheaderof(ptr); hdr.magic == api.Bigmagic {
		mallocer.bigfree(hdr)
		return
	}
	slab := slabof(ptr, mallocer.slabbytes)
	if slab.owner == nil {
		panicerr("%v free of foreign pointer %p", mallocer.logprefix, ptr)
	}
	slab.owner.Free(ptr)
}

// FreeSized implement api.Mallocer{} interface. Routes by size alone.
func (mallocer *Allocator) FreeSized(ptr unsafe.Pointer, n int64) {
	if mallocer.provider == nil {
		panicerr("%v released", mallocer.logprefix)
	} else if ptr == nil {
		errorf("%v free of nil pointer\n", mallocer.logprefix)
		return
	}
	if n > api.Maxclassize {
		mallocer.bigfreesized(ptr, n)
		return
	}
	mallocer.caches[classindex(n)].Free(ptr)
}

// Release implement api.Mallocer{} interface. Returns every slab and
// every live large block to the page provider. Further use panics.
func (mallocer *Allocator) Release() {
	if mallocer.provider == nil {
		panicerr("%v already released", mallocer.logprefix)
	}
	for _, cache := range mallocer.caches {
		cache.Release()
	}
	for base, pages := range mallocer.biglive {
		mallocer.provider.FreePages(unsafe.Pointer(base), pages)
	}
	mallocer.biglive, mallocer.bigpages = nil, 0
	mallocer.provider = nil
	infof("%v released\n", mallocer.logprefix)
}

//---- statistics and maintenance

// Classes implement api.Mallocer{} interface.
func (mallocer *Allocator) Classes() []int64 {
	sizes := make([]int64, 0, api.Numclasses)
	for _, cache := range mallocer.caches {
		sizes = append(sizes, cache.Objsize())
	}
	return sizes
}

// Info implement api.Mallocer{} interface.
func (mallocer *Allocator) Info() (capacity, heap, alloc, overhead int64) {
	for _, cache := range mallocer.caches {
		c, h, a, o := cache.Info()
		capacity, heap = capacity+c, heap+h
		alloc, overhead = alloc+a, overhead+o
	}
	heap += mallocer.bigpages * api.Pagesize
	return
}

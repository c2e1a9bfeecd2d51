package slub

import "fmt"
import "unsafe"

import s "github.com/prataprc/gosettings"

import "github.com/bnclabs/goslub/api"
import "github.com/bnclabs/goslub/buddy"
import "github.com/bnclabs/goslub/lib"

const ptrsize = int64(unsafe.Sizeof(uintptr(0)))

var pageprovider api.PageProvider = buddy.Provider{}

// SetPageProvider replace the page provider used by caches and
// allocators constructed after this call. Meant for tests and for
// embedding the engine over a different page-level allocator.
func SetPageProvider(provider api.PageProvider) api.PageProvider {
	old := pageprovider
	pageprovider = provider
	return old
}

// Cache owns every slab of one fixed (object size, object alignment)
// class. Slabs move between the empty, partial and full lists as
// slots are taken and returned, each slab lives in exactly one list
// and its state tag always agrees with its list.
type Cache struct {
	objsize   int64 // rounded up at construction
	objalign  int64 // rounded up at construction
	pages     int64 // provider pages per slab
	slabbytes int64 // pages * api.Pagesize, power of 2
	capacity  int64 // provider memory budget for this cache

	empty   slablist
	partial slablist
	full    slablist

	provider api.PageProvider

	// statistics
	nslabs   int64
	objtotal int64
	objinuse int64

	logprefix string
}

// NewCache construct a cache for one size class.
//
// Alignment is rounded up to at least pointer alignment and to a
// power of 2, object size is rounded up to at least pointer size and
// to a multiple of the alignment, so that slot addresses stay aligned
// and free slots can host the freelist link.
func NewCache(objsize, objalign int64, setts s.Settings) *Cache {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	if objsize <= 0 {
		panicerr("cache object size %v", objsize)
	}
	if objalign < ptrsize {
		objalign = ptrsize
	}
	if !lib.Ispow2(objalign) {
		objalign = lib.Pow2ceil(objalign)
	}
	if objsize < ptrsize {
		objsize = ptrsize
	}
	objsize = int64(lib.AlignUp(uintptr(objsize), uintptr(objalign)))

	pages := setts.Int64("pagesperslab")
	slabbytes := pages * api.Pagesize
	if !lib.Ispow2(slabbytes) {
		panicerr("slab of %v pages is %v bytes, not a power of 2",
			pages, slabbytes)
	}

	cache := &Cache{
		objsize:   objsize,
		objalign:  objalign,
		pages:     pages,
		slabbytes: slabbytes,
		capacity:  setts.Int64("capacity"),
		provider:  pageprovider,
	}
	if cache.Objperslab() == 0 {
		panicerr("object size %v does not fit a %v byte slab",
			objsize, slabbytes)
	}
	cache.logprefix = fmt.Sprintf("SLUB [%v:%v]", objsize, objalign)
	return cache
}

//---- operations

// Allocchunk take one object slot. Donor slab priority is the partial
// slab most recently added to the partial list, then the most recently
// emptied slab,
// then a fresh slab from the page provider. Returns nil, with cache
// state untouched, when the provider is exhausted.
func (cache *Cache) Allocchunk() unsafe.Pointer {
	if cache.provider == nil {
		panicerr("%v released", cache.logprefix)
	}

	var slab *slabheader
	if !cache.partial.empty() {
		slab = cache.partial.back()
	} else if !cache.empty.empty() {
		slab = cache.empty.back()
		cache.topartial(slab)
	} else {
		if slab = cache.newslab(); slab == nil {
			return nil
		}
	}

	if slab.freelist == nil {
		panicerr("%v %v slab with exhausted freelist",
			cache.logprefix, slab.state)
	}
	ptr := slab.popfree()
	slab.inuse++
	cache.objinuse++
	if slab.inuse == slab.total {
		cache.tofull(slab)
	}
	if uintptr(ptr)&uintptr(cache.objalign-1) != 0 {
		panicerr("%v pointer %p not %v byte aligned",
			cache.logprefix, ptr, cache.objalign)
	}
	return ptr
}

// Free return an object slot to its slab. The owning slab is
// recovered by masking the pointer down to the slab boundary, the
// slot is prepended onto the slab's freelist.
func (cache *Cache) Free(ptr unsafe.Pointer) {
	if cache.provider == nil {
		panicerr("%v released", cache.logprefix)
	} else if ptr == nil {
		errorf("%v free of nil pointer\n", cache.logprefix)
		return
	}
	slab := slabof(ptr, cache.slabbytes)
	if slab.owner != cache {
		panicerr("%v free of foreign pointer %p", cache.logprefix, ptr)
	} else if slab.inuse == 0 {
		panicerr("%v free on empty slab %p", cache.logprefix, slab)
	}
	slab.pushfree(ptr)
	slab.inuse--
	cache.objinuse--
	if slab.inuse == 0 {
		cache.toempty(slab)
	} else if slab.inuse == slab.total-1 {
		cache.topartial(slab)
	}
}

// Release every slab, empty, partial and full alike, back to the page
// provider. Outstanding object pointers become dangling. Further use
// of the cache panics.
func (cache *Cache) Release() {
	if cache.provider == nil {
		panicerr("%v already released", cache.logprefix)
	}
	for _, list := range []*slablist{&cache.empty, &cache.partial, &cache.full} {
		slab := list.head
		for slab != nil {
			next := slab.next
			cache.provider.FreePages(unsafe.Pointer(slab), cache.pages)
			slab = next
		}
	}
	cache.empty, cache.partial, cache.full = slablist{}, slablist{}, slablist{}
	cache.nslabs, cache.objtotal, cache.objinuse = 0, 0, 0
	cache.provider = nil
	infof("%v released\n", cache.logprefix)
}

//---- statistics and maintenance

// Objsize effective object size after construction rounding.
func (cache *Cache) Objsize() int64 {
	return cache.objsize
}

// Objalign effective object alignment after construction rounding.
func (cache *Cache) Objalign() int64 {
	return cache.objalign
}

// Objperslab number of object slots carved out of every slab.
func (cache *Cache) Objperslab() int64 {
	first := lib.AlignUp(uintptr(slabheadersize), uintptr(cache.objalign))
	end := uintptr(cache.slabbytes)

	total := int64(0)
	for p := first; p+uintptr(cache.objsize) <= end; p += uintptr(cache.objsize) {
		total++
	}
	return total
}

// Slabcounts current number of slabs in each list.
func (cache *Cache) Slabcounts() (empty, partial, full int64) {
	return cache.empty.size(), cache.partial.size(), cache.full.size()
}

// Objcounts current number of object slots, and how many of them are
// handed out.
func (cache *Cache) Objcounts() (total, inuse int64) {
	return cache.objtotal, cache.objinuse
}

// Info implement memory accounting in the Mallocer shape. capacity is
// the configured budget, heap the provider memory held, alloc the
// bytes handed out to the application, overhead the header and
// padding bytes lost across all slabs.
func (cache *Cache) Info() (capacity, heap, alloc, overhead int64) {
	heap = cache.nslabs * cache.slabbytes
	alloc = cache.objinuse * cache.objsize
	overhead = heap - cache.objtotal*cache.objsize
	return cache.capacity, heap, alloc, overhead
}

//---- local functions

func (cache *Cache) newslab() *slabheader {
	if cache.capacity > 0 {
		if (cache.nslabs+1)*cache.slabbytes > cache.capacity {
			errorf("%v exceeds capacity %v bytes\n",
				cache.logprefix, cache.capacity)
			return nil
		}
	}
	mem := cache.provider.AllocPages(cache.pages)
	if mem == nil {
		return nil
	}
	if uintptr(mem)&uintptr(cache.slabbytes-1) != 0 {
		panicerr("%v slab %p not %v byte aligned",
			cache.logprefix, mem, cache.slabbytes)
	}
	slab := (*slabheader)(mem)
	slab.prev, slab.next, slab.owner = nil, nil, cache
	slab.initfreelist(cache.objsize, cache.objalign, cache.slabbytes)
	slab.state = slabPartial
	cache.partial.pushback(slab)
	cache.nslabs++
	cache.objtotal += int64(slab.total)
	debugf("%v new slab %p with %v slots\n", cache.logprefix, mem, slab.total)
	return slab
}

func (cache *Cache) toempty(slab *slabheader) {
	switch slab.state {
	case slabPartial:
		cache.partial.erase(slab)
	case slabFull:
		cache.full.erase(slab)
	}
	slab.state = slabEmpty
	cache.empty.pushback(slab)
}

func (cache *Cache) topartial(slab *slabheader) {
	switch slab.state {
	case slabEmpty:
		cache.empty.erase(slab)
	case slabFull:
		cache.full.erase(slab)
	}
	slab.state = slabPartial
	cache.partial.pushback(slab)
}

func (cache *Cache) tofull(slab *slabheader) {
	switch slab.state {
	case slabPartial:
		cache.partial.erase(slab)
	case slabEmpty:
		cache.empty.erase(slab)
	}
	slab.state = slabFull
	cache.full.pushback(slab)
}

// validate walk all three lists checking the structural invariants,
// used by tests at quiescent points.
func (cache *Cache) validate() {
	checklist := func(list *slablist, state slabstate) {
		count := int64(0)
		for slab := list.head; slab != nil; slab = slab.next {
			if slab.state != state {
				panicerr("%v slab %p state %v in %v list",
					cache.logprefix, slab, slab.state, state)
			} else if slab.owner != cache {
				panicerr("%v slab %p owned by %p",
					cache.logprefix, slab, slab.owner)
			} else if int64(slab.inuse)+slab.freelen() != int64(slab.total) {
				panicerr("%v slab %p inuse %v freelist %v total %v",
					cache.logprefix, slab, slab.inuse, slab.freelen(),
					slab.total)
			}
			switch state {
			case slabEmpty:
				if slab.inuse != 0 {
					panicerr("%v empty slab %p inuse %v",
						cache.logprefix, slab, slab.inuse)
				}
			case slabPartial:
				if slab.inuse == 0 || slab.inuse >= slab.total {
					panicerr("%v partial slab %p inuse %v of %v",
						cache.logprefix, slab, slab.inuse, slab.total)
				}
			case slabFull:
				if slab.inuse != slab.total {
					panicerr("%v full slab %p inuse %v of %v",
						cache.logprefix, slab, slab.inuse, slab.total)
				}
			}
			count++
		}
		if count != list.size() {
			panicerr("%v list count %v, walked %v",
				cache.logprefix, list.size(), count)
		}
	}
	checklist(&cache.empty, slabEmpty)
	checklist(&cache.partial, slabPartial)
	checklist(&cache.full, slabFull)
}

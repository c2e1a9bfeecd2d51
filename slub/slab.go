package slub

import "unsafe"

import "github.com/bnclabs/goslub/lib"

type slabstate uint32

const (
	slabEmpty slabstate = iota
	slabPartial
	slabFull
)

func (state slabstate) String() string {
	switch state {
	case slabEmpty:
		return "empty"
	case slabPartial:
		return "partial"
	case slabFull:
		return "full"
	}
	return "unknown"
}

// slabheader sits at the base of every slab region, followed by
// padding up to the class alignment and then `total` object slots.
// The header is reinterpreted straight out of provider memory, every
// field is reachable from any object pointer by masking the pointer
// down to the slab boundary.
type slabheader struct {
	prev     *slabheader
	next     *slabheader
	freelist unsafe.Pointer // chain through first word of free slots
	inuse    uint32
	total    uint32
	state    slabstate
	owner    *Cache
}

var slabheadersize = int64(unsafe.Sizeof(slabheader{}))

// slabof recover the owning slab of an object pointer. Valid only for
// pointers handed out by a cache whose slabs are slabbytes long, and
// naturally aligned to slabbytes.
func slabof(ptr unsafe.Pointer, slabbytes int64) *slabheader {
	base := lib.AlignDown(uintptr(ptr), uintptr(slabbytes))
	return (*slabheader)(unsafe.Pointer(base))
}

// initfreelist carve the slot region after the header into a chain of
// free slots, first slot at the head so a fresh slab serves slots in
// address order.
func (slab *slabheader) initfreelist(objsize, objalign, slabbytes int64) {
	base := uintptr(unsafe.Pointer(slab))
	first := lib.AlignUp(base+uintptr(slabheadersize), uintptr(objalign))
	end := base + uintptr(slabbytes)

	total := uint32(0)
	for p := first; p+uintptr(objsize) <= end; p += uintptr(objsize) {
		total++
	}
	slab.total, slab.inuse = total, 0

	var head unsafe.Pointer
	for i := int64(total) - 1; i >= 0; i-- {
		slot := unsafe.Pointer(first + uintptr(i*objsize))
		*(*unsafe.Pointer)(slot) = head
		head = slot
	}
	slab.freelist = head
}

// popfree take the head slot off the freelist. Caller guarantees the
// freelist is non-empty.
func (slab *slabheader) popfree() unsafe.Pointer {
	slot := slab.freelist
	slab.freelist = *(*unsafe.Pointer)(slot)
	return slot
}

// pushfree prepend a slot onto the freelist, LIFO, so the most
// recently freed slot is served next.
func (slab *slabheader) pushfree(ptr unsafe.Pointer) {
	*(*unsafe.Pointer)(ptr) = slab.freelist
	slab.freelist = ptr
}

func (slab *slabheader) freelen() int64 {
	count := int64(0)
	for slot := slab.freelist; slot != nil; slot = *(*unsafe.Pointer)(slot) {
		count++
	}
	return count
}

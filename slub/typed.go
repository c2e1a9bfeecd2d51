package slub

import "fmt"
import "unsafe"

import s "github.com/prataprc/gosettings"

import "github.com/bnclabs/goslub/api"

// Typed allocator for objects of one fixed type. Size and alignment
// are derived from T at construction. Small types are served from a
// private single-class cache, types bigger than Maxclassize go
// straight to the page provider and come back page aligned, no hidden
// header, since the size is known again at release time.
type Typed[T any] struct {
	cache    *Cache // nil for the big path
	pages    int64
	provider api.PageProvider

	// statistics for the big path
	inuse int64

	logprefix string
}

// NewTyped construct a typed allocator for T.
func NewTyped[T any](setts s.Settings) *Typed[T] {
	var zero T
	size := int64(unsafe.Sizeof(zero))
	align := int64(unsafe.Alignof(zero))

	typed := &Typed[T]{provider: pageprovider}
	typed.logprefix = fmt.Sprintf("SLUB [%T]", zero)
	if size > api.Maxclassize {
		typed.pages = (size + api.Pagesize - 1) / api.Pagesize
		return typed
	}
	typed.cache = NewCache(size, align, setts)
	return typed
}

// Alloc an uninitialized object. Returns nil when the page provider
// is exhausted.
func (typed *Typed[T]) Alloc() *T {
	if typed.cache != nil {
		return (*T)(typed.cache.Allocchunk())
	}
	ptr := typed.provider.AllocPages(typed.pages)
	if ptr != nil {
		typed.inuse++
	}
	return (*T)(ptr)
}

// Free an object obtained from Alloc.
func (typed *Typed[T]) Free(ptr *T) {
	if ptr == nil {
		errorf("%v free of nil pointer\n", typed.logprefix)
		return
	}
	if typed.cache != nil {
		typed.cache.Free(unsafe.Pointer(ptr))
		return
	}
	typed.provider.FreePages(unsafe.Pointer(ptr), typed.pages)
	typed.inuse--
}

// Objcounts current number of object slots, and how many of them are
// handed out. On the big path both numbers track live objects.
func (typed *Typed[T]) Objcounts() (total, inuse int64) {
	if typed.cache != nil {
		return typed.cache.Objcounts()
	}
	return typed.inuse, typed.inuse
}

// Release all memory held by the allocator. On the big path live
// objects must already be freed, their pages are not tracked here.
func (typed *Typed[T]) Release() {
	if typed.cache != nil {
		typed.cache.Release()
		typed.cache = nil
		return
	}
	if typed.inuse > 0 {
		errorf("%v released with %v live objects\n",
			typed.logprefix, typed.inuse)
	}
}

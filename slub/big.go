package slub

import "unsafe"

import "github.com/bnclabs/goslub/api"
import "github.com/bnclabs/goslub/lib"

// bigheader sits immediately before the user pointer of every
// large-object allocation. The magic discriminates large pointers
// from slab pointers on size-free release, rawbase remembers the
// provider block, which is not the user address because of header and
// alignment padding.
type bigheader struct {
	magic   uint32
	pages   int64
	rawbase unsafe.Pointer
}

var bigheadersize = int64(unsafe.Sizeof(bigheader{}))

func bigheaderof(ptr unsafe.Pointer) *bigheader {
	return (*bigheader)(unsafe.Pointer(uintptr(ptr) - uintptr(bigheadersize)))
}

// bigpagesfor pages needed to host n user bytes plus the header and
// worst-case alignment padding.
func bigpagesfor(n int64) int64 {
	overhead := bigheadersize + api.Useralign - 1
	return (n + overhead + api.Pagesize - 1) / api.Pagesize
}

func (mallocer *Allocator) bigalloc(n int64) unsafe.Pointer {
	pages := bigpagesfor(n)
	raw := mallocer.provider.AllocPages(pages)
	if raw == nil {
		return nil
	}
	user := lib.AlignUp(
		uintptr(raw)+uintptr(bigheadersize), uintptr(api.Useralign))
	hdr := bigheaderof(unsafe.Pointer(user))
	hdr.magic, hdr.pages, hdr.rawbase = api.Bigmagic, pages, raw

	mallocer.biglive[uintptr(raw)] = pages
	mallocer.bigpages += pages
	debugf("%v big alloc of %v bytes, %v pages\n",
		mallocer.logprefix, n, pages)
	return unsafe.Pointer(user)
}

func (mallocer *Allocator) bigfree(hdr *bigheader) {
	if hdr.rawbase == nil || hdr.pages <= 0 {
		panicerr("%v corrupt big header %p", mallocer.logprefix, hdr)
	}
	raw, pages := hdr.rawbase, hdr.pages
	if _, ok := mallocer.biglive[uintptr(raw)]; !ok {
		panicerr("%v big free of unknown block %p", mallocer.logprefix, raw)
	}
	delete(mallocer.biglive, uintptr(raw))
	mallocer.bigpages -= pages
	mallocer.provider.FreePages(raw, pages)
	debugf("%v big free of %v pages\n", mallocer.logprefix, pages)
}

// bigfreesized release a large block from the user pointer and the
// allocation size alone. The provider block is page aligned and the
// user pointer sits within its first page, masking recovers the base,
// recomputing the page formula recovers the count. No header is read.
func (mallocer *Allocator) bigfreesized(ptr unsafe.Pointer, n int64) {
	raw := unsafe.Pointer(lib.AlignDown(uintptr(ptr), uintptr(api.Pagesize)))
	pages := bigpagesfor(n)
	if _, ok := mallocer.biglive[uintptr(raw)]; !ok {
		panicerr("%v big free of unknown block %p", mallocer.logprefix, raw)
	}
	delete(mallocer.biglive, uintptr(raw))
	mallocer.bigpages -= pages
	mallocer.provider.FreePages(raw, pages)
}

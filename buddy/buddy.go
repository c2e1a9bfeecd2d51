// Package buddy is the page-level allocator backing the slub engine.
// Blocks are obtained from the OS with anonymous mmap, hence always
// zero-filled and page-aligned. Requests are over-mapped and the base
// rounded up so that every block is naturally aligned to the next
// power of 2 >= its size, which is what makes slab recovery by
// masking possible.
//
// Counters and timers kept by this package are process-wide and
// advisory, they exist for benchmark drivers. Functions exported by
// this package are not thread safe.
package buddy

import "time"
import "unsafe"

import "golang.org/x/sys/unix"

import "github.com/bnclabs/goslub/api"
import "github.com/bnclabs/goslub/lib"

type mapping struct {
	mem   []byte // full mmap reservation, released as a whole
	pages int64
}

var mappings = make(map[uintptr]mapping)

// telemetry
var (
	currentpages int64
	totalpages   int64
	nallocs      int64
	nfrees       int64
	alloctime    time.Duration
	freetime     time.Duration
)

// AllocPages return a zero-filled block of pages*Pagesize bytes,
// aligned to the next power of 2 >= the block size. Returns nil if
// pages <= 0 or if the OS refuses the mapping.
func AllocPages(pages int64) unsafe.Pointer {
	begin := time.Now()
	defer func() { alloctime += time.Since(begin); nallocs++ }()

	if pages <= 0 {
		errorf("buddy: alloc of %v pages", pages)
		return nil
	}
	bytes := pages * api.Pagesize
	align := lib.Pow2ceil(bytes)
	// over-map by the alignment so an aligned base always fits.
	mem, err := unix.Mmap(
		-1, 0, int(bytes+align),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		errorf("buddy: mmap %v pages: %v", pages, err)
		return nil
	}
	base := lib.AlignUp(uintptr(unsafe.Pointer(&mem[0])), uintptr(align))
	mappings[base] = mapping{mem: mem, pages: pages}
	currentpages += pages
	totalpages += pages
	return unsafe.Pointer(base)
}

// FreePages release a block previously returned by AllocPages. The
// pages argument shall match the original request.
func FreePages(ptr unsafe.Pointer, pages int64) {
	begin := time.Now()
	defer func() { freetime += time.Since(begin); nfrees++ }()

	m, ok := mappings[uintptr(ptr)]
	if !ok {
		panicerr("buddy: free of foreign pointer %p", ptr)
	} else if m.pages != pages {
		panicerr("buddy: free %v pages, allocated %v", pages, m.pages)
	}
	delete(mappings, uintptr(ptr))
	if err := unix.Munmap(m.mem); err != nil {
		panicerr("buddy: munmap: %v", err)
	}
	currentpages -= pages
}

// Currentpages number of pages currently handed out.
func Currentpages() int64 {
	return currentpages
}

// Totalpages number of pages ever handed out.
func Totalpages() int64 {
	return totalpages
}

// Counts of alloc and free calls since the last reset.
func Counts() (allocs, frees int64) {
	return nallocs, nfrees
}

// Timings accumulated inside AllocPages and FreePages since the last
// reset.
func Timings() (dalloc, dfree time.Duration) {
	return alloctime, freetime
}

// Resettimers zero the call counts and accumulated timings. Page
// counters are left alone.
func Resettimers() {
	nallocs, nfrees = 0, 0
	alloctime, freetime = 0, 0
}

// Provider adapts the package-level allocator to api.PageProvider
// and api.PageTelemetry.
type Provider struct{}

// AllocPages implement api.PageProvider{} interface.
func (p Provider) AllocPages(pages int64) unsafe.Pointer {
	return AllocPages(pages)
}

// FreePages implement api.PageProvider{} interface.
func (p Provider) FreePages(ptr unsafe.Pointer, pages int64) {
	FreePages(ptr, pages)
}

// Currentpages implement api.PageTelemetry{} interface.
func (p Provider) Currentpages() int64 {
	return Currentpages()
}

// Totalpages implement api.PageTelemetry{} interface.
func (p Provider) Totalpages() int64 {
	return Totalpages()
}

// Counts implement api.PageTelemetry{} interface.
func (p Provider) Counts() (allocs, frees int64) {
	return Counts()
}

// Timings implement api.PageTelemetry{} interface.
func (p Provider) Timings() (alloctime, freetime time.Duration) {
	return Timings()
}

// Resettimers implement api.PageTelemetry{} interface.
func (p Provider) Resettimers() {
	Resettimers()
}

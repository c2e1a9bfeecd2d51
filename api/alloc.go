package api

import "time"
import "unsafe"

// Mallocer interface for custom memory management.
type Mallocer interface {
	// Classes allocatable size-class sizes.
	Classes() (sizes []int64)

	// Alloc allocate a chunk of `n` bytes. Requests up to Maxclassize
	// are served from a size-class cache, anything bigger goes through
	// the large-object path. Returns nil when the page provider is
	// exhausted.
	Alloc(n int64) unsafe.Pointer

	// Free chunk without knowing its size. Large-object chunks are
	// recognized by the header magic sitting just before the user
	// pointer, everything else is handed to the owning slab.
	Free(ptr unsafe.Pointer)

	// FreeSized chunk whose allocation size is known to the caller.
	// Routes by size alone, no header is consulted.
	FreeSized(ptr unsafe.Pointer, n int64)

	// Info of memory accounting for this mallocer.
	Info() (capacity, heap, alloc, overhead int64)

	// Release the mallocer, all its slabs and resources.
	Release()
}

// PageProvider contract for the underlying page-level allocator.
// Implementations supply page-multiple blocks naturally aligned so
// that masking a user pointer down to Slabbytes lands on the block
// base.
type PageProvider interface {
	// AllocPages return a block of pages*Pagesize bytes, aligned to
	// the next power of 2 >= the block size. Returns nil on OOM.
	AllocPages(pages int64) unsafe.Pointer

	// FreePages release a block previously returned by AllocPages.
	// `pages` shall match the original request.
	FreePages(ptr unsafe.Pointer, pages int64)
}

// PageTelemetry advisory counters and timers maintained by the page
// provider, consumed by benchmark drivers. Not part of the functional
// contract.
type PageTelemetry interface {
	// Currentpages number of pages currently handed out.
	Currentpages() int64

	// Totalpages number of pages ever handed out.
	Totalpages() int64

	// Counts of alloc and free calls since the last reset.
	Counts() (allocs, frees int64)

	// Timings accumulated in alloc and free calls since the last
	// reset.
	Timings() (alloctime, freetime time.Duration)

	// Resettimers zero the call counts and accumulated timings.
	Resettimers()
}

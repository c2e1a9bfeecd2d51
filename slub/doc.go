// Package slub supplies SLUB-style object allocation for small fixed
// sized objects, with a limited scope:
//
//   - Types and Functions exported by this package are not thread safe.
//   - Memory is obtained from the page provider one slab at a time,
//     where each slab carves out several object slots of same size.
//   - Once a slab is allocated from the provider it is not
//     automatically given back. Slabs are freed only when the cache,
//     or the allocator owning it, is Released.
//   - Free slots within a slab are chained through their own first
//     word, so objects can never be smaller than a pointer.
//   - Object pointers are always aligned to the class alignment.
//
// A Cache owns every slab of one (object size, object alignment)
// class and moves each slab between its empty, partial and full lists
// as slots are taken and returned. An Allocator multiplexes nine
// caches, for classes 8 through 2048 bytes in powers of 2, behind a
// malloc/free shaped interface and routes anything bigger straight to
// the page provider with a hidden header for size-free release.
package slub

// TODO: detect double-free of a slot, needs a per-slot allocation
// bitmap alongside the freelist.

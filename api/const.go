package api

// Pagesize size of a single page supplied by the page provider.
const Pagesize = int64(4096)

// Pagesperslab number of provider pages carved into every small slab.
const Pagesperslab = int64(1)

// Slabbytes size of a small slab region, header included. Must be a
// power of 2, and slabs must be naturally aligned to it so that owner
// recovery by masking works.
const Slabbytes = Pagesize * Pagesperslab

// Useralign alignment guarantee for pointers returned by the
// large-object path.
const Useralign = int64(16)

// Maxclassize largest object size served by a size-class cache.
// Requests beyond this take the large-object path.
const Maxclassize = int64(2048)

// Numclasses number of size classes, 8 * 2^i for i in [0, Numclasses).
const Numclasses = 9

// Bigmagic discriminator stamped into every large-object header.
const Bigmagic = uint32(0x12345678)

package slub

import s "github.com/prataprc/gosettings"

import "github.com/cloudfoundry/gosigar"

import "github.com/bnclabs/goslub/api"

// Slub configurable parameters and default settings.
//
// "pagesperslab" (int64, default: api.Pagesperslab)
//		Number of provider pages carved into every slab. The resulting
//		slab size must come out a power of 2.
//
// "capacity" (int64, default: free RAM)
//		Upper bound, in bytes, on provider memory a single cache may
//		hold. Allocations beyond it fail with a nil return. Zero means
//		unbounded.
func Defaultsettings() s.Settings {
	_, _, free := getsysmem()
	return s.Settings{
		"pagesperslab": api.Pagesperslab,
		"capacity":     int64(free),
	}
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	mem.Get()
	return mem.Total, mem.Used, mem.Free
}

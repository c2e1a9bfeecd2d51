package slub

import humanize "github.com/dustin/go-humanize"

import "github.com/bnclabs/goslub/api"

// Classstats point-in-time accounting for one size class.
type Classstats struct {
	Objsize      int64
	Emptyslabs   int64
	Partialslabs int64
	Fullslabs    int64
	Objectstotal int64
	Objectsinuse int64
}

// Stats point-in-time accounting across the whole allocator.
type Stats struct {
	Memoryusage  int64 // provider bytes held, slabs and big blocks
	Totalslabs   int64
	Emptyslabs   int64
	Partialslabs int64
	Fullslabs    int64
	Objectstotal int64
	Objectsinuse int64
	Bigpages     int64
	Bigblocks    int64
	Classes      []Classstats
}

// Stats gather counts from every size class and the large-object
// accounting.
func (mallocer *Allocator) Stats() Stats {
	stats := Stats{Classes: make([]Classstats, 0, api.Numclasses)}
	for _, cache := range mallocer.caches {
		nempty, npartial, nfull := cache.Slabcounts()
		total, inuse := cache.Objcounts()
		stats.Classes = append(stats.Classes, Classstats{
			Objsize:      cache.Objsize(),
			Emptyslabs:   nempty,
			Partialslabs: npartial,
			Fullslabs:    nfull,
			Objectstotal: total,
			Objectsinuse: inuse,
		})
		stats.Emptyslabs += nempty
		stats.Partialslabs += npartial
		stats.Fullslabs += nfull
		stats.Objectstotal += total
		stats.Objectsinuse += inuse
		stats.Memoryusage += (nempty + npartial + nfull) * cache.slabbytes
	}
	stats.Totalslabs = stats.Emptyslabs + stats.Partialslabs + stats.Fullslabs
	stats.Bigpages = mallocer.bigpages
	stats.Bigblocks = int64(len(mallocer.biglive))
	stats.Memoryusage += stats.Bigpages * api.Pagesize
	return stats
}

// Log current statistics, one line per non-idle size class.
func (mallocer *Allocator) Log() {
	stats := mallocer.Stats()
	fmsg := "%v memory %v in %v slabs, %v big pages\n"
	infof(fmsg, mallocer.logprefix,
		humanize.Bytes(uint64(stats.Memoryusage)),
		humanize.Comma(stats.Totalslabs), humanize.Comma(stats.Bigpages))
	for _, klass := range stats.Classes {
		if klass.Emptyslabs+klass.Partialslabs+klass.Fullslabs == 0 {
			continue
		}
		fmsg := "%v class %v: slabs %v/%v/%v (e/p/f), objects %v of %v\n"
		infof(fmsg, mallocer.logprefix, klass.Objsize,
			klass.Emptyslabs, klass.Partialslabs, klass.Fullslabs,
			humanize.Comma(klass.Objectsinuse),
			humanize.Comma(klass.Objectstotal))
	}
}

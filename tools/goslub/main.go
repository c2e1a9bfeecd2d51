package main

import "flag"
import "fmt"
import "time"
import "unsafe"

import humanize "github.com/dustin/go-humanize"
import "github.com/bnclabs/golog"

import "github.com/bnclabs/goslub/api"
import "github.com/bnclabs/goslub/buddy"
import "github.com/bnclabs/goslub/lib"
import "github.com/bnclabs/goslub/slub"

var options struct {
	runs  int
	scale float64
	log   string
}

func argParse() {
	flag.IntVar(&options.runs, "runs", 10,
		"number of timed runs per workload")
	flag.Float64Var(&options.scale, "scale", 1.0,
		"scale factor on iteration counts")
	flag.StringVar(&options.log, "log", "error",
		"log level for the slub engine")
	flag.Parse()

	setts := map[string]interface{}{"log.level": options.log}
	log.SetLogger(nil, setts)
	slub.LogComponents("slub")
}

func main() {
	argParse()

	fmt.Println("=== SLUB allocator benchmark ===")
	tellbuddy()
	fmt.Println()

	runbenchmark("small (32B)", 32, scaled(500000))
	runbenchmark("medium (256B)", 256, scaled(100000))
	runbenchmark("large (1kB)", 1024, scaled(50000))
	runbenchmark("huge (4kB, big path)", 4096, scaled(10000))

	fmt.Println("final results:")
	tellbuddy()
	fmt.Println("================================")
}

func scaled(iterations int) int {
	return int(float64(iterations) * options.scale)
}

func runbenchmark(name string, size int64, iterations int) {
	fmt.Printf(">>> %v (%v iterations, %v runs)\n",
		name, humanize.Comma(int64(iterations)), options.runs)

	var peak slub.Stats
	alloctimes := &lib.AverageInt64{}
	freetimes := &lib.AverageInt64{}
	pureallocs := &lib.AverageInt64{}
	purefrees := &lib.AverageInt64{}

	for r := 0; r < options.runs; r++ {
		mallocer := slub.NewAllocator("bench", nil)
		ptrs := make([]unsafe.Pointer, iterations)

		// alloc phase, provider time is measured separately and
		// subtracted to isolate the engine cost.
		buddy.Resettimers()
		begin := time.Now()
		for i := 0; i < iterations; i++ {
			ptrs[i] = mallocer.Alloc(size)
		}
		total := time.Since(begin)
		dalloc, _ := buddy.Timings()
		alloctimes.Add(total.Nanoseconds())
		pureallocs.Add((total - dalloc).Nanoseconds() / int64(iterations))

		if r == options.runs-1 {
			peak = mallocer.Stats()
		}

		// free phase
		buddy.Resettimers()
		begin = time.Now()
		for _, ptr := range ptrs {
			mallocer.Free(ptr)
		}
		total = time.Since(begin)
		_, dfree := buddy.Timings()
		freetimes.Add(total.Nanoseconds())
		purefrees.Add((total - dfree).Nanoseconds() / int64(iterations))

		mallocer.Release()
	}

	tellmillis("total alloc time", alloctimes)
	tellnanos("pure slub alloc", pureallocs)
	tellmillis("total free time", freetimes)
	tellnanos("pure slub free", purefrees)

	fmt.Printf("  - peak slub memory        : %v (%v slabs, %v big pages)\n",
		humanize.Bytes(uint64(peak.Memoryusage)),
		humanize.Comma(peak.Totalslabs), humanize.Comma(peak.Bigpages))
	utilization := float64(0)
	if peak.Objectstotal > 0 {
		utilization = float64(peak.Objectsinuse) / float64(peak.Objectstotal) * 100
	}
	fmt.Printf("  - object utilization      : %v / %v (%.2f%%)\n",
		humanize.Comma(peak.Objectsinuse), humanize.Comma(peak.Objectstotal),
		utilization)
	fmt.Println()
}

func tellmillis(label string, av *lib.AverageInt64) {
	fmt.Printf("  - %-24v: [%.3f / %.3f] ms (avg: %.3f, sd: %.3f)\n",
		label, float64(av.Min())/1e6, float64(av.Max())/1e6,
		float64(av.Mean())/1e6, av.SD()/1e6)
}

func tellnanos(label string, av *lib.AverageInt64) {
	fmt.Printf("  - %-24v: [%v / %v] ns/op (avg: %v, sd: %.3f)\n",
		label, av.Min(), av.Max(), av.Mean(), av.SD())
}

func tellbuddy() {
	current, total := buddy.Currentpages(), buddy.Totalpages()
	fmt.Printf("[buddy status] current: %v pages (%v), total ever: %v pages\n",
		current, humanize.Bytes(uint64(current*api.Pagesize)), total)
}

package buddy

import "testing"
import "unsafe"

import "github.com/bnclabs/golog"

import "github.com/bnclabs/goslub/api"
import "github.com/bnclabs/goslub/lib"

func init() {
	setts := map[string]interface{}{
		"log.level": "ignore",
	}
	log.SetLogger(nil, setts)
}

func TestAllocPages(t *testing.T) {
	for _, pages := range []int64{1, 2, 3, 8, 100} {
		mem := AllocPages(pages)
		if mem == nil {
			t.Fatalf("unexpected nil for %v pages", pages)
		}
		align := lib.Pow2ceil(pages * api.Pagesize)
		if uintptr(mem)%uintptr(align) != 0 {
			t.Errorf("%v pages at %p, not %v byte aligned", pages, mem, align)
		}
		// zero-filled
		bytes := pages * api.Pagesize
		for _, off := range []int64{0, bytes / 2, bytes - 1} {
			if x := *(*byte)(unsafe.Pointer(uintptr(mem) + uintptr(off))); x != 0 {
				t.Errorf("expected zero at offset %v, got %x", off, x)
			}
		}
		FreePages(mem, pages)
	}
	if AllocPages(0) != nil {
		t.Errorf("expected nil for zero pages")
	} else if AllocPages(-1) != nil {
		t.Errorf("expected nil for negative pages")
	}
}

func TestPagecounters(t *testing.T) {
	current, total := Currentpages(), Totalpages()
	mem1, mem2 := AllocPages(2), AllocPages(4)
	if x := Currentpages(); x != current+6 {
		t.Errorf("expected %v, got %v", current+6, x)
	} else if x = Totalpages(); x != total+6 {
		t.Errorf("expected %v, got %v", total+6, x)
	}
	FreePages(mem1, 2)
	FreePages(mem2, 4)
	if x := Currentpages(); x != current {
		t.Errorf("expected %v, got %v", current, x)
	} else if x = Totalpages(); x != total+6 {
		t.Errorf("expected %v, got %v", total+6, x)
	}
}

func TestTimings(t *testing.T) {
	Resettimers()
	mem := AllocPages(1)
	FreePages(mem, 1)
	allocs, frees := Counts()
	if allocs != 1 || frees != 1 {
		t.Errorf("expected {1 1}, got {%v %v}", allocs, frees)
	}
	dalloc, dfree := Timings()
	if dalloc <= 0 || dfree <= 0 {
		t.Errorf("expected non zero timings, got {%v %v}", dalloc, dfree)
	}
	Resettimers()
	if allocs, frees = Counts(); allocs != 0 || frees != 0 {
		t.Errorf("expected {0 0}, got {%v %v}", allocs, frees)
	}
}

func TestFreeForeign(t *testing.T) {
	var local int64
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on foreign pointer")
		}
	}()
	FreePages(unsafe.Pointer(&local), 1)
}

func TestFreeBadcount(t *testing.T) {
	mem := AllocPages(2)
	defer FreePages(mem, 2)
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on page count mismatch")
		}
	}()
	FreePages(mem, 1)
}

func TestProvider(t *testing.T) {
	var provider interface{} = Provider{}
	if _, ok := provider.(api.PageProvider); !ok {
		t.Errorf("expected api.PageProvider")
	}
	if _, ok := provider.(api.PageTelemetry); !ok {
		t.Errorf("expected api.PageTelemetry")
	}
	p := Provider{}
	mem := p.AllocPages(1)
	if mem == nil {
		t.Fatalf("unexpected nil pointer")
	}
	p.FreePages(mem, 1)
}

func BenchmarkAllocPages(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FreePages(AllocPages(1), 1)
	}
}

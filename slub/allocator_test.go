package slub

import "reflect"
import "testing"
import "unsafe"

import "github.com/bnclabs/goslub/api"

func TestClassindex(t *testing.T) {
	testcases := [][2]int64{
		{0, 0}, {1, 0}, {7, 0}, {8, 0}, {9, 1}, {16, 1}, {17, 2},
		{24, 2}, {64, 3}, {65, 4}, {129, 5}, {512, 6}, {1000, 7},
		{1024, 7}, {1025, 8}, {2048, 8},
	}
	for _, tcase := range testcases {
		if x := classindex(tcase[0]); int64(x) != tcase[1] {
			t.Errorf("classindex(%v) expected %v, got %v",
				tcase[0], tcase[1], x)
		}
	}
}

func TestAllocatorClasses(t *testing.T) {
	mallocer := NewAllocator("classes", nil)
	defer mallocer.Release()

	sizes := mallocer.Classes()
	if len(sizes) != api.Numclasses {
		t.Fatalf("expected %v classes, got %v", api.Numclasses, len(sizes))
	}
	for i, size := range sizes {
		if size != int64(8)<<uint(i) {
			t.Errorf("class %v expected %v, got %v", i, int64(8)<<uint(i), size)
		}
	}
}

func TestAllocatorAllocFree(t *testing.T) {
	mallocer := NewAllocator("allocfree", nil)
	defer mallocer.Release()

	sizes := []int64{1, 8, 24, 64, 777, 1024, 2048, 2049, 4096, 100000}
	ptrs := make([]unsafe.Pointer, 0, len(sizes))
	for _, n := range sizes {
		ptr := mallocer.Alloc(n)
		if ptr == nil {
			t.Fatalf("unexpected nil for %v bytes", n)
		}
		for off := uintptr(0); off < uintptr(n); off++ {
			*(*byte)(unsafe.Pointer(uintptr(ptr) + off)) = 0x5A
		}
		ptrs = append(ptrs, ptr)
	}
	stats := mallocer.Stats()
	if stats.Objectsinuse != 7 {
		t.Errorf("expected %v, got %v", 7, stats.Objectsinuse)
	} else if stats.Bigblocks != 3 {
		t.Errorf("expected %v, got %v", 3, stats.Bigblocks)
	}

	// release through the untagged path, size forgotten.
	for _, ptr := range ptrs {
		mallocer.Free(ptr)
	}
	stats = mallocer.Stats()
	if stats.Objectsinuse != 0 {
		t.Errorf("expected %v, got %v", 0, stats.Objectsinuse)
	} else if stats.Bigblocks != 0 {
		t.Errorf("expected %v, got %v", 0, stats.Bigblocks)
	} else if stats.Bigpages != 0 {
		t.Errorf("expected %v, got %v", 0, stats.Bigpages)
	} else if stats.Partialslabs != 0 || stats.Fullslabs != 0 {
		t.Errorf("expected only empty slabs, got %+v", stats)
	}
}

func TestAllocatorFreeSized(t *testing.T) {
	mallocer := NewAllocator("freesized", nil)
	defer mallocer.Release()

	for _, n := range []int64{8, 100, 2048, 3000, 1 << 20} {
		ptr := mallocer.Alloc(n)
		if ptr == nil {
			t.Fatalf("unexpected nil for %v bytes", n)
		}
		mallocer.FreeSized(ptr, n)
	}
	stats := mallocer.Stats()
	if stats.Objectsinuse != 0 {
		t.Errorf("expected %v, got %v", 0, stats.Objectsinuse)
	} else if stats.Bigblocks != 0 {
		t.Errorf("expected %v, got %v", 0, stats.Bigblocks)
	}
}

func TestAllocatorBig(t *testing.T) {
	mallocer := NewAllocator("big", nil)
	defer mallocer.Release()

	n := int64(4096)
	ptr := mallocer.Alloc(n)
	if ptr == nil {
		t.Fatalf("unexpected nil pointer")
	} else if uintptr(ptr)%uintptr(api.Useralign) != 0 {
		t.Errorf("pointer %p not %v byte aligned", ptr, api.Useralign)
	}
	hdr := bigheaderof(ptr)
	if hdr.magic != api.Bigmagic {
		t.Errorf("expected %x, got %x", api.Bigmagic, hdr.magic)
	} else if hdr.pages != bigpagesfor(n) {
		t.Errorf("expected %v, got %v", bigpagesfor(n), hdr.pages)
	} else if uintptr(hdr.rawbase)%uintptr(api.Pagesize) != 0 {
		t.Errorf("base %p not page aligned", hdr.rawbase)
	}

	_, heap, _, _ := mallocer.Info()
	if x := bigpagesfor(n) * api.Pagesize; heap != x {
		t.Errorf("expected %v, got %v", x, heap)
	}
	mallocer.Free(ptr)
	if _, heap, _, _ = mallocer.Info(); heap != 0 {
		t.Errorf("expected %v, got %v", 0, heap)
	}
}

func TestAllocatorStats(t *testing.T) {
	mallocer := NewAllocator("stats", nil)
	defer mallocer.Release()

	// warm one slab per class, so further churn only moves slots.
	for _, size := range mallocer.Classes() {
		mallocer.Free(mallocer.Alloc(size))
	}
	ref := mallocer.Stats()
	for _, size := range mallocer.Classes() {
		mallocer.Free(mallocer.Alloc(size))
	}
	if stats := mallocer.Stats(); !reflect.DeepEqual(ref, stats) {
		t.Errorf("expected %+v, got %+v", ref, stats)
	}
	if ref.Totalslabs != int64(api.Numclasses) {
		t.Errorf("expected %v, got %v", api.Numclasses, ref.Totalslabs)
	} else if ref.Memoryusage != int64(api.Numclasses)*api.Slabbytes {
		t.Errorf("expected %v, got %v",
			int64(api.Numclasses)*api.Slabbytes, ref.Memoryusage)
	}
}

func TestAllocatorRelease(t *testing.T) {
	mallocer := NewAllocator("release", nil)
	if ptr := mallocer.Alloc(64); ptr == nil {
		t.Fatalf("unexpected nil pointer")
	}
	if ptr := mallocer.Alloc(1 << 16); ptr == nil {
		t.Fatalf("unexpected nil pointer")
	}
	mallocer.Release()

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on use after release")
		}
	}()
	mallocer.Alloc(8)
}

func BenchmarkAllocatorAlloc(b *testing.B) {
	mallocer := NewAllocator("bench", nil)
	defer mallocer.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if mallocer.Alloc(96) == nil {
			b.Fatalf("provider exhausted")
		}
	}
}

func BenchmarkAllocatorAllocFree(b *testing.B) {
	mallocer := NewAllocator("bench", nil)
	defer mallocer.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mallocer.Free(mallocer.Alloc(96))
	}
}

func BenchmarkAllocatorBig(b *testing.B) {
	mallocer := NewAllocator("bench", nil)
	defer mallocer.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr := mallocer.Alloc(1 << 14)
		if ptr == nil {
			b.Fatalf("provider exhausted")
		}
		mallocer.Free(ptr)
	}
}

package pool_test

import (
	"testing"

	"github.com/momentics/taskloop/pool"
)

func TestFreelistReuse(t *testing.T) {
	allocs := 0
	fl := pool.NewFreelist(func() int {
		allocs++
		return allocs
	})

	v := fl.Get()
	if v != 1 || allocs != 1 {
		t.Fatalf("expected fresh alloc, got v=%d allocs=%d", v, allocs)
	}
	fl.Put(v)
	if fl.Len() != 1 {
		t.Fatalf("expected 1 cached item, got %d", fl.Len())
	}

	v2 := fl.Get()
	if v2 != v || allocs != 1 {
		t.Fatalf("expected recycled item without new alloc, got v2=%d allocs=%d", v2, allocs)
	}
}

func TestFreelistTrim(t *testing.T) {
	fl := pool.NewFreelist(func() int { return 0 })
	for i := 0; i < 30; i++ {
		fl.Put(i)
	}
	dropped := fl.Trim(10, 0)
	if dropped == 0 {
		t.Fatal("expected trim to drop entries above floor")
	}
	if fl.Len() < 10 {
		t.Fatalf("trim went below floor: len=%d", fl.Len())
	}

	// Below floor: no-op.
	fl2 := pool.NewFreelist(func() int { return 0 })
	for i := 0; i < 5; i++ {
		fl2.Put(i)
	}
	if d := fl2.Trim(10, 0); d != 0 {
		t.Fatalf("expected no trim below floor, dropped %d", d)
	}

	// liveCount at/above cached count: no-op.
	fl3 := pool.NewFreelist(func() int { return 0 })
	for i := 0; i < 20; i++ {
		fl3.Put(i)
	}
	if d := fl3.Trim(10, 25); d != 0 {
		t.Fatalf("expected no trim when live count exceeds cache, dropped %d", d)
	}
}

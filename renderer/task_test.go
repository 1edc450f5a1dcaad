package renderer

import (
	"testing"

	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/mem"
)

func TestCacheTaskSharedAllocation(t *testing.T) {
	arena := mem.NewArena()
	tileRect := gmath.DeviceRect{X1: 64, Y1: 64}
	size := gmath.DeviceSize{Width: 32, Height: 32}

	root := NewAlphaRenderTask(arena, FixedLocation(tileRect), tileRect)
	root.AddChild(arena, NewCachePrimitiveTask(arena, 0, "shadow", size))
	root.AddChild(arena, NewCachePrimitiveTask(arena, 1, "shadow", size))

	phase := NewRenderPhase(arena, 2,
		gmath.DeviceSize{Width: 64, Height: 64},
		gmath.DeviceSize{Width: 2048, Height: 2048})
	if !phase.AddCompiledTile(NewCompiledScreenTile(arena, root)) {
		t.Fatal("tile did not fit an empty phase")
	}

	if root.ChildLocations[0] != root.ChildLocations[1] {
		t.Errorf("identical cache tasks allocated separately: %v vs %v",
			root.ChildLocations[0], root.ChildLocations[1])
	}
	if got := len(phase.Targets[0].Tasks()); got != 1 {
		t.Errorf("cache renders = %d, want 1", got)
	}
}

func TestCacheAllocationRollback(t *testing.T) {
	arena := mem.NewArena()
	tileRect := gmath.DeviceRect{X1: 64, Y1: 64}
	cacheSize := gmath.DeviceSize{Width: 32, Height: 32}

	phase := NewRenderPhase(arena, 2,
		gmath.DeviceSize{Width: 64, Height: 64},
		gmath.DeviceSize{Width: 48, Height: 48})

	// The first tile registers the cache entry, then fails on a child the
	// 48px page cannot hold.
	big := NewAlphaRenderTask(arena, FixedLocation(tileRect), tileRect)
	big.AddChild(arena, NewCachePrimitiveTask(arena, 0, "shadow", cacheSize))
	big.AddChild(arena, NewAlphaRenderTask(arena,
		DynamicLocation(gmath.DeviceSize{Width: 40, Height: 40}), tileRect))
	if phase.AddCompiledTile(NewCompiledScreenTile(arena, big)) {
		t.Fatal("oversized tile fit a 48px page")
	}

	// After the rollback the cache entry must be gone, or this tile's child
	// would adopt a freed allocation and never render.
	small := NewAlphaRenderTask(arena, FixedLocation(tileRect), tileRect)
	small.AddChild(arena, NewCachePrimitiveTask(arena, 0, "shadow", cacheSize))
	if !phase.AddCompiledTile(NewCompiledScreenTile(arena, small)) {
		t.Fatal("tile did not fit after rollback")
	}
	tasks := phase.Targets[0].Tasks()
	if len(tasks) != 1 {
		t.Fatalf("cache renders = %d, want 1", len(tasks))
	}
	if small.ChildLocations[0] != tasks[0].TargetRect() {
		t.Errorf("parent records %v, task renders at %v",
			small.ChildLocations[0], tasks[0].TargetRect())
	}
}

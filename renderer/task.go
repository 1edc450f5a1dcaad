package renderer

import (
	"fmt"

	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/mem"
	"honnef.co/go/quilt/scene"
)

type RenderTaskKind uint8

const (
	// TaskAlpha renders an ordered list of render items for one tile's
	// opaque-blend scope.
	TaskAlpha RenderTaskKind = iota
	// TaskCachePrimitive pre-renders a single expensive primitive (a blurred
	// box shadow) into an intermediate target for the parent to sample.
	TaskCachePrimitive
)

// RenderTaskLocation says where a task's output lives. Fixed tasks draw
// straight into the framebuffer at Rect. Dynamic tasks know only their Size
// until target allocation assigns them an origin.
type RenderTaskLocation struct {
	Fixed     bool
	Rect      gmath.DeviceRect
	Size      gmath.DeviceSize
	Allocated bool
}

func FixedLocation(rect gmath.DeviceRect) RenderTaskLocation {
	return RenderTaskLocation{Fixed: true, Rect: rect, Allocated: true}
}

func DynamicLocation(size gmath.DeviceSize) RenderTaskLocation {
	return RenderTaskLocation{Size: size}
}

type AlphaRenderItemKind uint8

const (
	ItemPrimitive AlphaRenderItemKind = iota
	ItemBlend
	ItemComposite
)

// AlphaRenderItem is one entry in an alpha task's paint list: a primitive
// from a layer, a blend of a child task, or a composite of two child tasks.
type AlphaRenderItem struct {
	Kind  AlphaRenderItemKind
	Layer scene.StackingContextIndex
	Prim  scene.PrimitiveIndex
	// ChildIndex points into the task's Children: the blended child for
	// ItemBlend, the source child for ItemComposite (whose backdrop is at
	// ChildIndex-1), the cache task for an ItemPrimitive that pre-renders,
	// or -1 for a primitive without one.
	ChildIndex int32
	Opacity    float32
	Mix        gfx.MixBlendMode
}

// RenderTask is a node of the per-tile dependency tree. Children render
// before the task itself; ChildLocations carries their final target
// rectangles once allocation has run, in the same order as Children.
type RenderTask struct {
	Kind           RenderTaskKind
	Location       RenderTaskLocation
	Children       []*RenderTask
	ChildLocations []gmath.DeviceRect

	// ActualRect is the screen-space area the task's output corresponds to.
	ActualRect gmath.DeviceRect
	Items      []AlphaRenderItem

	// CachePrim and CacheKey identify a TaskCachePrimitive; tasks with equal
	// keys render identical pixels and share one allocation per phase.
	// cacheShared marks the tasks that adopted another task's allocation and
	// therefore must not render.
	CachePrim   scene.PrimitiveIndex
	CacheKey    string
	cacheShared bool
}

func NewAlphaRenderTask(arena *mem.Arena, location RenderTaskLocation, actualRect gmath.DeviceRect) *RenderTask {
	return mem.Make(arena, RenderTask{
		Kind:       TaskAlpha,
		Location:   location,
		ActualRect: actualRect,
	})
}

func NewCachePrimitiveTask(arena *mem.Arena, prim scene.PrimitiveIndex, cacheKey string, size gmath.DeviceSize) *RenderTask {
	return mem.Make(arena, RenderTask{
		Kind:      TaskCachePrimitive,
		Location:  DynamicLocation(size),
		CachePrim: prim,
		CacheKey:  cacheKey,
	})
}

func (t *RenderTask) AppendItem(arena *mem.Arena, item AlphaRenderItem) {
	t.Items = mem.Append(arena, t.Items, item)
}

func (t *RenderTask) AddChild(arena *mem.Arena, child *RenderTask) int32 {
	t.Children = mem.Append(arena, t.Children, child)
	return int32(len(t.Children) - 1)
}

// MaxDepth returns the depth of the task tree: 1 for a lone task, one more
// for every level of children below it. A tile needs this many render
// targets.
func (t *RenderTask) MaxDepth() int {
	depth := 1
	for _, child := range t.Children {
		depth = max(depth, 1+child.MaxDepth())
	}
	return depth
}

// TargetRect returns where the task's output lives in its render target.
// Calling it on an unallocated dynamic task is a bug.
func (t *RenderTask) TargetRect() gmath.DeviceRect {
	if t.Location.Fixed {
		return t.Location.Rect
	}
	if !t.Location.Allocated {
		panic("renderer: target rect of unallocated render task")
	}
	return t.Location.Rect
}

// allocIfRequired walks the tree child-first and claims space for every
// dynamic task from the target at its tier: children one target before their
// parent. It reports false as soon as any page is full, leaving partially
// claimed space for the caller to roll back.
func (t *RenderTask) allocIfRequired(targetIndex int, phase *RenderPhase) bool {
	for _, child := range t.Children {
		if !child.allocIfRequired(targetIndex-1, phase) {
			return false
		}
	}

	if t.Location.Fixed || t.Location.Allocated {
		return true
	}

	if t.Kind == TaskCachePrimitive {
		if rect, ok := phase.cachedAllocs.Get(t.CacheKey); ok {
			// An identical task already owns space this phase; share it and
			// skip the render. Registering cached rects here, not at commit
			// time, also catches duplicates within a single tile, so parents
			// record the canonical location for all of them.
			t.Location.Rect = rect
			t.Location.Allocated = true
			t.cacheShared = true
			return true
		}
	}

	target := phase.Targets[targetIndex]
	origin, ok := target.page.Allocate(t.Location.Size)
	if !ok {
		return false
	}
	t.Location.Rect = gmath.DeviceRectFromOriginSize(origin, t.Location.Size)
	t.Location.Allocated = true
	if t.Kind == TaskCachePrimitive {
		phase.cachedAllocs.Insert(phase.arena, t.CacheKey, t.Location.Rect)
		phase.pendingCacheKeys = mem.Append(phase.arena, phase.pendingCacheKeys, t.CacheKey)
	}
	return true
}

// assignToTargets commits an allocated tree: it records every child's target
// rectangle on its parent and hands each task to the target it renders in.
func (t *RenderTask) assignToTargets(targetIndex int, phase *RenderPhase) {
	arena := phase.arena
	for _, child := range t.Children {
		t.ChildLocations = mem.Append(arena, t.ChildLocations, child.TargetRect())
		child.assignToTargets(targetIndex-1, phase)
	}

	lastIndex := len(phase.Targets) - 1
	if t.Location.Fixed != (targetIndex == lastIndex) {
		panic(fmt.Sprintf("renderer: render task tier mismatch: fixed=%t target=%d/%d",
			t.Location.Fixed, targetIndex, lastIndex))
	}

	if t.cacheShared {
		// Deduplicated; the task that owns the allocation renders for all.
		return
	}

	target := phase.Targets[targetIndex]
	target.tasks = mem.Append(arena, target.tasks, t)
}

// resetAllocations clears dynamic origins so a tile can retry in a fresh
// phase after its first phase ran out of space.
func (t *RenderTask) resetAllocations() {
	for _, child := range t.Children {
		child.resetAllocations()
	}
	if !t.Location.Fixed {
		t.Location.Allocated = false
		t.Location.Rect = gmath.DeviceRect{}
	}
	t.cacheShared = false
}

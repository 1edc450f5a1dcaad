package renderer

import (
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/mem"
	"honnef.co/go/quilt/scene"
)

// CompiledScreenTile is one tile's render task tree, ready for target
// allocation. RequiredTargetCount is the tree depth: how many targets the
// phase hosting it must have.
type CompiledScreenTile struct {
	MainTask            *RenderTask
	RequiredTargetCount int
}

func NewCompiledScreenTile(arena *mem.Arena, mainTask *RenderTask) *CompiledScreenTile {
	return mem.Make(arena, CompiledScreenTile{
		MainTask:            mainTask,
		RequiredTargetCount: mainTask.MaxDepth(),
	})
}

// RenderTarget is one texture of a phase. The last target of a phase is the
// framebuffer; every other target is an intermediate page carved up by its
// allocator.
type RenderTarget struct {
	IsFramebuffer bool
	Size          gmath.DeviceSize
	page          *TexturePage
	tasks         []*RenderTask

	// Build output.
	Batchers        []*AlphaBatcher
	CachePrimitives []CachePrimitiveInstance
}

func (t *RenderTarget) Tasks() []*RenderTask {
	return t.tasks
}

// RenderPhase is one composition pass: an ordered list of targets rendered
// first to last, with intermediate results consumed by later targets and the
// framebuffer coming last.
type RenderPhase struct {
	Targets []*RenderTarget

	arena        *mem.Arena
	cachedAllocs mem.OrderedMap[string, gmath.DeviceRect]
	// pendingCacheKeys are the cache entries registered by the tile currently
	// being placed, removed again if that tile rolls back.
	pendingCacheKeys []string
}

// NewRenderPhase creates a phase with targetCount targets: targetCount-1
// intermediate pages of pageSize plus the framebuffer.
func NewRenderPhase(arena *mem.Arena, targetCount int, framebufferSize, pageSize gmath.DeviceSize) *RenderPhase {
	phase := mem.Make(arena, RenderPhase{arena: arena})
	for i := 0; i < targetCount-1; i++ {
		phase.Targets = mem.Append(arena, phase.Targets, mem.Make(arena, RenderTarget{
			Size: pageSize,
			page: NewTexturePage(pageSize),
		}))
	}
	phase.Targets = mem.Append(arena, phase.Targets, mem.Make(arena, RenderTarget{
		IsFramebuffer: true,
		Size:          framebufferSize,
	}))
	return phase
}

// AddCompiledTile tries to place the tile's whole task tree into this phase.
// Placement is atomic: either every dynamic task gets space and the tree is
// committed to the targets, or the phase's allocators are restored to their
// prior state and false is returned so the caller can start a new phase.
func (p *RenderPhase) AddCompiledTile(tile *CompiledScreenTile) bool {
	if tile.RequiredTargetCount > len(p.Targets) {
		return false
	}

	snapshots := make([]PageSnapshot, len(p.Targets)-1)
	for i, target := range p.Targets[:len(p.Targets)-1] {
		snapshots[i] = target.page.Snapshot()
	}
	p.pendingCacheKeys = p.pendingCacheKeys[:0]

	if !tile.MainTask.allocIfRequired(len(p.Targets)-1, p) {
		for i, target := range p.Targets[:len(p.Targets)-1] {
			target.page.Restore(snapshots[i])
		}
		for _, key := range p.pendingCacheKeys {
			p.cachedAllocs.Delete(key)
		}
		tile.MainTask.resetAllocations()
		return false
	}

	tile.MainTask.assignToTargets(len(p.Targets)-1, p)
	return true
}

// Build batches every target's tasks. Called once per phase, after all tiles
// are placed.
func (p *RenderPhase) Build(ctx *BuildContext) {
	for _, target := range p.Targets {
		target.build(ctx)
	}
}

func (t *RenderTarget) build(ctx *BuildContext) {
	var batcher *AlphaBatcher
	for _, task := range t.tasks {
		switch task.Kind {
		case TaskCachePrimitive:
			t.CachePrimitives = append(t.CachePrimitives, CachePrimitiveInstance{
				GlobalPrimIndex: int32(task.CachePrim),
				TargetRect:      task.TargetRect(),
			})
		case TaskAlpha:
			if batcher == nil {
				batcher = NewAlphaBatcher(ctx)
				t.Batchers = append(t.Batchers, batcher)
			}
			if !batcher.AddTask(ctx, task) {
				batcher = NewAlphaBatcher(ctx)
				t.Batchers = append(t.Batchers, batcher)
				if !batcher.AddTask(ctx, task) {
					// A single task that overflows a fresh batcher would
					// need more uniform slots than the configured maxima.
					panic("renderer: render task exceeds uniform shard capacity")
				}
			}
		}
	}
	for _, b := range t.Batchers {
		b.build(ctx)
	}
}

// CachePrimitiveInstance asks the backend to pre-render one primitive into
// TargetRect of an intermediate target.
type CachePrimitiveInstance struct {
	GlobalPrimIndex int32
	TargetRect      gmath.DeviceRect
}

// BuildContext is the read-only frame state batching needs.
type BuildContext struct {
	Store            *scene.Store
	Aux              *scene.AuxiliaryLists
	Layers           []scene.StackingContext
	PackedLayers     []PackedLayer
	Arena            *mem.Arena
	DevicePixelRatio float32

	// Uniform shard capacities; a batch group never references more layers
	// or tiles than this.
	MaxPrimLayers int
	MaxPrimTiles  int
}

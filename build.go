package quilt

import (
	"cmp"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/mem"
	"honnef.co/go/quilt/renderer"
	"honnef.co/go/quilt/rescache"
	"honnef.co/go/quilt/scene"
)

// Build compiles the accumulated display list into a frame. It can be called
// repeatedly with changing scroll state; the display list itself stays
// untouched, all per-frame state is recomputed.
func (fb *FrameBuilder) Build(cache rescache.Cache, frameID rescache.FrameID, scrollNodes map[scene.ScrollLayerID]ScrollNode) *renderer.Frame {
	if len(fb.layerStack) != 0 {
		panic(fmt.Sprintf("quilt: Build with %d open stacking contexts", len(fb.layerStack)))
	}

	fb.arena.Reset()
	for _, a := range fb.workerArenas {
		a.Reset()
	}

	frame := &renderer.Frame{
		ViewportSize:     fb.viewportSize,
		DevicePixelRatio: fb.devicePixelRatio,
		BackgroundColor:  fb.backgroundColor.unwrapOr(gfx.ColorF{R: 1, G: 1, B: 1, A: 1}),
		CacheSize: gmath.DeviceSize{
			Width:  fb.config.TargetPageSize,
			Height: fb.config.TargetPageSize,
		},
	}

	fb.updateScrollBars(scrollNodes)

	resourceList := rescache.NewResourceList(fb.arena)
	fb.cullLayers(resourceList, scrollNodes, &frame.Profile)

	if cache != nil {
		cache.RequestResources(resourceList, frameID)
	}
	for _, idx := range fb.primsToPrepare {
		fb.store.PrepareForRender(idx, cache, &fb.aux, fb.devicePixelRatio)
	}

	tiles, xCount, yCount := fb.createScreenTiles()
	fb.assignPrimsToScreenTiles(tiles, xCount, yCount)
	frame.Profile.TotalTiles = len(tiles)

	compiled := fb.compileTiles(tiles)

	for i := range tiles {
		tile := &tiles[i]
		if compiled[i] == nil {
			frame.ClearTiles = append(frame.ClearTiles, renderer.ClearTile{Rect: tile.Rect})
			continue
		}
		frame.Profile.CompiledTiles++
		if fb.config.DebugTiles {
			c := gfx.ColorF{R: 0, G: 1, B: 0, A: 1}
			if !tile.isSimple {
				c = gfx.ColorF{R: 1, G: 0, B: 0, A: 1}
			}
			frame.DebugRects = append(frame.DebugRects, renderer.DebugRect{
				Label: fmt.Sprintf("%d", compiled[i].RequiredTargetCount),
				Color: c,
				Rect:  tile.Rect,
			})
		}
	}
	frame.Profile.ClearTilesCount = len(frame.ClearTiles)

	frame.Phases = fb.buildPhases(compiled)
	frame.Profile.PhaseCount = len(frame.Phases)
	for _, phase := range frame.Phases {
		frame.Profile.TargetCount += len(phase.Targets)
	}

	frame.PackedLayers = fb.packedLayers
	frame.Clips = fb.store.Clips
	return frame
}

// compileTiles compiles every screen tile, spreading the work over one
// goroutine per CPU. Task trees live in per-worker arenas because arenas are
// not safe for concurrent use.
func (fb *FrameBuilder) compileTiles(tiles []ScreenTile) []*renderer.CompiledScreenTile {
	workers := min(runtime.GOMAXPROCS(0), len(tiles))
	if workers <= 0 {
		workers = 1
	}
	for len(fb.workerArenas) < workers {
		fb.workerArenas = append(fb.workerArenas, mem.NewArena())
	}

	compiled := make([]*renderer.CompiledScreenTile, len(tiles))
	if workers == 1 {
		for i := range tiles {
			compiled[i] = tiles[i].Compile(fb.arena, &fb.store, fb.layers, fb.devicePixelRatio)
		}
		return compiled
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			arena := fb.workerArenas[w]
			for i := w; i < len(tiles); i += workers {
				compiled[i] = tiles[i].Compile(arena, &fb.store, fb.layers, fb.devicePixelRatio)
			}
		}(w)
	}
	wg.Wait()
	return compiled
}

// buildPhases packs compiled tiles into render phases. Tiles needing the
// deepest target chains go first so each phase is created with as many
// targets as its tiles can use; tiles that don't fit a phase's pages retry
// in the next one.
func (fb *FrameBuilder) buildPhases(compiled []*renderer.CompiledScreenTile) []*renderer.RenderPhase {
	remaining := make([]*renderer.CompiledScreenTile, 0, len(compiled))
	for _, tile := range compiled {
		if tile != nil {
			remaining = append(remaining, tile)
		}
	}
	slices.SortStableFunc(remaining, func(a, b *renderer.CompiledScreenTile) int {
		return cmp.Compare(b.RequiredTargetCount, a.RequiredTargetCount)
	})

	pageSize := gmath.DeviceSize{
		Width:  fb.config.TargetPageSize,
		Height: fb.config.TargetPageSize,
	}

	ctx := &renderer.BuildContext{
		Store:            &fb.store,
		Aux:              &fb.aux,
		Layers:           fb.layers,
		PackedLayers:     fb.packedLayers,
		Arena:            fb.arena,
		DevicePixelRatio: fb.devicePixelRatio,
		MaxPrimLayers:    fb.config.MaxPrimLayers,
		MaxPrimTiles:     fb.config.MaxPrimTiles,
	}

	var phases []*renderer.RenderPhase
	for len(remaining) > 0 {
		phase := renderer.NewRenderPhase(fb.arena, remaining[0].RequiredTargetCount, fb.viewportSize, pageSize)
		var deferred []*renderer.CompiledScreenTile
		for _, tile := range remaining {
			if !phase.AddCompiledTile(tile) {
				deferred = append(deferred, tile)
			}
		}
		if len(deferred) == len(remaining) {
			// The deepest remaining tile failed in a phase built for it, so
			// no later phase can fit it either.
			panic("quilt: render task tree does not fit an empty target page")
		}
		phase.Build(ctx)
		phases = append(phases, phase)
		remaining = deferred
	}
	return phases
}

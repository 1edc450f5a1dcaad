package quilt

import (
	"math"

	"honnef.co/go/safeish"

	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/mem"
	"honnef.co/go/quilt/renderer"
	"honnef.co/go/quilt/scene"
)

type tileCmdKind uint8

const (
	tileCmdPushLayer tileCmdKind = iota
	tileCmdDrawPrimitive
	tileCmdPopLayer
)

type tileCmd struct {
	kind tileCmdKind
	sc   scene.StackingContextIndex
	prim scene.PrimitiveIndex
}

// ScreenTile is one cell of the screen grid with its slice of the display
// list: the layer pushes and pops whose bounds touch the tile, and the
// primitives that actually affect it.
type ScreenTile struct {
	Rect gmath.DeviceRect

	cmds      []tileCmd
	primCount int
	isSimple  bool
}

func (t *ScreenTile) pushLayer(sc scene.StackingContextIndex) {
	t.cmds = append(t.cmds, tileCmd{kind: tileCmdPushLayer, sc: sc})
}

func (t *ScreenTile) drawPrimitive(prim scene.PrimitiveIndex) {
	t.cmds = append(t.cmds, tileCmd{kind: tileCmdDrawPrimitive, prim: prim})
	t.primCount++
}

// popLayer closes a layer on this tile. A pop directly after the matching
// push means no primitive of the layer touched the tile, so the pair
// cancels out.
func (t *ScreenTile) popLayer(sc scene.StackingContextIndex) {
	if n := len(t.cmds); n > 0 {
		last := t.cmds[n-1]
		if last.kind == tileCmdPushLayer && last.sc == sc {
			t.cmds = t.cmds[:n-1]
			return
		}
	}
	t.cmds = append(t.cmds, tileCmd{kind: tileCmdPopLayer, sc: sc})
}

// createScreenTiles carves the viewport into a grid of tiles. Tiles on the
// right and bottom edges are clipped to the viewport.
func (fb *FrameBuilder) createScreenTiles() (tiles []ScreenTile, xCount, yCount int32) {
	tileSize := fb.config.TileSize
	xCount = (fb.viewportSize.Width + tileSize - 1) / tileSize
	yCount = (fb.viewportSize.Height + tileSize - 1) / tileSize

	tiles = make([]ScreenTile, 0, xCount*yCount)
	for y := int32(0); y < yCount; y++ {
		for x := int32(0); x < xCount; x++ {
			tiles = append(tiles, ScreenTile{
				Rect: gmath.DeviceRect{
					X0: x * tileSize,
					Y0: y * tileSize,
					X1: min((x+1)*tileSize, fb.viewportSize.Width),
					Y1: min((y+1)*tileSize, fb.viewportSize.Height),
				},
				isSimple: true,
			})
		}
	}
	return tiles, xCount, yCount
}

func tileRangeOf(rect gmath.DeviceRect, tileSize int32, grid scene.TileRange) scene.TileRange {
	r := scene.TileRange{
		X0: rect.X0 / tileSize,
		Y0: rect.Y0 / tileSize,
		X1: (rect.X1 + tileSize - 1) / tileSize,
		Y1: (rect.Y1 + tileSize - 1) / tileSize,
	}
	return r.Intersect(grid)
}

// assignPrimsToScreenTiles distributes the culled display list over the tile
// grid. Layer pushes and pops go to every tile the layer's bounds touch;
// each primitive goes only to the tiles its own bounds touch, narrowed
// further by a per-kind coverage test.
func (fb *FrameBuilder) assignPrimsToScreenTiles(tiles []ScreenTile, xCount, yCount int32) {
	tileSize := fb.config.TileSize
	grid := scene.TileRange{X1: xCount, Y1: yCount}

	eachTile := func(r scene.TileRange, fn func(t *ScreenTile)) {
		for y := r.Y0; y < r.Y1; y++ {
			for x := r.X0; x < r.X1; x++ {
				fn(&tiles[y*xCount+x])
			}
		}
	}

	var scStack []scene.StackingContextIndex
	var rangeStack []scene.TileRange
	skip := 0

	for _, cmd := range fb.cmds {
		switch cmd.kind {
		case cmdPushStackingContext:
			if skip > 0 {
				skip++
				continue
			}
			layer := &fb.layers[cmd.sc]
			if !layer.XfRectSet {
				skip = 1
				continue
			}
			r := tileRangeOf(layer.XfRect.BoundingRect, tileSize, grid)
			if len(rangeStack) > 0 {
				r = r.Intersect(rangeStack[len(rangeStack)-1])
			}
			layer.TileRange = r
			layer.TileRangeSet = true
			scStack = append(scStack, cmd.sc)
			rangeStack = append(rangeStack, r)

			composite := !layer.CompositeKind().IsNone()
			eachTile(r, func(t *ScreenTile) {
				t.pushLayer(cmd.sc)
				if composite {
					t.isSimple = false
				}
			})

		case cmdPrimitiveRun:
			if skip > 0 {
				continue
			}
			layer := &fb.layers[scStack[len(scStack)-1]]
			layerRange := rangeStack[len(rangeStack)-1]
			for i := int32(0); i < cmd.count; i++ {
				idx := cmd.first + scene.PrimitiveIndex(i)
				rect, ok := fb.store.BoundingRect(idx)
				if !ok {
					continue
				}
				r := tileRangeOf(rect, tileSize, grid).Intersect(layerRange)
				eachTile(r, func(t *ScreenTile) {
					if !fb.store.AffectsTile(idx, t.Rect, layer.WorldTransform, fb.devicePixelRatio) {
						return
					}
					t.drawPrimitive(idx)
				})
			}

		case cmdPopStackingContext:
			if skip > 0 {
				skip--
				continue
			}
			sc := scStack[len(scStack)-1]
			scStack = scStack[:len(scStack)-1]
			r := rangeStack[len(rangeStack)-1]
			rangeStack = rangeStack[:len(rangeStack)-1]
			eachTile(r, func(t *ScreenTile) {
				t.popLayer(sc)
			})
		}
	}
}

// boxShadowCacheKey identifies a blurred box shadow's rendered pixels
// independent of its screen position. Shadows with equal keys share one
// cached rendering per phase.
func boxShadowCacheKey(shadow *scene.BoxShadowPrimitive, size gmath.DeviceSize) string {
	inverted := uint32(0)
	if shadow.Inverted {
		inverted = 1
	}
	packed := [9]uint32{
		math.Float32bits(shadow.Color.R),
		math.Float32bits(shadow.Color.G),
		math.Float32bits(shadow.Color.B),
		math.Float32bits(shadow.Color.A),
		math.Float32bits(shadow.BorderRadius),
		math.Float32bits(shadow.BlurRadius),
		uint32(size.Width),
		uint32(size.Height),
		inverted,
	}
	return string(safeish.SliceCast[[]byte](packed[:]))
}

// Compile turns the tile's command stream into a render task tree. Layers
// that draw in place extend the current task; layers that blend or composite
// open a nested task rendered into an intermediate target. Tiles nothing
// draws on compile to nil and are cleared instead.
func (t *ScreenTile) Compile(arena *mem.Arena, store *scene.Store, layers []scene.StackingContext, devicePixelRatio float32) *renderer.CompiledScreenTile {
	if t.primCount == 0 {
		return nil
	}

	tileSize := gmath.DeviceSize{Width: t.Rect.Width(), Height: t.Rect.Height()}
	current := renderer.NewAlphaRenderTask(arena, renderer.FixedLocation(t.Rect), t.Rect)
	var stack []*renderer.RenderTask
	var scStack []scene.StackingContextIndex

	for _, cmd := range t.cmds {
		switch cmd.kind {
		case tileCmdPushLayer:
			scStack = append(scStack, cmd.sc)
			if layers[cmd.sc].CompositeKind().IsNone() {
				continue
			}
			stack = append(stack, current)
			current = renderer.NewAlphaRenderTask(arena, renderer.DynamicLocation(tileSize), t.Rect)

		case tileCmdDrawPrimitive:
			sc := scStack[len(scStack)-1]
			layer := &layers[sc]
			if store.FullyCoversTile(cmd.prim, t.Rect, layer.XfRect.Kind) {
				// Everything painted so far on this task is hidden behind
				// the covering primitive.
				current.Items = current.Items[:0]
			}
			item := renderer.AlphaRenderItem{
				Kind:       renderer.ItemPrimitive,
				Layer:      sc,
				Prim:       cmd.prim,
				ChildIndex: -1,
			}
			md := &store.Metadata[cmd.prim]
			if md.Kind == scene.KindBoxShadow {
				shadow := &store.BoxShadows[md.CPUIndex]
				if shadow.BlurRadius > 0 {
					geom := store.Geometry[cmd.prim]
					size := gmath.DeviceSize{
						Width:  int32(gmath.Ceil32(geom.LocalRect.Width() * devicePixelRatio)),
						Height: int32(gmath.Ceil32(geom.LocalRect.Height() * devicePixelRatio)),
					}
					child := renderer.NewCachePrimitiveTask(arena, cmd.prim, boxShadowCacheKey(shadow, size), size)
					item.ChildIndex = current.AddChild(arena, child)
				}
			}
			current.AppendItem(arena, item)

		case tileCmdPopLayer:
			sc := scStack[len(scStack)-1]
			scStack = scStack[:len(scStack)-1]
			kind := layers[sc].CompositeKind()
			if kind.IsNone() {
				continue
			}
			if opacity, ok := kind.Simple(); ok {
				child := current
				reverseItems(child.Items)
				current = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				ci := current.AddChild(arena, child)
				current.AppendItem(arena, renderer.AlphaRenderItem{
					Kind:       renderer.ItemBlend,
					Layer:      sc,
					ChildIndex: ci,
					Opacity:    opacity,
				})
			} else {
				mix, _ := kind.Complex()
				src := current
				reverseItems(src.Items)
				backdrop := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				reverseItems(backdrop.Items)

				// The composite replaces the backdrop in the tree, so it
				// inherits the backdrop's output location; the backdrop
				// itself moves to an intermediate target.
				location := backdrop.Location
				if location.Fixed {
					backdrop.Location = renderer.DynamicLocation(tileSize)
				}
				composite := renderer.NewAlphaRenderTask(arena, location, t.Rect)
				composite.AddChild(arena, backdrop)
				ci := composite.AddChild(arena, src)
				composite.AppendItem(arena, renderer.AlphaRenderItem{
					Kind:       renderer.ItemComposite,
					Layer:      sc,
					ChildIndex: ci,
					Mix:        mix,
				})
				current = composite
			}
		}
	}

	if len(stack) != 0 {
		panic("quilt: unbalanced layers in tile command stream")
	}

	// Batching consumes items from the back, so every task stores them in
	// reverse paint order: child tasks are flipped when their layer pops,
	// the final task here.
	reverseItems(current.Items)
	return renderer.NewCompiledScreenTile(arena, current)
}

func reverseItems(items []renderer.AlphaRenderItem) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

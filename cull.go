package quilt

import (
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/renderer"
	"honnef.co/go/quilt/rescache"
	"honnef.co/go/quilt/scene"
)

// cullLayers walks the display list once, computing world transforms and
// screen-space bounds for every visible stacking context and primitive.
// Primitives that end up off screen, clipped away, or inside a
// zero-contribution subtree get no screen rect and are invisible to all
// later passes.
func (fb *FrameBuilder) cullLayers(resourceList *rescache.ResourceList, scrollNodes map[scene.ScrollLayerID]ScrollNode, profile *renderer.FrameProfileCounters) {
	fb.store.ResetScreenRects()
	for i := range fb.layers {
		fb.layers[i].ResetFrameState()
	}
	// Packed layers parallel the stacking context slice so primitive
	// instances can index them directly.
	if cap(fb.packedLayers) < len(fb.layers) {
		fb.packedLayers = make([]renderer.PackedLayer, len(fb.layers))
	} else {
		fb.packedLayers = fb.packedLayers[:len(fb.layers)]
		clear(fb.packedLayers)
	}
	fb.primsToPrepare = fb.primsToPrepare[:0]

	screenRect := gmath.DeviceRectFromOriginSize(gmath.DevicePoint{}, fb.viewportSize)
	viewport := gmath.SizeF{
		Width:  float32(fb.viewportSize.Width) / fb.devicePixelRatio,
		Height: float32(fb.viewportSize.Height) / fb.devicePixelRatio,
	}

	profile.TotalPrimitives = fb.store.Len()

	// Each stack entry records whether the enclosing subtree draws at all.
	// An invisible ancestor poisons everything below it.
	visibleStack := make([]bool, 0, 8)
	subtreeVisible := func() bool {
		return len(visibleStack) == 0 || visibleStack[len(visibleStack)-1]
	}

	var scStack []scene.StackingContextIndex

	for _, cmd := range fb.cmds {
		switch cmd.kind {
		case cmdPushStackingContext:
			layer := &fb.layers[cmd.sc]
			scStack = append(scStack, cmd.sc)

			visible := subtreeVisible() && layer.CanContributeToScene()
			if visible {
				visible = fb.cullLayer(cmd.sc, screenRect, viewport, scrollNodes)
			}
			visibleStack = append(visibleStack, visible)

		case cmdPrimitiveRun:
			if !subtreeVisible() {
				continue
			}
			layer := &fb.layers[scStack[len(scStack)-1]]
			bounds, ok := layer.XfRect.BoundingRect.Intersect(screenRect)
			if !ok {
				continue
			}
			for i := int32(0); i < cmd.count; i++ {
				idx := cmd.first + scene.PrimitiveIndex(i)
				if _, ok := fb.store.BuildBoundingRect(idx, bounds, layer.WorldTransform, fb.devicePixelRatio); !ok {
					continue
				}
				fb.store.BuildResourceList(idx, resourceList, &fb.aux)
				fb.primsToPrepare = append(fb.primsToPrepare, idx)
				profile.VisiblePrimitives++
			}

		case cmdPopStackingContext:
			scStack = scStack[:len(scStack)-1]
			visibleStack = visibleStack[:len(visibleStack)-1]
		}
	}
}

// cullLayer computes a single context's world transform and screen bounds.
// It returns false when the context cannot produce any pixels this frame, in
// which case its frame state stays reset.
func (fb *FrameBuilder) cullLayer(sc scene.StackingContextIndex, screenRect gmath.DeviceRect, viewport gmath.SizeF, scrollNodes map[scene.ScrollLayerID]ScrollNode) bool {
	layer := &fb.layers[sc]
	node := scrollNodeFor(scrollNodes, layer.ScrollLayer, viewport)

	world := layer.LocalTransform.Mul(node.WorldContentTransform)
	inv, ok := world.Invert()
	if !ok {
		return false
	}

	local, ok := layer.LocalRect.Intersect(layer.LocalClipRect)
	if !ok {
		return false
	}
	// The scroll viewport lives in the scroll node's content space; bring it
	// into layer space before clipping against it.
	invLocal, ok := layer.LocalTransform.Invert()
	if !ok {
		return false
	}
	local, ok = local.Intersect(invLocal.TransformRect(node.CombinedLocalViewport))
	if !ok {
		return false
	}

	xf := gmath.NewTransformedRect(local, world, fb.devicePixelRatio)
	if _, ok := xf.BoundingRect.Intersect(screenRect); !ok {
		return false
	}

	layer.WorldTransform = world
	layer.XfRect = xf
	layer.XfRectSet = true

	// The packed clip is the fully intersected local rect, so the shaders
	// also honor the scroll viewport.
	fb.packedLayers[sc] = renderer.PackedLayer{
		Transform:      world,
		InvTransform:   inv,
		LocalClipRect:  local,
		ScreenVertices: xf.Vertices,
	}
	return true
}

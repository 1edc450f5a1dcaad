package quilt

import (
	"testing"

	"golang.org/x/image/math/fixed"
	"honnef.co/go/color"
	"honnef.co/go/curve"

	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/renderer"
	"honnef.co/go/quilt/rescache"
	"honnef.co/go/quilt/scene"
)

func rgb(r, g, b, a float64) *color.Color {
	c := color.Color{
		Space:  color.LinearSRGB,
		Values: [4]float64{r, g, b, a},
	}
	return &c
}

func rect(x0, y0, x1, y1 float64) curve.Rect {
	return curve.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func newTestBuilder(w, h int32) *FrameBuilder {
	return NewFrameBuilder(gmath.DeviceSize{Width: w, Height: h}, 1, DefaultConfig())
}

// countOpaqueInstances sums instances over every opaque batch of a target.
func countOpaqueInstances(target *renderer.RenderTarget) int {
	n := 0
	for _, b := range target.Batchers {
		for _, batch := range b.OpaqueBatches {
			n += batch.InstanceCount()
		}
	}
	return n
}

func TestSolidRectangleFrame(t *testing.T) {
	fb := newTestBuilder(128, 128)
	viewport := rect(0, 0, 128, 128)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.AddSolidRectangle(viewport, viewport, nil, rgb(0, 1, 0, 1))
	fb.PopLayer()

	frame := fb.Build(nil, 1, nil)

	if frame.Profile.TotalTiles != 4 {
		t.Fatalf("TotalTiles = %d, want 4", frame.Profile.TotalTiles)
	}
	if frame.Profile.CompiledTiles != 4 || len(frame.ClearTiles) != 0 {
		t.Fatalf("CompiledTiles = %d, ClearTiles = %d", frame.Profile.CompiledTiles, len(frame.ClearTiles))
	}
	if len(frame.Phases) != 1 {
		t.Fatalf("len(Phases) = %d, want 1", len(frame.Phases))
	}
	phase := frame.Phases[0]
	if len(phase.Targets) != 1 || !phase.Targets[0].IsFramebuffer {
		t.Fatalf("phase targets = %d, framebuffer = %t", len(phase.Targets), phase.Targets[0].IsFramebuffer)
	}

	fbTarget := phase.Targets[0]
	tasks := fbTarget.Tasks()
	if len(tasks) != 4 {
		t.Fatalf("framebuffer tasks = %d, want 4", len(tasks))
	}
	for i, task := range tasks {
		if !task.Location.Fixed {
			t.Errorf("task %d is not fixed to the framebuffer", i)
		}
	}

	if len(fbTarget.Batchers) != 1 {
		t.Fatalf("batchers = %d, want 1", len(fbTarget.Batchers))
	}
	b := fbTarget.Batchers[0]
	if len(b.Tiles) != 4 {
		t.Errorf("tile slots = %d, want 4", len(b.Tiles))
	}
	if len(b.AlphaBatches) != 0 {
		t.Errorf("alpha batches = %d, want 0", len(b.AlphaBatches))
	}
	if len(b.OpaqueBatches) != 1 {
		t.Fatalf("opaque batches = %d, want 1", len(b.OpaqueBatches))
	}
	batch := b.OpaqueBatches[0]
	if batch.Key.Kind != renderer.BatchRectangle || batch.Key.Blend != renderer.BlendNone {
		t.Errorf("batch key = %+v", batch.Key)
	}
	if batch.InstanceCount() != 4 {
		t.Errorf("instances = %d, want 4 (one per tile)", batch.InstanceCount())
	}
}

func TestOpacityLayerFrame(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer,
		[]gfx.CompositionOp{gfx.FilterComposition(gfx.Opacity(0.5))})
	fb.AddSolidRectangle(viewport, viewport, nil, rgb(1, 0, 0, 1))
	fb.PopLayer()
	fb.PopLayer()

	frame := fb.Build(nil, 1, nil)

	if len(frame.Phases) != 1 {
		t.Fatalf("len(Phases) = %d, want 1", len(frame.Phases))
	}
	phase := frame.Phases[0]
	if len(phase.Targets) != 2 {
		t.Fatalf("targets = %d, want 2 (intermediate + framebuffer)", len(phase.Targets))
	}
	intermediate, framebuffer := phase.Targets[0], phase.Targets[1]
	if intermediate.IsFramebuffer || !framebuffer.IsFramebuffer {
		t.Fatal("framebuffer must be the last target")
	}

	// The layer's content renders into the intermediate target.
	if got := len(intermediate.Tasks()); got != 1 {
		t.Fatalf("intermediate tasks = %d, want 1", got)
	}
	child := intermediate.Tasks()[0]
	if child.Location.Fixed {
		t.Error("intermediate task must be dynamically placed")
	}
	if !child.Location.Allocated {
		t.Error("intermediate task was never allocated")
	}
	if countOpaqueInstances(intermediate) != 1 {
		t.Errorf("intermediate opaque instances = %d, want 1", countOpaqueInstances(intermediate))
	}

	// The framebuffer blends the intermediate result at half opacity.
	if got := len(framebuffer.Batchers); got != 1 {
		t.Fatalf("framebuffer batchers = %d, want 1", got)
	}
	b := framebuffer.Batchers[0]
	if len(b.OpaqueBatches) != 0 || len(b.AlphaBatches) != 1 {
		t.Fatalf("framebuffer batches: opaque=%d alpha=%d", len(b.OpaqueBatches), len(b.AlphaBatches))
	}
	blend := b.AlphaBatches[0]
	if blend.Key.Kind != renderer.BatchBlend {
		t.Fatalf("batch kind = %v, want blend", blend.Key.Kind)
	}
	if len(blend.Blends) != 1 || blend.Blends[0].Opacity != 0.5 {
		t.Errorf("blend instances = %+v", blend.Blends)
	}
	if blend.Blends[0].SrcRect != child.TargetRect().ToRectF() {
		t.Errorf("blend src = %v, child at %v", blend.Blends[0].SrcRect, child.TargetRect())
	}
}

func TestBlendLayerPreservesPaintOrder(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer,
		[]gfx.CompositionOp{gfx.FilterComposition(gfx.Opacity(0.5))})
	fb.AddSolidRectangle(rect(0, 0, 40, 40), viewport, nil, rgb(1, 0, 0, 0.5))
	fb.AddSolidRectangle(rect(20, 20, 60, 60), viewport, nil, rgb(0, 0, 1, 0.5))
	fb.PopLayer()
	fb.PopLayer()

	frame := fb.Build(nil, 1, nil)
	intermediate := frame.Phases[0].Targets[0]
	if len(intermediate.Batchers) != 1 {
		t.Fatalf("intermediate batchers = %d", len(intermediate.Batchers))
	}
	b := intermediate.Batchers[0]
	if len(b.AlphaBatches) != 1 {
		t.Fatalf("alpha batches = %d, want 1", len(b.AlphaBatches))
	}
	rects := b.AlphaBatches[0].Rectangles
	if len(rects) != 2 {
		t.Fatalf("rectangle instances = %d, want 2", len(rects))
	}
	// The overlapping rectangles must be drawn in the order they were added:
	// red below, blue on top.
	if rects[0].Color.R <= rects[0].Color.B {
		t.Errorf("first instance is not the red rect: %+v", rects[0].Color)
	}
	if rects[1].Color.B <= rects[1].Color.R {
		t.Errorf("second instance is not the blue rect: %+v", rects[1].Color)
	}
}

func TestMixBlendLayerFrame(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.AddSolidRectangle(viewport, viewport, nil, rgb(1, 1, 1, 1))
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer,
		[]gfx.CompositionOp{gfx.MixBlendComposition(gfx.MixBlendMultiply)})
	fb.AddSolidRectangle(rect(8, 8, 32, 32), viewport, nil, rgb(0, 0, 1, 1))
	fb.PopLayer()
	fb.PopLayer()

	frame := fb.Build(nil, 1, nil)

	if len(frame.Phases) != 1 || len(frame.Phases[0].Targets) != 2 {
		t.Fatalf("phases = %d", len(frame.Phases))
	}
	intermediate, framebuffer := frame.Phases[0].Targets[0], frame.Phases[0].Targets[1]

	// Backdrop and source both render off screen first.
	if got := len(intermediate.Tasks()); got != 2 {
		t.Fatalf("intermediate tasks = %d, want 2", got)
	}
	if got := countOpaqueInstances(intermediate); got != 2 {
		t.Errorf("intermediate opaque instances = %d, want 2", got)
	}

	if got := len(framebuffer.Tasks()); got != 1 {
		t.Fatalf("framebuffer tasks = %d, want 1", got)
	}
	composite := framebuffer.Tasks()[0]
	if !composite.Location.Fixed {
		t.Error("composite task must draw straight to the framebuffer")
	}

	b := framebuffer.Batchers[0]
	if len(b.AlphaBatches) != 1 {
		t.Fatalf("framebuffer alpha batches = %d, want 1", len(b.AlphaBatches))
	}
	batch := b.AlphaBatches[0]
	if batch.Key.Kind != renderer.BatchComposite || len(batch.Composites) != 1 {
		t.Fatalf("batch = %+v", batch.Key)
	}
	want := gmath.PackAsFloat(uint32(gfx.MixBlendMultiply))
	if batch.Composites[0].MixBlend != want {
		t.Errorf("MixBlend = %v, want %v", batch.Composites[0].MixBlend, want)
	}
}

func TestTransparentPrimitiveDropped(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.AddSolidRectangle(viewport, viewport, nil, rgb(1, 0, 0, 0))
	fb.PopLayer()

	if fb.store.Len() != 0 {
		t.Fatalf("store holds %d primitives, want 0", fb.store.Len())
	}

	frame := fb.Build(nil, 1, nil)
	if frame.Profile.TotalPrimitives != 0 {
		t.Errorf("TotalPrimitives = %d", frame.Profile.TotalPrimitives)
	}
	if len(frame.Phases) != 0 {
		t.Errorf("phases = %d, want 0", len(frame.Phases))
	}
	if len(frame.ClearTiles) != frame.Profile.TotalTiles {
		t.Errorf("ClearTiles = %d, want %d", len(frame.ClearTiles), frame.Profile.TotalTiles)
	}
}

func TestOcclusionDropsCoveredItems(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.AddSolidRectangle(viewport, viewport, nil, rgb(1, 0, 0, 0.5))
	fb.AddSolidRectangle(viewport, viewport, nil, rgb(0, 0, 1, 1))
	fb.PopLayer()

	frame := fb.Build(nil, 1, nil)
	target := frame.Phases[0].Targets[0]
	b := target.Batchers[0]
	if len(b.AlphaBatches) != 0 {
		t.Errorf("translucent rect under an opaque cover still batched")
	}
	if got := countOpaqueInstances(target); got != 1 {
		t.Errorf("opaque instances = %d, want 1", got)
	}
}

func TestZeroOpacitySubtreeSkipped(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer,
		[]gfx.CompositionOp{gfx.FilterComposition(gfx.Opacity(0))})
	fb.AddSolidRectangle(viewport, viewport, nil, rgb(1, 0, 0, 1))
	fb.PopLayer()
	fb.PopLayer()

	frame := fb.Build(nil, 1, nil)
	if frame.Profile.VisiblePrimitives != 0 {
		t.Errorf("VisiblePrimitives = %d, want 0", frame.Profile.VisiblePrimitives)
	}
	if len(frame.Phases) != 0 {
		t.Errorf("phases = %d, want 0", len(frame.Phases))
	}
}

func TestTextRunSplitting(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)

	glyphs := make([]scene.GlyphInstance, 20)
	for i := range glyphs {
		glyphs[i] = scene.GlyphInstance{Index: uint32(i), Point: gmath.PointF{X: float32(i) * 3}}
	}
	fb.AddText(viewport, viewport, nil, 1, fixed.I(12), 0, rgb(0, 0, 0, 1), glyphs)
	fb.PopLayer()

	if fb.store.Len() != 3 {
		t.Fatalf("store holds %d primitives, want 3", fb.store.Len())
	}
	wantLens := []int32{8, 8, 4}
	for i, want := range wantLens {
		run := fb.store.TextRuns[i]
		if run.Glyphs.Length != want {
			t.Errorf("run %d has %d glyphs, want %d", i, run.Glyphs.Length, want)
		}
		if got := fb.aux.GlyphInstances(run.Glyphs); int32(len(got)) != want {
			t.Errorf("run %d resolves to %d instances", i, len(got))
		}
	}
}

func TestGradientNormalization(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	stops := []GradientStop{
		{Offset: 0, Color: rgb(1, 0, 0, 1)},
		{Offset: 1, Color: rgb(0, 0, 1, 1)},
	}

	// Bottom-to-top: swapped into top-to-bottom with reversed stops.
	fb.AddGradient(viewport, viewport, nil, curve.Point{X: 10, Y: 60}, curve.Point{X: 10, Y: 4}, stops)
	// Left-to-right: already normalized.
	fb.AddGradient(viewport, viewport, nil, curve.Point{X: 0, Y: 10}, curve.Point{X: 64, Y: 10}, stops)
	// Diagonal.
	fb.AddGradient(viewport, viewport, nil, curve.Point{X: 0, Y: 0}, curve.Point{X: 64, Y: 64}, stops)
	fb.PopLayer()

	grads := fb.store.Gradients
	if len(grads) != 3 {
		t.Fatalf("gradients = %d", len(grads))
	}
	if grads[0].Kind != gfx.GradientVertical || !grads[0].Reversed {
		t.Errorf("vertical gradient: kind=%v reversed=%t", grads[0].Kind, grads[0].Reversed)
	}
	if grads[0].StartPoint.Y != 4 || grads[0].EndPoint.Y != 60 {
		t.Errorf("vertical gradient not swapped: %v -> %v", grads[0].StartPoint, grads[0].EndPoint)
	}
	if grads[1].Kind != gfx.GradientHorizontal || grads[1].Reversed {
		t.Errorf("horizontal gradient: kind=%v reversed=%t", grads[1].Kind, grads[1].Reversed)
	}
	if grads[2].Kind != gfx.GradientRotated {
		t.Errorf("diagonal gradient kind = %v", grads[2].Kind)
	}
}

func TestBoxShadowFastPath(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)

	// Sharp, unspread, unclipped: plain rectangle.
	fb.AddBoxShadow(rect(8, 8, 24, 24), viewport, rgb(0, 0, 0, 1), curve.Point{X: 2, Y: 2}, 0, 0, 0, gfx.BoxShadowClipNone)
	if fb.store.Len() != 1 || fb.store.Metadata[0].Kind != scene.KindRectangle {
		t.Fatalf("sharp shadow did not collapse to a rectangle")
	}

	// Blurred outset shadow keeps its instance rects, which never cover the
	// casting box.
	fb.AddBoxShadow(rect(8, 8, 24, 24), viewport, rgb(0, 0, 0, 0.5), curve.Point{X: 2, Y: 2}, 4, 0, 3, gfx.BoxShadowClipOutset)
	if fb.store.Len() != 2 || fb.store.Metadata[1].Kind != scene.KindBoxShadow {
		t.Fatalf("blurred shadow kind = %v", fb.store.Metadata[1].Kind)
	}
	shadow := fb.store.BoxShadows[0]
	if len(shadow.InstanceRects) == 0 {
		t.Fatal("blurred shadow has no instance rects")
	}
	box := gmath.RectF{X0: 8, Y0: 8, X1: 24, Y1: 24}
	for i, r := range shadow.InstanceRects {
		if r.Intersects(box) {
			t.Errorf("instance rect %d overlaps the casting box: %v", i, r)
		}
	}
	if !shadow.ShadowRect.Contains(gmath.PointF{X: 10 + 8, Y: 10 + 8}) {
		t.Errorf("shadow rect %v not offset by (2,2)", shadow.ShadowRect)
	}

	// Invisible shadows are dropped outright.
	fb.AddBoxShadow(rect(8, 8, 24, 24), viewport, rgb(0, 0, 0, 0), curve.Point{}, 4, 0, 0, gfx.BoxShadowClipOutset)
	if fb.store.Len() != 2 {
		t.Error("transparent shadow entered the store")
	}
}

func TestBlurredBoxShadowUsesCacheTask(t *testing.T) {
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.AddBoxShadow(rect(8, 8, 24, 24), viewport, rgb(0, 0, 0, 0.5), curve.Point{X: 2, Y: 2}, 4, 0, 3, gfx.BoxShadowClipOutset)
	fb.PopLayer()

	frame := fb.Build(nil, 1, nil)
	if len(frame.Phases) != 1 {
		t.Fatalf("phases = %d, want 1", len(frame.Phases))
	}
	targets := frame.Phases[0].Targets
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2 (cache target + framebuffer)", len(targets))
	}
	if len(targets[0].CachePrimitives) != 1 {
		t.Fatalf("cache primitives = %d, want 1", len(targets[0].CachePrimitives))
	}
	cp := targets[0].CachePrimitives[0]
	if cp.GlobalPrimIndex != 0 {
		t.Errorf("cache primitive index = %d", cp.GlobalPrimIndex)
	}
	if cp.TargetRect.IsEmpty() {
		t.Error("cache primitive has no target rect")
	}

	// The drawing instances must point at the pre-blurred pixels.
	b := targets[1].Batchers[0]
	if len(b.AlphaBatches) != 1 || b.AlphaBatches[0].Key.Kind != renderer.BatchBoxShadow {
		t.Fatalf("framebuffer batches = %d", len(b.AlphaBatches))
	}
	shadows := b.AlphaBatches[0].BoxShadows
	if len(shadows) == 0 {
		t.Fatal("no box shadow instances")
	}
	wantRect := cp.TargetRect.ToRectF()
	for i, inst := range shadows {
		if inst.CacheRect != wantRect {
			t.Errorf("instance %d cache rect = %v, want %v", i, inst.CacheRect, wantRect)
		}
	}
}

func TestScrollbarGeometry(t *testing.T) {
	fb := newTestBuilder(100, 100)
	viewport := rect(0, 0, 100, 100)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.AddScrollbar(rect(90, 0, 100, 100), rect(90, 0, 100, 100), rgb(0.5, 0.5, 0.5, 1),
		1, scene.FlagScrollbarVertical)
	fb.PopLayer()

	nodes := map[scene.ScrollLayerID]ScrollNode{
		1: {
			WorldContentTransform: gmath.Identity(),
			CombinedLocalViewport: gmath.RectF{X1: 100, Y1: 100},
			ScrollOffset:          gmath.PointF{Y: 50},
			ContentSize:           gmath.SizeF{Width: 100, Height: 200},
			ViewportSize:          gmath.SizeF{Width: 100, Height: 100},
		},
	}
	fb.Build(nil, 1, nodes)

	got := fb.store.Geometry[0].LocalRect
	want := gmath.RectF{X0: 90, Y0: 25, X1: 100, Y1: 75}
	if got != want {
		t.Errorf("thumb rect = %v, want %v", got, want)
	}

	// Content fits: the thumb collapses and culls away.
	nodes[1] = ScrollNode{
		WorldContentTransform: gmath.Identity(),
		CombinedLocalViewport: gmath.RectF{X1: 100, Y1: 100},
		ContentSize:           gmath.SizeF{Width: 100, Height: 100},
		ViewportSize:          gmath.SizeF{Width: 100, Height: 100},
	}
	frame := fb.Build(nil, 2, nodes)
	if frame.Profile.VisiblePrimitives != 0 {
		t.Errorf("collapsed scrollbar still visible: %d", frame.Profile.VisiblePrimitives)
	}
}

func TestTilePushCancel(t *testing.T) {
	var tile ScreenTile
	tile.pushLayer(1)
	tile.popLayer(1)
	if len(tile.cmds) != 0 {
		t.Errorf("empty push/pop pair not cancelled: %v", tile.cmds)
	}

	tile.pushLayer(1)
	tile.drawPrimitive(0)
	tile.popLayer(1)
	if len(tile.cmds) != 3 {
		t.Errorf("non-empty layer truncated: %v", tile.cmds)
	}
	if tile.primCount != 1 {
		t.Errorf("primCount = %d", tile.primCount)
	}
}

func TestScrollViewportClipsInLayerSpace(t *testing.T) {
	fb := newTestBuilder(128, 128)
	layerRect := rect(0, 0, 100, 100)
	fb.PushLayer(layerRect, layerRect, gmath.Translation(10, 0, 0), 1, nil)
	fb.AddSolidRectangle(layerRect, layerRect, nil, rgb(0, 1, 0, 1))
	fb.PopLayer()

	nodes := map[scene.ScrollLayerID]ScrollNode{
		1: {
			WorldContentTransform: gmath.Identity(),
			CombinedLocalViewport: gmath.RectF{X1: 50, Y1: 100},
			ContentSize:           gmath.SizeF{Width: 100, Height: 100},
			ViewportSize:          gmath.SizeF{Width: 100, Height: 100},
		},
	}
	frame := fb.Build(nil, 1, nodes)

	// The 50px viewport is given in the scroll node's content space; the
	// layer sits 10px further right, so in layer space it ends at x=40.
	want := gmath.RectF{X1: 40, Y1: 100}
	if got := frame.PackedLayers[0].LocalClipRect; got != want {
		t.Errorf("packed clip = %v, want %v", got, want)
	}
}

func TestCullingIdempotent(t *testing.T) {
	fb := newTestBuilder(128, 128)
	viewport := rect(0, 0, 128, 128)
	rot := gmath.Identity()
	rot.M11, rot.M12, rot.M21, rot.M22 = 0, 1, -1, 0
	xform := rot.Mul(gmath.Translation(64, 0, 0))

	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.AddSolidRectangle(viewport, viewport, nil, rgb(1, 1, 1, 1))
	fb.PushLayer(rect(0, 0, 40, 40), rect(0, 0, 40, 40), xform, scene.RootScrollLayer, nil)
	fb.AddSolidRectangle(rect(0, 0, 40, 40), rect(0, 0, 40, 40), nil, rgb(0, 0, 1, 0.5))
	fb.PopLayer()
	fb.PopLayer()

	frame := fb.Build(nil, 1, nil)
	layers := append([]renderer.PackedLayer(nil), frame.PackedLayers...)
	rects := make([]gmath.DeviceRect, fb.store.Len())
	visible := make([]bool, fb.store.Len())
	for i := range rects {
		rects[i], visible[i] = fb.store.BoundingRect(scene.PrimitiveIndex(i))
	}

	frame = fb.Build(nil, 2, nil)
	if len(frame.PackedLayers) != len(layers) {
		t.Fatalf("layer count changed: %d -> %d", len(layers), len(frame.PackedLayers))
	}
	for i := range layers {
		if frame.PackedLayers[i] != layers[i] {
			t.Errorf("packed layer %d drifted between identical builds", i)
		}
	}
	for i := range rects {
		r, ok := fb.store.BoundingRect(scene.PrimitiveIndex(i))
		if r != rects[i] || ok != visible[i] {
			t.Errorf("primitive %d screen rect drifted: %v/%t -> %v/%t",
				i, rects[i], visible[i], r, ok)
		}
	}
}

func TestTileCoverageMatchesBounds(t *testing.T) {
	fb := newTestBuilder(128, 128)
	viewport := rect(0, 0, 128, 128)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.AddSolidRectangle(rect(20, 20, 100, 60), viewport, nil, rgb(0, 1, 0, 1))
	fb.PopLayer()

	var profile renderer.FrameProfileCounters
	fb.cullLayers(rescache.NewResourceList(fb.arena), nil, &profile)
	tiles, xCount, yCount := fb.createScreenTiles()
	fb.assignPrimsToScreenTiles(tiles, xCount, yCount)

	bounds, ok := fb.store.BoundingRect(0)
	if !ok {
		t.Fatal("primitive has no screen rect")
	}
	// The rectangle must land in exactly the tiles its device bounds overlap.
	for i := range tiles {
		_, overlaps := bounds.Intersect(tiles[i].Rect)
		assigned := tiles[i].primCount > 0
		if assigned != overlaps {
			t.Errorf("tile %v: assigned=%t, overlaps=%t", tiles[i].Rect, assigned, overlaps)
		}
	}
}

func TestUnbalancedLayersPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Build with an open stacking context did not panic")
		}
	}()
	fb := newTestBuilder(64, 64)
	viewport := rect(0, 0, 64, 64)
	fb.PushLayer(viewport, viewport, gmath.Identity(), scene.RootScrollLayer, nil)
	fb.Build(nil, 1, nil)
}

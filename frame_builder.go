package quilt

import (
	"golang.org/x/image/math/fixed"
	"honnef.co/go/color"
	"honnef.co/go/curve"

	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/mem"
	"honnef.co/go/quilt/renderer"
	"honnef.co/go/quilt/rescache"
	"honnef.co/go/quilt/scene"
)

// maxGlyphsPerRun bounds how many glyphs one text-run primitive carries;
// longer runs split so a single glyph miss or cache churn invalidates less.
const maxGlyphsPerRun = 8

type primitiveRunCmdKind uint8

const (
	cmdPushStackingContext primitiveRunCmdKind = iota
	cmdPrimitiveRun
	cmdPopStackingContext
)

// primitiveRunCmd is one token of the display list: push/pop of a stacking
// context, or a run of consecutively added primitives belonging to the
// current context.
type primitiveRunCmd struct {
	kind  primitiveRunCmdKind
	sc    scene.StackingContextIndex
	first scene.PrimitiveIndex
	count int32
}

type scrollbarInfo struct {
	prim        scene.PrimitiveIndex
	scrollLayer scene.ScrollLayerID
}

// GradientStop pairs a stop offset in [0,1] with its color, as supplied by
// the flattener.
type GradientStop struct {
	Offset float32
	Color  *color.Color
}

// FrameBuilder accumulates a display list and compiles it into frames. The
// display list API (PushLayer, Add*, PopLayer) is the only mutation surface;
// once Build runs, the scene is read-only until the builder is reset.
type FrameBuilder struct {
	viewportSize     gmath.DeviceSize
	devicePixelRatio float32
	config           FrameBuilderConfig
	backgroundColor  option[gfx.ColorF]

	store scene.Store
	aux   scene.AuxiliaryLists

	layers     []scene.StackingContext
	cmds       []primitiveRunCmd
	layerStack []scene.StackingContextIndex
	scrollbars []scrollbarInfo

	// Frame-transient state, rebuilt by every Build call.
	arena          *mem.Arena
	workerArenas   []*mem.Arena
	packedLayers   []renderer.PackedLayer
	primsToPrepare []scene.PrimitiveIndex
}

func NewFrameBuilder(viewportSize gmath.DeviceSize, devicePixelRatio float32, config FrameBuilderConfig) *FrameBuilder {
	return &FrameBuilder{
		viewportSize:     viewportSize,
		devicePixelRatio: devicePixelRatio,
		config:           config,
		arena:            mem.NewArena(),
	}
}

func (fb *FrameBuilder) SetBackgroundColor(c *color.Color) {
	fb.backgroundColor.set(gfx.FromColor(c))
}

func (fb *FrameBuilder) currentLayer() scene.StackingContextIndex {
	if len(fb.layerStack) == 0 {
		panic("quilt: primitive added outside of a stacking context")
	}
	return fb.layerStack[len(fb.layerStack)-1]
}

// PushLayer opens a stacking context. Every primitive added until the
// matching PopLayer belongs to it.
func (fb *FrameBuilder) PushLayer(rect, clipRect curve.Rect, transform gmath.Matrix4, scrollLayer scene.ScrollLayerID, ops []gfx.CompositionOp) {
	sc := scene.StackingContextIndex(len(fb.layers))
	fb.layers = append(fb.layers, scene.StackingContext{
		LocalRect:      gmath.RectFromCurve(rect),
		LocalClipRect:  gmath.RectFromCurve(clipRect),
		LocalTransform: transform,
		ScrollLayer:    scrollLayer,
		CompositionOps: ops,
	})
	fb.cmds = append(fb.cmds, primitiveRunCmd{kind: cmdPushStackingContext, sc: sc})
	fb.layerStack = append(fb.layerStack, sc)
}

func (fb *FrameBuilder) PopLayer() {
	if len(fb.layerStack) == 0 {
		panic("quilt: unbalanced PopLayer")
	}
	fb.layerStack = fb.layerStack[:len(fb.layerStack)-1]
	fb.cmds = append(fb.cmds, primitiveRunCmd{kind: cmdPopStackingContext})
}

// recordPrim extends the current primitive run, or starts a new one when the
// last command isn't a run ending right before idx.
func (fb *FrameBuilder) recordPrim(idx scene.PrimitiveIndex) {
	if n := len(fb.cmds); n > 0 {
		last := &fb.cmds[n-1]
		if last.kind == cmdPrimitiveRun && last.first+scene.PrimitiveIndex(last.count) == idx {
			last.count++
			return
		}
	}
	fb.cmds = append(fb.cmds, primitiveRunCmd{kind: cmdPrimitiveRun, first: idx, count: 1})
}

func geometry(rect, clipRect curve.Rect) scene.PrimitiveGeometry {
	return scene.PrimitiveGeometry{
		LocalRect:     gmath.RectFromCurve(rect),
		LocalClipRect: gmath.RectFromCurve(clipRect),
	}
}

// AddSolidRectangle adds an axis-aligned filled rectangle. Fully transparent
// colors never enter the store.
func (fb *FrameBuilder) AddSolidRectangle(rect, clipRect curve.Rect, clip *gfx.ComplexClipRegion, c *color.Color) {
	fb.currentLayer()
	cf := gfx.FromColor(c)
	if cf.IsTransparent() {
		return
	}
	idx := fb.store.AddRectangle(geometry(rect, clipRect), clip, cf, 0)
	fb.recordPrim(idx)
}

// AddScrollbar adds a scrollbar thumb tied to a scroll node; its geometry is
// recomputed from the node's scroll state at the start of every build.
func (fb *FrameBuilder) AddScrollbar(rect, clipRect curve.Rect, c *color.Color, scrollLayer scene.ScrollLayerID, flags scene.PrimitiveFlags) {
	fb.currentLayer()
	cf := gfx.FromColor(c)
	if cf.IsTransparent() || !flags.IsScrollbar() {
		return
	}
	idx := fb.store.AddRectangle(geometry(rect, clipRect), nil, cf, flags)
	fb.recordPrim(idx)
	fb.scrollbars = append(fb.scrollbars, scrollbarInfo{prim: idx, scrollLayer: scrollLayer})
}

// AddText adds a glyph run. Runs longer than maxGlyphsPerRun split into
// several primitives sharing geometry.
func (fb *FrameBuilder) AddText(rect, clipRect curve.Rect, clip *gfx.ComplexClipRegion, font rescache.FontKey, size, blurRadius fixed.Int26_6, c *color.Color, glyphs []scene.GlyphInstance) {
	fb.currentLayer()
	cf := gfx.FromColor(c)
	if cf.IsTransparent() || size == 0 || len(glyphs) == 0 {
		return
	}
	geom := geometry(rect, clipRect)
	for start := 0; start < len(glyphs); start += maxGlyphsPerRun {
		end := min(start+maxGlyphsPerRun, len(glyphs))
		run := fb.aux.AddGlyphInstances(glyphs[start:end])
		idx := fb.store.AddTextRun(geom, clip, font, size, blurRadius, cf, run)
		fb.recordPrim(idx)
	}
}

func (fb *FrameBuilder) AddImage(rect, clipRect curve.Rect, clip *gfx.ComplexClipRegion, key rescache.ImageKey, rendering rescache.ImageRendering, stretchSize, tileSpacing gmath.SizeF) {
	fb.currentLayer()
	idx := fb.store.AddImage(geometry(rect, clipRect), clip, key, rendering, stretchSize, tileSpacing)
	fb.recordPrim(idx)
}

func (fb *FrameBuilder) AddBorder(rect, clipRect curve.Rect, border gfx.Border) {
	fb.currentLayer()
	if border.Left.Width == 0 && border.Top.Width == 0 &&
		border.Right.Width == 0 && border.Bottom.Width == 0 {
		return
	}
	idx := fb.store.AddBorder(geometry(rect, clipRect), border)
	fb.recordPrim(idx)
}

// AddGradient adds a linear gradient between two points. Axis-aligned
// gradients take a cheaper shader; gradients specified against the axis
// direction are normalized by walking the stops backwards.
func (fb *FrameBuilder) AddGradient(rect, clipRect curve.Rect, clip *gfx.ComplexClipRegion, startPoint, endPoint curve.Point, stops []GradientStop) {
	fb.currentLayer()
	if len(stops) < 2 {
		return
	}

	start := gmath.PointFromCurve(startPoint)
	end := gmath.PointFromCurve(endPoint)
	kind := gfx.GradientRotated
	reversed := false
	switch {
	case start.X == end.X:
		kind = gfx.GradientVertical
		if start.Y > end.Y {
			start, end = end, start
			reversed = true
		}
	case start.Y == end.Y:
		kind = gfx.GradientHorizontal
		if start.X > end.X {
			start, end = end, start
			reversed = true
		}
	}

	records := make([]scene.GradientStopRecord, len(stops))
	for i, stop := range stops {
		cf := gfx.FromColor(stop.Color)
		records[i] = scene.GradientStopRecord{
			Offset: stop.Offset,
			R:      cf.R,
			G:      cf.G,
			B:      cf.B,
			A:      cf.A,
		}
	}
	stopRange := fb.aux.AddGradientStops(records)

	idx := fb.store.AddGradient(geometry(rect, clipRect), clip, kind, start, end, stopRange, reversed)
	fb.recordPrim(idx)
}

// AddBoxShadow adds a CSS box shadow for boxBounds. Degenerate shadows take
// fast paths: an invisible one is dropped, and a sharp-edged one without
// spread collapses to a plain rectangle.
func (fb *FrameBuilder) AddBoxShadow(boxBounds, clipRect curve.Rect, c *color.Color, offset curve.Point, blurRadius, spreadRadius, borderRadius float32, clipMode gfx.BoxShadowClipMode) {
	fb.currentLayer()
	cf := gfx.FromColor(c)
	if cf.IsTransparent() {
		return
	}

	box := gmath.RectFromCurve(boxBounds)
	shadowRect := box.
		Translate(float32(offset.X), float32(offset.Y)).
		Inflate(spreadRadius, spreadRadius)

	if blurRadius == 0 && spreadRadius == 0 && clipMode == gfx.BoxShadowClipNone {
		fb.AddSolidRectangle(boxBounds, clipRect, nil, c)
		return
	}

	// The region the shadow can touch: the shadow rect grown by the blur,
	// minus the box itself for outset shadows (the box hides the shadow
	// under it), or the box minus the shadow for inset ones.
	outerRect := shadowRect.Inflate(2*blurRadius, 2*blurRadius)
	var instanceRects []gmath.RectF
	inverted := false
	switch clipMode {
	case gfx.BoxShadowClipOutset:
		instanceRects = gmath.SubtractRect(outerRect, box, nil)
	case gfx.BoxShadowClipInset:
		inverted = true
		instanceRects = gmath.SubtractRect(box, shadowRect.Inflate(-2*blurRadius, -2*blurRadius), nil)
	default:
		instanceRects = []gmath.RectF{outerRect}
	}
	if len(instanceRects) == 0 {
		return
	}

	geom := scene.PrimitiveGeometry{
		LocalRect:     outerRect,
		LocalClipRect: gmath.RectFromCurve(clipRect),
	}
	idx := fb.store.AddBoxShadow(geom, scene.BoxShadowPrimitive{
		ShadowRect:    shadowRect,
		Color:         cf,
		BorderRadius:  borderRadius,
		BlurRadius:    blurRadius,
		Inverted:      inverted,
		ClipMode:      clipMode,
		InstanceRects: instanceRects,
	})
	fb.recordPrim(idx)
}

// updateScrollBars repositions scrollbar thumbs from the current scroll
// state. A scrollbar whose content fits its viewport collapses to an empty
// rect and culls away.
func (fb *FrameBuilder) updateScrollBars(scrollNodes map[scene.ScrollLayerID]ScrollNode) {
	viewport := gmath.SizeF{
		Width:  float32(fb.viewportSize.Width) / fb.devicePixelRatio,
		Height: float32(fb.viewportSize.Height) / fb.devicePixelRatio,
	}
	for _, sb := range fb.scrollbars {
		node := scrollNodeFor(scrollNodes, sb.scrollLayer, viewport)
		geom := &fb.store.Geometry[sb.prim]
		track := geom.LocalClipRect
		flags := fb.store.Metadata[sb.prim].Flags

		if flags&scene.FlagScrollbarVertical != 0 {
			if node.ContentSize.Height <= node.ViewportSize.Height || node.ContentSize.Height == 0 {
				geom.LocalRect = gmath.RectF{}
				continue
			}
			ratio := node.ViewportSize.Height / node.ContentSize.Height
			thumb := max(track.Height()*ratio, 8)
			travel := track.Height() - thumb
			maxScroll := node.ContentSize.Height - node.ViewportSize.Height
			y := track.Y0 + travel*(node.ScrollOffset.Y/maxScroll)
			geom.LocalRect = gmath.RectF{X0: track.X0, Y0: y, X1: track.X1, Y1: y + thumb}
		} else {
			if node.ContentSize.Width <= node.ViewportSize.Width || node.ContentSize.Width == 0 {
				geom.LocalRect = gmath.RectF{}
				continue
			}
			ratio := node.ViewportSize.Width / node.ContentSize.Width
			thumb := max(track.Width()*ratio, 8)
			travel := track.Width() - thumb
			maxScroll := node.ContentSize.Width - node.ViewportSize.Width
			x := track.X0 + travel*(node.ScrollOffset.X/maxScroll)
			geom.LocalRect = gmath.RectF{X0: x, Y0: track.Y0, X1: x + thumb, Y1: track.Y1}
		}
	}
}

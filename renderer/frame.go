package renderer

import (
	"honnef.co/go/safeish"

	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
)

// PackedLayer is one stacking context as the shaders see it. Culling fills
// one per layer; batchers copy the referenced subset into their uniform
// shards.
type PackedLayer struct {
	Transform      gmath.Matrix4
	InvTransform   gmath.Matrix4
	LocalClipRect  gmath.RectF
	Padding        [4]float32
	ScreenVertices [4]gmath.Point4
}

// ClearTile is a tile no primitive touches; the backend clears it instead of
// running a task graph for it.
type ClearTile struct {
	Rect gmath.DeviceRect
}

type DebugRect struct {
	Label string
	Color gfx.ColorF
	Rect  gmath.DeviceRect
}

type FrameProfileCounters struct {
	TotalPrimitives   int
	VisiblePrimitives int
	TotalTiles        int
	CompiledTiles     int
	ClearTilesCount   int
	PhaseCount        int
	TargetCount       int
}

// Frame is the output of one build: render phases in execution order plus
// the shared uniform data the backend uploads once.
type Frame struct {
	ViewportSize     gmath.DeviceSize
	DevicePixelRatio float32

	// BackgroundColor fills cleared tiles and any area no phase draws.
	BackgroundColor gfx.ColorF

	Phases     []*RenderPhase
	ClearTiles []ClearTile
	DebugRects []DebugRect

	// CacheSize is the dimension of intermediate target pages.
	CacheSize    gmath.DeviceSize
	PackedLayers []PackedLayer
	Clips        []gfx.ClipData

	Profile FrameProfileCounters
}

// The accessors below expose upload-ready views of instance and uniform
// data without copying.

func (f *Frame) PackedLayerBytes() []byte {
	return safeish.SliceCast[[]byte](f.PackedLayers)
}

func (f *Frame) ClipBytes() []byte {
	return safeish.SliceCast[[]byte](f.Clips)
}

func (b *AlphaBatcher) LayerBytes() []byte {
	return safeish.SliceCast[[]byte](b.Layers)
}

func (b *AlphaBatcher) TileBytes() []byte {
	return safeish.SliceCast[[]byte](b.Tiles)
}

func (b *PrimitiveBatch) InstanceBytes() []byte {
	switch b.Key.Kind {
	case BatchRectangle:
		return safeish.SliceCast[[]byte](b.Rectangles)
	case BatchTextRun:
		return safeish.SliceCast[[]byte](b.Glyphs)
	case BatchImage:
		return safeish.SliceCast[[]byte](b.Images)
	case BatchBorder:
		return safeish.SliceCast[[]byte](b.Borders)
	case BatchAlignedGradient, BatchAngleGradient:
		return safeish.SliceCast[[]byte](b.Gradients)
	case BatchBoxShadow:
		return safeish.SliceCast[[]byte](b.BoxShadows)
	case BatchBlend:
		return safeish.SliceCast[[]byte](b.Blends)
	case BatchComposite:
		return safeish.SliceCast[[]byte](b.Composites)
	default:
		panic("unreachable")
	}
}

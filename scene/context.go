package scene

import (
	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
)

// TileRange is an inclusive-exclusive range of screen tile coordinates.
type TileRange struct {
	X0, Y0, X1, Y1 int32
}

func (r TileRange) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

func (r TileRange) Intersect(other TileRange) TileRange {
	return TileRange{
		X0: max(r.X0, other.X0),
		Y0: max(r.Y0, other.Y0),
		X1: min(r.X1, other.X1),
		Y1: min(r.Y1, other.Y1),
	}
}

// StackingContext is one node of the layer tree. The first group of fields is
// set by the flattener and read-only for the frame; the second group is frame
// state that every culling pass recomputes from scratch.
type StackingContext struct {
	LocalRect       gmath.RectF
	LocalClipRect   gmath.RectF
	LocalTransform  gmath.Matrix4
	ScrollLayer     ScrollLayerID
	CompositionOps  []gfx.CompositionOp
	IsScrollbarHost bool

	// Frame state. Valid only between culling and the end of the build;
	// XfRectSet/TileRangeSet gate every read.
	WorldTransform gmath.Matrix4
	XfRect         gmath.TransformedRect
	XfRectSet      bool
	TileRange      TileRange
	TileRangeSet   bool
}

// ResetFrameState clears the cached per-frame fields. Culling calls this for
// every context before any visibility test runs, so a context skipped this
// frame can never expose last frame's rects.
func (sc *StackingContext) ResetFrameState() {
	sc.WorldTransform = gmath.Matrix4{}
	sc.XfRect = gmath.TransformedRect{}
	sc.XfRectSet = false
	sc.TileRange = TileRange{}
	sc.TileRangeSet = false
}

type compositeKindTag uint8

const (
	compositeNone compositeKindTag = iota
	compositeSimple
	compositeComplex
)

// CompositeKind describes how a stacking context reaches the screen: drawn
// in place (none), blended with a plain opacity (simple), or composited with
// a mix-blend-mode (complex). Simple and complex contexts render into an
// intermediate surface first.
type CompositeKind struct {
	tag     compositeKindTag
	opacity float32
	mix     gfx.MixBlendMode
}

func (k CompositeKind) IsNone() bool {
	return k.tag == compositeNone
}

func (k CompositeKind) Simple() (opacity float32, ok bool) {
	return k.opacity, k.tag == compositeSimple
}

func (k CompositeKind) Complex() (gfx.MixBlendMode, bool) {
	return k.mix, k.tag == compositeComplex
}

// CompositeKindOf derives the composite kind from a composition chain. A
// lone opacity of 1 and noop filters collapse to none; a single non-opacity
// filter and any multi-op chain fall back to a normal-mode composite, which
// the composite shader resolves.
func CompositeKindOf(ops []gfx.CompositionOp) CompositeKind {
	switch len(ops) {
	case 0:
		return CompositeKind{tag: compositeNone}
	case 1:
		if filter, ok := ops[0].Filter(); ok {
			if filter.IsNoop() {
				return CompositeKind{tag: compositeNone}
			}
			if filter.Kind == gfx.FilterOpacity {
				return CompositeKind{tag: compositeSimple, opacity: filter.Value}
			}
			return CompositeKind{tag: compositeComplex, mix: gfx.MixBlendNormal}
		}
		mix, _ := ops[0].MixBlend()
		if mix == gfx.MixBlendNormal {
			return CompositeKind{tag: compositeNone}
		}
		return CompositeKind{tag: compositeComplex, mix: mix}
	default:
		return CompositeKind{tag: compositeComplex, mix: gfx.MixBlendNormal}
	}
}

func (sc *StackingContext) CompositeKind() CompositeKind {
	return CompositeKindOf(sc.CompositionOps)
}

// CanContributeToScene reports whether drawing the context can change any
// pixel. A context whose composition chain multiplies everything by zero
// opacity cannot, and culling skips its whole subtree.
func (sc *StackingContext) CanContributeToScene() bool {
	for _, op := range sc.CompositionOps {
		if filter, ok := op.Filter(); ok {
			if filter.Kind == gfx.FilterOpacity && filter.Value == 0 {
				return false
			}
		}
	}
	return true
}

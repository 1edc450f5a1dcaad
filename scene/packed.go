package scene

import (
	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
)

// PrimitivePart tags which piece of a multi-part primitive an instance draws;
// borders expand into four corners and four edges.
type PrimitivePart uint32

const (
	PartInvalid PrimitivePart = iota
	PartTopLeft
	PartTopRight
	PartBottomLeft
	PartBottomRight
	PartTop
	PartLeft
	PartBottom
	PartRight
)

// PackedPrimitiveInfo is the header every packed primitive starts with. The
// layer and tile indices are slots in the batch group's uniform arrays,
// stored as biased floats for the vertex shader.
type PackedPrimitiveInfo struct {
	LayerIndex    float32
	TileIndex     float32
	Part          float32
	Padding       float32
	LocalClipRect gmath.RectF
	LocalRect     gmath.RectF
}

type PackedRectangle struct {
	Info  PackedPrimitiveInfo
	Color gfx.ColorF
}

type PackedGlyph struct {
	Info  PackedPrimitiveInfo
	Color gfx.ColorF
	P0    gmath.PointF
	P1    gmath.PointF
	UV0   gmath.PointF
	UV1   gmath.PointF
}

type PackedImage struct {
	Info        PackedPrimitiveInfo
	UV0         gmath.PointF
	UV1         gmath.PointF
	StretchSize gmath.SizeF
	TileSpacing gmath.SizeF
}

// PackedBorder is one of the eight pieces of a border. Corner pieces carry
// both adjoining edge colors and the corner radii; edge pieces use Color0
// only.
type PackedBorder struct {
	Info         PackedPrimitiveInfo
	Color0       gfx.ColorF
	Color1       gfx.ColorF
	OuterRadiusX float32
	OuterRadiusY float32
	InnerRadiusX float32
	InnerRadiusY float32
}

// PackedGradient is one piece of a gradient: the span between two adjacent
// stops.
type PackedGradient struct {
	Info    PackedPrimitiveInfo
	Color0  gfx.ColorF
	Color1  gfx.ColorF
	P0      gmath.PointF
	P1      gmath.PointF
	Kind    float32
	Padding [3]float32
}

type PackedBoxShadow struct {
	Info         PackedPrimitiveInfo
	Color        gfx.ColorF
	BorderRadius float32
	BlurRadius   float32
	Inverted     float32
	Padding      float32
	// BsRect is the shadow rect the blur samples from; SrcRect the piece of
	// it this instance draws. CacheRect is where the pre-blurred shadow
	// lives in the previous target, zero when the shadow isn't blurred.
	BsRect    gmath.RectF
	SrcRect   gmath.RectF
	CacheRect gmath.RectF
}

package gfx

import "honnef.co/go/quilt/gmath"

// ComplexClipRegion is a rounded-rectangle clip in layer-local coordinates.
type ComplexClipRegion struct {
	Rect  gmath.RectF
	Radii BorderRadius
}

// ClipRect and ClipCorner are laid out for direct upload; the padding keeps
// vec4 alignment.
type ClipRect struct {
	Rect    gmath.RectF
	Padding [4]float32
}

type ClipCorner struct {
	Rect         gmath.RectF
	OuterRadiusX float32
	OuterRadiusY float32
	InnerRadiusX float32
	InnerRadiusY float32
}

func clipCorner(rect gmath.RectF, outer gmath.SizeF) ClipCorner {
	return ClipCorner{
		Rect:         rect,
		OuterRadiusX: outer.Width,
		OuterRadiusY: outer.Height,
	}
}

// ClipData is the GPU-ready form of a rounded clip: the clip rectangle plus
// one corner record per rounded corner.
type ClipData struct {
	Rect        ClipRect
	TopLeft     ClipCorner
	TopRight    ClipCorner
	BottomLeft  ClipCorner
	BottomRight ClipCorner
}

// UniformClip builds clip data for a rect with the same radius on every
// corner.
func UniformClip(rect gmath.RectF, radius float32) ClipData {
	return ClipFromRegion(ComplexClipRegion{
		Rect:  rect,
		Radii: UniformBorderRadius(radius),
	})
}

func ClipFromRegion(region ComplexClipRegion) ClipData {
	rect := region.Rect
	radii := region.Radii
	return ClipData{
		Rect: ClipRect{Rect: rect},
		TopLeft: clipCorner(gmath.RectF{
			X0: rect.X0,
			Y0: rect.Y0,
			X1: rect.X0 + radii.TopLeft.Width,
			Y1: rect.Y0 + radii.TopLeft.Height,
		}, radii.TopLeft),
		TopRight: clipCorner(gmath.RectF{
			X0: rect.X1 - radii.TopRight.Width,
			Y0: rect.Y0,
			X1: rect.X1,
			Y1: rect.Y0 + radii.TopRight.Height,
		}, radii.TopRight),
		BottomLeft: clipCorner(gmath.RectF{
			X0: rect.X0,
			Y0: rect.Y1 - radii.BottomLeft.Height,
			X1: rect.X0 + radii.BottomLeft.Width,
			Y1: rect.Y1,
		}, radii.BottomLeft),
		BottomRight: clipCorner(gmath.RectF{
			X0: rect.X1 - radii.BottomRight.Width,
			Y0: rect.Y1 - radii.BottomRight.Height,
			X1: rect.X1,
			Y1: rect.Y1,
		}, radii.BottomRight),
	}
}

//go:generate stringer -type=BorderStyle

package gfx

import "honnef.co/go/quilt/gmath"

type BorderStyle uint8

const (
	BorderStyleNone BorderStyle = iota
	BorderStyleSolid
	BorderStyleDouble
	BorderStyleDotted
	BorderStyleDashed
	BorderStyleHidden
	BorderStyleGroove
	BorderStyleRidge
	BorderStyleInset
	BorderStyleOutset
)

type BorderSide struct {
	Width float32
	Color ColorF
	Style BorderStyle
}

// ShadedColor returns the color the side is drawn with. Inset and outset
// styles shade the author color to fake a bevel: scaled toward dark on the
// lit edges and toward light on the shadowed ones, with hardcoded grays when
// the author color is pure black. Other styles draw the color as given.
func (s *BorderSide) ShadedColor(scaleFactorLight, scaleFactorDark, blackLight, blackDark float32) ColorF {
	isBlack := s.Color.R == 0 && s.Color.G == 0 && s.Color.B == 0
	switch s.Style {
	case BorderStyleInset:
		if isBlack {
			return ColorF{blackDark, blackDark, blackDark, s.Color.A}
		}
		return s.Color.ScaleRGB(scaleFactorDark)
	case BorderStyleOutset:
		if isBlack {
			return ColorF{blackLight, blackLight, blackLight, s.Color.A}
		}
		return s.Color.ScaleRGB(scaleFactorLight)
	default:
		return s.Color
	}
}

// BorderRadius holds the outer corner radii of a border or clip.
type BorderRadius struct {
	TopLeft     gmath.SizeF
	TopRight    gmath.SizeF
	BottomLeft  gmath.SizeF
	BottomRight gmath.SizeF
}

func UniformBorderRadius(radius float32) BorderRadius {
	sz := gmath.SizeF{Width: radius, Height: radius}
	return BorderRadius{sz, sz, sz, sz}
}

func (r *BorderRadius) IsZero() bool {
	zero := gmath.SizeF{}
	return r.TopLeft == zero && r.TopRight == zero &&
		r.BottomLeft == zero && r.BottomRight == zero
}

type Border struct {
	Left   BorderSide
	Top    BorderSide
	Right  BorderSide
	Bottom BorderSide
	Radius BorderRadius
}

type GradientKind uint8

const (
	GradientHorizontal GradientKind = iota
	GradientVertical
	GradientRotated
)

type GradientStop struct {
	Offset float32
	Color  ColorF
}

type BoxShadowClipMode uint8

const (
	BoxShadowClipNone BoxShadowClipMode = iota
	BoxShadowClipOutset
	BoxShadowClipInset
)

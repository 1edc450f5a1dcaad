//go:generate stringer -type=MixBlendMode
//go:generate stringer -type=FilterKind

package gfx

// MixBlendMode selects the CSS mix-blend-mode applied when a stacking
// context composites onto its backdrop.
type MixBlendMode uint8

const (
	MixBlendNormal MixBlendMode = iota
	MixBlendMultiply
	MixBlendScreen
	MixBlendOverlay
	MixBlendDarken
	MixBlendLighten
	MixBlendColorDodge
	MixBlendColorBurn
	MixBlendHardLight
	MixBlendSoftLight
	MixBlendDifference
	MixBlendExclusion
	MixBlendHue
	MixBlendSaturation
	MixBlendColor
	MixBlendLuminosity
)

type FilterKind uint8

const (
	FilterBlur FilterKind = iota
	FilterBrightness
	FilterContrast
	FilterGrayscale
	FilterHueRotate
	FilterInvert
	FilterOpacity
	FilterSaturate
	FilterSepia
)

// FilterOp is one CSS filter function. Value holds the single parameter:
// amount for the color filters, angle in degrees for FilterHueRotate, radius
// in local units for FilterBlur.
type FilterOp struct {
	Kind  FilterKind
	Value float32
}

func Opacity(amount float32) FilterOp {
	return FilterOp{Kind: FilterOpacity, Value: amount}
}

func Blur(radius float32) FilterOp {
	return FilterOp{Kind: FilterBlur, Value: radius}
}

// IsNoop reports whether applying the filter leaves every pixel unchanged, in
// which case the stacking context needs no intermediate surface for it.
func (f FilterOp) IsNoop() bool {
	switch f.Kind {
	case FilterBlur, FilterHueRotate:
		return f.Value == 0
	case FilterBrightness, FilterContrast, FilterOpacity, FilterSaturate:
		return f.Value == 1
	case FilterGrayscale, FilterInvert, FilterSepia:
		return f.Value == 0
	default:
		panic("unreachable")
	}
}

type compositionOpKind uint8

const (
	compositionFilter compositionOpKind = iota
	compositionMixBlend
)

// CompositionOp is one entry of a stacking context's composition chain:
// either a filter function or a mix-blend-mode.
type CompositionOp struct {
	kind   compositionOpKind
	filter FilterOp
	mix    MixBlendMode
}

func FilterComposition(f FilterOp) CompositionOp {
	return CompositionOp{kind: compositionFilter, filter: f}
}

func MixBlendComposition(m MixBlendMode) CompositionOp {
	return CompositionOp{kind: compositionMixBlend, mix: m}
}

func (op CompositionOp) Filter() (FilterOp, bool) {
	return op.filter, op.kind == compositionFilter
}

func (op CompositionOp) MixBlend() (MixBlendMode, bool) {
	return op.mix, op.kind == compositionMixBlend
}

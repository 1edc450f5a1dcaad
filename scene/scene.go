// Package scene holds the inputs to a frame build: the append-only primitive
// store, the stacking-context records, and the auxiliary lists that carry
// variable-length data (glyphs, gradient stops) out of line. Everything is
// addressed by index; nothing in this package holds a pointer into another
// store.
package scene

import (
	"honnef.co/go/quilt/gmath"
)

// PrimitiveIndex addresses a primitive in a Store. Indices are stable for the
// lifetime of the scene; the store is rebuilt, not edited, on scene changes.
type PrimitiveIndex int32

// StackingContextIndex addresses a stacking context in the frame builder's
// layer list.
type StackingContextIndex int32

// ScrollLayerID identifies a scroll node. The embedder supplies per-node
// world transforms and viewports keyed by this id at build time.
type ScrollLayerID int32

const RootScrollLayer ScrollLayerID = 0

// ItemRange is a half-open range into one of the auxiliary lists.
type ItemRange struct {
	Start  int32
	Length int32
}

func (r ItemRange) Empty() bool {
	return r.Length == 0
}

type GlyphInstance struct {
	Index uint32
	Point gmath.PointF
}

// AuxiliaryLists stores variable-length display list payloads. Primitives
// reference slices of these by ItemRange so that the primitive records stay
// fixed-size.
type AuxiliaryLists struct {
	glyphInstances []GlyphInstance
	gradientStops  []GradientStopRecord
}

type GradientStopRecord struct {
	Offset float32
	R      float32
	G      float32
	B      float32
	A      float32
}

func (aux *AuxiliaryLists) AddGlyphInstances(glyphs []GlyphInstance) ItemRange {
	r := ItemRange{Start: int32(len(aux.glyphInstances)), Length: int32(len(glyphs))}
	aux.glyphInstances = append(aux.glyphInstances, glyphs...)
	return r
}

func (aux *AuxiliaryLists) AddGradientStops(stops []GradientStopRecord) ItemRange {
	r := ItemRange{Start: int32(len(aux.gradientStops)), Length: int32(len(stops))}
	aux.gradientStops = append(aux.gradientStops, stops...)
	return r
}

func (aux *AuxiliaryLists) GlyphInstances(r ItemRange) []GlyphInstance {
	return aux.glyphInstances[r.Start : r.Start+r.Length]
}

func (aux *AuxiliaryLists) GradientStops(r ItemRange) []GradientStopRecord {
	return aux.gradientStops[r.Start : r.Start+r.Length]
}

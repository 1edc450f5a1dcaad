// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package gmath provides the geometry used by the tiling pipeline: float32
// rectangles in layer-local space, int32 rectangles in device-pixel space, and
// a 4×4 transform with the classification helpers the culling pass needs.
package gmath

import (
	"math"

	"honnef.co/go/curve"
)

func Abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

func Floor32(f float32) float32 {
	return float32(math.Floor(float64(f)))
}

func Ceil32(f float32) float32 {
	return float32(math.Ceil(float64(f)))
}

func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// PackAsFloat converts a small enum or index to a float carried in vertex
// data. The 0.5 bias keeps truncation on the GPU from rounding down.
func PackAsFloat(v uint32) float32 {
	return float32(v) + 0.5
}

type PointF struct {
	X, Y float32
}

func Pt(x, y float32) PointF {
	return PointF{x, y}
}

func PointFromCurve(p curve.Point) PointF {
	return PointF{float32(p.X), float32(p.Y)}
}

type SizeF struct {
	Width, Height float32
}

// Point4 is a homogeneous point, used when a transform has a projective
// component and rectangles no longer map to rectangles.
type Point4 struct {
	X, Y, Z, W float32
}

// RectF is a float32 rectangle spanned by its min and max corners.
type RectF struct {
	X0, Y0, X1, Y1 float32
}

func RectFromCurve(r curve.Rect) RectF {
	return RectF{float32(r.X0), float32(r.Y0), float32(r.X1), float32(r.Y1)}
}

func RectFromOriginSize(origin PointF, size SizeF) RectF {
	return RectF{origin.X, origin.Y, origin.X + size.Width, origin.Y + size.Height}
}

func (r RectF) Width() float32  { return r.X1 - r.X0 }
func (r RectF) Height() float32 { return r.Y1 - r.Y0 }

func (r RectF) Origin() PointF { return PointF{r.X0, r.Y0} }

func (r RectF) Size() SizeF { return SizeF{r.X1 - r.X0, r.Y1 - r.Y0} }

func (r RectF) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

func (r RectF) Intersects(other RectF) bool {
	return r.X0 < other.X1 && other.X0 < r.X1 &&
		r.Y0 < other.Y1 && other.Y0 < r.Y1
}

// Intersect returns the overlap of r and other. The second return value
// reports whether the overlap is non-empty; when it is false the returned
// rectangle is the zero value.
func (r RectF) Intersect(other RectF) (RectF, bool) {
	out := RectF{
		X0: max(r.X0, other.X0),
		Y0: max(r.Y0, other.Y0),
		X1: min(r.X1, other.X1),
		Y1: min(r.Y1, other.Y1),
	}
	if out.IsEmpty() {
		return RectF{}, false
	}
	return out, true
}

func (r RectF) Union(other RectF) RectF {
	return RectF{
		X0: min(r.X0, other.X0),
		Y0: min(r.Y0, other.Y0),
		X1: max(r.X1, other.X1),
		Y1: max(r.Y1, other.Y1),
	}
}

func (r RectF) Contains(p PointF) bool {
	return p.X >= r.X0 && p.X < r.X1 && p.Y >= r.Y0 && p.Y < r.Y1
}

func (r RectF) ContainsRect(other RectF) bool {
	return other.X0 >= r.X0 && other.X1 <= r.X1 &&
		other.Y0 >= r.Y0 && other.Y1 <= r.Y1
}

func (r RectF) Translate(dx, dy float32) RectF {
	return RectF{r.X0 + dx, r.Y0 + dy, r.X1 + dx, r.Y1 + dy}
}

func (r RectF) Inflate(dx, dy float32) RectF {
	return RectF{r.X0 - dx, r.Y0 - dy, r.X1 + dx, r.Y1 + dy}
}

func (r RectF) Center() PointF {
	return PointF{(r.X0 + r.X1) * 0.5, (r.Y0 + r.Y1) * 0.5}
}

// SubtractRect appends rect minus other to results: up to four disjoint
// rectangles (left band, top, bottom, right band). If the two don't overlap,
// rect itself is appended unchanged. results is cleared first so callers can
// reuse a scratch slice across primitives.
func SubtractRect(rect, other RectF, results []RectF) []RectF {
	results = results[:0]

	inter, ok := rect.Intersect(other)
	if !ok {
		return append(results, rect)
	}

	push := func(r RectF) []RectF {
		if r.X1 > r.X0 && r.Y1 > r.Y0 {
			results = append(results, r)
		}
		return results
	}

	results = push(RectF{rect.X0, rect.Y0, inter.X0, rect.Y1})
	results = push(RectF{inter.X0, rect.Y0, inter.X1, inter.Y0})
	results = push(RectF{inter.X0, inter.Y1, inter.X1, rect.Y1})
	results = push(RectF{inter.X1, rect.Y0, rect.X1, rect.Y1})
	return results
}

// DevicePoint is a point in device pixels.
type DevicePoint struct {
	X, Y int32
}

type DeviceSize struct {
	Width, Height int32
}

// DeviceRect is a rectangle in device pixels, spanned by its min and max
// corners. Bounding rectangles produced by culling are of this type; tile
// rectangles and render-target allocations are too.
type DeviceRect struct {
	X0, Y0, X1, Y1 int32
}

func DeviceRectFromOriginSize(origin DevicePoint, size DeviceSize) DeviceRect {
	return DeviceRect{origin.X, origin.Y, origin.X + size.Width, origin.Y + size.Height}
}

func (r DeviceRect) Width() int32  { return r.X1 - r.X0 }
func (r DeviceRect) Height() int32 { return r.Y1 - r.Y0 }

func (r DeviceRect) Origin() DevicePoint { return DevicePoint{r.X0, r.Y0} }

func (r DeviceRect) Size() DeviceSize { return DeviceSize{r.X1 - r.X0, r.Y1 - r.Y0} }

func (r DeviceRect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

func (r DeviceRect) Intersects(other DeviceRect) bool {
	return r.X0 < other.X1 && other.X0 < r.X1 &&
		r.Y0 < other.Y1 && other.Y0 < r.Y1
}

func (r DeviceRect) Intersect(other DeviceRect) (DeviceRect, bool) {
	out := DeviceRect{
		X0: max(r.X0, other.X0),
		Y0: max(r.Y0, other.Y0),
		X1: min(r.X1, other.X1),
		Y1: min(r.Y1, other.Y1),
	}
	if out.IsEmpty() {
		return DeviceRect{}, false
	}
	return out, true
}

func (r DeviceRect) ContainsRect(other DeviceRect) bool {
	return other.X0 >= r.X0 && other.X1 <= r.X1 &&
		other.Y0 >= r.Y0 && other.Y1 <= r.Y1
}

func (r DeviceRect) Area() int64 {
	return int64(r.Width()) * int64(r.Height())
}

// ToRectF converts back to float space, for vertex data that addresses
// device-pixel geometry.
func (r DeviceRect) ToRectF() RectF {
	return RectF{float32(r.X0), float32(r.Y0), float32(r.X1), float32(r.Y1)}
}

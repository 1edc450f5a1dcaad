// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package gmath

type TransformKind uint8

const (
	// TransformAxisAligned covers 2D transforms without rotation or skew;
	// rectangles stay rectangles and only two corners need transforming.
	TransformAxisAligned TransformKind = iota
	// TransformComplex covers rotation, skew and perspective; rectangles
	// become arbitrary quads and bounds come from projecting all four
	// corners.
	TransformComplex
)

// TransformedRect is a layer-local rectangle carried through a transform into
// device-pixel space: the projected corner vertices for the shaders and a
// conservative device-pixel bounding rectangle for culling and tiling.
type TransformedRect struct {
	LocalRect    RectF
	BoundingRect DeviceRect
	Vertices     [4]Point4
	Kind         TransformKind
}

// NewTransformedRect classifies transform and computes the device bounds of
// rect under it. The bounding rectangle snaps outward: floor on the min
// corner, ceil on the max, after scaling by devicePixelRatio.
func NewTransformedRect(rect RectF, transform Matrix4, devicePixelRatio float32) TransformedRect {
	if transform.CanLosslesslyTransformAndProjectRect() {
		xf := transform.TransformRect(rect)
		return TransformedRect{
			LocalRect: rect,
			Kind:      TransformAxisAligned,
			Vertices: [4]Point4{
				{xf.X0, xf.Y0, 0, 1},
				{xf.X1, xf.Y0, 0, 1},
				{xf.X0, xf.Y1, 0, 1},
				{xf.X1, xf.Y1, 0, 1},
			},
			BoundingRect: DeviceRect{
				X0: int32(Floor32(xf.X0 * devicePixelRatio)),
				Y0: int32(Floor32(xf.Y0 * devicePixelRatio)),
				X1: int32(Ceil32(xf.X1 * devicePixelRatio)),
				Y1: int32(Ceil32(xf.Y1 * devicePixelRatio)),
			},
		}
	}

	vertices := [4]Point4{
		transform.TransformPoint4(Point4{rect.X0, rect.Y0, 0, 1}),
		transform.TransformPoint4(Point4{rect.X1, rect.Y0, 0, 1}),
		transform.TransformPoint4(Point4{rect.X0, rect.Y1, 0, 1}),
		transform.TransformPoint4(Point4{rect.X1, rect.Y1, 0, 1}),
	}

	tr := TransformedRect{
		LocalRect: rect,
		Kind:      TransformComplex,
		Vertices:  vertices,
	}

	var minX, minY, maxX, maxY float32
	for i, v := range vertices {
		invW := float32(1) / v.W
		x := v.X * invW
		y := v.Y * invW
		if i == 0 {
			minX, maxX = x, x
			minY, maxY = y, y
		} else {
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}

	tr.BoundingRect = DeviceRect{
		X0: int32(Floor32(minX * devicePixelRatio)),
		Y0: int32(Floor32(minY * devicePixelRatio)),
		X1: int32(Ceil32(maxX * devicePixelRatio)),
		Y1: int32(Ceil32(maxY * devicePixelRatio)),
	}
	return tr
}

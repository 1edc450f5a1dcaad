// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package gmath

import "honnef.co/go/curve"

// Matrix4 is a 4×4 transform in row-vector convention: a point transforms as
// p' = p·M, so translation lives in row 4 and the projective terms in column
// 4. This matches the layout the vertex shaders consume.
type Matrix4 struct {
	M11, M12, M13, M14 float32
	M21, M22, M23, M24 float32
	M31, M32, M33, M34 float32
	M41, M42, M43, M44 float32
}

func Identity() Matrix4 {
	return Matrix4{
		M11: 1,
		M22: 1,
		M33: 1,
		M44: 1,
	}
}

// MatrixFromAffine lifts a 2D affine transform into a Matrix4.
func MatrixFromAffine(a curve.Affine) Matrix4 {
	c := a.Coefficients()
	m := Identity()
	m.M11 = float32(c[0])
	m.M12 = float32(c[1])
	m.M21 = float32(c[2])
	m.M22 = float32(c[3])
	m.M41 = float32(c[4])
	m.M42 = float32(c[5])
	return m
}

func Translation(x, y, z float32) Matrix4 {
	m := Identity()
	m.M41 = x
	m.M42 = y
	m.M43 = z
	return m
}

func Scaling(x, y, z float32) Matrix4 {
	return Matrix4{
		M11: x,
		M22: y,
		M33: z,
		M44: 1,
	}
}

// Mul composes transforms: applying the result is equivalent to applying m
// first, then other.
func (m Matrix4) Mul(other Matrix4) Matrix4 {
	return Matrix4{
		M11: m.M11*other.M11 + m.M12*other.M21 + m.M13*other.M31 + m.M14*other.M41,
		M12: m.M11*other.M12 + m.M12*other.M22 + m.M13*other.M32 + m.M14*other.M42,
		M13: m.M11*other.M13 + m.M12*other.M23 + m.M13*other.M33 + m.M14*other.M43,
		M14: m.M11*other.M14 + m.M12*other.M24 + m.M13*other.M34 + m.M14*other.M44,

		M21: m.M21*other.M11 + m.M22*other.M21 + m.M23*other.M31 + m.M24*other.M41,
		M22: m.M21*other.M12 + m.M22*other.M22 + m.M23*other.M32 + m.M24*other.M42,
		M23: m.M21*other.M13 + m.M22*other.M23 + m.M23*other.M33 + m.M24*other.M43,
		M24: m.M21*other.M14 + m.M22*other.M24 + m.M23*other.M34 + m.M24*other.M44,

		M31: m.M31*other.M11 + m.M32*other.M21 + m.M33*other.M31 + m.M34*other.M41,
		M32: m.M31*other.M12 + m.M32*other.M22 + m.M33*other.M32 + m.M34*other.M42,
		M33: m.M31*other.M13 + m.M32*other.M23 + m.M33*other.M33 + m.M34*other.M43,
		M34: m.M31*other.M14 + m.M32*other.M24 + m.M33*other.M34 + m.M34*other.M44,

		M41: m.M41*other.M11 + m.M42*other.M21 + m.M43*other.M31 + m.M44*other.M41,
		M42: m.M41*other.M12 + m.M42*other.M22 + m.M43*other.M32 + m.M44*other.M42,
		M43: m.M41*other.M13 + m.M42*other.M23 + m.M43*other.M33 + m.M44*other.M43,
		M44: m.M41*other.M14 + m.M42*other.M24 + m.M43*other.M34 + m.M44*other.M44,
	}
}

// Translated returns a transform that translates first and then applies m.
func (m Matrix4) Translated(x, y, z float32) Matrix4 {
	return Translation(x, y, z).Mul(m)
}

// IsIdentity reports exact identity; it exists for the common untransformed
// layer case, not as an epsilon comparison.
func (m Matrix4) IsIdentity() bool {
	return m == Identity()
}

// CanLosslesslyTransformRect reports whether m maps an axis-aligned rectangle
// to another axis-aligned rectangle without a perspective divide.
func (m Matrix4) CanLosslesslyTransformRect() bool {
	return m.M12 == 0 && m.M14 == 0 &&
		m.M21 == 0 && m.M24 == 0 &&
		m.M44 == 1
}

// CanLosslesslyTransformAndProjectRect reports whether m maps an axis-aligned
// rectangle to an axis-aligned rectangle after the perspective divide. This is
// the classification culling uses to choose between the two-corner fast path
// and full four-corner homogeneous projection.
func (m Matrix4) CanLosslesslyTransformAndProjectRect() bool {
	return m.M12 == 0 && m.M21 == 0
}

func (m Matrix4) TransformPoint(p PointF) PointF {
	return PointF{
		X: p.X*m.M11 + p.Y*m.M21 + m.M41,
		Y: p.X*m.M12 + p.Y*m.M22 + m.M42,
	}
}

func (m Matrix4) TransformPoint4(p Point4) Point4 {
	return Point4{
		X: p.X*m.M11 + p.Y*m.M21 + p.Z*m.M31 + p.W*m.M41,
		Y: p.X*m.M12 + p.Y*m.M22 + p.Z*m.M32 + p.W*m.M42,
		Z: p.X*m.M13 + p.Y*m.M23 + p.Z*m.M33 + p.W*m.M43,
		W: p.X*m.M14 + p.Y*m.M24 + p.Z*m.M34 + p.W*m.M44,
	}
}

// TransformRect transforms the four corners of r and returns their bounding
// rectangle. Only meaningful when CanLosslesslyTransformRect holds or the
// caller wants a conservative bound.
func (m Matrix4) TransformRect(r RectF) RectF {
	p0 := m.TransformPoint(PointF{r.X0, r.Y0})
	p1 := m.TransformPoint(PointF{r.X1, r.Y0})
	p2 := m.TransformPoint(PointF{r.X0, r.Y1})
	p3 := m.TransformPoint(PointF{r.X1, r.Y1})
	return RectF{
		X0: min(min(p0.X, p1.X), min(p2.X, p3.X)),
		Y0: min(min(p0.Y, p1.Y), min(p2.Y, p3.Y)),
		X1: max(max(p0.X, p1.X), max(p2.X, p3.X)),
		Y1: max(max(p0.Y, p1.Y), max(p2.Y, p3.Y)),
	}
}

// TransformPointAndProject applies the full transform including the
// perspective divide.
func (m Matrix4) TransformPointAndProject(p PointF) PointF {
	h := m.TransformPoint4(Point4{p.X, p.Y, 0, 1})
	invW := float32(1) / h.W
	return PointF{h.X * invW, h.Y * invW}
}

// Invert returns the inverse of m. The second return value is false when m is
// singular; callers treat such layers as invisible.
func (m Matrix4) Invert() (Matrix4, bool) {
	a := [16]float64{
		float64(m.M11), float64(m.M12), float64(m.M13), float64(m.M14),
		float64(m.M21), float64(m.M22), float64(m.M23), float64(m.M24),
		float64(m.M31), float64(m.M32), float64(m.M33), float64(m.M34),
		float64(m.M41), float64(m.M42), float64(m.M43), float64(m.M44),
	}

	var inv [16]float64
	inv[0] = a[5]*a[10]*a[15] - a[5]*a[11]*a[14] - a[9]*a[6]*a[15] + a[9]*a[7]*a[14] + a[13]*a[6]*a[11] - a[13]*a[7]*a[10]
	inv[4] = -a[4]*a[10]*a[15] + a[4]*a[11]*a[14] + a[8]*a[6]*a[15] - a[8]*a[7]*a[14] - a[12]*a[6]*a[11] + a[12]*a[7]*a[10]
	inv[8] = a[4]*a[9]*a[15] - a[4]*a[11]*a[13] - a[8]*a[5]*a[15] + a[8]*a[7]*a[13] + a[12]*a[5]*a[11] - a[12]*a[7]*a[9]
	inv[12] = -a[4]*a[9]*a[14] + a[4]*a[10]*a[13] + a[8]*a[5]*a[14] - a[8]*a[6]*a[13] - a[12]*a[5]*a[10] + a[12]*a[6]*a[9]
	inv[1] = -a[1]*a[10]*a[15] + a[1]*a[11]*a[14] + a[9]*a[2]*a[15] - a[9]*a[3]*a[14] - a[13]*a[2]*a[11] + a[13]*a[3]*a[10]
	inv[5] = a[0]*a[10]*a[15] - a[0]*a[11]*a[14] - a[8]*a[2]*a[15] + a[8]*a[3]*a[14] + a[12]*a[2]*a[11] - a[12]*a[3]*a[10]
	inv[9] = -a[0]*a[9]*a[15] + a[0]*a[11]*a[13] + a[8]*a[1]*a[15] - a[8]*a[3]*a[13] - a[12]*a[1]*a[11] + a[12]*a[3]*a[9]
	inv[13] = a[0]*a[9]*a[14] - a[0]*a[10]*a[13] - a[8]*a[1]*a[14] + a[8]*a[2]*a[13] + a[12]*a[1]*a[10] - a[12]*a[2]*a[9]
	inv[2] = a[1]*a[6]*a[15] - a[1]*a[7]*a[14] - a[5]*a[2]*a[15] + a[5]*a[3]*a[14] + a[13]*a[2]*a[7] - a[13]*a[3]*a[6]
	inv[6] = -a[0]*a[6]*a[15] + a[0]*a[7]*a[14] + a[4]*a[2]*a[15] - a[4]*a[3]*a[14] - a[12]*a[2]*a[7] + a[12]*a[3]*a[6]
	inv[10] = a[0]*a[5]*a[15] - a[0]*a[7]*a[13] - a[4]*a[1]*a[15] + a[4]*a[3]*a[13] + a[12]*a[1]*a[7] - a[12]*a[3]*a[5]
	inv[14] = -a[0]*a[5]*a[14] + a[0]*a[6]*a[13] + a[4]*a[1]*a[14] - a[4]*a[2]*a[13] - a[12]*a[1]*a[6] + a[12]*a[2]*a[5]
	inv[3] = -a[1]*a[6]*a[11] + a[1]*a[7]*a[10] + a[5]*a[2]*a[11] - a[5]*a[3]*a[10] - a[9]*a[2]*a[7] + a[9]*a[3]*a[6]
	inv[7] = a[0]*a[6]*a[11] - a[0]*a[7]*a[10] - a[4]*a[2]*a[11] + a[4]*a[3]*a[10] + a[8]*a[2]*a[7] - a[8]*a[3]*a[6]
	inv[11] = -a[0]*a[5]*a[11] + a[0]*a[7]*a[9] + a[4]*a[1]*a[11] - a[4]*a[3]*a[9] - a[8]*a[1]*a[7] + a[8]*a[3]*a[5]
	inv[15] = a[0]*a[5]*a[10] - a[0]*a[6]*a[9] - a[4]*a[1]*a[10] + a[4]*a[2]*a[9] + a[8]*a[1]*a[6] - a[8]*a[2]*a[5]

	det := a[0]*inv[0] + a[1]*inv[4] + a[2]*inv[8] + a[3]*inv[12]
	if det == 0 {
		return Matrix4{}, false
	}
	det = 1 / det

	return Matrix4{
		M11: float32(inv[0] * det), M12: float32(inv[1] * det), M13: float32(inv[2] * det), M14: float32(inv[3] * det),
		M21: float32(inv[4] * det), M22: float32(inv[5] * det), M23: float32(inv[6] * det), M24: float32(inv[7] * det),
		M31: float32(inv[8] * det), M32: float32(inv[9] * det), M33: float32(inv[10] * det), M34: float32(inv[11] * det),
		M41: float32(inv[12] * det), M42: float32(inv[13] * det), M43: float32(inv[14] * det), M44: float32(inv[15] * det),
	}, true
}

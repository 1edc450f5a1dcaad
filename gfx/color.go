// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package gfx

import (
	"honnef.co/go/color"
)

// ColorF is a straight-alpha linear sRGB color as consumed by the shaders.
// Colors enter the public API as *color.Color and are converted once, at the
// display-list boundary.
type ColorF struct {
	R, G, B, A float32
}

func FromColor(c *color.Color) ColorF {
	cc := c.Convert(color.LinearSRGB)
	return ColorF{
		R: float32(cc.Values[0]),
		G: float32(cc.Values[1]),
		B: float32(cc.Values[2]),
		A: float32(cc.Values[3]),
	}
}

func (c ColorF) IsOpaque() bool {
	return c.A >= 1
}

func (c ColorF) IsTransparent() bool {
	return c.A <= 0
}

func (c ColorF) ScaleRGB(factor float32) ColorF {
	return ColorF{c.R * factor, c.G * factor, c.B * factor, c.A}
}

func (c ColorF) ScaleAlpha(factor float32) ColorF {
	return ColorF{c.R, c.G, c.B, c.A * factor}
}

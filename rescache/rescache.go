// Package rescache defines the interface between the frame builder and the
// resource cache. Culling emits a ResourceList of every image and glyph the
// frame needs; the cache resolves each request to a texture id and UV rect
// before tiling begins. The package also ships MemoryCache, an LRU-backed
// in-process implementation for embedders without a real texture cache.
package rescache

import (
	"golang.org/x/image/math/fixed"

	"honnef.co/go/quilt/gmath"
)

// TextureID identifies a texture owned by the backend. The zero value means
// "no texture bound" and acts as a wildcard in batch compatibility checks.
type TextureID uint32

const InvalidTextureID TextureID = 0

// FrameID increments once per built frame; caches use it to age entries.
type FrameID uint32

type ImageKey uint32

type FontKey uint32

// GlyphKey identifies one rasterized glyph. Size and BlurRadius are in 26.6
// fixed point so that keys are exact under comparison.
type GlyphKey struct {
	Font       FontKey
	Size       fixed.Int26_6
	BlurRadius fixed.Int26_6
	Index      uint32
}

type ImageRendering uint8

const (
	ImageRenderingAuto ImageRendering = iota
	ImageRenderingCrispEdges
	ImageRenderingPixelated
)

// CacheItem is a resolved image: where it lives and whether every texel is
// opaque. Opacity feeds the batcher's blend decision.
type CacheItem struct {
	Texture  TextureID
	UV       gmath.RectF
	IsOpaque bool
}

// GlyphItem is a resolved glyph: texture location plus placement metrics
// relative to the glyph origin.
type GlyphItem struct {
	Texture TextureID
	UV      gmath.RectF
	Offset  gmath.PointF
	Size    gmath.SizeF
}

// Package quilt compiles a flattened display list into GPU work: it culls a
// stacking-context tree, carves the viewport into fixed-size screen tiles,
// compiles each tile's contents into a dependency tree of render tasks,
// packs those tasks into bounded render-target pages across passes, and
// merges primitives into instanced draw-call batches. The output Frame is
// consumed by a rasterizer backend; quilt itself never touches a graphics
// API.
package quilt

import (
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/scene"
)

type option[T any] struct {
	isSet bool
	value T
}

func (opt *option[T]) set(v T) {
	opt.isSet = true
	opt.value = v
}

func (opt *option[T]) clear() {
	opt.isSet = false
	opt.value = *new(T)
}

func (opt option[T]) unwrap() T {
	if !opt.isSet {
		panic("option isn't set")
	}
	return opt.value
}

func (opt option[T]) unwrapOr(alt T) T {
	if opt.isSet {
		return opt.value
	} else {
		return alt
	}
}

func (opt option[T]) expect(msg string) T {
	if opt.isSet {
		return opt.value
	} else {
		panic(msg)
	}
}

func some[T any](v T) option[T] {
	return option[T]{
		isSet: true,
		value: v,
	}
}

const (
	// ScreenTileSize is the default edge length of a screen tile in device
	// pixels.
	ScreenTileSize = 64
	// RenderTargetSize is the default edge length of an intermediate render
	// target page.
	RenderTargetSize = 2048
)

// FrameBuilderConfig bounds the frame builder's GPU-facing resources. The
// uniform maxima cap how many layers and tiles one batch shard may
// reference; they derive from the smallest uniform block size the backend
// guarantees.
type FrameBuilderConfig struct {
	MaxPrimLayers int
	MaxPrimTiles  int
	// TileSize is the screen tile edge in device pixels.
	TileSize int32
	// TargetPageSize is the edge of intermediate render target pages.
	TargetPageSize int32
	// DebugTiles labels every compiled tile with a debug rectangle.
	DebugTiles bool
}

func DefaultConfig() FrameBuilderConfig {
	return FrameBuilderConfig{
		MaxPrimLayers:  256,
		MaxPrimTiles:   1024,
		TileSize:       ScreenTileSize,
		TargetPageSize: RenderTargetSize,
	}
}

// ScrollNode is the externally supplied state of one scroll space.
// WorldContentTransform maps scrolled content coordinates to world space and
// already includes the scroll offset; CombinedLocalViewport is the visible
// region in content coordinates, pre-intersected with ancestor viewports.
type ScrollNode struct {
	WorldContentTransform gmath.Matrix4
	CombinedLocalViewport gmath.RectF
	ScrollOffset          gmath.PointF
	ContentSize           gmath.SizeF
	ViewportSize          gmath.SizeF
}

// RootScrollNode covers the common case of an unscrolled scene.
func RootScrollNode(viewport gmath.SizeF) ScrollNode {
	return ScrollNode{
		WorldContentTransform: gmath.Identity(),
		CombinedLocalViewport: gmath.RectF{X1: viewport.Width, Y1: viewport.Height},
		ContentSize:           viewport,
		ViewportSize:          viewport,
	}
}

func scrollNodeFor(nodes map[scene.ScrollLayerID]ScrollNode, id scene.ScrollLayerID, viewport gmath.SizeF) ScrollNode {
	if node, ok := nodes[id]; ok {
		return node
	}
	return RootScrollNode(viewport)
}

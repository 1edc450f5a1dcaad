package rescache

import (
	"honnef.co/go/safeish"

	"honnef.co/go/quilt/mem"
)

// ResourceList accumulates the resource requests of one culling pass,
// deduplicated. It allocates from the frame arena and is discarded with it.
type ResourceList struct {
	arena  *Arena
	images mem.OrderedMap[uint64, ImageRequest]
	glyphs mem.OrderedMap[string, GlyphKey]
}

// Arena aliases the frame arena so that callers outside the frame builder
// don't need to import mem just to construct a list.
type Arena = mem.Arena

type ImageRequest struct {
	Key       ImageKey
	Rendering ImageRendering
}

func NewResourceList(arena *Arena) *ResourceList {
	return mem.Make(arena, ResourceList{arena: arena})
}

func imageRequestKey(key ImageKey, rendering ImageRendering) uint64 {
	return uint64(key)<<8 | uint64(rendering)
}

func glyphRequestKey(key GlyphKey) string {
	packed := [4]uint32{
		uint32(key.Font),
		uint32(key.Size),
		uint32(key.BlurRadius),
		key.Index,
	}
	return string(safeish.SliceCast[[]byte](packed[:]))
}

func (rl *ResourceList) AddImage(key ImageKey, rendering ImageRendering) {
	rl.images.Insert(rl.arena, imageRequestKey(key, rendering), ImageRequest{key, rendering})
}

func (rl *ResourceList) AddGlyph(key GlyphKey) {
	rl.glyphs.Insert(rl.arena, glyphRequestKey(key), key)
}

func (rl *ResourceList) ImageCount() int { return rl.images.Len() }
func (rl *ResourceList) GlyphCount() int { return rl.glyphs.Len() }

// EachImage visits the requested images in deterministic (key) order.
func (rl *ResourceList) EachImage(fn func(ImageRequest)) {
	for _, req := range rl.images.All() {
		fn(req)
	}
}

func (rl *ResourceList) EachGlyph(fn func(GlyphKey)) {
	for _, key := range rl.glyphs.All() {
		fn(key)
	}
}

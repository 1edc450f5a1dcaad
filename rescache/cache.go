package rescache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"honnef.co/go/quilt/gmath"
)

// Cache resolves resource requests. RequestResources must complete before
// tile assignment starts; Get* lookups afterwards are read-only and must not
// block. A false second return value means the resource didn't resolve this
// frame and the primitive referencing it draws nothing.
type Cache interface {
	RequestResources(list *ResourceList, frame FrameID)
	GetImage(key ImageKey, rendering ImageRendering) (CacheItem, bool)
	GetGlyph(key GlyphKey) (GlyphItem, bool)
}

// GlyphRasterizer produces placement metrics for a glyph. MemoryCache calls
// it once per distinct key and caches the result.
type GlyphRasterizer func(key GlyphKey) (GlyphDimensions, bool)

type GlyphDimensions struct {
	Left   float32
	Top    float32
	Width  float32
	Height float32
}

// MemoryCache is the default in-process Cache: embedders register image
// descriptors and a glyph rasterizer up front, and resolved entries live in
// bounded LRUs. Texture ids are assigned stably, one per image and one per
// font, so batch keys stay comparable across frames.
type MemoryCache struct {
	images     map[ImageKey]ImageDescriptor
	rasterizer GlyphRasterizer

	resolvedImages *lru.Cache[uint64, CacheItem]
	resolvedGlyphs *lru.Cache[GlyphKey, GlyphItem]

	textures    map[uint64]TextureID
	nextTexture TextureID
}

type ImageDescriptor struct {
	Width    int32
	Height   int32
	IsOpaque bool
}

const defaultCacheEntries = 4096

func NewMemoryCache() *MemoryCache {
	images, err := lru.New[uint64, CacheItem](defaultCacheEntries)
	if err != nil {
		panic(fmt.Sprintf("lru.New: %s", err))
	}
	glyphs, err := lru.New[GlyphKey, GlyphItem](defaultCacheEntries)
	if err != nil {
		panic(fmt.Sprintf("lru.New: %s", err))
	}
	return &MemoryCache{
		images:         make(map[ImageKey]ImageDescriptor),
		resolvedImages: images,
		resolvedGlyphs: glyphs,
		textures:       make(map[uint64]TextureID),
		nextTexture:    1,
	}
}

// AddImage registers or replaces an image descriptor. Replacing invalidates
// any resolved entry for the key.
func (c *MemoryCache) AddImage(key ImageKey, desc ImageDescriptor) {
	c.images[key] = desc
	for _, rendering := range []ImageRendering{ImageRenderingAuto, ImageRenderingCrispEdges, ImageRenderingPixelated} {
		c.resolvedImages.Remove(imageRequestKey(key, rendering))
	}
}

func (c *MemoryCache) DeleteImage(key ImageKey) {
	delete(c.images, key)
	for _, rendering := range []ImageRendering{ImageRenderingAuto, ImageRenderingCrispEdges, ImageRenderingPixelated} {
		c.resolvedImages.Remove(imageRequestKey(key, rendering))
	}
}

func (c *MemoryCache) SetGlyphRasterizer(r GlyphRasterizer) {
	c.rasterizer = r
}

func (c *MemoryCache) textureFor(key uint64) TextureID {
	if id, ok := c.textures[key]; ok {
		return id
	}
	id := c.nextTexture
	c.nextTexture++
	c.textures[key] = id
	return id
}

const (
	textureClassImage = uint64(1) << 62
	textureClassFont  = uint64(2) << 62
)

func (c *MemoryCache) RequestResources(list *ResourceList, frame FrameID) {
	list.EachImage(func(req ImageRequest) {
		cacheKey := imageRequestKey(req.Key, req.Rendering)
		if _, ok := c.resolvedImages.Get(cacheKey); ok {
			return
		}
		desc, ok := c.images[req.Key]
		if !ok {
			return
		}
		c.resolvedImages.Add(cacheKey, CacheItem{
			Texture:  c.textureFor(textureClassImage | uint64(req.Key)),
			UV:       gmath.RectF{X1: float32(desc.Width), Y1: float32(desc.Height)},
			IsOpaque: desc.IsOpaque,
		})
	})

	list.EachGlyph(func(key GlyphKey) {
		if _, ok := c.resolvedGlyphs.Get(key); ok {
			return
		}
		if c.rasterizer == nil {
			return
		}
		dims, ok := c.rasterizer(key)
		if !ok {
			return
		}
		// Glyphs of one font share a texture so that runs batch together.
		c.resolvedGlyphs.Add(key, GlyphItem{
			Texture: c.textureFor(textureClassFont | uint64(key.Font)),
			UV:      gmath.RectF{X1: dims.Width, Y1: dims.Height},
			Offset:  gmath.PointF{X: dims.Left, Y: dims.Top},
			Size:    gmath.SizeF{Width: dims.Width, Height: dims.Height},
		})
	})
}

func (c *MemoryCache) GetImage(key ImageKey, rendering ImageRendering) (CacheItem, bool) {
	return c.resolvedImages.Get(imageRequestKey(key, rendering))
}

func (c *MemoryCache) GetGlyph(key GlyphKey) (GlyphItem, bool) {
	return c.resolvedGlyphs.Get(key)
}

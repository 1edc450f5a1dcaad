package rescache

import (
	"testing"

	"golang.org/x/image/math/fixed"

	"honnef.co/go/quilt/mem"
)

func TestResourceListDeduplicates(t *testing.T) {
	arena := mem.NewArena()
	list := NewResourceList(arena)

	list.AddImage(1, ImageRenderingAuto)
	list.AddImage(1, ImageRenderingAuto)
	list.AddImage(1, ImageRenderingPixelated)
	list.AddImage(2, ImageRenderingAuto)
	if got := list.ImageCount(); got != 3 {
		t.Errorf("ImageCount = %d, want 3", got)
	}

	key := GlyphKey{Font: 1, Size: fixed.I(12), Index: 42}
	list.AddGlyph(key)
	list.AddGlyph(key)
	list.AddGlyph(GlyphKey{Font: 1, Size: fixed.I(12), Index: 43})
	list.AddGlyph(GlyphKey{Font: 1, Size: fixed.I(13), Index: 42})
	list.AddGlyph(GlyphKey{Font: 1, Size: fixed.I(12), BlurRadius: fixed.I(2), Index: 42})
	if got := list.GlyphCount(); got != 4 {
		t.Errorf("GlyphCount = %d, want 4", got)
	}
}

func TestMemoryCacheImages(t *testing.T) {
	cache := NewMemoryCache()
	cache.AddImage(7, ImageDescriptor{Width: 32, Height: 16, IsOpaque: true})

	if _, ok := cache.GetImage(7, ImageRenderingAuto); ok {
		t.Fatal("image resolved before being requested")
	}

	arena := mem.NewArena()
	list := NewResourceList(arena)
	list.AddImage(7, ImageRenderingAuto)
	list.AddImage(8, ImageRenderingAuto) // never registered
	cache.RequestResources(list, 1)

	item, ok := cache.GetImage(7, ImageRenderingAuto)
	if !ok {
		t.Fatal("requested image did not resolve")
	}
	if !item.IsOpaque || item.UV.X1 != 32 || item.UV.Y1 != 16 {
		t.Errorf("resolved item = %+v", item)
	}
	if item.Texture == InvalidTextureID {
		t.Error("resolved image has no texture")
	}
	if _, ok := cache.GetImage(8, ImageRenderingAuto); ok {
		t.Error("unregistered image resolved")
	}

	// The same key resolves to the same texture across frames.
	list2 := NewResourceList(mem.NewArena())
	list2.AddImage(7, ImageRenderingAuto)
	cache.RequestResources(list2, 2)
	again, _ := cache.GetImage(7, ImageRenderingAuto)
	if again.Texture != item.Texture {
		t.Errorf("texture changed across frames: %d then %d", item.Texture, again.Texture)
	}

	cache.DeleteImage(7)
	if _, ok := cache.GetImage(7, ImageRenderingAuto); ok {
		t.Error("deleted image still resolves")
	}
}

func TestMemoryCacheGlyphs(t *testing.T) {
	cache := NewMemoryCache()
	calls := 0
	cache.SetGlyphRasterizer(func(key GlyphKey) (GlyphDimensions, bool) {
		calls++
		if key.Index == 0 {
			return GlyphDimensions{}, false
		}
		return GlyphDimensions{Left: 1, Top: 8, Width: 6, Height: 9}, true
	})

	keyA := GlyphKey{Font: 3, Size: fixed.I(14), Index: 5}
	keyB := GlyphKey{Font: 3, Size: fixed.I(14), Index: 6}
	missing := GlyphKey{Font: 3, Size: fixed.I(14), Index: 0}

	list := NewResourceList(mem.NewArena())
	list.AddGlyph(keyA)
	list.AddGlyph(keyB)
	list.AddGlyph(missing)
	cache.RequestResources(list, 1)
	if calls != 3 {
		t.Errorf("rasterizer called %d times, want 3", calls)
	}

	a, ok := cache.GetGlyph(keyA)
	if !ok {
		t.Fatal("glyph did not resolve")
	}
	if a.Size.Width != 6 || a.Size.Height != 9 || a.Offset.X != 1 || a.Offset.Y != 8 {
		t.Errorf("glyph item = %+v", a)
	}
	b, _ := cache.GetGlyph(keyB)
	if a.Texture != b.Texture {
		t.Error("glyphs of one font got different textures")
	}
	if _, ok := cache.GetGlyph(missing); ok {
		t.Error("failed glyph resolved")
	}

	// Resolved glyphs are not re-rasterized on later frames.
	list2 := NewResourceList(mem.NewArena())
	list2.AddGlyph(keyA)
	cache.RequestResources(list2, 2)
	if calls != 3 {
		t.Errorf("rasterizer called %d times after warm request, want 3", calls)
	}
}

package scene

import (
	"golang.org/x/image/math/fixed"

	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/rescache"
)

//go:generate stringer -type=PrimitiveKind

type PrimitiveKind uint8

const (
	KindRectangle PrimitiveKind = iota
	KindTextRun
	KindImage
	KindBorder
	KindGradient
	KindBoxShadow
)

type PrimitiveFlags uint8

const (
	FlagScrollbarHorizontal PrimitiveFlags = 1 << iota
	FlagScrollbarVertical
)

func (f PrimitiveFlags) IsScrollbar() bool {
	return f&(FlagScrollbarHorizontal|FlagScrollbarVertical) != 0
}

type PrimitiveGeometry struct {
	LocalRect     gmath.RectF
	LocalClipRect gmath.RectF
}

// PrimitiveMetadata is the fixed-size record kept for every primitive.
// CPUIndex points into the kind's payload slice. ClipIndex is -1 when the
// primitive has no complex clip. IsOpaque and ColorTexture settle during
// resource resolution.
type PrimitiveMetadata struct {
	Kind         PrimitiveKind
	Flags        PrimitiveFlags
	IsOpaque     bool
	Resolved     bool
	ClipIndex    int32
	CPUIndex     int32
	ColorTexture rescache.TextureID
}

type RectanglePrimitive struct {
	Color gfx.ColorF
}

type TextRunPrimitive struct {
	Font       rescache.FontKey
	Size       fixed.Int26_6
	BlurRadius fixed.Int26_6
	Color      gfx.ColorF
	Glyphs     ItemRange

	// Filled by PrepareForRender.
	ResolvedGlyphs []ResolvedGlyph
}

// ResolvedGlyph is a glyph quad in layer-local units with its UV rect.
type ResolvedGlyph struct {
	P0  gmath.PointF
	P1  gmath.PointF
	UV0 gmath.PointF
	UV1 gmath.PointF
}

type ImagePrimitive struct {
	Key         rescache.ImageKey
	Rendering   rescache.ImageRendering
	StretchSize gmath.SizeF
	TileSpacing gmath.SizeF

	// Filled by PrepareForRender.
	UV gmath.RectF
}

type BorderPrimitive struct {
	Border gfx.Border
}

type GradientPrimitive struct {
	Kind       gfx.GradientKind
	StartPoint gmath.PointF
	EndPoint   gmath.PointF
	Stops      ItemRange
	// Reversed means the stop offsets run against the start→end axis; the
	// stops are walked backwards with mirrored offsets.
	Reversed bool

	// Filled by PrepareForRender.
	Pieces []GradientPiece
}

// GradientPiece is the span between two adjacent stops.
type GradientPiece struct {
	Color0 gfx.ColorF
	Color1 gfx.ColorF
	P0     gmath.PointF
	P1     gmath.PointF
}

type BoxShadowPrimitive struct {
	ShadowRect   gmath.RectF
	Color        gfx.ColorF
	BorderRadius float32
	BlurRadius   float32
	Inverted     bool
	ClipMode     gfx.BoxShadowClipMode
	// InstanceRects are the disjoint pieces the shadow is drawn as; the
	// frame builder precomputes them from the shadow and box rects.
	InstanceRects []gmath.RectF
}

type screenRectEntry struct {
	rect  gmath.DeviceRect
	isSet bool
}

// Store is the append-only primitive arena. Parallel slices keep the hot
// fixed-size records (geometry, metadata, cached screen rects) apart from the
// per-kind payloads.
type Store struct {
	Geometry    []PrimitiveGeometry
	Metadata    []PrimitiveMetadata
	screenRects []screenRectEntry

	Rectangles []RectanglePrimitive
	TextRuns   []TextRunPrimitive
	Images     []ImagePrimitive
	Borders    []BorderPrimitive
	Gradients  []GradientPrimitive
	BoxShadows []BoxShadowPrimitive
	Clips      []gfx.ClipData
}

func (s *Store) Len() int {
	return len(s.Metadata)
}

func (s *Store) addClip(clip *gfx.ComplexClipRegion) int32 {
	if clip == nil {
		return -1
	}
	s.Clips = append(s.Clips, gfx.ClipFromRegion(*clip))
	return int32(len(s.Clips) - 1)
}

func (s *Store) add(geom PrimitiveGeometry, md PrimitiveMetadata) PrimitiveIndex {
	idx := PrimitiveIndex(len(s.Metadata))
	s.Geometry = append(s.Geometry, geom)
	s.Metadata = append(s.Metadata, md)
	s.screenRects = append(s.screenRects, screenRectEntry{})
	return idx
}

func (s *Store) AddRectangle(geom PrimitiveGeometry, clip *gfx.ComplexClipRegion, color gfx.ColorF, flags PrimitiveFlags) PrimitiveIndex {
	s.Rectangles = append(s.Rectangles, RectanglePrimitive{Color: color})
	return s.add(geom, PrimitiveMetadata{
		Kind:      KindRectangle,
		Flags:     flags,
		IsOpaque:  color.IsOpaque(),
		Resolved:  true,
		ClipIndex: s.addClip(clip),
		CPUIndex:  int32(len(s.Rectangles) - 1),
	})
}

func (s *Store) AddTextRun(geom PrimitiveGeometry, clip *gfx.ComplexClipRegion, font rescache.FontKey, size, blurRadius fixed.Int26_6, color gfx.ColorF, glyphs ItemRange) PrimitiveIndex {
	s.TextRuns = append(s.TextRuns, TextRunPrimitive{
		Font:       font,
		Size:       size,
		BlurRadius: blurRadius,
		Color:      color,
		Glyphs:     glyphs,
	})
	return s.add(geom, PrimitiveMetadata{
		Kind:      KindTextRun,
		ClipIndex: s.addClip(clip),
		CPUIndex:  int32(len(s.TextRuns) - 1),
	})
}

func (s *Store) AddImage(geom PrimitiveGeometry, clip *gfx.ComplexClipRegion, key rescache.ImageKey, rendering rescache.ImageRendering, stretchSize, tileSpacing gmath.SizeF) PrimitiveIndex {
	s.Images = append(s.Images, ImagePrimitive{
		Key:         key,
		Rendering:   rendering,
		StretchSize: stretchSize,
		TileSpacing: tileSpacing,
	})
	return s.add(geom, PrimitiveMetadata{
		Kind:      KindImage,
		ClipIndex: s.addClip(clip),
		CPUIndex:  int32(len(s.Images) - 1),
	})
}

func (s *Store) AddBorder(geom PrimitiveGeometry, border gfx.Border) PrimitiveIndex {
	s.Borders = append(s.Borders, BorderPrimitive{Border: border})
	return s.add(geom, PrimitiveMetadata{
		Kind:     KindBorder,
		Resolved: true,
		CPUIndex: int32(len(s.Borders) - 1),
	})
}

func (s *Store) AddGradient(geom PrimitiveGeometry, clip *gfx.ComplexClipRegion, kind gfx.GradientKind, start, end gmath.PointF, stops ItemRange, reversed bool) PrimitiveIndex {
	s.Gradients = append(s.Gradients, GradientPrimitive{
		Kind:       kind,
		StartPoint: start,
		EndPoint:   end,
		Stops:      stops,
		Reversed:   reversed,
	})
	return s.add(geom, PrimitiveMetadata{
		Kind:      KindGradient,
		ClipIndex: s.addClip(clip),
		CPUIndex:  int32(len(s.Gradients) - 1),
	})
}

func (s *Store) AddBoxShadow(geom PrimitiveGeometry, shadow BoxShadowPrimitive) PrimitiveIndex {
	s.BoxShadows = append(s.BoxShadows, shadow)
	return s.add(geom, PrimitiveMetadata{
		Kind:     KindBoxShadow,
		Resolved: true,
		CPUIndex: int32(len(s.BoxShadows) - 1),
	})
}

// ResetScreenRects invalidates every cached screen rectangle. Culling calls
// this first, so a primitive is visible this frame only if this frame's pass
// said so.
func (s *Store) ResetScreenRects() {
	clear(s.screenRects)
}

// BuildBoundingRect computes and caches the primitive's device-pixel bounding
// rectangle: local rect ∩ local clip rect, transformed, then intersected with
// bounds (the layer's visible device rect). Returns false, caching "not
// visible", when any step empties out.
func (s *Store) BuildBoundingRect(idx PrimitiveIndex, bounds gmath.DeviceRect, transform gmath.Matrix4, devicePixelRatio float32) (gmath.DeviceRect, bool) {
	s.screenRects[idx] = screenRectEntry{}

	geom := s.Geometry[idx]
	local, ok := geom.LocalRect.Intersect(geom.LocalClipRect)
	if !ok {
		return gmath.DeviceRect{}, false
	}
	xf := gmath.NewTransformedRect(local, transform, devicePixelRatio)
	rect, ok := xf.BoundingRect.Intersect(bounds)
	if !ok {
		return gmath.DeviceRect{}, false
	}
	s.screenRects[idx] = screenRectEntry{rect: rect, isSet: true}
	return rect, true
}

// BoundingRect returns the cached screen rectangle. ok is false when the
// primitive isn't visible this frame; callers must skip it.
func (s *Store) BoundingRect(idx PrimitiveIndex) (gmath.DeviceRect, bool) {
	e := s.screenRects[idx]
	return e.rect, e.isSet
}

// BuildResourceList appends the primitive's resource requests.
func (s *Store) BuildResourceList(idx PrimitiveIndex, list *rescache.ResourceList, aux *AuxiliaryLists) {
	md := &s.Metadata[idx]
	switch md.Kind {
	case KindTextRun:
		run := &s.TextRuns[md.CPUIndex]
		for _, glyph := range aux.GlyphInstances(run.Glyphs) {
			list.AddGlyph(rescache.GlyphKey{
				Font:       run.Font,
				Size:       run.Size,
				BlurRadius: run.BlurRadius,
				Index:      glyph.Index,
			})
		}
	case KindImage:
		img := &s.Images[md.CPUIndex]
		list.AddImage(img.Key, img.Rendering)
	}
}

// PrepareForRender resolves the primitive against the cache and fills the
// payload fields that batching reads. Unresolved resources leave the
// primitive drawing nothing this frame.
func (s *Store) PrepareForRender(idx PrimitiveIndex, cache rescache.Cache, aux *AuxiliaryLists, devicePixelRatio float32) {
	md := &s.Metadata[idx]
	switch md.Kind {
	case KindTextRun:
		run := &s.TextRuns[md.CPUIndex]
		run.ResolvedGlyphs = run.ResolvedGlyphs[:0]
		md.Resolved = false
		md.ColorTexture = rescache.InvalidTextureID
		if cache == nil {
			return
		}
		for _, glyph := range aux.GlyphInstances(run.Glyphs) {
			item, ok := cache.GetGlyph(rescache.GlyphKey{
				Font:       run.Font,
				Size:       run.Size,
				BlurRadius: run.BlurRadius,
				Index:      glyph.Index,
			})
			if !ok {
				continue
			}
			p0 := gmath.PointF{
				X: glyph.Point.X + item.Offset.X/devicePixelRatio,
				Y: glyph.Point.Y - item.Offset.Y/devicePixelRatio,
			}
			run.ResolvedGlyphs = append(run.ResolvedGlyphs, ResolvedGlyph{
				P0:  p0,
				P1:  gmath.PointF{X: p0.X + item.Size.Width/devicePixelRatio, Y: p0.Y + item.Size.Height/devicePixelRatio},
				UV0: gmath.PointF{X: item.UV.X0, Y: item.UV.Y0},
				UV1: gmath.PointF{X: item.UV.X1, Y: item.UV.Y1},
			})
			md.ColorTexture = item.Texture
			md.Resolved = true
		}
	case KindImage:
		img := &s.Images[md.CPUIndex]
		var item rescache.CacheItem
		ok := cache != nil
		if ok {
			item, ok = cache.GetImage(img.Key, img.Rendering)
		}
		if !ok {
			md.Resolved = false
			md.IsOpaque = false
			md.ColorTexture = rescache.InvalidTextureID
			return
		}
		md.Resolved = true
		md.ColorTexture = item.Texture
		md.IsOpaque = item.IsOpaque && img.TileSpacing == gmath.SizeF{}
		img.UV = item.UV
	case KindGradient:
		grad := &s.Gradients[md.CPUIndex]
		grad.Pieces = grad.Pieces[:0]
		stops := aux.GradientStops(grad.Stops)
		for i := 0; i+1 < len(stops); i++ {
			s0, s1 := stops[i], stops[i+1]
			o0, o1 := s0.Offset, s1.Offset
			if grad.Reversed {
				s0, s1 = stops[len(stops)-1-i], stops[len(stops)-2-i]
				o0, o1 = 1-s0.Offset, 1-s1.Offset
			}
			grad.Pieces = append(grad.Pieces, GradientPiece{
				Color0: gfx.ColorF{R: s0.R, G: s0.G, B: s0.B, A: s0.A},
				Color1: gfx.ColorF{R: s1.R, G: s1.G, B: s1.B, A: s1.A},
				P0: gmath.PointF{
					X: gmath.Lerp(grad.StartPoint.X, grad.EndPoint.X, o0),
					Y: gmath.Lerp(grad.StartPoint.Y, grad.EndPoint.Y, o0),
				},
				P1: gmath.PointF{
					X: gmath.Lerp(grad.StartPoint.X, grad.EndPoint.X, o1),
					Y: gmath.Lerp(grad.StartPoint.Y, grad.EndPoint.Y, o1),
				},
			})
		}
		md.Resolved = true
	}
}

// AffectsTile is the narrow-phase tile test. The bounding rectangle of a
// border is conservative: a tile that lies entirely inside the border's inner
// hole isn't actually touched. Every other kind accepts the broad-phase
// answer.
func (s *Store) AffectsTile(idx PrimitiveIndex, tileRect gmath.DeviceRect, transform gmath.Matrix4, devicePixelRatio float32) bool {
	md := &s.Metadata[idx]
	if md.Kind != KindBorder {
		return true
	}
	if !transform.CanLosslesslyTransformAndProjectRect() {
		return true
	}

	b := &s.Borders[md.CPUIndex].Border
	rect := s.Geometry[idx].LocalRect
	inner := gmath.RectF{
		X0: rect.X0 + max(b.Left.Width, b.Radius.TopLeft.Width, b.Radius.BottomLeft.Width),
		Y0: rect.Y0 + max(b.Top.Width, b.Radius.TopLeft.Height, b.Radius.TopRight.Height),
		X1: rect.X1 - max(b.Right.Width, b.Radius.TopRight.Width, b.Radius.BottomRight.Width),
		Y1: rect.Y1 - max(b.Bottom.Width, b.Radius.BottomLeft.Height, b.Radius.BottomRight.Height),
	}
	if inner.IsEmpty() {
		return true
	}
	xf := gmath.NewTransformedRect(inner, transform, devicePixelRatio)
	return !xf.BoundingRect.ContainsRect(tileRect)
}

// FullyCoversTile reports whether drawing the primitive alone produces the
// tile's final pixels, letting the compiler drop everything painted under
// it. Requires provable opacity, no complex clip, an axis-aligned transform,
// and the cached screen rect containing the whole tile.
func (s *Store) FullyCoversTile(idx PrimitiveIndex, tileRect gmath.DeviceRect, kind gmath.TransformKind) bool {
	md := &s.Metadata[idx]
	if !md.IsOpaque || md.ClipIndex >= 0 || kind != gmath.TransformAxisAligned {
		return false
	}
	rect, ok := s.BoundingRect(idx)
	return ok && rect.ContainsRect(tileRect)
}

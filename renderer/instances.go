package renderer

import (
	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/scene"
)

func packedInfo(geom scene.PrimitiveGeometry, layerSlot, tileSlot int32, part scene.PrimitivePart) scene.PackedPrimitiveInfo {
	return scene.PackedPrimitiveInfo{
		LayerIndex:    gmath.PackAsFloat(uint32(layerSlot)),
		TileIndex:     gmath.PackAsFloat(uint32(tileSlot)),
		Part:          gmath.PackAsFloat(uint32(part)),
		LocalClipRect: geom.LocalClipRect,
		LocalRect:     geom.LocalRect,
	}
}

// appendPrimInstances expands one primitive into its GPU instances and
// appends them to batch. Multi-part primitives (borders, gradients, box
// shadows, text runs) emit several instances. cacheRect is the target rect
// of the primitive's cache task, zero when it has none.
func appendPrimInstances(ctx *BuildContext, batch *PrimitiveBatch, item AlphaRenderItem, layerSlot, tileSlot int32, cacheRect gmath.RectF) {
	store := ctx.Store
	md := &store.Metadata[item.Prim]
	geom := store.Geometry[item.Prim]
	info := packedInfo(geom, layerSlot, tileSlot, scene.PartInvalid)

	switch md.Kind {
	case scene.KindRectangle:
		batch.Rectangles = append(batch.Rectangles, scene.PackedRectangle{
			Info:  info,
			Color: store.Rectangles[md.CPUIndex].Color,
		})
	case scene.KindTextRun:
		run := &store.TextRuns[md.CPUIndex]
		for _, glyph := range run.ResolvedGlyphs {
			batch.Glyphs = append(batch.Glyphs, scene.PackedGlyph{
				Info:  info,
				Color: run.Color,
				P0:    glyph.P0,
				P1:    glyph.P1,
				UV0:   glyph.UV0,
				UV1:   glyph.UV1,
			})
		}
	case scene.KindImage:
		img := &store.Images[md.CPUIndex]
		batch.Images = append(batch.Images, scene.PackedImage{
			Info:        info,
			UV0:         gmath.PointF{X: img.UV.X0, Y: img.UV.Y0},
			UV1:         gmath.PointF{X: img.UV.X1, Y: img.UV.Y1},
			StretchSize: img.StretchSize,
			TileSpacing: img.TileSpacing,
		})
	case scene.KindBorder:
		appendBorderInstances(batch, geom, &store.Borders[md.CPUIndex].Border, layerSlot, tileSlot)
	case scene.KindGradient:
		grad := &store.Gradients[md.CPUIndex]
		kind := gmath.PackAsFloat(uint32(grad.Kind))
		for _, piece := range grad.Pieces {
			batch.Gradients = append(batch.Gradients, scene.PackedGradient{
				Info:   info,
				Color0: piece.Color0,
				Color1: piece.Color1,
				P0:     piece.P0,
				P1:     piece.P1,
				Kind:   kind,
			})
		}
	case scene.KindBoxShadow:
		shadow := &store.BoxShadows[md.CPUIndex]
		inverted := float32(0)
		if shadow.Inverted {
			inverted = 1
		}
		for _, rect := range shadow.InstanceRects {
			pieceInfo := info
			pieceInfo.LocalRect = rect
			batch.BoxShadows = append(batch.BoxShadows, scene.PackedBoxShadow{
				Info:         pieceInfo,
				Color:        shadow.Color,
				BorderRadius: shadow.BorderRadius,
				BlurRadius:   shadow.BlurRadius,
				Inverted:     inverted,
				BsRect:       shadow.ShadowRect,
				SrcRect:      rect,
				CacheRect:    cacheRect,
			})
		}
	}
}

// appendBorderInstances emits the eight border pieces: four corners carrying
// both adjoining colors and the radii, four edges carrying one color each.
func appendBorderInstances(batch *PrimitiveBatch, geom scene.PrimitiveGeometry, b *gfx.Border, layerSlot, tileSlot int32) {
	r := geom.LocalRect

	// Inset borders are shaded toward dark on the top/left and light on the
	// bottom/right; outset the other way around.
	leftColor := b.Left.ShadedColor(1, 2.0/3.0, 0.7, 0.3)
	topColor := b.Top.ShadedColor(1, 2.0/3.0, 0.7, 0.3)
	rightColor := b.Right.ShadedColor(2.0/3.0, 1, 0.3, 0.7)
	bottomColor := b.Bottom.ShadedColor(2.0/3.0, 1, 0.3, 0.7)

	tlW := max(b.Left.Width, b.Radius.TopLeft.Width)
	tlH := max(b.Top.Width, b.Radius.TopLeft.Height)
	trW := max(b.Right.Width, b.Radius.TopRight.Width)
	trH := max(b.Top.Width, b.Radius.TopRight.Height)
	blW := max(b.Left.Width, b.Radius.BottomLeft.Width)
	blH := max(b.Bottom.Width, b.Radius.BottomLeft.Height)
	brW := max(b.Right.Width, b.Radius.BottomRight.Width)
	brH := max(b.Bottom.Width, b.Radius.BottomRight.Height)

	corner := func(rect gmath.RectF, part scene.PrimitivePart, c0, c1 gfx.ColorF, outer gmath.SizeF, innerW, innerH float32) {
		pieceInfo := packedInfo(geom, layerSlot, tileSlot, part)
		pieceInfo.LocalRect = rect
		batch.Borders = append(batch.Borders, scene.PackedBorder{
			Info:         pieceInfo,
			Color0:       c0,
			Color1:       c1,
			OuterRadiusX: outer.Width,
			OuterRadiusY: outer.Height,
			InnerRadiusX: max(0, outer.Width-innerW),
			InnerRadiusY: max(0, outer.Height-innerH),
		})
	}
	edge := func(rect gmath.RectF, part scene.PrimitivePart, c gfx.ColorF) {
		if rect.IsEmpty() {
			return
		}
		pieceInfo := packedInfo(geom, layerSlot, tileSlot, part)
		pieceInfo.LocalRect = rect
		batch.Borders = append(batch.Borders, scene.PackedBorder{
			Info:   pieceInfo,
			Color0: c,
			Color1: c,
		})
	}

	corner(gmath.RectF{X0: r.X0, Y0: r.Y0, X1: r.X0 + tlW, Y1: r.Y0 + tlH},
		scene.PartTopLeft, leftColor, topColor, b.Radius.TopLeft, b.Left.Width, b.Top.Width)
	corner(gmath.RectF{X0: r.X1 - trW, Y0: r.Y0, X1: r.X1, Y1: r.Y0 + trH},
		scene.PartTopRight, rightColor, topColor, b.Radius.TopRight, b.Right.Width, b.Top.Width)
	corner(gmath.RectF{X0: r.X0, Y0: r.Y1 - blH, X1: r.X0 + blW, Y1: r.Y1},
		scene.PartBottomLeft, leftColor, bottomColor, b.Radius.BottomLeft, b.Left.Width, b.Bottom.Width)
	corner(gmath.RectF{X0: r.X1 - brW, Y0: r.Y1 - brH, X1: r.X1, Y1: r.Y1},
		scene.PartBottomRight, rightColor, bottomColor, b.Radius.BottomRight, b.Right.Width, b.Bottom.Width)

	edge(gmath.RectF{X0: r.X0 + tlW, Y0: r.Y0, X1: r.X1 - trW, Y1: r.Y0 + b.Top.Width},
		scene.PartTop, topColor)
	edge(gmath.RectF{X0: r.X0, Y0: r.Y0 + tlH, X1: r.X0 + b.Left.Width, Y1: r.Y1 - blH},
		scene.PartLeft, leftColor)
	edge(gmath.RectF{X0: r.X0 + blW, Y0: r.Y1 - b.Bottom.Width, X1: r.X1 - brW, Y1: r.Y1},
		scene.PartBottom, bottomColor)
	edge(gmath.RectF{X0: r.X1 - b.Right.Width, Y0: r.Y0 + trH, X1: r.X1, Y1: r.Y1 - brH},
		scene.PartRight, rightColor)
}

// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package renderer

import (
	"honnef.co/go/quilt/gmath"
)

// TexturePage hands out rectangular regions of one render target using a
// guillotine free-rect allocator. Free rectangles are binned by size class so
// small allocations don't scan the whole free list.
type TexturePage struct {
	size       gmath.DeviceSize
	small      []gmath.DeviceRect
	medium     []gmath.DeviceRect
	large      []gmath.DeviceRect
	allocCount int
}

const (
	minimumMediumRectSize = 64
	minimumLargeRectSize  = 512
)

type freeListBin uint8

const (
	binSmall freeListBin = iota
	binMedium
	binLarge
)

func binForSize(size gmath.DeviceSize) freeListBin {
	switch {
	case size.Width >= minimumLargeRectSize && size.Height >= minimumLargeRectSize:
		return binLarge
	case size.Width >= minimumMediumRectSize && size.Height >= minimumMediumRectSize:
		return binMedium
	default:
		return binSmall
	}
}

func NewTexturePage(size gmath.DeviceSize) *TexturePage {
	p := &TexturePage{size: size}
	p.Clear()
	return p
}

func (p *TexturePage) Size() gmath.DeviceSize {
	return p.size
}

func (p *TexturePage) bin(b freeListBin) *[]gmath.DeviceRect {
	switch b {
	case binSmall:
		return &p.small
	case binMedium:
		return &p.medium
	case binLarge:
		return &p.large
	default:
		panic("unreachable")
	}
}

// Clear resets the page to one free rectangle covering everything.
func (p *TexturePage) Clear() {
	p.small = p.small[:0]
	p.medium = p.medium[:0]
	p.large = p.large[:0]
	p.allocCount = 0
	p.addFreeRect(gmath.DeviceRect{X1: p.size.Width, Y1: p.size.Height})
}

func (p *TexturePage) addFreeRect(rect gmath.DeviceRect) {
	if rect.IsEmpty() {
		return
	}
	bin := p.bin(binForSize(rect.Size()))
	*bin = append(*bin, rect)
}

// findBestFit picks, over all bins that could hold size, the free rectangle
// with the least area (best-area-fit). Returns the bin and index, or false
// when nothing fits.
func (p *TexturePage) findBestFit(size gmath.DeviceSize) (freeListBin, int, bool) {
	bestBin := binSmall
	bestIndex := -1
	var bestArea int64
	for b := binForSize(size); b <= binLarge; b++ {
		for i, rect := range *p.bin(b) {
			if rect.Width() < size.Width || rect.Height() < size.Height {
				continue
			}
			area := rect.Area()
			if bestIndex == -1 || area < bestArea {
				bestBin, bestIndex, bestArea = b, i, area
			}
		}
		// Stop at the first bin with a fit; taking from a higher bin
		// would split a bigger rect than necessary.
		if bestIndex != -1 {
			break
		}
	}
	return bestBin, bestIndex, bestIndex != -1
}

// Allocate reserves a size-sized region, returning its origin. On failure
// the page is left unchanged.
func (p *TexturePage) Allocate(size gmath.DeviceSize) (gmath.DevicePoint, bool) {
	if size.Width == 0 || size.Height == 0 {
		return gmath.DevicePoint{}, true
	}
	bin, index, ok := p.findBestFit(size)
	if !ok {
		// The free list fragments over time; merging adjacent rects can
		// recover a fit.
		if !p.Coalesce() {
			return gmath.DevicePoint{}, false
		}
		bin, index, ok = p.findBestFit(size)
		if !ok {
			return gmath.DevicePoint{}, false
		}
	}

	list := p.bin(bin)
	chosen := (*list)[index]
	(*list)[index] = (*list)[len(*list)-1]
	*list = (*list)[:len(*list)-1]

	// Guillotine split, minimizing the area of the smaller leftover so the
	// larger one stays as usable as possible.
	leftoverW := chosen.Width() - size.Width
	leftoverH := chosen.Height() - size.Height
	if leftoverW < leftoverH {
		// Split horizontally: the wide strip below keeps the full width.
		p.addFreeRect(gmath.DeviceRect{
			X0: chosen.X0 + size.Width,
			Y0: chosen.Y0,
			X1: chosen.X1,
			Y1: chosen.Y0 + size.Height,
		})
		p.addFreeRect(gmath.DeviceRect{
			X0: chosen.X0,
			Y0: chosen.Y0 + size.Height,
			X1: chosen.X1,
			Y1: chosen.Y1,
		})
	} else {
		// Split vertically: the tall strip to the right keeps the full
		// height.
		p.addFreeRect(gmath.DeviceRect{
			X0: chosen.X0 + size.Width,
			Y0: chosen.Y0,
			X1: chosen.X1,
			Y1: chosen.Y1,
		})
		p.addFreeRect(gmath.DeviceRect{
			X0: chosen.X0,
			Y0: chosen.Y0 + size.Height,
			X1: chosen.X0 + size.Width,
			Y1: chosen.Y1,
		})
	}

	p.allocCount++
	return gmath.DevicePoint{X: chosen.X0, Y: chosen.Y0}, true
}

// Coalesce merges free rectangles that share a full edge. Reports whether
// any merge happened.
func (p *TexturePage) Coalesce() bool {
	rects := make([]gmath.DeviceRect, 0, len(p.small)+len(p.medium)+len(p.large))
	rects = append(rects, p.small...)
	rects = append(rects, p.medium...)
	rects = append(rects, p.large...)

	merged := false
	for again := true; again; {
		again = false
		for i := 0; i < len(rects); i++ {
			for j := i + 1; j < len(rects); j++ {
				a, b := rects[i], rects[j]
				var m gmath.DeviceRect
				switch {
				case a.Y0 == b.Y0 && a.Y1 == b.Y1 && a.X1 == b.X0:
					m = gmath.DeviceRect{X0: a.X0, Y0: a.Y0, X1: b.X1, Y1: a.Y1}
				case a.Y0 == b.Y0 && a.Y1 == b.Y1 && b.X1 == a.X0:
					m = gmath.DeviceRect{X0: b.X0, Y0: a.Y0, X1: a.X1, Y1: a.Y1}
				case a.X0 == b.X0 && a.X1 == b.X1 && a.Y1 == b.Y0:
					m = gmath.DeviceRect{X0: a.X0, Y0: a.Y0, X1: a.X1, Y1: b.Y1}
				case a.X0 == b.X0 && a.X1 == b.X1 && b.Y1 == a.Y0:
					m = gmath.DeviceRect{X0: a.X0, Y0: b.Y0, X1: a.X1, Y1: a.Y1}
				default:
					continue
				}
				rects[i] = m
				rects[j] = rects[len(rects)-1]
				rects = rects[:len(rects)-1]
				merged = true
				again = true
				j--
			}
		}
	}

	if !merged {
		return false
	}
	p.small = p.small[:0]
	p.medium = p.medium[:0]
	p.large = p.large[:0]
	for _, r := range rects {
		p.addFreeRect(r)
	}
	return true
}

// PageSnapshot captures the allocator state so a chain of allocations can be
// undone as one unit.
type PageSnapshot struct {
	small      []gmath.DeviceRect
	medium     []gmath.DeviceRect
	large      []gmath.DeviceRect
	allocCount int
}

func (p *TexturePage) Snapshot() PageSnapshot {
	return PageSnapshot{
		small:      append([]gmath.DeviceRect(nil), p.small...),
		medium:     append([]gmath.DeviceRect(nil), p.medium...),
		large:      append([]gmath.DeviceRect(nil), p.large...),
		allocCount: p.allocCount,
	}
}

func (p *TexturePage) Restore(snap PageSnapshot) {
	p.small = append(p.small[:0], snap.small...)
	p.medium = append(p.medium[:0], snap.medium...)
	p.large = append(p.large[:0], snap.large...)
	p.allocCount = snap.allocCount
}

func (p *TexturePage) AllocCount() int {
	return p.allocCount
}

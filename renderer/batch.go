package renderer

import (
	"honnef.co/go/quilt/gfx"
	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/mem"
	"honnef.co/go/quilt/rescache"
	"honnef.co/go/quilt/scene"
)

//go:generate stringer -type=BatchKind

type BatchKind uint8

const (
	BatchRectangle BatchKind = iota
	BatchTextRun
	BatchImage
	BatchBorder
	BatchAlignedGradient
	BatchAngleGradient
	BatchBoxShadow
	BatchBlend
	BatchComposite
)

type BlendMode uint8

const (
	BlendNone BlendMode = iota
	BlendAlpha
)

// BatchKey is the shader/blend/texture state a draw call needs; two
// instances may share a batch only if their keys are compatible.
type BatchKey struct {
	Kind     BatchKind
	Blend    BlendMode
	Textures [3]rescache.TextureID
}

func texturesCompatible(a, b rescache.TextureID) bool {
	return a == rescache.InvalidTextureID || b == rescache.InvalidTextureID || a == b
}

// IsCompatibleWith treats an unbound texture slot as a wildcard, so a batch
// seeded by an untextured primitive can later adopt a textured one.
func (k BatchKey) IsCompatibleWith(other BatchKey) bool {
	return k.Kind == other.Kind &&
		k.Blend == other.Blend &&
		texturesCompatible(k.Textures[0], other.Textures[0]) &&
		texturesCompatible(k.Textures[1], other.Textures[1]) &&
		texturesCompatible(k.Textures[2], other.Textures[2])
}

// adoptTextures fills wildcard slots of k with the concrete textures of
// other, so the batch key converges as instances join.
func (k *BatchKey) adoptTextures(other BatchKey) {
	for i := range k.Textures {
		if k.Textures[i] == rescache.InvalidTextureID {
			k.Textures[i] = other.Textures[i]
		}
	}
}

type PackedBlendPrimitive struct {
	SrcRect    gmath.RectF
	TargetRect gmath.RectF
	Opacity    float32
	Padding    [3]float32
}

type PackedCompositePrimitive struct {
	BackdropRect gmath.RectF
	SrcRect      gmath.RectF
	TargetRect   gmath.RectF
	MixBlend     float32
	Padding      [3]float32
}

// PrimitiveBatch is one draw call: a key plus the instance data of every
// primitive merged into it. Exactly one of the instance slices matches the
// key's kind and is non-empty.
type PrimitiveBatch struct {
	Key BatchKey

	Rectangles []scene.PackedRectangle
	Glyphs     []scene.PackedGlyph
	Images     []scene.PackedImage
	Borders    []scene.PackedBorder
	Gradients  []scene.PackedGradient
	BoxShadows []scene.PackedBoxShadow
	Blends     []PackedBlendPrimitive
	Composites []PackedCompositePrimitive

	itemRects []gmath.DeviceRect
}

func (b *PrimitiveBatch) InstanceCount() int {
	switch b.Key.Kind {
	case BatchRectangle:
		return len(b.Rectangles)
	case BatchTextRun:
		return len(b.Glyphs)
	case BatchImage:
		return len(b.Images)
	case BatchBorder:
		return len(b.Borders)
	case BatchAlignedGradient, BatchAngleGradient:
		return len(b.Gradients)
	case BatchBoxShadow:
		return len(b.BoxShadows)
	case BatchBlend:
		return len(b.Blends)
	case BatchComposite:
		return len(b.Composites)
	default:
		panic("unreachable")
	}
}

func reverse[E any](s []E) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func (b *PrimitiveBatch) reverseInstances() {
	switch b.Key.Kind {
	case BatchRectangle:
		reverse(b.Rectangles)
	case BatchTextRun:
		reverse(b.Glyphs)
	case BatchImage:
		reverse(b.Images)
	case BatchBorder:
		reverse(b.Borders)
	case BatchAlignedGradient, BatchAngleGradient:
		reverse(b.Gradients)
	case BatchBoxShadow:
		reverse(b.BoxShadows)
	case BatchBlend:
		reverse(b.Blends)
	case BatchComposite:
		reverse(b.Composites)
	}
}

// batchLookBack bounds how many recent batches a new primitive is matched
// against before giving up and opening a fresh one.
const batchLookBack = 10

// alphaBatchList holds order-sensitive batches. Instances stay in paint
// order; reuse of an earlier batch is allowed only if no batch in between
// overlaps the new primitive on screen.
type alphaBatchList struct {
	batches []*PrimitiveBatch
}

func (l *alphaBatchList) getSuitableBatch(key BatchKey, itemRect gmath.DeviceRect) *PrimitiveBatch {
	var selected *PrimitiveBatch
scan:
	for i := len(l.batches) - 1; i >= 0 && i >= len(l.batches)-batchLookBack; i-- {
		batch := l.batches[i]
		if batch.Key.IsCompatibleWith(key) {
			selected = batch
			break
		}
		// An incompatible batch that overlaps the primitive pins the paint
		// order; we must not merge past it.
		for _, r := range batch.itemRects {
			if r.Intersects(itemRect) {
				break scan
			}
		}
	}
	if selected == nil {
		selected = &PrimitiveBatch{Key: key}
		l.batches = append(l.batches, selected)
	}
	selected.Key.adoptTextures(key)
	selected.itemRects = append(selected.itemRects, itemRect)
	return selected
}

// addSingleton opens a batch that will never be merged into; blend and
// composite operations draw alone.
func (l *alphaBatchList) addSingleton(key BatchKey, itemRect gmath.DeviceRect) *PrimitiveBatch {
	batch := &PrimitiveBatch{Key: key, itemRects: []gmath.DeviceRect{itemRect}}
	l.batches = append(l.batches, batch)
	return batch
}

// opaqueBatchList holds batches drawn with depth testing; order between
// instances doesn't matter for correctness, so placement chases draw-call
// count instead: big primitives prefer the most recent batch for locality,
// small ones search the look-back window.
type opaqueBatchList struct {
	pixelAreaThresholdForNewBatch int64
	batches                       []*PrimitiveBatch
}

func (l *opaqueBatchList) getSuitableBatch(key BatchKey, itemRect gmath.DeviceRect) *PrimitiveBatch {
	var selected *PrimitiveBatch
	if itemRect.Area() > l.pixelAreaThresholdForNewBatch {
		if n := len(l.batches); n > 0 && l.batches[n-1].Key.IsCompatibleWith(key) {
			selected = l.batches[n-1]
		}
	} else {
		for i := len(l.batches) - 1; i >= 0 && i >= len(l.batches)-batchLookBack; i-- {
			if l.batches[i].Key.IsCompatibleWith(key) {
				selected = l.batches[i]
				break
			}
		}
	}
	if selected == nil {
		selected = &PrimitiveBatch{Key: key}
		l.batches = append(l.batches, selected)
	}
	selected.Key.adoptTextures(key)
	selected.itemRects = append(selected.itemRects, itemRect)
	return selected
}

// finalize flips each batch to front-to-back so early-Z rejects occluded
// fragments.
func (l *opaqueBatchList) finalize() {
	for _, batch := range l.batches {
		batch.reverseInstances()
	}
}

// PackedTile is one entry of a batcher's tile uniform array: the screen area
// a task draws and where its output lives in the target.
type PackedTile struct {
	ActualRect gmath.RectF
	TargetRect gmath.RectF
}

type batchTask struct {
	task     *RenderTask
	tileSlot int32
	items    []AlphaRenderItem
	// cursor counts down; items were reversed at compile time, so popping
	// from the end yields paint order.
	cursor int
}

func (t *batchTask) peek() (*AlphaRenderItem, bool) {
	if t.cursor == 0 {
		return nil, false
	}
	return &t.items[t.cursor-1], true
}

func (t *batchTask) pop() AlphaRenderItem {
	t.cursor--
	return t.items[t.cursor]
}

// AlphaBatcher batches the render items of a group of alpha tasks that share
// one pair of layer/tile uniform shards. A target holds several batchers
// when its tasks reference more layers or tiles than one shard allows.
type AlphaBatcher struct {
	tasks      []*batchTask
	layerSlots mem.OrderedMap[int32, int32]
	taskCursor int

	// Uniform shards, indexed by the slot values stored in instances.
	Layers []PackedLayer
	Tiles  []PackedTile

	opaque opaqueBatchList
	alpha  alphaBatchList

	// Build output. OpaqueBatches draw first, front to back; AlphaBatches
	// after, back to front.
	OpaqueBatches []*PrimitiveBatch
	AlphaBatches  []*PrimitiveBatch
}

func NewAlphaBatcher(ctx *BuildContext) *AlphaBatcher {
	return &AlphaBatcher{
		opaque: opaqueBatchList{
			// A quarter of a tile: anything bigger is "large" and sticks
			// with the current batch.
			pixelAreaThresholdForNewBatch: 64 * 64 / 4,
		},
	}
}

// AddTask claims uniform slots for the task's tile and layers. It reports
// false when the shard capacities would overflow; the caller then starts a
// new batcher.
func (b *AlphaBatcher) AddTask(ctx *BuildContext, task *RenderTask) bool {
	missing := make(map[scene.StackingContextIndex]struct{})
	for _, item := range task.Items {
		if item.Kind != ItemPrimitive {
			continue
		}
		if _, ok := b.layerSlots.Get(int32(item.Layer)); !ok {
			missing[item.Layer] = struct{}{}
		}
	}

	if len(b.Tiles)+1 > ctx.MaxPrimTiles {
		return false
	}
	if len(b.Layers)+len(missing) > ctx.MaxPrimLayers {
		return false
	}

	for _, item := range task.Items {
		if item.Kind != ItemPrimitive {
			continue
		}
		if _, ok := b.layerSlots.Get(int32(item.Layer)); !ok {
			slot := int32(len(b.Layers))
			b.Layers = append(b.Layers, ctx.PackedLayers[item.Layer])
			b.layerSlots.Insert(ctx.Arena, int32(item.Layer), slot)
		}
	}

	tileSlot := int32(len(b.Tiles))
	b.Tiles = append(b.Tiles, PackedTile{
		ActualRect: task.ActualRect.ToRectF(),
		TargetRect: task.TargetRect().ToRectF(),
	})

	b.tasks = append(b.tasks, &batchTask{
		task:     task,
		tileSlot: tileSlot,
		items:    task.Items,
		cursor:   len(task.Items),
	})
	return true
}

func (b *AlphaBatcher) layerSlot(layer scene.StackingContextIndex) int32 {
	slot, ok := b.layerSlots.Get(int32(layer))
	if !ok {
		panic("renderer: batching item for unregistered layer")
	}
	return slot
}

// nextItem pops the next unconsumed item, rotating the starting task so
// batches seed from all tasks rather than draining the first one dry.
func (b *AlphaBatcher) nextItem() (AlphaRenderItem, *batchTask, bool) {
	n := len(b.tasks)
	for i := 0; i < n; i++ {
		idx := (b.taskCursor + i) % n
		task := b.tasks[idx]
		if task.cursor > 0 {
			b.taskCursor = idx + 1
			return task.pop(), task, true
		}
	}
	return AlphaRenderItem{}, nil, false
}

func needsBlending(ctx *BuildContext, item AlphaRenderItem) bool {
	md := &ctx.Store.Metadata[item.Prim]
	layer := &ctx.Layers[item.Layer]
	return !md.IsOpaque || md.ClipIndex >= 0 || layer.XfRect.Kind == gmath.TransformComplex
}

func batchKeyForPrim(ctx *BuildContext, item AlphaRenderItem, blend BlendMode) BatchKey {
	md := &ctx.Store.Metadata[item.Prim]
	var kind BatchKind
	switch md.Kind {
	case scene.KindRectangle:
		kind = BatchRectangle
	case scene.KindTextRun:
		kind = BatchTextRun
	case scene.KindImage:
		kind = BatchImage
	case scene.KindBorder:
		kind = BatchBorder
	case scene.KindGradient:
		if ctx.Store.Gradients[md.CPUIndex].Kind == gfx.GradientRotated {
			kind = BatchAngleGradient
		} else {
			kind = BatchAlignedGradient
		}
	case scene.KindBoxShadow:
		kind = BatchBoxShadow
	default:
		panic("unreachable")
	}
	return BatchKey{
		Kind:     kind,
		Blend:    blend,
		Textures: [3]rescache.TextureID{md.ColorTexture, rescache.InvalidTextureID, rescache.InvalidTextureID},
	}
}

func (b *AlphaBatcher) build(ctx *BuildContext) {
	for {
		item, task, ok := b.nextItem()
		if !ok {
			break
		}
		switch item.Kind {
		case ItemComposite:
			b.addComposite(item, task)
		case ItemBlend:
			b.addBlend(item, task)
		case ItemPrimitive:
			b.addPrimitive(ctx, item, task)
		}
	}
	b.opaque.finalize()
	b.OpaqueBatches = b.opaque.batches
	b.AlphaBatches = b.alpha.batches
}

func (b *AlphaBatcher) addComposite(item AlphaRenderItem, task *batchTask) {
	src := task.task.Children[item.ChildIndex]
	key := BatchKey{Kind: BatchComposite, Blend: BlendAlpha}
	batch := b.alpha.addSingleton(key, src.ActualRect)
	batch.Composites = append(batch.Composites, PackedCompositePrimitive{
		BackdropRect: task.task.ChildLocations[item.ChildIndex-1].ToRectF(),
		SrcRect:      task.task.ChildLocations[item.ChildIndex].ToRectF(),
		TargetRect:   src.ActualRect.ToRectF(),
		MixBlend:     gmath.PackAsFloat(uint32(item.Mix)),
	})
}

func (b *AlphaBatcher) addBlend(item AlphaRenderItem, task *batchTask) {
	src := task.task.Children[item.ChildIndex]
	key := BatchKey{Kind: BatchBlend, Blend: BlendAlpha}
	batch := b.alpha.addSingleton(key, src.ActualRect)
	batch.Blends = append(batch.Blends, PackedBlendPrimitive{
		SrcRect:    task.task.ChildLocations[item.ChildIndex].ToRectF(),
		TargetRect: src.ActualRect.ToRectF(),
		Opacity:    item.Opacity,
	})
}

func (b *AlphaBatcher) addPrimitive(ctx *BuildContext, item AlphaRenderItem, task *batchTask) {
	store := ctx.Store
	if !store.Metadata[item.Prim].Resolved {
		// Resource didn't resolve this frame; the primitive draws nothing.
		return
	}
	itemRect, visible := store.BoundingRect(item.Prim)
	if !visible {
		return
	}

	blending := needsBlending(ctx, item)
	blend := BlendNone
	if blending {
		blend = BlendAlpha
	}
	key := batchKeyForPrim(ctx, item, blend)

	var batch *PrimitiveBatch
	if blending {
		batch = b.alpha.getSuitableBatch(key, itemRect)
	} else {
		batch = b.opaque.getSuitableBatch(key, itemRect)
	}

	appendPrimInstances(ctx, batch, item, b.layerSlot(item.Layer), task.tileSlot, primCacheRect(item, task))

	// Greedily pull matching primitives from every task in the group into
	// this batch. Per-task order is preserved (we only ever consume each
	// task's next item); tasks cover disjoint screen tiles, so cross-task
	// order is free.
	for _, other := range b.tasks {
		for {
			next, ok := other.peek()
			if !ok || next.Kind != ItemPrimitive {
				break
			}
			if !store.Metadata[next.Prim].Resolved {
				other.pop()
				continue
			}
			nextRect, vis := store.BoundingRect(next.Prim)
			if !vis {
				other.pop()
				continue
			}
			nextBlending := needsBlending(ctx, *next)
			if nextBlending != blending {
				break
			}
			nextKey := batchKeyForPrim(ctx, *next, blend)
			if !batch.Key.IsCompatibleWith(nextKey) {
				break
			}
			if blending {
				// Merging would hoist this primitive ahead of unprocessed
				// overlapping items in its own task; only disjoint
				// primitives may jump the queue.
				if conflictsWithPending(store, other, nextRect) {
					break
				}
			}
			it := other.pop()
			batch.Key.adoptTextures(nextKey)
			batch.itemRects = append(batch.itemRects, nextRect)
			appendPrimInstances(ctx, batch, it, b.layerSlot(it.Layer), other.tileSlot, primCacheRect(it, other))
		}
	}
}

// primCacheRect resolves where a primitive's cache task rendered, once
// target allocation has filled the task's ChildLocations.
func primCacheRect(item AlphaRenderItem, task *batchTask) gmath.RectF {
	if item.ChildIndex < 0 {
		return gmath.RectF{}
	}
	return task.task.ChildLocations[item.ChildIndex].ToRectF()
}

// conflictsWithPending reports whether rect overlaps any later item of the
// task; draining past such an item would change blended output.
func conflictsWithPending(store *scene.Store, task *batchTask, rect gmath.DeviceRect) bool {
	for i := task.cursor - 2; i >= 0; i-- {
		it := &task.items[i]
		if it.Kind != ItemPrimitive {
			return true
		}
		if r, ok := store.BoundingRect(it.Prim); ok && r.Intersects(rect) {
			return true
		}
	}
	return false
}

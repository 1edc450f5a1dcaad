package renderer

import (
	"testing"

	"honnef.co/go/quilt/gmath"
	"honnef.co/go/quilt/rescache"
	"honnef.co/go/quilt/scene"
)

func TestBatchKeyCompatibility(t *testing.T) {
	tex := func(a, b, c rescache.TextureID) [3]rescache.TextureID {
		return [3]rescache.TextureID{a, b, c}
	}
	tests := []struct {
		name string
		a, b BatchKey
		want bool
	}{
		{
			name: "identical",
			a:    BatchKey{Kind: BatchRectangle, Blend: BlendAlpha},
			b:    BatchKey{Kind: BatchRectangle, Blend: BlendAlpha},
			want: true,
		},
		{
			name: "different kind",
			a:    BatchKey{Kind: BatchRectangle},
			b:    BatchKey{Kind: BatchTextRun},
			want: false,
		},
		{
			name: "different blend mode",
			a:    BatchKey{Kind: BatchRectangle, Blend: BlendNone},
			b:    BatchKey{Kind: BatchRectangle, Blend: BlendAlpha},
			want: false,
		},
		{
			name: "unbound texture acts as wildcard",
			a:    BatchKey{Kind: BatchTextRun, Textures: tex(rescache.InvalidTextureID, 0, 0)},
			b:    BatchKey{Kind: BatchTextRun, Textures: tex(7, 0, 0)},
			want: true,
		},
		{
			name: "bound textures must match",
			a:    BatchKey{Kind: BatchTextRun, Textures: tex(3, 0, 0)},
			b:    BatchKey{Kind: BatchTextRun, Textures: tex(7, 0, 0)},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IsCompatibleWith(tt.b); got != tt.want {
				t.Errorf("IsCompatibleWith = %t, want %t", got, tt.want)
			}
			if got := tt.b.IsCompatibleWith(tt.a); got != tt.want {
				t.Errorf("IsCompatibleWith (reversed) = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestBatchKeyAdoptTextures(t *testing.T) {
	k := BatchKey{Kind: BatchImage, Textures: [3]rescache.TextureID{rescache.InvalidTextureID, 5, rescache.InvalidTextureID}}
	k.adoptTextures(BatchKey{Textures: [3]rescache.TextureID{9, 6, rescache.InvalidTextureID}})
	want := [3]rescache.TextureID{9, 5, rescache.InvalidTextureID}
	if k.Textures != want {
		t.Errorf("Textures = %v, want %v", k.Textures, want)
	}
}

func TestAlphaBatchListOverlapStop(t *testing.T) {
	rectKey := BatchKey{Kind: BatchRectangle, Blend: BlendAlpha}
	textKey := BatchKey{Kind: BatchTextRun, Blend: BlendAlpha}

	var l alphaBatchList
	a := l.getSuitableBatch(rectKey, gmath.DeviceRect{X0: 0, Y0: 0, X1: 10, Y1: 10})
	b := l.getSuitableBatch(textKey, gmath.DeviceRect{X0: 20, Y0: 0, X1: 30, Y1: 10})
	if a == b {
		t.Fatal("incompatible keys merged")
	}

	// Disjoint from the text batch: allowed to reach past it into the
	// rectangle batch.
	if got := l.getSuitableBatch(rectKey, gmath.DeviceRect{X0: 40, Y0: 0, X1: 50, Y1: 10}); got != a {
		t.Error("disjoint primitive did not merge into the earlier batch")
	}

	// Overlaps the text batch: merging past it would draw under the text.
	got := l.getSuitableBatch(rectKey, gmath.DeviceRect{X0: 25, Y0: 0, X1: 35, Y1: 10})
	if got == a || got == b {
		t.Error("overlapping primitive merged past a pinned batch")
	}
	if len(l.batches) != 3 {
		t.Errorf("len(batches) = %d, want 3", len(l.batches))
	}
}

func TestAlphaBatchListLookBackWindow(t *testing.T) {
	var l alphaBatchList
	first := l.getSuitableBatch(BatchKey{Kind: BatchRectangle}, gmath.DeviceRect{X1: 1, Y1: 1})
	for i := 0; i < batchLookBack; i++ {
		l.addSingleton(BatchKey{Kind: BatchBlend}, gmath.DeviceRect{X1: 1, Y1: 1})
	}
	got := l.getSuitableBatch(BatchKey{Kind: BatchRectangle}, gmath.DeviceRect{X0: 5, Y0: 5, X1: 6, Y1: 6})
	if got == first {
		t.Error("merged into a batch beyond the look-back window")
	}
}

func TestOpaqueBatchListPlacement(t *testing.T) {
	rectKey := BatchKey{Kind: BatchRectangle}
	imageKey := BatchKey{Kind: BatchImage}
	small := gmath.DeviceRect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	large := gmath.DeviceRect{X0: 0, Y0: 0, X1: 64, Y1: 64}

	l := opaqueBatchList{pixelAreaThresholdForNewBatch: 64 * 64 / 4}
	a := l.getSuitableBatch(rectKey, small)
	b := l.getSuitableBatch(imageKey, small)
	if a == b {
		t.Fatal("incompatible keys merged")
	}

	// Small primitives search back past the image batch.
	if got := l.getSuitableBatch(rectKey, small); got != a {
		t.Error("small primitive did not reuse the earlier batch")
	}

	// Large primitives only consider the most recent batch.
	if got := l.getSuitableBatch(rectKey, large); got == a || got == b {
		// ok, new batch
	} else {
		t.Error("large primitive reused a non-final batch")
	}
	if got := l.getSuitableBatch(rectKey, large); got != l.batches[len(l.batches)-1] {
		t.Error("large primitive did not stick with the final batch")
	}
}

func TestOpaqueBatchListFinalizeReverses(t *testing.T) {
	l := opaqueBatchList{pixelAreaThresholdForNewBatch: 1 << 30}
	batch := l.getSuitableBatch(BatchKey{Kind: BatchRectangle}, gmath.DeviceRect{X1: 1, Y1: 1})
	for i := 0; i < 3; i++ {
		batch.Rectangles = append(batch.Rectangles, scene.PackedRectangle{
			Info: scene.PackedPrimitiveInfo{Padding: float32(i)},
		})
	}
	l.finalize()
	for i, inst := range batch.Rectangles {
		if want := float32(2 - i); inst.Info.Padding != want {
			t.Errorf("instance %d: marker %v, want %v", i, inst.Info.Padding, want)
		}
	}
}

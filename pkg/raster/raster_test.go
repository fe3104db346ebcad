package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

// grayMask builds a grayscale mask filled with value v.
func grayMask(w, h int, v uint8) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

func TestResizeToFitExactDimensions(t *testing.T) {
	img := imaging.New(123, 77, color.NRGBA{10, 20, 30, 255})
	tests := [][2]int{{64, 64}, {101, 33}, {1024, 1024}}
	for _, sz := range tests {
		out := ResizeToFit(img, sz[0], sz[1])
		if b := out.Bounds(); b.Dx() != sz[0] || b.Dy() != sz[1] {
			t.Errorf("ResizeToFit to %dx%d produced %dx%d", sz[0], sz[1], b.Dx(), b.Dy())
		}
	}
}

func TestAlphaBoundingBoxTransparentMask(t *testing.T) {
	for _, threshold := range []uint8{0, 1, 128, 254} {
		if _, ok := AlphaBoundingBox(grayMask(40, 30, 0), threshold); ok {
			t.Errorf("threshold %d: expected no box on transparent mask", threshold)
		}
	}
}

func TestAlphaBoundingBoxOpaqueMask(t *testing.T) {
	mask := grayMask(40, 30, 255)
	rect, ok := AlphaBoundingBox(mask, 1)
	if !ok {
		t.Fatal("expected a box on opaque mask")
	}
	if rect != mask.Bounds() {
		t.Errorf("box = %v, want full extent %v", rect, mask.Bounds())
	}
}

func TestAlphaBoundingBoxPartial(t *testing.T) {
	mask := grayMask(50, 50, 0)
	for y := 10; y < 20; y++ {
		for x := 5; x < 30; x++ {
			mask.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	rect, ok := AlphaBoundingBox(mask, 1)
	if !ok {
		t.Fatal("expected a box")
	}
	want := image.Rect(5, 10, 30, 20)
	if rect != want {
		t.Errorf("box = %v, want %v", rect, want)
	}
}

func TestAlphaBoundingBoxThresholdStrict(t *testing.T) {
	mask := grayMask(10, 10, 100)
	if _, ok := AlphaBoundingBox(mask, 100); ok {
		t.Error("value equal to threshold must not qualify")
	}
	if _, ok := AlphaBoundingBox(mask, 99); !ok {
		t.Error("value above threshold must qualify")
	}
}

func TestAlphaBoundingBoxNRGBAUsesAlpha(t *testing.T) {
	mask := imaging.New(20, 20, color.NRGBA{255, 255, 255, 0})
	mask.SetNRGBA(7, 3, color.NRGBA{0, 0, 0, 255})
	rect, ok := AlphaBoundingBox(mask, 1)
	if !ok {
		t.Fatal("expected a box")
	}
	if want := image.Rect(7, 3, 8, 4); rect != want {
		t.Errorf("box = %v, want %v", rect, want)
	}
}

func TestExpandContainedAndMonotonic(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	rect := image.Rect(40, 40, 60, 60)
	prev := Expand(rect, bounds, 0)
	for margin := 1; margin <= 120; margin += 7 {
		got := Expand(rect, bounds, margin)
		if !got.In(bounds) && got != bounds {
			t.Fatalf("margin %d: %v escapes bounds %v", margin, got, bounds)
		}
		if !prev.In(got) {
			t.Fatalf("margin %d: result %v shrank below previous %v", margin, got, prev)
		}
		prev = got
	}
	if got := Expand(rect, bounds, 1000); got != bounds {
		t.Errorf("oversized margin: got %v, want bounds %v", got, bounds)
	}
}

func TestExpandFullMaskClamp(t *testing.T) {
	// Opaque 100x100 mask, threshold 1, margin 8: the expanded box clamps
	// to the full extent.
	mask := grayMask(100, 100, 255)
	rect, ok := AlphaBoundingBox(mask, 1)
	if !ok {
		t.Fatal("expected a box")
	}
	got := Expand(rect, mask.Bounds(), 8)
	if got != mask.Bounds() {
		t.Errorf("expanded box = %v, want %v", got, mask.Bounds())
	}
}

func TestCutoutTransparencyOutsideMask(t *testing.T) {
	fg := imaging.New(20, 20, color.NRGBA{200, 100, 50, 255})
	mask := grayMask(20, 20, 0)
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	out := Cutout(fg, mask)
	if c := out.NRGBAAt(0, 0); c.A != 0 || c.R != 0 {
		t.Errorf("outside mask: got %v, want fully transparent black", c)
	}
	if c := out.NRGBAAt(10, 10); c.A != 255 || c.R != 200 || c.G != 100 || c.B != 50 {
		t.Errorf("inside mask: got %v, want original color", c)
	}
}

func TestCutoutRecomposite(t *testing.T) {
	// Compositing the cutout back over an opaque background reproduces the
	// original foreground inside the mask within rounding tolerance.
	fg := imaging.New(30, 30, color.NRGBA{180, 90, 45, 255})
	mask := grayMask(30, 30, 255)
	cut := Cutout(fg, mask)
	back := imaging.New(30, 30, color.NRGBA{0, 0, 0, 255})
	recomposed := Overlay(back, cut)
	for _, pt := range []image.Point{{0, 0}, {15, 15}, {29, 29}} {
		got := recomposed.NRGBAAt(pt.X, pt.Y)
		want := fg.NRGBAAt(pt.X, pt.Y)
		if absDiff(got.R, want.R) > 1 || absDiff(got.G, want.G) > 1 || absDiff(got.B, want.B) > 1 {
			t.Errorf("at %v: got %v, want %v", pt, got, want)
		}
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestSquarePadAndResize(t *testing.T) {
	img := imaging.New(40, 20, color.NRGBA{255, 0, 0, 255})
	out := SquarePadAndResize(img, 64)
	if b := out.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("got %dx%d, want 64x64", b.Dx(), b.Dy())
	}
	// 40x20 pads to 40x40 with 10 transparent rows top and bottom; after
	// scaling to 64 the top rows stay transparent and the center stays red.
	if c := out.NRGBAAt(32, 2); c.A != 0 {
		t.Errorf("top padding not transparent: %v", c)
	}
	if c := out.NRGBAAt(32, 32); c.A == 0 || c.R < 200 {
		t.Errorf("center lost content: %v", c)
	}
}

func TestInvertedMonochromeGray(t *testing.T) {
	mask := grayMask(4, 4, 200)
	out := InvertedMonochrome(mask).(*image.Gray)
	if got := out.GrayAt(1, 1).Y; got != 55 {
		t.Errorf("got %d, want 55", got)
	}
}

func TestInvertedMonochromeAlpha(t *testing.T) {
	img := imaging.New(4, 4, color.NRGBA{10, 20, 30, 40})
	out := InvertedMonochrome(img).(*image.NRGBA)
	c := out.NRGBAAt(2, 2)
	if c.A != 215 {
		t.Errorf("alpha = %d, want 215", c.A)
	}
	if c.R != 10 || c.G != 20 || c.B != 30 {
		t.Errorf("colors changed: %v", c)
	}
}

func TestWithOverlayAlpha(t *testing.T) {
	img := imaging.New(4, 4, color.NRGBA{10, 20, 30, 200})
	out := WithOverlayAlpha(img, 0.5)
	if c := out.NRGBAAt(0, 0); c.A != 100 {
		t.Errorf("alpha = %d, want 100", c.A)
	}
	out = WithOverlayAlpha(img, 2.0) // clamped to 1
	if c := out.NRGBAAt(0, 0); c.A != 200 {
		t.Errorf("alpha = %d, want 200", c.A)
	}
}

func BenchmarkAlphaBoundingBox(b *testing.B) {
	mask := grayMask(1024, 1024, 0)
	for y := 300; y < 700; y++ {
		for x := 300; x < 700; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		AlphaBoundingBox(mask, 1)
	}
}

func BenchmarkCutout(b *testing.B) {
	fg := imaging.New(1024, 1024, color.NRGBA{100, 100, 100, 255})
	mask := grayMask(1024, 1024, 255)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Cutout(fg, mask)
	}
}

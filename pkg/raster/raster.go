// Package raster implements the pure image-space operations used by the
// segmentation pipeline: resizing to the model input, mask bounding boxes,
// margin expansion, cutouts and square padding. All operations return new
// images; inputs are never mutated.
package raster

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ResizeToFit scales img with independent per-axis factors so the result is
// exactly w×h, clipping any rounding overshoot.
func ResizeToFit(img image.Image, w, h int) *image.NRGBA {
	out := imaging.Resize(img, w, h, imaging.Lanczos)
	if b := out.Bounds(); b.Dx() != w || b.Dy() != h {
		out = imaging.Crop(out, image.Rect(0, 0, w, h))
	}
	return out
}

// maskValue reads the per-sample mask intensity: the sole channel for
// grayscale masks, the alpha channel otherwise.
func maskValue(mask image.Image, x, y int) uint8 {
	switch m := mask.(type) {
	case *image.Gray:
		return m.GrayAt(x, y).Y
	case *image.Gray16:
		return uint8(m.Gray16At(x, y).Y >> 8)
	case *image.NRGBA:
		return m.NRGBAAt(x, y).A
	case *image.Alpha:
		return m.AlphaAt(x, y).A
	default:
		_, _, _, a := mask.At(x, y).RGBA()
		return uint8(a >> 8)
	}
}

// AlphaBoundingBox scans every sample of mask and returns the tightest
// rectangle, inclusive of the extremes, enclosing all samples whose value is
// strictly greater than threshold. ok is false when no sample qualifies,
// which is distinct from a zero-size box.
//
// The scan walks the raw buffer row-major from the top row; working-space
// rectangles share that origin, so the raw row extremes convert directly
// into the returned image.Rectangle. This is the single point where buffer
// coordinates become a working rectangle.
func AlphaBoundingBox(mask image.Image, threshold uint8) (image.Rectangle, bool) {
	b := mask.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if maskValue(mask, x, y) <= threshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Expand grows rect by margin pixels on every side and clamps the result to
// bounds. A margin large enough to exceed bounds yields bounds itself.
func Expand(rect, bounds image.Rectangle, margin int) image.Rectangle {
	return rect.Inset(-margin).Intersect(bounds)
}

// Cutout returns fg inside the mask's opaque region and fully transparent
// elsewhere. The output alpha is the product of the foreground alpha and the
// mask value; colors stay non-premultiplied so partial-alpha boundaries do
// not pick up dark fringes. Pixels with zero result alpha are zeroed.
func Cutout(fg, mask image.Image) *image.NRGBA {
	out := imaging.Clone(fg)
	b := out.Bounds()
	mb := mask.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := y*out.Stride + x*4
			var v uint8
			if x < mb.Dx() && y < mb.Dy() {
				v = maskValue(mask, mb.Min.X+x, mb.Min.Y+y)
			}
			a := uint8(uint32(out.Pix[i+3]) * uint32(v) / 255)
			if a == 0 {
				out.Pix[i+0] = 0
				out.Pix[i+1] = 0
				out.Pix[i+2] = 0
			}
			out.Pix[i+3] = a
		}
	}
	return out
}

// SquarePadAndResize pads the shorter dimension of img symmetrically with
// transparent pixels to form a max(w,h) square, keeps the content centered,
// then uniformly scales to side×side.
func SquarePadAndResize(img image.Image, side int) *image.NRGBA {
	b := img.Bounds()
	sq := b.Dx()
	if b.Dy() > sq {
		sq = b.Dy()
	}
	canvas := imaging.New(sq, sq, color.NRGBA{})
	canvas = imaging.PasteCenter(canvas, img)
	return imaging.Resize(canvas, side, side, imaging.Lanczos)
}

// InvertedMonochrome flips a mask: every sample value becomes 255-value.
// Grayscale masks invert their sole channel; for everything else the alpha
// channel is inverted and colors are left unchanged.
func InvertedMonochrome(mask image.Image) image.Image {
	if g, ok := mask.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		for i, v := range g.Pix {
			out.Pix[i] = 255 - v
		}
		return out
	}
	out := imaging.Clone(mask)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255 - out.Pix[i]
	}
	return out
}

// WithOverlayAlpha scales the alpha channel of img by factor in [0,1],
// leaving colors unchanged. Used to render semi-transparent previews.
func WithOverlayAlpha(img image.Image, factor float64) *image.NRGBA {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = uint8(float64(out.Pix[i])*factor + 0.5)
	}
	return out
}

// Overlay composites over onto base at the origin with full opacity.
func Overlay(base, over image.Image) *image.NRGBA {
	return imaging.Overlay(base, over, image.Pt(0, 0), 1.0)
}

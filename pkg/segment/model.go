package segment

import (
	"context"
	"image"
)

// PointType tags a prompt point as background or foreground.
type PointType int

const (
	Background PointType = 0
	Foreground PointType = 1
)

// Point is a prompt coordinate in the original image's pixel space. The
// order of points is significant to the model; type tags are carried in a
// parallel slice.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Model is the segmentation-model contract. Implementations follow a
// three-step protocol: EncodeImage with a buffer of exactly InputSize, then
// EncodePrompts, then FetchMask. The returned mask is aligned to the
// original image's pixel extent.
type Model interface {
	// InputSize reports the fixed pixel dimensions the model expects for
	// EncodeImage.
	InputSize() (width, height int)

	// EncodeImage submits the resized source image for feature extraction.
	EncodeImage(ctx context.Context, img image.Image) error

	// EncodePrompts submits the typed point prompts. Points are expressed in
	// the original image's pixel space; extent is that image's size. Must be
	// called after EncodeImage.
	EncodePrompts(ctx context.Context, points []Point, types []PointType, extent image.Point) error

	// FetchMask returns the decoded mask at the original image's extent.
	// Valid only after both encode steps.
	FetchMask(ctx context.Context, extent image.Point) (image.Image, error)

	// Close releases model resources.
	Close() error
}

// Package sam is the production segment.Model backed by SAM2 ONNX weights
// through the go-vision runtime. The engine runs the vision encoder once per
// image, then decodes a mask from the point prompts.
package sam

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"runtime"

	"github.com/disintegration/imaging"
	"github.com/getcharzp/go-vision/sam2"

	"github.com/menta2k/maskcrop/pkg/segment"
)

// inputSide is the long-side resolution SAM2 expects for the encoder input.
const inputSide = 1024

// Config locates the runtime library and model weights.
type Config struct {
	LibPath     string
	EncoderPath string
	DecoderPath string
	UseCUDA     bool
}

// DefaultConfig builds a config rooted at dir, falling back to ./models.
func DefaultConfig(dir string) Config {
	if dir == "" {
		dir = "models"
	}
	return Config{
		LibPath:     filepath.Join(dir, runtimeLibName()),
		EncoderPath: filepath.Join(dir, "vision_encoder.onnx"),
		DecoderPath: filepath.Join(dir, "prompt_encoder_mask_decoder.onnx"),
	}
}

func runtimeLibName() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// Model implements segment.Model on top of a sam2 engine. Not safe for
// concurrent use; the pipeline is strictly sequential.
type Model struct {
	engine *sam2.Engine
	imgCtx *sam2.ImageContext
	points []sam2.Point
}

// Load initializes the ONNX runtime and both model sessions. Missing or
// corrupt artifacts surface as segment.ErrModelLoad.
func Load(cfg Config) (*Model, error) {
	engine, err := sam2.NewEngine(sam2.Config{
		OnnxRuntimeLibPath: cfg.LibPath,
		EncodeModelPath:    cfg.EncoderPath,
		DecodeModelPath:    cfg.DecoderPath,
		UseCuda:            cfg.UseCUDA,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", segment.ErrModelLoad, err)
	}
	return &Model{engine: engine}, nil
}

// InputSize reports the fixed encoder resolution.
func (m *Model) InputSize() (int, int) { return inputSide, inputSide }

// EncodeImage runs the vision encoder and holds its context for decoding.
func (m *Model) EncodeImage(_ context.Context, img image.Image) error {
	imgCtx, err := m.engine.EncodeImage(img)
	if err != nil {
		return fmt.Errorf("%w: %v", segment.ErrEncoding, err)
	}
	if m.imgCtx != nil {
		m.imgCtx.Destroy()
	}
	m.imgCtx = imgCtx
	m.points = nil
	return nil
}

// EncodePrompts converts prompts from original-image pixel space into the
// encoder's input space and stores them for the decode step.
func (m *Model) EncodePrompts(_ context.Context, points []segment.Point, types []segment.PointType, extent image.Point) error {
	if m.imgCtx == nil {
		return fmt.Errorf("%w: image not encoded", segment.ErrEncoding)
	}
	if extent.X <= 0 || extent.Y <= 0 {
		return fmt.Errorf("%w: empty image extent", segment.ErrEncoding)
	}
	sx := float32(inputSide) / float32(extent.X)
	sy := float32(inputSide) / float32(extent.Y)
	m.points = make([]sam2.Point, len(points))
	for i, p := range points {
		label := sam2.LabelBackground
		if types[i] == segment.Foreground {
			label = sam2.LabelForeground
		}
		m.points[i] = sam2.Point{
			X:     float32(p.X) * sx,
			Y:     float32(p.Y) * sy,
			Label: label,
		}
	}
	return nil
}

// FetchMask decodes a mask from the held encoding state and resizes it back
// to the original image extent with nearest-neighbor sampling so edges stay
// binary.
func (m *Model) FetchMask(_ context.Context, extent image.Point) (image.Image, error) {
	if m.imgCtx == nil {
		return nil, fmt.Errorf("%w: image not encoded", segment.ErrNoMask)
	}
	mask, _, err := m.imgCtx.Decode(m.points)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", segment.ErrNoMask, err)
	}
	if mask == nil {
		return nil, fmt.Errorf("%w: decoder returned nothing", segment.ErrNoMask)
	}
	if b := mask.Bounds(); b.Dx() != extent.X || b.Dy() != extent.Y {
		mask = imaging.Resize(mask, extent.X, extent.Y, imaging.NearestNeighbor)
	}
	return mask, nil
}

// Close releases the decode context and engine sessions.
func (m *Model) Close() error {
	if m.imgCtx != nil {
		m.imgCtx.Destroy()
		m.imgCtx = nil
	}
	if m.engine != nil {
		m.engine.Destroy()
		m.engine = nil
	}
	return nil
}

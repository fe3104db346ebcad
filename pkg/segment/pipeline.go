package segment

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/menta2k/maskcrop/internal/utils"
	"github.com/menta2k/maskcrop/pkg/imageio"
	"github.com/menta2k/maskcrop/pkg/naming"
	"github.com/menta2k/maskcrop/pkg/raster"
)

// MaskSuffix is appended to the stem for the persisted mask PNG.
const MaskSuffix = "_mask"

// overlayAlpha is the opacity of the cutout when composited onto the source
// image for the preview PNG.
const overlayAlpha = 0.6

// Options controls the optional pipeline stages. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	OutDir      string // dataset directory for crop/mask/caption/metadata
	WriteMask   bool   // persist the mask next to the crop
	Crop        bool   // crop the cutout to the mask bounding box
	Margin      int    // pixels added around the bounding box before cropping
	Size        int    // square pad-and-resize side, 0 disables
	OverlayPath string // optional preview path, empty disables
	Threshold   uint8  // mask value a sample must exceed to count as foreground
	InvertMask  bool   // invert the mask before cutting out
}

// DefaultOptions returns the options used by the CLI when no flags override
// them.
func DefaultOptions() Options {
	return Options{
		OutDir:    filepath.Join("dataset", "prepared"),
		WriteMask: true,
		Crop:      true,
		Margin:    8,
		Threshold: 1,
	}
}

// Request describes one segmentation run. Points and Types are parallel
// slices and must have equal length.
type Request struct {
	InputPath string
	Label     string
	Caption   string
	Points    []Point
	Types     []PointType
}

// Result reports what a successful run produced.
type Result struct {
	Stem     string
	CropPath string
	MaskPath string // empty when the mask was not written
	Record   Record
}

// Pipeline runs the linear segment-to-dataset-record sequence against a
// loaded model. It holds no mutable state between runs beyond the model's
// own encoding state.
type Pipeline struct {
	model Model
	opts  Options
}

// NewPipeline wires a pipeline to a model.
func NewPipeline(model Model, opts Options) *Pipeline {
	return &Pipeline{model: model, opts: opts}
}

// segmentOnce performs the shared head of both pipeline modes: load the
// source, encode it at the model's input size, validate and encode the
// prompts, fetch the mask and build the cutout. The returned mask has any
// requested inversion already applied.
func (p *Pipeline) segmentOnce(ctx context.Context, req Request) (src, mask image.Image, cutout *image.NRGBA, err error) {
	if len(req.Points) != len(req.Types) {
		return nil, nil, nil, fmt.Errorf("%w: %d points but %d types", ErrValidation, len(req.Points), len(req.Types))
	}

	src, err = imageio.Load(req.InputPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %s: %v", ErrInputImage, req.InputPath, err)
	}
	extent := image.Pt(src.Bounds().Dx(), src.Bounds().Dy())

	mw, mh := p.model.InputSize()
	if err := p.model.EncodeImage(ctx, raster.ResizeToFit(src, mw, mh)); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if err := p.model.EncodePrompts(ctx, req.Points, req.Types, extent); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	mask, err = p.model.FetchMask(ctx, extent)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrNoMask, err)
	}
	if mask == nil {
		return nil, nil, nil, ErrNoMask
	}
	if mb := mask.Bounds(); mb.Dx() != extent.X || mb.Dy() != extent.Y {
		return nil, nil, nil, fmt.Errorf("%w: mask is %dx%d, source is %dx%d",
			ErrNoMask, mb.Dx(), mb.Dy(), extent.X, extent.Y)
	}

	if p.opts.InvertMask {
		mask = raster.InvertedMonochrome(mask)
	}
	return src, mask, raster.Cutout(src, mask), nil
}

// Run executes the full pipeline for one image and persists the output set.
// Writes happen in the order crop, mask, caption, metadata; a failure
// partway leaves the already-written files on disk. The overlay write is the
// one soft step: its failure is logged, not returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	src, mask, cutout, err := p.segmentOnce(ctx, req)
	if err != nil {
		return nil, err
	}

	out := cutout
	var bbox []int
	if p.opts.Crop {
		// A fully transparent mask yields no box; the cutout then stays
		// uncropped and the record carries a null bbox.
		if rect, ok := raster.AlphaBoundingBox(mask, p.opts.Threshold); ok {
			rect = raster.Expand(rect, cutout.Bounds(), p.opts.Margin)
			out = imaging.Crop(out, rect)
			bbox = []int{rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy()}
		}
	}

	var size *int
	if p.opts.Size > 0 {
		out = raster.SquarePadAndResize(out, p.opts.Size)
		s := p.opts.Size
		size = &s
	}

	if err := utils.EnsureDir(p.opts.OutDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputIO, err)
	}
	stem := naming.NextStem(p.opts.OutDir, req.InputPath, req.Label)
	res := &Result{
		Stem:     stem,
		CropPath: filepath.Join(p.opts.OutDir, stem+".png"),
		Record: Record{
			Source:  filepath.Base(req.InputPath),
			Label:   req.Label,
			Caption: req.Caption,
			Points:  pointPairs(req.Points),
			Types:   req.Types,
			BBox:    bbox,
			Size:    size,
		},
	}

	if err := imageio.SavePNG(out, res.CropPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputIO, err)
	}
	if p.opts.WriteMask {
		res.MaskPath = filepath.Join(p.opts.OutDir, stem+MaskSuffix+".png")
		if err := imageio.SavePNG(mask, res.MaskPath); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOutputIO, err)
		}
	}
	if err := os.WriteFile(filepath.Join(p.opts.OutDir, stem+".txt"), []byte(req.Caption+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputIO, err)
	}
	meta, err := json.MarshalIndent(res.Record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputIO, err)
	}
	if err := os.WriteFile(filepath.Join(p.opts.OutDir, stem+".json"), meta, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputIO, err)
	}

	if p.opts.OverlayPath != "" {
		if err := writeOverlay(src, cutout, p.opts.OverlayPath); err != nil {
			log.Printf("overlay write failed (ignored): %v", err)
		}
	}
	return res, nil
}

// Oneshot is the legacy single-run mode: segment and write only an overlay
// preview, plus the mask if maskPath is non-empty. No dataset bookkeeping.
func (p *Pipeline) Oneshot(ctx context.Context, req Request, overlayPath, maskPath string) error {
	src, mask, cutout, err := p.segmentOnce(ctx, req)
	if err != nil {
		return err
	}
	if err := writeOverlay(src, cutout, overlayPath); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputIO, err)
	}
	if maskPath != "" {
		if err := imageio.SavePNG(mask, maskPath); err != nil {
			return fmt.Errorf("%w: %v", ErrOutputIO, err)
		}
	}
	return nil
}

// writeOverlay composites the semi-transparent full-extent cutout over the
// source image and writes the result as PNG.
func writeOverlay(src image.Image, cutout *image.NRGBA, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
	}
	preview := raster.Overlay(src, raster.WithOverlayAlpha(cutout, overlayAlpha))
	return imageio.SavePNG(preview, path)
}

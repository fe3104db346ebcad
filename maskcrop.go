// Package maskcrop prepares labeled image crops for fine-tuning a
// generative model.
//
// Given a source image and a few foreground/background point prompts, it
// asks a segmentation model for a binary mask, cuts the foreground out,
// crops to the masked region with a margin, optionally square-pads and
// resizes, and writes the crop, a caption file, the mask and a JSON
// metadata record into a dataset directory. A second mode scans that
// directory and emits a JSON-Lines manifest pairing each crop with its
// caption for downstream training.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/maskcrop"
//		"github.com/menta2k/maskcrop/pkg/sam"
//		"github.com/menta2k/maskcrop/pkg/segment"
//	)
//
//	func main() {
//		model, err := sam.Load(sam.DefaultConfig("models"))
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer model.Close()
//
//		prep := maskcrop.New(model, segment.DefaultOptions())
//		res, err := prep.Segment(context.Background(), segment.Request{
//			InputPath: "photo.jpg",
//			Label:     "cat",
//			Caption:   "a cat on a chair",
//			Points:    []segment.Point{{X: 420, Y: 310}},
//			Types:     []segment.PointType{segment.Foreground},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %s", res.CropPath)
//
//		n, err := prep.BuildManifest("dataset/prepared", "dataset/manifest.jsonl")
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("%d manifest records", n)
//	}
//
// The package consists of four main components:
//
// 1. Raster (pkg/raster): pure geometric operations over pixel grids
// 2. Segment (pkg/segment): the model contract and the linear pipeline
// 3. Naming (pkg/naming): collision-free indexed output stems
// 4. Manifest (pkg/manifest): the JSON-Lines training manifest
//
// The segmentation model is a capability interface; pkg/sam provides the
// production SAM2/ONNX implementation and tests run against deterministic
// fakes.
package maskcrop

import (
	"context"

	"github.com/menta2k/maskcrop/pkg/manifest"
	"github.com/menta2k/maskcrop/pkg/segment"
)

// Version of the maskcrop library
const Version = "1.0.0"

// Preparer is the high-level entry point wiring the pipeline and the
// manifest builder to one loaded model.
type Preparer struct {
	pipeline *segment.Pipeline
}

// New creates a Preparer around a loaded segmentation model.
func New(model segment.Model, opts segment.Options) *Preparer {
	return &Preparer{pipeline: segment.NewPipeline(model, opts)}
}

// Segment runs the full pipeline for one image and persists the crop,
// caption, mask and metadata set.
func (p *Preparer) Segment(ctx context.Context, req segment.Request) (*segment.Result, error) {
	return p.pipeline.Run(ctx, req)
}

// Oneshot runs the legacy single-run mode: only an overlay preview and,
// when maskPath is non-empty, the mask.
func (p *Preparer) Oneshot(ctx context.Context, req segment.Request, overlayPath, maskPath string) error {
	return p.pipeline.Oneshot(ctx, req, overlayPath, maskPath)
}

// BuildManifest scans a dataset directory and writes the JSON-Lines
// manifest, returning the number of records.
func (p *Preparer) BuildManifest(dir, outPath string) (int, error) {
	return manifest.Build(dir, outPath)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/menta2k/maskcrop"
	"github.com/menta2k/maskcrop/internal/config"
	"github.com/menta2k/maskcrop/internal/utils"
	"github.com/menta2k/maskcrop/pkg/caption"
	"github.com/menta2k/maskcrop/pkg/imageio"
	"github.com/menta2k/maskcrop/pkg/manifest"
	"github.com/menta2k/maskcrop/pkg/sam"
	"github.com/menta2k/maskcrop/pkg/segment"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}

	cfg := loadConfig()

	switch os.Args[1] {
	case "segment":
		runSegment(cfg, os.Args[2:])
	case "build-manifest":
		runBuildManifest(cfg, os.Args[2:])
	case "oneshot":
		runOneshot(cfg, os.Args[2:])
	case "version":
		fmt.Println(maskcrop.GetVersion())
	default:
		usage()
	}
}

func usage() {
	log.Fatalf(`usage: %s <command> [flags]

commands:
  segment         segment one image and add it to the dataset
  build-manifest  write the JSONL manifest for a dataset directory
  oneshot         segment one image and write only an overlay preview
  version         print the version`, filepath.Base(os.Args[0]))
}

// loadConfig reads the user config when present and falls back to defaults.
func loadConfig() *config.Config {
	path := config.GetConfigPath()
	if !utils.FileExists(path) {
		return config.Default()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func runSegment(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("segment", flag.ExitOnError)
	var in, points, types, label, capText, outDir, overlay, modelDir string
	var backend, capURL, capModel string
	var margin, size, threshold int
	var writeMask, crop, invert, cuda, autocaption bool

	fs.StringVar(&in, "in", "", "input image path (jpg/png/webp)")
	fs.StringVar(&points, "points", "", "prompt points as x,y;x,y in source pixels")
	fs.StringVar(&types, "types", "", "per-point categories, comma-separated (1=foreground, 0=background)")
	fs.StringVar(&label, "label", "", "dataset label for this subject")
	fs.StringVar(&capText, "caption", "", "caption text (empty with -autocaption asks the vision model)")
	fs.StringVar(&outDir, "out", cfg.Pipeline.OutDir, "dataset output directory")
	fs.BoolVar(&writeMask, "mask", cfg.Pipeline.WriteMask, "write the mask PNG next to the crop")
	fs.BoolVar(&crop, "crop", cfg.Pipeline.Crop, "crop the cutout to the mask bounding box")
	fs.IntVar(&margin, "margin", cfg.Pipeline.Margin, "margin in pixels around the bounding box")
	fs.IntVar(&size, "size", 0, "square pad-and-resize side, 0 keeps the crop size")
	fs.StringVar(&overlay, "overlay", "", "optional overlay preview path")
	fs.IntVar(&threshold, "threshold", cfg.Pipeline.Threshold, "mask alpha threshold (0-255)")
	fs.BoolVar(&invert, "invert", false, "invert the mask before cutting out")
	fs.StringVar(&modelDir, "modeldir", cfg.Model.Dir, "directory holding the SAM2 weights and ONNX runtime")
	fs.BoolVar(&cuda, "cuda", cfg.Model.UseCUDA, "run the model on CUDA")
	fs.BoolVar(&autocaption, "autocaption", false, "generate the caption with a local vision model")
	fs.StringVar(&backend, "backend", cfg.Caption.Backend, "caption backend: ollama or llamacpp")
	fs.StringVar(&capURL, "url", cfg.Caption.URL, "caption server URL")
	fs.StringVar(&capModel, "capmodel", cfg.Caption.Model, "caption model name")
	fs.Parse(args)

	if in == "" || label == "" {
		log.Fatalf("segment: -in and -label are required")
	}
	if !utils.IsImageFile(in) {
		log.Printf("warning: %s does not look like an image file", in)
	}
	if threshold < 0 || threshold > 255 {
		log.Fatalf("segment: -threshold must be between 0 and 255")
	}

	req := segment.Request{
		InputPath: in,
		Label:     label,
		Caption:   capText,
		Points:    parsePoints(points),
		Types:     parseTypes(types),
	}

	ctx := context.Background()
	if req.Caption == "" && autocaption {
		req.Caption = describeSource(ctx, backend, capURL, capModel, in)
	}

	model, err := sam.Load(samConfig(modelDir, cuda))
	if err != nil {
		log.Fatal(err)
	}
	defer model.Close()

	opts := segment.Options{
		OutDir:      outDir,
		WriteMask:   writeMask,
		Crop:        crop,
		Margin:      margin,
		Size:        size,
		OverlayPath: overlay,
		Threshold:   uint8(threshold),
		InvertMask:  invert,
	}

	res, err := maskcrop.New(model, opts).Segment(ctx, req)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", res.CropPath)
	if res.MaskPath != "" {
		log.Printf("wrote %s", res.MaskPath)
	}
	if res.Record.BBox != nil {
		log.Printf("bbox %v", res.Record.BBox)
	} else {
		log.Printf("no bounding box found, kept full extent")
	}
}

func runBuildManifest(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("build-manifest", flag.ExitOnError)
	var dir, out string
	fs.StringVar(&dir, "dir", cfg.Pipeline.OutDir, "dataset directory to scan")
	fs.StringVar(&out, "out", filepath.Join("dataset", "manifest.jsonl"), "manifest output path")
	fs.Parse(args)

	n, err := manifest.Build(dir, out)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%d records)", out, n)
}

func runOneshot(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("oneshot", flag.ExitOnError)
	var in, points, types, overlay, maskPath, modelDir string
	var threshold int
	var invert, cuda bool

	fs.StringVar(&in, "in", "", "input image path (jpg/png/webp)")
	fs.StringVar(&points, "points", "", "prompt points as x,y;x,y in source pixels")
	fs.StringVar(&types, "types", "", "per-point categories, comma-separated (1=foreground, 0=background)")
	fs.StringVar(&overlay, "overlay", "overlay.png", "overlay preview output path")
	fs.StringVar(&maskPath, "mask", "", "optional mask output path")
	fs.IntVar(&threshold, "threshold", cfg.Pipeline.Threshold, "mask alpha threshold (0-255)")
	fs.BoolVar(&invert, "invert", false, "invert the mask before cutting out")
	fs.StringVar(&modelDir, "modeldir", cfg.Model.Dir, "directory holding the SAM2 weights and ONNX runtime")
	fs.BoolVar(&cuda, "cuda", cfg.Model.UseCUDA, "run the model on CUDA")
	fs.Parse(args)

	if in == "" {
		log.Fatalf("oneshot: -in is required")
	}

	model, err := sam.Load(samConfig(modelDir, cuda))
	if err != nil {
		log.Fatal(err)
	}
	defer model.Close()

	opts := segment.DefaultOptions()
	opts.Threshold = uint8(threshold)
	opts.InvertMask = invert

	req := segment.Request{
		InputPath: in,
		Points:    parsePoints(points),
		Types:     parseTypes(types),
	}
	if err := maskcrop.New(model, opts).Oneshot(context.Background(), req, overlay, maskPath); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", overlay)
}

func samConfig(dir string, cuda bool) sam.Config {
	samCfg := sam.DefaultConfig(dir)
	samCfg.UseCUDA = cuda
	return samCfg
}

// describeSource captions the source image with the configured backend.
func describeSource(ctx context.Context, backend, url, model, in string) string {
	var client caption.Client
	var err error
	switch backend {
	case "ollama":
		client, err = caption.NewOllamaClient(url)
	case "llamacpp":
		client, err = caption.NewLlamaCppClient(url)
	default:
		log.Fatalf("unknown caption backend: %s (use 'ollama' or 'llamacpp')", backend)
	}
	if err != nil {
		log.Fatalf("caption client: %v", err)
	}

	img, err := imageio.Load(in)
	if err != nil {
		log.Fatalf("caption input: %v", err)
	}
	text, err := client.Describe(ctx, model, img)
	if err != nil {
		log.Fatalf("caption: %v", err)
	}
	log.Printf("caption: %s", text)
	return text
}

// parsePoints parses "x,y;x,y" into prompt points.
func parsePoints(s string) []segment.Point {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var points []segment.Point
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			log.Fatalf("bad point %q, want x,y", pair)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(xy[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(xy[1]))
		if errX != nil || errY != nil {
			log.Fatalf("bad point %q, want integer x,y", pair)
		}
		points = append(points, segment.Point{X: x, Y: y})
	}
	return points
}

// parseTypes parses "1,0,1" into point categories.
func parseTypes(s string) []segment.PointType {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var types []segment.PointType
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		switch tok {
		case "0", "bg", "background":
			types = append(types, segment.Background)
		case "1", "fg", "foreground":
			types = append(types, segment.Foreground)
		default:
			log.Fatalf("bad point type %q, want 0/1", tok)
		}
	}
	return types
}

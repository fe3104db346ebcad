// Package caption generates fine-tuning captions with a local vision model.
// It is used when a segment run is invoked without a caption; the producing
// backend is either Ollama or a llama.cpp server.
package caption

import (
	"context"
	"image"
	"strings"
)

// DefaultPrompt asks for a single training-style caption line.
const DefaultPrompt = `Describe the main subject of this image in one short sentence suitable as a training caption.
Plain text only. No quotes, no markdown, no lists, under 25 words.`

// Client produces a caption for an image using the named model.
type Client interface {
	Describe(ctx context.Context, model string, img image.Image) (string, error)
}

// sanitize reduces a model response to a single clean caption line: code
// fences and backticks stripped, first non-empty line kept, surrounding
// quotes removed.
func sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.Trim(line, `"'`)
	}
	return ""
}

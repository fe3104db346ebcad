// Package manifest assembles the JSON-Lines training manifest from a
// prepared dataset directory: one {"file","text"} object per crop that has a
// matching caption file.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/menta2k/maskcrop/internal/utils"
	"github.com/menta2k/maskcrop/pkg/segment"
)

// Entry is one manifest line.
type Entry struct {
	File string `json:"file"`
	Text string `json:"text"`
}

const (
	imageExt   = ".png"
	maskSuffix = segment.MaskSuffix + imageExt
)

// Build scans dir for crop PNGs, pairs each with its same-stem caption file
// and writes the manifest to outPath, creating parent directories as needed.
// Crops without a caption are skipped silently; mask PNGs are never
// candidates. Entries are sorted by filename for determinism. Returns the
// number of records written.
func Build(dir, outPath string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", segment.ErrOutputIO, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		low := strings.ToLower(name)
		if !strings.HasSuffix(low, imageExt) || strings.HasSuffix(low, maskSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	count := 0
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		caption, err := os.ReadFile(filepath.Join(dir, stem+".txt"))
		if err != nil {
			continue
		}
		line, err := json.Marshal(Entry{File: name, Text: strings.TrimSpace(string(caption))})
		if err != nil {
			return 0, fmt.Errorf("%w: %v", segment.ErrOutputIO, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
		count++
	}

	if parent := filepath.Dir(outPath); parent != "." {
		if err := utils.EnsureDir(parent); err != nil {
			return 0, fmt.Errorf("%w: %v", segment.ErrOutputIO, err)
		}
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("%w: %v", segment.ErrOutputIO, err)
	}
	return count, nil
}

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/maskcrop/pkg/segment"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuildSkipsUncaptionedAndMasks(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.png":      "not-a-real-png",
		"a.txt":      "hello",
		"b.png":      "x", // no caption: skipped
		"b_mask.png": "x", // mask: never a candidate
	})
	out := filepath.Join(dir, "manifest.jsonl")

	n, err := Build(dir, out)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"file":"a.png","text":"hello"}` + "\n"
	if string(data) != want {
		t.Errorf("manifest = %q, want %q", data, want)
	}
}

func TestBuildSortedAndTrimmed(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"zeta.png":  "x",
		"zeta.txt":  "  last  \n",
		"alpha.png": "x",
		"alpha.txt": "first\n",
	})
	out := filepath.Join(dir, "m.jsonl")

	n, err := Build(dir, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 ||
		lines[0] != `{"file":"alpha.png","text":"first"}` ||
		lines[1] != `{"file":"zeta.png","text":"last"}` {
		t.Errorf("unexpected manifest lines: %q", lines)
	}
}

func TestBuildMissingDir(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "m.jsonl"))
	if !errors.Is(err, segment.ErrOutputIO) {
		t.Fatalf("err = %v, want ErrOutputIO", err)
	}
}

func TestBuildCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.png": "x", "a.txt": "c"})
	out := filepath.Join(dir, "nested", "deep", "m.jsonl")

	if _, err := Build(dir, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("manifest not created: %v", err)
	}
}

func TestBuildEmptyDatasetWritesEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "m.jsonl")
	n, err := Build(dir, out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("manifest = %q, want empty", data)
	}
}

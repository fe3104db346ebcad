// Package naming derives collision-free output stems for dataset files.
//
// Every artifact produced for one segmentation run shares a stem of the form
// <sanitized-basename>__<label>__<3-digit-index>. The index is recomputed by
// scanning the destination directory on every invocation; there is no
// persisted counter, so two concurrent invocations against the same
// directory and label may pick the same index. Single-operator usage only.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var unsafeRuns = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SanitizeBasename strips the extension from a filename and reduces it to a
// filesystem-safe lowercase stem. Every run of characters outside
// [A-Za-z0-9_-] collapses to a single dash. Idempotent.
func SanitizeBasename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeRuns.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	return strings.ToLower(base)
}

// Prefix returns the shared stem prefix for a source file and label, up to
// but not including the index digits.
func Prefix(source, label string) string {
	return fmt.Sprintf("%s__%s__", SanitizeBasename(source), label)
}

// NextIndex scans dir for entries starting with prefix, parses exactly the
// three characters after the prefix as an integer, and returns one past the
// highest value found. Entries that do not parse are ignored. A directory
// that cannot be listed counts as empty, so the result is then 1.
func NextIndex(dir, prefix string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}
	max := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if len(rest) < 3 {
			continue
		}
		n, err := strconv.Atoi(rest[:3])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// Stem builds the full output stem for a source file, label and index.
func Stem(source, label string, index int) string {
	return fmt.Sprintf("%s%03d", Prefix(source, label), index)
}

// NextStem combines NextIndex and Stem against the destination directory.
func NextStem(dir, source, label string) string {
	return Stem(source, label, NextIndex(dir, Prefix(source, label)))
}

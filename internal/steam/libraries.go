package steam

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	vdfPathRe     = regexp.MustCompile(`(?i)"\s*path\s*"\s*"([^"]+)"`)
	vdfNumberedRe = regexp.MustCompile(`"\s*\d+\s*"\s*"([^"]+)"`)
)

// Libraries returns every Steam library folder reachable from root: the
// root itself plus entries from steamapps/libraryfolders.vdf. Only
// directories that actually contain a steamapps folder are kept, and
// duplicates are dropped in first-seen order.
func Libraries(root string) []string {
	var libs []string

	if isDir(filepath.Join(root, "steamapps")) {
		libs = append(libs, root)
	}

	vdf := filepath.Join(root, "steamapps", "libraryfolders.vdf")
	data, err := os.ReadFile(vdf)
	if err != nil {
		return dedupe(libs)
	}
	text := string(data)

	for _, m := range vdfPathRe.FindAllStringSubmatch(text, -1) {
		if p := normalizeLibraryPath(m[1]); isDir(filepath.Join(p, "steamapps")) {
			libs = append(libs, p)
		}
	}

	// Older client versions keyed libraries by index instead of "path".
	for _, m := range vdfNumberedRe.FindAllStringSubmatch(text, -1) {
		if p := normalizeLibraryPath(m[1]); isDir(filepath.Join(p, "steamapps")) {
			libs = append(libs, p)
		}
	}

	return dedupe(libs)
}

// normalizeLibraryPath cleans a path as written in a vdf file, where
// backslashes arrive doubled and values may carry stray quotes.
func normalizeLibraryPath(p string) string {
	p = strings.ReplaceAll(p, `\\`, `\`)
	p = strings.Trim(strings.TrimSpace(p), `"`)
	return filepath.Clean(p)
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

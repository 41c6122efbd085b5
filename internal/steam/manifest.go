package steam

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var manifestNameRe = regexp.MustCompile(`(?i)"\s*name\s*"\s*"([^"]+)"`)

// Resolver looks up app display names from appmanifest files across a set
// of library folders. Lookups are pure reads with no caching; manifest
// files are tiny and the reporter asks at most once per tick.
type Resolver struct {
	libs []string
}

func NewResolver(libs []string) *Resolver {
	return &Resolver{libs: libs}
}

// Resolve returns the display name for an app ID, searching each library's
// steamapps/appmanifest_<id>.acf in order. ok is false when no library
// knows the app.
func (r *Resolver) Resolve(appID string) (string, bool) {
	fname := fmt.Sprintf("appmanifest_%s.acf", appID)
	for _, lib := range r.libs {
		data, err := os.ReadFile(filepath.Join(lib, "steamapps", fname))
		if err != nil {
			continue
		}
		if m := manifestNameRe.FindSubmatch(data); m != nil {
			if name := strings.TrimSpace(string(m[1])); name != "" {
				return name, true
			}
		}
	}
	return "", false
}

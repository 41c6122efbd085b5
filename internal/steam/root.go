// Package steam locates the local Steam installation and resolves app IDs
// to display names from library manifests. The watcher core only depends on
// the resolver interface; everything here is glue around Steam's on-disk
// layout.
package steam

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrRootNotFound is returned when no Steam installation can be located.
var ErrRootNotFound = errors.New("steam: installation not found")

// FindRoot locates the Steam root directory. Resolution order: explicit
// override, STEAM_ROOT environment variable, the executable directory of a
// running steam process, then well-known per-OS install paths.
func FindRoot(override string) (string, error) {
	if override != "" {
		if validRoot(override) {
			return override, nil
		}
		return "", ErrRootNotFound
	}

	if env := strings.TrimSpace(os.Getenv("STEAM_ROOT")); env != "" && validRoot(env) {
		return env, nil
	}

	if root, ok := rootFromProcess(); ok {
		return root, nil
	}

	for _, candidate := range defaultRoots() {
		if validRoot(candidate) {
			return candidate, nil
		}
	}

	return "", ErrRootNotFound
}

// rootFromProcess scans running processes for the Steam client and derives
// the install root from its executable path.
func rootFromProcess() (string, bool) {
	procs, err := process.Processes()
	if err != nil {
		return "", false
	}

	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		lower := strings.ToLower(name)
		if lower != "steam" && lower != "steam.exe" && lower != "steamwebhelper" && lower != "steamwebhelper.exe" {
			continue
		}
		exe, err := p.Exe()
		if err != nil || exe == "" {
			continue
		}
		// Walk up from the executable until a plausible root appears;
		// steamwebhelper lives a few directories deep.
		dir := filepath.Dir(exe)
		for i := 0; i < 4 && dir != "" && dir != string(filepath.Separator); i++ {
			if validRoot(dir) {
				return dir, true
			}
			dir = filepath.Dir(dir)
		}
	}
	return "", false
}

func defaultRoots() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files (x86)\Steam`,
			`C:\Program Files\Steam`,
		}
	case "darwin":
		return []string{
			filepath.Join(home, "Library", "Application Support", "Steam"),
		}
	default:
		return []string{
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".steam", "steam"),
		}
	}
}

// validRoot accepts a directory that looks like a Steam install: either a
// steamapps library or the client log directory must exist under it.
func validRoot(dir string) bool {
	if isDir(filepath.Join(dir, "steamapps")) {
		return true
	}
	return isFile(LogPath(dir))
}

// LogPath returns the content log location under a Steam root.
func LogPath(root string) string {
	return filepath.Join(root, "logs", "content_log.txt")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

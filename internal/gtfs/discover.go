package gtfs

import (
	"os"
	"path/filepath"
	"sort"
)

// CoreFiles are the four tabular files a directory must contain to qualify
// as one importable dataset.
var CoreFiles = [4]string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"}

// HasCoreFiles reports whether dir directly contains all four core files.
func HasCoreFiles(dir string) bool {
	for _, name := range CoreFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// Discover returns every dataset directory under root, sorted by path. When
// root itself qualifies it is the only result. Otherwise the tree is walked
// breadth-first; a qualifying directory is collected and not descended into.
// Unreadable directories are skipped. A missing root yields an empty result,
// not an error.
func Discover(root string) []string {
	if HasCoreFiles(root) {
		return []string{root}
	}

	var out []string
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			sub := filepath.Join(dir, entry.Name())
			if HasCoreFiles(sub) {
				out = append(out, sub)
			} else {
				queue = append(queue, sub)
			}
		}
	}

	sort.Strings(out)
	return out
}

package watcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// BaseDirs derives watchable directories from configured root globs.
// "/srv/docs/**" yields /srv/docs; a plain path with no meta
// characters is taken as the directory itself, or its parent when it
// names a file. Duplicates collapse, order is preserved.
func BaseDirs(globs []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if dir == "" || dir == "." || seen[dir] {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	for _, g := range globs {
		if !strings.ContainsAny(g, `*?[{`) {
			if info, err := os.Stat(g); err == nil && !info.IsDir() {
				add(filepath.Dir(g))
			} else {
				add(g)
			}
			continue
		}
		base, _ := doublestar.SplitPattern(g)
		add(base)
	}
	return dirs
}

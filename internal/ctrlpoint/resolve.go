package ctrlpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gpfimport/internal/importerr"
)

// Resolver finds a control-point file. The name is tried as given first,
// then joined onto each of Dirs in order.
type Resolver struct {
	Dirs []string
}

func (r Resolver) Resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", importerr.NotFound("resolve control file", name, fmt.Errorf("empty file name"))
	}

	tried := make([]string, 0, 1+len(r.Dirs))
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		for _, d := range r.Dirs {
			if d == "" {
				continue
			}
			candidates = append(candidates, filepath.Join(d, name))
		}
	}

	for _, c := range candidates {
		c = filepath.Clean(c)
		tried = append(tried, c)
		fi, err := os.Lstat(c)
		if err != nil {
			continue
		}
		if fi.IsDir() {
			continue
		}
		return c, nil
	}
	return "", importerr.NotFound("resolve control file", name,
		fmt.Errorf("tried %s", strings.Join(tried, ", ")))
}

// ParsePipeList splits the pipe-delimited file-dialog form "dir|f1|f2|...".
// A value without a pipe is a single full path with no directory.
func ParsePipeList(s string) (dir string, files []string) {
	parts := strings.Split(s, "|")
	if len(parts) == 1 {
		if p := strings.TrimSpace(parts[0]); p != "" {
			files = append(files, p)
		}
		return "", files
	}
	dir = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		files = append(files, p)
	}
	return dir, files
}

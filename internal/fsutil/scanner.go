package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

var fileRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_\-.]*\.sql$`)

// File is a discovered migration file. Name is the bare file name and
// doubles as the migration identifier and sort key.
type File struct {
	Name string
	Path string // path in the scanned fs
}

// ScanDir scans a local directory on disk.
func ScanDir(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return scan(entries, func(name string) string { return filepath.Join(dir, name) }), nil
}

// ScanFS scans an fs.FS (typically an embed.FS) under a root dir path.
func ScanFS(fsys fs.FS, root string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}
	return scan(entries, func(name string) string { return fsPath(root, name) }), nil
}

func fsPath(root, name string) string {
	if root == "" || root == "." {
		return name
	}
	return root + "/" + name
}

func scan(entries []fs.DirEntry, full func(name string) string) []File {
	out := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !fileRe.MatchString(e.Name()) {
			continue
		}
		out = append(out, File{Name: e.Name(), Path: full(e.Name())})
	}
	// Plain byte-wise comparison on the file name. Apply order across runs
	// depends on this, so sequence prefixes must be zero-padded by whoever
	// names the files.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

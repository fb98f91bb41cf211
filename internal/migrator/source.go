package migrator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/edustack/migrate/internal/fsutil"
)

// Source enumerates migration files. FS nil means local disk rooted at Dir;
// otherwise Dir is a path inside FS (an embed.FS in library usage).
type Source struct {
	FS  fs.FS
	Dir string
}

// Discover lists migration files in ascending lexical name order and loads
// each body as a Migration. A missing directory yields an empty slice, not
// an error: a service with no migrations yet is a valid state.
func (s Source) Discover() ([]Migration, error) {
	var files []fsutil.File
	var err error
	if s.FS != nil {
		files, err = fsutil.ScanFS(s.FS, s.Dir)
	} else {
		files, err = fsutil.ScanDir(s.Dir)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	migs := make([]Migration, 0, len(files))
	for _, f := range files {
		var body []byte
		if s.FS != nil {
			body, err = fs.ReadFile(s.FS, f.Path)
		} else {
			body, err = os.ReadFile(f.Path)
		}
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", f.Name, err)
		}
		migs = append(migs, Migration{
			Name:       f.Name,
			Path:       f.Path,
			Statements: SplitStatements(string(body)),
		})
	}
	return migs, nil
}

// SplitStatements splits a migration body on the statement terminator,
// trimming whitespace and dropping empty fragments.
//
// The split is naive: a ';' inside a string literal or comment splits the
// statement in two. Migration authors must keep terminators out of literals
// (or rewrite the statement to avoid them).
func SplitStatements(body string) []string {
	parts := strings.Split(body, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

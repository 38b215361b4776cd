package validator

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
)

// Roots restricts remotely requested paths to files below a fixed set of
// directories. The zero value allows nothing.
type Roots struct {
	dirs []string
}

// NewRoots resolves dirs to absolute, symlink-free paths. Every entry must
// be an existing directory.
func NewRoots(dirs []string) (*Roots, error) {
	r := &Roots{dirs: make([]string, 0, len(dirs))}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		resolved, err := resolve(dir)
		if err != nil {
			return nil, fmt.Errorf("index root %s: %w", dir, err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("index root %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("index root %s is not a directory", dir)
		}
		r.dirs = append(r.dirs, resolved)
	}
	return r, nil
}

// Dirs returns the resolved root directories.
func (r *Roots) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// Check returns the absolute form of path if it resolves, after following
// symlinks, to a location inside one of the roots. Other paths fail with
// ErrPathNotAllowed.
func (r *Roots) Check(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "cannot resolve path %s", path)
	}
	if r == nil || len(r.dirs) == 0 {
		return "", apperrors.New(apperrors.ErrPathNotAllowed, http.StatusForbidden, "no index roots configured")
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrPathNotAllowed, http.StatusForbidden, "%s is not readable below an index root", abs)
	}
	for _, dir := range r.dirs {
		if within(dir, resolved) {
			return abs, nil
		}
	}
	return "", apperrors.Newf(apperrors.ErrPathNotAllowed, http.StatusForbidden, "%s is outside the index roots", abs)
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

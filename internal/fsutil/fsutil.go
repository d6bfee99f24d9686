package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// Root is the absolute directory that bounds every served or mutated path.
// It is immutable after NewRoot and safe for concurrent use.
type Root struct {
	abs  string
	real string // abs with symlinks evaluated
}

// NewRoot returns a Root for dir. dir must exist.
func NewRoot(dir string) (Root, error) {
	if strings.TrimSpace(dir) == "" {
		return Root{}, fmt.Errorf("%w: empty root", ErrInvalidInput)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return Root{abs: filepath.Clean(abs), real: real}, nil
}

// Path returns the absolute root directory.
func (r Root) Path() string { return r.abs }

// CleanRelPath takes a user path like "", ".", "/a/b", "a//b/", and returns a
// slash-based relative path without leading or trailing slashes ("" means
// root). Unlike Resolve it does not check containment: "../x" stays "../x".
func CleanRelPath(p string) string {
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Resolve maps a percent-decoded request path to an absolute path inside the
// root. "" and "/" resolve to the root itself. Paths that normalize outside
// the root, contain NUL or backslash, or reach outside through a symlink fail
// with ErrInvalidPath. A path running through a regular file ("a.txt/b")
// fails with ErrNotFound.
func (r Root) Resolve(rel string) (string, error) {
	if strings.ContainsAny(rel, "\x00\\") {
		return "", fmt.Errorf("%w: invalid character in %q", ErrInvalidPath, rel)
	}
	joined := filepath.Join(r.abs, filepath.FromSlash(rel))
	if !r.Contains(joined) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	if err := r.checkReal(joined); err != nil {
		return "", fmt.Errorf("%w: %q", err, rel)
	}
	return joined, nil
}

// Contains reports whether abs is the root or lexically a descendant of it.
func (r Root) Contains(abs string) bool {
	return within(r.abs, filepath.Clean(abs))
}

// Rel returns abs as a slash-separated path relative to the root ("" for the
// root itself).
func (r Root) Rel(abs string) (string, error) {
	if !r.Contains(abs) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, abs)
	}
	rel, err := filepath.Rel(r.abs, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

var (
	errOutsideRoot = fmt.Errorf("%w: resolves outside root", ErrInvalidPath)
	errNotDir      = fmt.Errorf("%w: a parent is not a directory", ErrNotFound)
)

// checkReal evaluates symlinks on the deepest existing ancestor of abs and
// checks it is still under the root's real path.
func (r Root) checkReal(abs string) error {
	p := abs
	for {
		real, err := filepath.EvalSymlinks(p)
		switch {
		case err == nil:
			if !within(r.real, real) {
				return errOutsideRoot
			}
			return nil
		case errors.Is(err, syscall.ENOTDIR):
			return errNotDir
		case !errors.Is(err, os.ErrNotExist):
			var pe *os.PathError
			if errors.As(err, &pe) {
				err = pe.Err
			}
			return fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		parent := filepath.Dir(p)
		if parent == p || !within(r.abs, parent) {
			return errOutsideRoot
		}
		p = parent
	}
}

// Within reports whether target is base or lexically below it. Both paths
// must be absolute.
func Within(base, target string) bool {
	return within(filepath.Clean(base), filepath.Clean(target))
}

func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

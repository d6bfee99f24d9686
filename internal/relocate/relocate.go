// Package relocate moves entries inside the share root and soft-deletes them
// into the trash directory. Both are a single no-replace rename.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"fileboard/internal/fsutil"
)

type Manager struct {
	root  fsutil.Root
	trash string
	log   *slog.Logger
}

// New returns a Manager for root. trashDir is absolute and may live inside
// or outside the root; it is created on first use.
func New(root fsutil.Root, trashDir string, log *slog.Logger) (*Manager, error) {
	if trashDir == "" || !filepath.IsAbs(trashDir) {
		return nil, fmt.Errorf("%w: trash directory must be absolute, got %q", fsutil.ErrInvalidInput, trashDir)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{root: root, trash: filepath.Clean(trashDir), log: log}, nil
}

// TrashDir returns the absolute trash directory.
func (m *Manager) TrashDir() string { return m.trash }

// Move renames srcRel to dstRel, both relative to the root. Missing parents
// of the destination are created. An existing destination is never replaced.
func (m *Manager) Move(ctx context.Context, srcRel, dstRel string) error {
	src, err := m.root.Resolve(srcRel)
	if err != nil {
		return err
	}
	dst, err := m.root.Resolve(dstRel)
	if err != nil {
		return err
	}
	if src == m.root.Path() {
		return fmt.Errorf("%w: cannot move the root directory", fsutil.ErrInvalidInput)
	}
	if src != dst && fsutil.Within(src, dst) {
		return fmt.Errorf("%w: cannot move /%s into itself", fsutil.ErrInvalidInput, srcRel)
	}
	if err := m.relocate(ctx, src, dst); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "moved", slog.String("src", src), slog.String("dst", dst))
	return nil
}

// Delete moves srcRel into the trash directory under its base name. The
// original directory structure is not kept; an existing trash entry with the
// same name is a conflict.
func (m *Manager) Delete(ctx context.Context, srcRel string) error {
	src, err := m.root.Resolve(srcRel)
	if err != nil {
		return err
	}
	if src == m.root.Path() {
		return fmt.Errorf("%w: cannot delete the root directory", fsutil.ErrInvalidInput)
	}
	if fsutil.Within(src, m.trash) {
		return fmt.Errorf("%w: /%s contains the trash directory", fsutil.ErrInvalidInput, srcRel)
	}
	dst := filepath.Join(m.trash, filepath.Base(src))
	if err := m.relocate(ctx, src, dst); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "trashed", slog.String("src", src), slog.String("dst", dst))
	return nil
}

// Mkdir creates the directory rel, including missing parents. An existing
// entry at rel is a conflict.
func (m *Manager) Mkdir(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := m.root.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: /%s", fsutil.ErrConflict, fsutil.CleanRelPath(rel))
		}
		return fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
	}
	m.log.InfoContext(ctx, "created directory", slog.String("path", abs))
	return nil
}

func (m *Manager) relocate(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Lstat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: source not found", fsutil.ErrNotFound)
		}
		return fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
	}
	err := fsutil.RenameNoReplace(src, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fsutil.ErrConflict):
		return fmt.Errorf("%w: destination already exists, trash it first", fsutil.ErrConflict)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: source not found", fsutil.ErrNotFound)
	default:
		return fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
	}
}

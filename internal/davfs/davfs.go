// Package davfs exposes the share root as a webdav.FileSystem with the same
// guarantees as the HTTP gateway: every name stays inside the root, nothing
// is overwritten in place, and deletes go to the trash.
package davfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/net/webdav"

	"fileboard/internal/fsutil"
	"fileboard/internal/relocate"
)

type FS struct {
	root     fsutil.Root
	relocate *relocate.Manager
}

var _ webdav.FileSystem = (*FS)(nil)

func New(root fsutil.Root, m *relocate.Manager) *FS {
	return &FS{root: root, relocate: m}
}

func (f *FS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	abs, err := f.root.Resolve(name)
	if err != nil {
		return toOSError(err)
	}
	return os.Mkdir(abs, perm)
}

// OpenFile opens name. Creation is always exclusive: opening an existing file
// with O_CREATE fails with os.ErrExist instead of truncating it.
func (f *FS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	abs, err := f.root.Resolve(name)
	if err != nil {
		return nil, toOSError(err)
	}
	if flag&os.O_CREATE != 0 {
		flag |= os.O_EXCL
	}
	return os.OpenFile(abs, flag, perm)
}

// RemoveAll moves name into the trash.
func (f *FS) RemoveAll(ctx context.Context, name string) error {
	return toOSError(f.relocate.Delete(ctx, name))
}

// Rename moves oldName to newName without replacing anything. Unlike the
// HTTP move, the destination collection must already exist.
func (f *FS) Rename(ctx context.Context, oldName, newName string) error {
	dst, err := f.root.Resolve(newName)
	if err != nil {
		return toOSError(err)
	}
	st, err := os.Stat(filepath.Dir(dst))
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return &os.PathError{Op: "rename", Path: newName, Err: syscall.ENOTDIR}
	}
	return toOSError(f.relocate.Move(ctx, oldName, newName))
}

func (f *FS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	abs, err := f.root.Resolve(name)
	if err != nil {
		return nil, toOSError(err)
	}
	return os.Stat(abs)
}

// toOSError maps storage errors onto the os errors webdav.Handler turns
// into status codes.
func toOSError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fsutil.ErrNotFound):
		return &os.PathError{Op: "webdav", Path: err.Error(), Err: os.ErrNotExist}
	case errors.Is(err, fsutil.ErrConflict):
		return &os.PathError{Op: "webdav", Path: err.Error(), Err: os.ErrExist}
	case errors.Is(err, fsutil.ErrInvalidInput):
		return &os.PathError{Op: "webdav", Path: err.Error(), Err: os.ErrPermission}
	default:
		return err
	}
}

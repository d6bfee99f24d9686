//go:build !linux

package fsutil

// RenameNoReplace renames src to dst and fails with ErrConflict if dst
// already exists.
func RenameNoReplace(src, dst string) error {
	return renameChecked(src, dst)
}

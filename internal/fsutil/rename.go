package fsutil

import (
	"errors"
	"fmt"
	"os"
)

// renameChecked is the portable fallback for RenameNoReplace. The Lstat and
// the rename are two steps, so a concurrent writer can still slip in between.
func renameChecked(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrConflict, dst)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

package fsutil

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every storage component. Callers wrap these with
// fmt.Errorf("%w: ...") and the HTTP layer classifies them with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidPath  = fmt.Errorf("%w: path escapes root", ErrInvalidInput)

	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("destination already exists")
	ErrIOFailure      = errors.New("i/o failure")
	ErrListingFailed  = errors.New("failed to read directory")
	ErrNoFileUploaded = errors.New("no file uploaded")
)

// StagingPrefix marks in-flight upload files. They live next to their final
// destination and are hidden from listings.
const StagingPrefix = ".fileboard-upload-"

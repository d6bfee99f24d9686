package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"fileboard/internal/fsutil"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: x", fsutil.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("%w: x", fsutil.ErrConflict), http.StatusConflict},
		{"invalid path", fsutil.ErrInvalidPath, http.StatusBadRequest},
		{"invalid input", fsutil.ErrInvalidInput, http.StatusBadRequest},
		{"no file", fsutil.ErrNoFileUploaded, http.StatusBadRequest},
		{"too large", fmt.Errorf("%w: %w", fsutil.ErrIOFailure, &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"io", fmt.Errorf("%w: disk full", fsutil.ErrIOFailure), http.StatusInternalServerError},
		{"canceled", context.Canceled, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestCrumbs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, crumbs(""))
	assert.Equal(t, []crumb{
		{Name: "a b", Link: "/a%20b/"},
		{Name: "c", Link: "/a%20b/c/"},
	}, crumbs("a b/c"))
}

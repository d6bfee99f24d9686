package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"fileboard/internal/fsutil"
	"fileboard/internal/logger"
)

// A multipart upload is processed in two phases:
// - stage: every part is streamed to <dir>/.fileboard-upload-<uuid>
// - commit: staged files are renamed to their final names without replacing
//
// Any failure removes staged files and undoes earlier commits of the same
// request, so an upload either lands completely or not at all.

// Part is one streamed file of an upload. *multipart.Part satisfies it.
type Part interface {
	io.Reader
	FileName() string
}

// Parts yields upload parts in request order. Next returns io.EOF when the
// sequence is exhausted.
type Parts interface {
	Next() (Part, error)
}

type multipartParts struct{ r *multipart.Reader }

// MultipartParts adapts a streaming multipart reader. Every part is treated as
// a file; parts without a file name get a generated one.
func MultipartParts(r *multipart.Reader) Parts {
	return multipartParts{r: r}
}

func (m multipartParts) Next() (Part, error) {
	p, err := m.r.NextPart()
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Result describes a completed upload.
type Result struct {
	Files []string // final file names, in request order
	URL   string   // public URL of the first file
}

// Multi reports whether more than one file was written.
func (r *Result) Multi() bool { return len(r.Files) > 1 }

type Pipeline struct {
	root fsutil.Root
	host string
	log  *slog.Logger
}

// New returns a Pipeline writing under root. host is the public base URL
// used to build Result.URL.
func New(root fsutil.Root, host string, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{root: root, host: host, log: log}
}

type staged struct {
	name string
	tmp  string
	dst  string
}

// Upload streams every part into dirRel (relative to the root).
func (p *Pipeline) Upload(ctx context.Context, dirRel string, parts Parts) (*Result, error) {
	dirAbs, err := p.root.Resolve(dirRel)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(dirAbs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: /%s", fsutil.ErrNotFound, dirRel)
		}
		return nil, fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: /%s is not a directory", fsutil.ErrInvalidInput, dirRel)
	}
	dirRel, err = p.root.Rel(dirAbs)
	if err != nil {
		return nil, err
	}

	var items []staged
	fail := func(err error) (*Result, error) {
		if cerr := discard(items); cerr != nil {
			p.log.WarnContext(ctx, "upload cleanup incomplete", logger.Error(cerr))
		}
		return nil, err
	}

	for {
		part, err := parts.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("%w: read part: %w", fsutil.ErrInvalidInput, err))
		}

		name, err := fileName(part.FileName())
		if err != nil {
			return fail(err)
		}
		dst := filepath.Join(dirAbs, name)
		if lo.ContainsBy(items, func(s staged) bool { return s.name == name }) {
			return fail(fmt.Errorf("%w: %q appears twice", fsutil.ErrConflict, name))
		}
		if _, err := os.Lstat(dst); err == nil {
			return fail(fmt.Errorf("%w: %q", fsutil.ErrConflict, name))
		}

		tmp, err := stage(ctx, dirAbs, part)
		if err != nil {
			return fail(err)
		}
		items = append(items, staged{name: name, tmp: tmp, dst: dst})
	}

	if len(items) == 0 {
		return nil, fsutil.ErrNoFileUploaded
	}

	for i := range items {
		if err := fsutil.RenameNoReplace(items[i].tmp, items[i].dst); err != nil {
			if !errors.Is(err, fsutil.ErrConflict) {
				err = fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
			}
			return fail(err)
		}
		items[i].tmp = ""
	}

	res := &Result{
		Files: lo.Map(items, func(s staged, _ int) string { return s.name }),
		URL:   publicURL(p.host, dirRel, items[0].name),
	}
	p.log.InfoContext(ctx, "upload stored",
		slog.String("dir", "/"+dirRel),
		slog.Any("files", res.Files),
	)
	return res, nil
}

// stage streams r into a new staging file in dir and returns its path.
func stage(ctx context.Context, dir string, r io.Reader) (string, error) {
	tmp := filepath.Join(dir, fsutil.StagingPrefix+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
	}

	abort := func(err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}

	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return abort(fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err))
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return abort(fmt.Errorf("%w: %w", fsutil.ErrIOFailure, readErr))
		}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: %v", fsutil.ErrIOFailure, err)
	}
	return tmp, nil
}

// discard removes staged files and files already committed.
func discard(items []staged) error {
	var errs []error
	for _, s := range items {
		target := s.tmp
		if target == "" {
			target = s.dst
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fileName derives the stored name from a client-suggested one. Directory
// components are dropped; empty names get a random UUID.
func fileName(suggested string) (string, error) {
	if strings.ContainsRune(suggested, 0) {
		return "", fmt.Errorf("%w: file name contains NUL", fsutil.ErrInvalidInput)
	}
	name := path.Base(strings.ReplaceAll(suggested, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return uuid.NewString(), nil
	}
	if strings.HasPrefix(name, fsutil.StagingPrefix) {
		return "", fmt.Errorf("%w: reserved file name %q", fsutil.ErrInvalidInput, name)
	}
	return name, nil
}

func publicURL(host, dirRel, name string) string {
	elems := append(strings.Split(dirRel, "/"), name)
	elems = lo.Compact(elems)
	u, err := url.JoinPath(host, elems...)
	if err != nil {
		return strings.TrimSuffix(host, "/") + "/" + path.Join(append([]string{dirRel}, name)...)
	}
	return u
}

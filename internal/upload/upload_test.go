package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fileboard/internal/fsutil"
	"fileboard/internal/upload"
)

const host = "http://localhost:3000"

type part struct {
	io.Reader
	name string
}

func (p part) FileName() string { return p.name }

type sliceParts struct {
	parts []upload.Part
}

func (s *sliceParts) Next() (upload.Part, error) {
	if len(s.parts) == 0 {
		return nil, io.EOF
	}
	p := s.parts[0]
	s.parts = s.parts[1:]
	return p, nil
}

type mockParts struct{ mock.Mock }

func (m *mockParts) Next() (upload.Part, error) {
	args := m.Called()
	p, _ := args.Get(0).(upload.Part)
	return p, args.Error(1)
}

func files(ps ...upload.Part) *sliceParts { return &sliceParts{parts: ps} }

func textPart(name, body string) upload.Part {
	return part{Reader: strings.NewReader(body), name: name}
}

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), f.after)
	for i := range p[:n] {
		p[i] = 'x'
	}
	f.after -= n
	return n, nil
}

func setup(t *testing.T) (*upload.Pipeline, string) {
	t.Helper()
	root, err := fsutil.NewRoot(t.TempDir())
	require.NoError(t, err)
	return upload.New(root, host, nil), root.Path()
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Name())
	}
	return out
}

func TestUpload_SingleFile(t *testing.T) {
	t.Parallel()
	p, base := setup(t)
	require.NoError(t, os.Mkdir(filepath.Join(base, "docs"), 0o755))

	res, err := p.Upload(context.Background(), "docs", files(textPart("a.txt", "hello")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, res.Files)
	assert.Equal(t, host+"/docs/a.txt", res.URL)
	assert.False(t, res.Multi())

	data, err := os.ReadFile(filepath.Join(base, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, []string{"a.txt"}, dirNames(t, filepath.Join(base, "docs")))
}

func TestUpload_RootTarget(t *testing.T) {
	t.Parallel()
	p, _ := setup(t)

	res, err := p.Upload(context.Background(), "", files(textPart("my photo.png", "png")))
	require.NoError(t, err)
	assert.Equal(t, host+"/my%20photo.png", res.URL)
}

func TestUpload_MultipleFiles(t *testing.T) {
	t.Parallel()
	p, base := setup(t)

	res, err := p.Upload(context.Background(), "/", files(
		textPart("first.txt", "1"),
		textPart("second.txt", "2"),
	))
	require.NoError(t, err)
	assert.True(t, res.Multi())
	assert.Equal(t, []string{"first.txt", "second.txt"}, res.Files)
	assert.Equal(t, host+"/first.txt", res.URL)
	assert.ElementsMatch(t, []string{"first.txt", "second.txt"}, dirNames(t, base))
}

func TestUpload_ConflictKeepsOriginal(t *testing.T) {
	t.Parallel()
	p, base := setup(t)
	orig := filepath.Join(base, "a.txt")
	require.NoError(t, os.WriteFile(orig, []byte("original"), 0o644))

	_, err := p.Upload(context.Background(), "", files(textPart("a.txt", "replacement")))
	require.ErrorIs(t, err, fsutil.ErrConflict)

	data, err := os.ReadFile(orig)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.Equal(t, []string{"a.txt"}, dirNames(t, base))
}

func TestUpload_ConflictAbortsWholeRequest(t *testing.T) {
	t.Parallel()
	p, base := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(base, "taken.txt"), []byte("x"), 0o644))

	_, err := p.Upload(context.Background(), "", files(
		textPart("fresh.txt", "1"),
		textPart("taken.txt", "2"),
	))
	require.ErrorIs(t, err, fsutil.ErrConflict)
	assert.Equal(t, []string{"taken.txt"}, dirNames(t, base))
}

func TestUpload_DuplicateNamesInOneRequest(t *testing.T) {
	t.Parallel()
	p, base := setup(t)

	_, err := p.Upload(context.Background(), "", files(
		textPart("dup.txt", "1"),
		textPart("dup.txt", "2"),
	))
	require.ErrorIs(t, err, fsutil.ErrConflict)
	assert.Empty(t, dirNames(t, base))
}

func TestUpload_GeneratedName(t *testing.T) {
	t.Parallel()
	p, base := setup(t)

	res, err := p.Upload(context.Background(), "", files(textPart("", "anonymous")))
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	_, err = uuid.Parse(res.Files[0])
	assert.NoError(t, err)
	assert.FileExists(t, filepath.Join(base, res.Files[0]))
}

func TestUpload_StripsDirectoryComponents(t *testing.T) {
	t.Parallel()
	p, base := setup(t)

	res, err := p.Upload(context.Background(), "", files(textPart("../../etc/passwd", "x")))
	require.NoError(t, err)
	assert.Equal(t, []string{"passwd"}, res.Files)
	assert.FileExists(t, filepath.Join(base, "passwd"))

	res, err = p.Upload(context.Background(), "", files(textPart(`C:\Users\me\report.pdf`, "x")))
	require.NoError(t, err)
	assert.Equal(t, []string{"report.pdf"}, res.Files)
}

func TestUpload_ReservedName(t *testing.T) {
	t.Parallel()
	p, _ := setup(t)
	_, err := p.Upload(context.Background(), "", files(textPart(fsutil.StagingPrefix+"x", "x")))
	assert.ErrorIs(t, err, fsutil.ErrInvalidInput)
}

func TestUpload_NoParts(t *testing.T) {
	t.Parallel()
	p, _ := setup(t)
	_, err := p.Upload(context.Background(), "", files())
	assert.ErrorIs(t, err, fsutil.ErrNoFileUploaded)
}

func TestUpload_MidStreamFailureLeavesNothing(t *testing.T) {
	t.Parallel()
	p, base := setup(t)

	_, err := p.Upload(context.Background(), "", files(
		textPart("ok.txt", "fine"),
		part{Reader: &failingReader{after: 100 * 1024}, name: "big.bin"},
	))
	require.ErrorIs(t, err, fsutil.ErrIOFailure)
	assert.Empty(t, dirNames(t, base))
}

func TestUpload_MalformedStream(t *testing.T) {
	t.Parallel()
	p, base := setup(t)

	parts := new(mockParts)
	parts.On("Next").Return(textPart("ok.txt", "fine"), nil).Once()
	parts.On("Next").Return(nil, errors.New("multipart: NextPart: bad boundary")).Once()

	_, err := p.Upload(context.Background(), "", parts)
	require.ErrorIs(t, err, fsutil.ErrInvalidInput)
	assert.Empty(t, dirNames(t, base))
	parts.AssertExpectations(t)
}

func TestUpload_Canceled(t *testing.T) {
	t.Parallel()
	p, base := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Upload(ctx, "", files(textPart("a.txt", "x")))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dirNames(t, base))
}

func TestUpload_TargetErrors(t *testing.T) {
	t.Parallel()
	p, base := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(base, "file.txt"), nil, 0o644))

	_, err := p.Upload(context.Background(), "../outside", files(textPart("a", "x")))
	assert.ErrorIs(t, err, fsutil.ErrInvalidPath)

	_, err = p.Upload(context.Background(), "missing", files(textPart("a", "x")))
	assert.ErrorIs(t, err, fsutil.ErrNotFound)

	_, err = p.Upload(context.Background(), "file.txt", files(textPart("a", "x")))
	assert.ErrorIs(t, err, fsutil.ErrInvalidInput)
}

func TestMultipartParts(t *testing.T) {
	t.Parallel()
	p, base := setup(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "one.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("one"))
	fw, err = mw.CreateFormFile("files", "two.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("two"))
	require.NoError(t, mw.Close())

	mr := multipart.NewReader(&body, mw.Boundary())
	res, err := p.Upload(context.Background(), "", upload.MultipartParts(mr))
	require.NoError(t, err)
	assert.Equal(t, []string{"one.txt", "two.txt"}, res.Files)

	data, err := os.ReadFile(filepath.Join(base, "two.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

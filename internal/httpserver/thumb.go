package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	// decoders
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"fileboard/internal/logger"
)

const thumbMaxSide = 256

func isImageExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}

func (s *Server) handleThumb(w http.ResponseWriter, r *http.Request, abs string) {
	if !isImageExt(filepath.Ext(abs)) {
		http.NotFound(w, r)
		return
	}
	b, err := makeThumb(abs, thumbMaxSide, thumbMaxPixels)
	if err != nil {
		s.log.DebugContext(r.Context(), "thumbnail failed", logger.Error(err))
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(b)
}

// thumbMaxPixels bounds the decoded source so a small file declaring huge
// dimensions cannot exhaust memory.
const thumbMaxPixels = 50_000_000

var errThumbTooLarge = errors.New("image too large to thumbnail")

// makeThumb decodes the image at absPath and scales it so the long side is
// at most maxSide pixels. Transparent areas are flattened onto white since
// JPEG has no alpha.
func makeThumb(absPath string, maxSide, maxPixels int) ([]byte, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, os.ErrInvalid
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", errThumbTooLarge, cfg.Width, cfg.Height)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 82}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// fitWithin scales w x h down, keeping the aspect ratio, until neither side
// exceeds maxSide. Sizes already within bounds are returned unchanged.
func fitWithin(w, h, maxSide int) (int, int) {
	if w <= maxSide && h <= maxSide {
		return w, h
	}
	if w >= h {
		return maxSide, max(h*maxSide/w, 1)
	}
	return max(w*maxSide/h, 1), maxSide
}

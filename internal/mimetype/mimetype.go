// Package mimetype maps file names to Content-Type values.
package mimetype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Default is returned when neither the extension nor the content is known.
const Default = "application/octet-stream"

var byExt = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript",
	".json": "application/json",
	".toml": "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".log":  "text/plain; charset=utf-8",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
}

// ByName returns the Content-Type for a file name based on its extension, or
// "" if the extension is unknown.
func ByName(name string) string {
	return byExt[strings.ToLower(filepath.Ext(name))]
}

// ForFile returns the Content-Type for the file at path. The extension table
// wins; otherwise the first bytes of the file are sniffed.
func ForFile(path string) string {
	if ct := ByName(path); ct != "" {
		return ct
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return Default
	}
	return m.String()
}

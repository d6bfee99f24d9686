package httpserver

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"fileboard/internal/fsutil"
	"fileboard/internal/logger"
)

// handleZip streams dirAbs as a zip archive. Only regular files are added;
// symlinks and in-flight uploads are skipped. Errors after the first byte
// can only end the stream early.
func (s *Server) handleZip(w http.ResponseWriter, r *http.Request, dirAbs string) {
	ctx := r.Context()
	name := "download"
	if dirAbs != s.root.Path() {
		name = zipBaseName(filepath.Base(dirAbs))
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(dirAbs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), fsutil.StagingPrefix) || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dirAbs, p)
		if err != nil {
			return nil
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate
		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		defer f.Close()
		_, err = io.Copy(dst, f)
		return err
	})
	if err == nil {
		err = zw.Close()
	}
	if err != nil {
		s.log.WarnContext(ctx, "zip stream aborted", logger.Error(err))
	}
}

func zipBaseName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".zip")
	s = strings.Trim(s, ". ")
	if s == "" {
		return "download"
	}
	return s
}

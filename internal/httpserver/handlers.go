package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"fileboard/internal/fsutil"
	"fileboard/internal/listing"
	"fileboard/internal/logger"
	"fileboard/internal/mimetype"
	"fileboard/internal/upload"
)

const maxMoveBody = 64 << 10

type moveRequest struct {
	Destination string `json:"destination" validate:"required"`
}

type uploadResponse struct {
	ImageURL string `json:"image_url,omitempty"`
	Message  string `json:"message,omitempty"`
}

// handleGet serves a file, a directory's index file, or a generated listing.
// Anything that cannot be resolved or read is a 404.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	abs, err := s.root.Resolve(r.URL.Path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	st, err := os.Stat(abs)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	if !st.IsDir() {
		if q.Get("thumb") == "1" {
			s.handleThumb(w, r, abs)
			return
		}
		s.serveFile(w, r, abs, q.Get("dl") == "1")
		return
	}

	if q.Get("zip") == "1" {
		s.handleZip(w, r, abs)
		return
	}
	res, err := s.listing.Generate(r.Context(), abs)
	if err != nil {
		s.log.WarnContext(r.Context(), "listing failed", logger.Error(err))
		http.NotFound(w, r)
		return
	}
	if res.IndexFile != "" {
		s.serveFile(w, r, res.IndexFile, false)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, res.Listing)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, res.Listing); err != nil {
		s.log.ErrorContext(r.Context(), "render listing", logger.Error(err))
	}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, abs string, attachment bool) {
	f, err := os.Open(abs)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mimetype.ForFile(abs))
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", st.Name()))
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.cfg.MaxFileSize {
		s.fail(w, r, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize)

	mr, err := r.MultipartReader()
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: expected multipart/form-data", fsutil.ErrInvalidInput))
		return
	}
	res, err := s.uploads.Upload(r.Context(), r.URL.Path, upload.MultipartParts(mr))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusConflict {
			status = http.StatusBadRequest
		}
		s.fail(w, r, status, err)
		return
	}

	if res.Multi() {
		writeJSON(w, http.StatusOK, uploadResponse{Message: "Files uploaded successfully"})
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{ImageURL: res.URL})
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	if err := s.relocate.Mkdir(r.Context(), r.URL.Path); err != nil {
		status := http.StatusBadRequest
		if statusFor(err) == http.StatusInternalServerError {
			status = http.StatusInternalServerError
		}
		s.fail(w, r, status, err)
		return
	}
	writeText(w, http.StatusOK, "Directory created")
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMoveBody)).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: invalid request body", fsutil.ErrInvalidInput))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: destination is required", fsutil.ErrInvalidInput))
		return
	}
	if err := s.relocate.Move(r.Context(), r.URL.Path, req.Destination); err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	writeText(w, http.StatusOK, "Move successful")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.relocate.Delete(r.Context(), r.URL.Path); err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	writeText(w, http.StatusOK, "Moved to trash")
}

// statusFor maps the storage error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, fsutil.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fsutil.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, fsutil.ErrInvalidInput), errors.Is(err, fsutil.ErrNoFileUploaded):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes a plain-text error. Server errors are logged and their
// details, which may carry filesystem paths, are not sent to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	http.Error(w, msg, status)
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

type crumb struct {
	Name string
	Link string
}

// crumbs splits a listing path into breadcrumb links.
func crumbs(rel string) []crumb {
	if rel == "" {
		return nil
	}
	parts := strings.Split(rel, "/")
	out := make([]crumb, 0, len(parts))
	for i, p := range parts {
		out = append(out, crumb{
			Name: p,
			Link: listing.Link(strings.Join(parts[:i+1], "/"), true),
		})
	}
	return out
}

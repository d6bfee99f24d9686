package httpserver

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"golang.org/x/net/webdav"

	"fileboard/internal/config"
	"fileboard/internal/davfs"
	"fileboard/internal/fsutil"
	"fileboard/internal/listing"
	"fileboard/internal/logger"
	"fileboard/internal/relocate"
	"fileboard/internal/upload"
)

// DAVPrefix is where the WebDAV view is mounted when enabled.
const DAVPrefix = "/dav"

type Options struct {
	Config config.Config
	Logger *slog.Logger
}

type Server struct {
	cfg      config.Server
	root     fsutil.Root
	listing  *listing.Generator
	uploads  *upload.Pipeline
	relocate *relocate.Manager
	validate *validator.Validate
	page     *template.Template
	log      *slog.Logger
}

//go:embed web/listing.html
var embeddedWeb embed.FS

// WebDAV verbs are not in chi's default method set.
func init() {
	for _, m := range []string{"PROPFIND", "PROPPATCH", "MKCOL", "COPY", "MOVE", "LOCK", "UNLOCK"} {
		chi.RegisterMethod(m)
	}
}

func New(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := opts.Config.Server

	root, err := fsutil.NewRoot(cfg.WWWRoot)
	if err != nil {
		return nil, err
	}
	rm, err := relocate.New(root, cfg.TrashCan, log.With(logger.Component("relocate")))
	if err != nil {
		return nil, err
	}
	page, err := template.New("listing.html").Funcs(template.FuncMap{
		"crumbs": crumbs,
	}).ParseFS(embeddedWeb, "web/listing.html")
	if err != nil {
		return nil, fmt.Errorf("parse listing template: %w", err)
	}

	return &Server{
		cfg:      cfg,
		root:     root,
		listing:  listing.New(root),
		uploads:  upload.New(root, cfg.Host, log.With(logger.Component("upload"))),
		relocate: rm,
		validate: validator.New(),
		page:     page,
		log:      log,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(withHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})

	if s.cfg.WebDAV {
		r.Mount(DAVPrefix, &webdav.Handler{
			Prefix:     DAVPrefix,
			FileSystem: davfs.New(s.root, s.relocate),
			LockSystem: webdav.NewMemLS(),
			Logger: func(r *http.Request, err error) {
				if err != nil {
					s.log.DebugContext(r.Context(), "webdav", slog.String("method", r.Method),
						slog.String("path", r.URL.Path), logger.Error(err))
				}
			},
		})
	}

	r.Get("/*", s.handleGet)
	r.Head("/*", s.handleGet)
	r.Post("/*", s.handleUpload)
	r.Put("/*", s.handleMkdir)
	r.Patch("/*", s.handleMove)
	r.Delete("/*", s.handleDelete)

	return r
}

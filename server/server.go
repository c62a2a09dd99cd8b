package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"story_studio/generator"
	"story_studio/publisher"
)

//go:embed web
var embeddedStatic embed.FS

const (
	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 1 << 20
)

// Generator produces outline text; *generator.Agent is the production one.
type Generator interface {
	CreateOutline(ctx context.Context, req generator.CreateRequest) (string, error)
	ReviseOutline(ctx context.Context, req generator.ReviseRequest) (string, error)
}

type Options struct {
	// Timeout bounds each model call. Zero means 60s.
	Timeout time.Duration
	Logger  *zap.Logger
}

type Server struct {
	gen      Generator
	pub      *publisher.Publisher
	timeout  time.Duration
	logger   *zap.Logger
	static   fs.FS
	staticFS http.Handler
}

func New(gen Generator, opts Options) (*Server, error) {
	if gen == nil {
		return nil, errors.New("generator agent required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	sub, err := fs.Sub(embeddedStatic, "web")
	if err != nil {
		return nil, err
	}

	return &Server{
		gen:      gen,
		pub:      publisher.New(opts.Logger),
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		static:   sub,
		staticFS: http.FileServer(http.FS(sub)),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/outline", s.handleOutline)
	mux.HandleFunc("/outline/revise", s.handleRevise)
	mux.HandleFunc("/outline/export", s.handleExport)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/", s.staticHandler())
	return logMiddleware(s.logger, mux)
}

func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// paths without an extension get the studio page
		if r.URL.Path == "/" || path.Ext(r.URL.Path) == "" {
			http.ServeFileFS(w, r, s.static, "index.html")
			return
		}
		s.staticFS.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	var req generator.CreateRequest
	if !decodePost(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	text, err := s.gen.CreateOutline(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, text)
}

func (s *Server) handleRevise(w http.ResponseWriter, r *http.Request) {
	var req generator.ReviseRequest
	if !decodePost(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	text, err := s.gen.ReviseOutline(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, text)
}

type exportReq struct {
	Outline string         `json:"outline"`
	Title   string         `json:"title"`
	Theme   string         `json:"theme"`
	Mode    generator.Mode `json:"mode"`
	Format  string         `json:"format"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportReq
	if !decodePost(w, r, &req) {
		return
	}
	format, err := publisher.ParseFormat(req.Format)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	doc := publisher.FromHTML(req.Title, req.Theme, req.Mode, req.Outline)
	if len(doc.Beats) == 0 {
		writeText(w, http.StatusBadRequest, "Outline required")
		return
	}
	data, err := s.pub.Render(doc, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeText(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeText(w, http.StatusOK, "ok")
}

// --- Helpers ---

// decodePost enforces POST and decodes the JSON body into v. It writes the
// error response itself and reports whether the handler should continue.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeText(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeError maps generator failures onto the response: validation problems
// are 400, upstream rejections are passed through with their own status and
// body, and anything else is a bad gateway.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *generator.ValidationError
		upstream *generator.UpstreamError
	)
	switch {
	case errors.As(err, &invalid):
		writeText(w, http.StatusBadRequest, invalid.Message)
	case errors.As(err, &upstream):
		writeText(w, upstream.StatusCode, upstream.Body)
	case errors.Is(err, context.DeadlineExceeded):
		requestLogger(r.Context()).Warn("model call timed out", zap.Error(err))
		writeText(w, http.StatusGatewayTimeout, "upstream request timed out")
	default:
		requestLogger(r.Context()).Error("model call failed", zap.Error(err))
		writeText(w, http.StatusBadGateway, err.Error())
	}
}

// writeText writes body as is. http.Error would append a newline, which
// would change upstream bodies that are relayed verbatim.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func isAPIPath(p string) bool {
	return p == "/healthz" || strings.HasPrefix(p, "/outline")
}

// Package httpapi serves the journal, goals and tasks stores over HTTP/JSON
// for the single-page front end.
package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/dataroot"
	"github.com/JamesPrial/mindful-journal/internal/journal"
	"github.com/JamesPrial/mindful-journal/internal/lists"
	"github.com/JamesPrial/mindful-journal/internal/metrics"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 10 << 20

// Server holds the stores behind the API.
type Server struct {
	root    *dataroot.Root
	journal *journal.Store
	lists   *lists.Service
	logger  *zap.Logger

	metrics     *metrics.Collector
	metricsPath string
	staticDir   string
	maxBody     int64
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes c at path and instruments every request.
func WithMetrics(c *metrics.Collector, path string) Option {
	return func(s *Server) {
		s.metrics = c
		s.metricsPath = path
	}
}

// WithStaticDir serves the front end from dir, falling back to index.html
// for unknown paths.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// NewServer creates a Server. A nil logger is replaced with a no-op logger.
func NewServer(root *dataroot.Root, js *journal.Store, ls *lists.Service, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		root:    root,
		journal: js,
		lists:   ls,
		logger:  logger,
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth(r))
	r.Get("/routes", s.handleRoutes(r))
	if s.metrics != nil {
		r.Method(http.MethodGet, s.metricsPath, s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.ensureRoot)

		r.Get("/journal/entries", s.handleListEntries)
		r.Post("/journal/entry", s.handleSaveEntry)
		r.Get("/system/info", s.handleSystemInfo)

		r.Get("/{kind}", s.handleGetLists)
		r.Post("/{kind}/active", s.handleAddItem)
		r.Post("/{kind}/{id}/complete", s.handleComplete)
		r.Post("/{kind}/{id}/reactivate", s.handleReactivate)
		r.Put("/{kind}/{id}", s.handleUpdateItem)
		r.Delete("/{kind}/{id}", s.handleDeleteItem)
	})

	if s.staticDir != "" {
		spa := spaHandler(s.staticDir)
		r.Get("/", spa.ServeHTTP)
		r.Get("/*", spa.ServeHTTP)
	}

	return r
}

// ensureRoot creates the data folder layout before any API call touches it.
func (s *Server) ensureRoot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.root.Ensure(); err != nil {
			s.logger.Error("failed to prepare data folder", zap.Error(err))
			writeListError(w, http.StatusInternalServerError, "Failed to prepare data folder")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type endpoint struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

// endpoints walks the router, grouping methods per path.
func endpoints(r chi.Routes) []endpoint {
	byPath := make(map[string][]string)
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		byPath[route] = append(byPath[route], method)
		return nil
	})

	out := make([]endpoint, 0, len(byPath))
	for path, methods := range byPath {
		sort.Strings(methods)
		out = append(out, endpoint{Path: path, Methods: methods})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *Server) handleHealth(r chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"endpoints": endpoints(r),
		})
	}
}

func (s *Server) handleRoutes(r chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		eps := endpoints(r)
		lines := make([]string, 0, len(eps))
		for _, ep := range eps {
			lines = append(lines, fmt.Sprintf("%s [%s]", ep.Path, strings.Join(ep.Methods, ",")))
		}
		sort.Strings(lines)
		writeJSON(w, http.StatusOK, map[string]any{"routes": lines})
	}
}

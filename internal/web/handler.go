// Package web serves the learner and teacher HTML pages, the JSON API and the
// operational endpoints of the courses service.
package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-intelligence/courses/internal/catalog"
	"github.com/mesh-intelligence/courses/internal/observability"
	"github.com/mesh-intelligence/courses/pkg/types"
)

// DefaultUser is the learner assumed when a request names none.
const DefaultUser = "demo_user"

// Options configures New.
type Options struct {
	Catalog *catalog.Service
	Logger  *log.Logger
	// Collector receives request metrics. Nil disables them.
	Collector *observability.Collector
	// Gatherer backs /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer    prometheus.Gatherer
	DefaultUser string
}

// Handler is the HTTP front end of the catalog.
type Handler struct {
	svc         *catalog.Service
	logger      *log.Logger
	render      *renderer
	router      *mux.Router
	defaultUser string
}

// New builds the router with every route registered.
func New(opts Options) (*Handler, error) {
	if opts.Catalog == nil {
		return nil, errors.New("web: catalog service is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Collector == nil {
		opts.Collector = observability.NewCollector("courses")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if strings.TrimSpace(opts.DefaultUser) == "" {
		opts.DefaultUser = DefaultUser
	}

	rd, err := newRenderer()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		svc:         opts.Catalog,
		logger:      opts.Logger,
		render:      rd,
		router:      mux.NewRouter(),
		defaultUser: opts.DefaultUser,
	}

	mw := observability.NewMiddleware(opts.Logger, opts.Collector, routeTemplate)
	h.router.Use(mw.Wrap)
	h.router.NotFoundHandler = mw.Wrap(http.HandlerFunc(h.notFound))
	h.router.MethodNotAllowedHandler = mw.Wrap(http.HandlerFunc(h.methodNotAllowed))

	h.router.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	h.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	h.registerUI(h.router)
	h.registerAPI(h.router.PathPrefix("/api").Subrouter())
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routeTemplate labels metrics with the matched route, or "unmatched".
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	http.Error(w, "Not Found", http.StatusNotFound)
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// userID returns the learner named by the user_id query or form field.
func (h *Handler) userID(r *http.Request) string {
	if u := strings.TrimSpace(r.FormValue("user_id")); u != "" {
		return u
	}
	return h.defaultUser
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrTitleRequired),
		errors.Is(err, types.ErrQuestionRequired),
		errors.Is(err, types.ErrTooFewOptions),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidID):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

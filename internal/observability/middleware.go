package observability

import (
	"fmt"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/felixge/httpsnoop"
)

// RouteLabel maps a request to the path label used in metrics. It should
// return the route template so that IDs do not explode label cardinality.
type RouteLabel func(*http.Request) string

// Middleware logs every request, records its metrics and turns panics into
// 500 responses.
type Middleware struct {
	logger    *log.Logger
	collector *Collector
	route     RouteLabel
}

// NewMiddleware returns request middleware. A nil route labels requests by
// their URL path.
func NewMiddleware(logger *log.Logger, collector *Collector, route RouteLabel) *Middleware {
	if route == nil {
		route = func(r *http.Request) string { return r.URL.Path }
	}
	return &Middleware{logger: logger, collector: collector, route: route}
}

// Wrap instruments next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := http.StatusOK
		wrote := false

		w = httpsnoop.Wrap(w, httpsnoop.Hooks{
			WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
				return func(code int) {
					if !wrote {
						status, wrote = code, true
					}
					next(code)
				}
			},
			Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
				return func(b []byte) (int, error) {
					wrote = true
					return next(b)
				}
			},
		})

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				m.collector.ObservePanic()
				m.logger.Error("Unhandled exception",
					"method", r.Method,
					"path", r.URL.Path,
					"error", fmt.Sprint(p),
					"stack", string(debug.Stack()),
				)
				// Once headers are out the client already has the handler's
				// status, so that is what gets recorded.
				if !wrote {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					status = http.StatusInternalServerError
				}
			}

			elapsed := time.Since(start)
			m.collector.ObserveRequest(r.Method, m.route(r), strconv.Itoa(status), elapsed.Seconds())
			m.logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", status,
				"duration_ms", math.Round(float64(elapsed.Microseconds())/10)/100,
			)
		}()

		next.ServeHTTP(w, r)
	})
}

package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/courses/internal/catalog"
	"github.com/mesh-intelligence/courses/internal/observability"
	"github.com/mesh-intelligence/courses/internal/seed"
	"github.com/mesh-intelligence/courses/internal/sqlite"
	"github.com/mesh-intelligence/courses/pkg/types"
)

const missingID = "019a0000-0000-7000-8000-000000000000"

type testServer struct {
	handler *Handler
	store   types.Catalog
	svc     *catalog.Service
}

// newTestServer returns a handler over a freshly seeded catalog.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	_, err := seed.Load(b)
	require.NoError(t, err)

	logger := log.New(io.Discard)
	svc := catalog.New(b, logger)
	reg := prometheus.NewRegistry()
	collector := observability.NewCollector("courses")
	require.NoError(t, reg.Register(collector))

	h, err := New(Options{Catalog: svc, Logger: logger, Collector: collector, Gatherer: reg})
	require.NoError(t, err)
	return &testServer{handler: h, store: b, svc: svc}
}

func (ts *testServer) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(t *testing.T, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return ts.do(t, method, target, body, "application/json")
}

func (ts *testServer) postForm(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// firstCourse returns the seeded "Python for beginners" course and its lessons.
func (ts *testServer) firstCourse(t *testing.T) (*types.Course, []*types.Lesson) {
	t.Helper()
	courses, err := ts.svc.ListCourses("python")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	lessons, err := ts.svc.CourseLessons(courses[0].ID)
	require.NoError(t, err)
	return courses[0], lessons
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestOpsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	ts.do(t, http.MethodGet, "/api/courses/"+missingID, nil, "")

	rec = ts.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	metrics := rec.Body.String()
	assert.Contains(t, metrics, `http_requests_total{method="GET",path="/healthz",service="courses",status="200"} 1`)
	assert.Contains(t, metrics, `http_requests_total{method="GET",path="/api/courses/{id}",service="courses",status="404"} 1`)
	assert.Contains(t, metrics, "http_request_duration_seconds_bucket")
}

func TestNotFoundRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/nothing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not Found"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/nothing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/courses", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
)

// fakeUpstream is an in-process stand-in for the REST API. Handlers are
// registered per pattern; every request is recorded.
type fakeUpstream struct {
	t   *testing.T
	mux *http.ServeMux
	srv *httptest.Server

	mu       sync.Mutex
	requests []recorded
}

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{t: t, mux: http.NewServeMux()}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakeUpstream) client() *upstream.Client {
	cfg := config.UpstreamConfig{BaseURL: f.srv.URL, Timeout: 2 * time.Second, BreakerFailures: 5, BreakerCooldown: time.Minute}
	tokens := upstream.TokenFunc(func(context.Context) (string, bool) { return "tok", true })
	return upstream.New(cfg, tokens, zap.NewNop())
}

func (f *fakeUpstream) calls(method, path string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func writeEnvelope(w http.ResponseWriter, status int, env map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func ok(data any) map[string]any {
	return map[string]any{"success": true, "data": data}
}

func list(rows any, page, totalPages, total, limit int) map[string]any {
	return map[string]any{
		"success": true,
		"data":    rows,
		"pagination": map[string]any{
			"currentPage": page, "totalPages": totalPages, "totalRecords": total, "limit": limit,
		},
	}
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *recordingAuditor) LogAsync(_ context.Context, e AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) all() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AuditEntry(nil), a.entries...)
}

type statusCall struct {
	resource, status string
	failed           bool
}

type recordingMetrics struct {
	mu      sync.Mutex
	status  []statusCall
	fetches int
	stale   int
	exports int
}

func (m *recordingMetrics) FetchCompleted(string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
}

func (m *recordingMetrics) FetchDiscarded(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale++
}

func (m *recordingMetrics) ExportCompleted(string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports++
}

func (m *recordingMetrics) StatusChanged(resource, status string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = append(m.status, statusCall{resource, status, err != nil})
}

func listViewConfig() config.ListViewConfig {
	return config.ListViewConfig{Debounce: time.Millisecond, DefaultLimit: 10, MaxLimit: 100, ChartTopN: 5}
}

package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/live"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/service"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const cookieName = "repdash_session"

var roles = map[string]string{
	"admin": "admin",
	"rep":   "medical rep",
	"root":  "SYSTEM_ADMIN",
}

// fakeAPI stands in for the upstream REST API and records every request.
type fakeAPI struct {
	mux *http.ServeMux
	srv *httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	a := &fakeAPI{mux: http.NewServeMux()}
	a.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds upstream.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		role, ok := roles[creds.Username]
		if !ok || creds.Password != "pw" {
			writeJSON(w, http.StatusUnauthorized, `{"success":false,"message":"بيانات الدخول غير صحيحة"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"token":"up-`+creds.Username+`","user":{"id":"u-`+creds.Username+`","username":"`+creds.Username+`","role":"`+role+`"}}}`)
	})
	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		a.mu.Lock()
		a.requests = append(a.requests, r.Clone(context.Background()))
		a.bodies = append(a.bodies, string(body))
		a.mu.Unlock()
		a.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(a.srv.Close)
	return a
}

func (a *fakeAPI) handle(pattern string, h http.HandlerFunc) { a.mux.HandleFunc(pattern, h) }

// last returns the newest request to method+path and its body.
func (a *fakeAPI) last(method, path string) (*http.Request, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.requests) - 1; i >= 0; i-- {
		if r := a.requests[i]; r.Method == method && r.URL.Path == path {
			return r, a.bodies[i]
		}
	}
	return nil, ""
}

func (a *fakeAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func orderList(status string, page int) string {
	return `{"success":true,"data":[{"id":"o1","status":"` + status + `","area":"القاهرة","totalOrderValue":"50"}],` +
		`"pagination":{"currentPage":` + strconv.Itoa(page) + `,"totalPages":3,"totalRecords":21,"limit":10}}`
}

func setupServer(t *testing.T, api *fakeAPI) *Server {
	t.Helper()
	log := zap.NewNop()
	jwtCfg := config.JWTConfig{
		Secret:     "handler-test-secret-handler-test-secret",
		SessionTTL: time.Hour,
		Issuer:     "repdash-test",
		CookieName: cookieName,
	}

	store := session.NewStore(session.NewMemoryRepository(), time.Hour, log)
	client := upstream.New(config.UpstreamConfig{
		BaseURL: api.srv.URL, Timeout: 2 * time.Second, BreakerFailures: 50, BreakerCooldown: time.Minute,
	}, store, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := live.NewHub(nil, log)
	go hub.Run(ctx)

	lists := service.NewLists(client, config.ListViewConfig{
		Debounce: time.Millisecond, DefaultLimit: 10, MaxLimit: 100, ChartTopN: 5,
	}, nil, nil, log)
	lists.OnChange(hub.Notify)

	s := NewServer(Deps{
		Auth:      service.NewAuthService(client, store, auth.NewJWTManager(jwtCfg), nil, log),
		Lists:     lists,
		Forms:     service.NewForms(client, nil, lists.Notify, log),
		Reference: service.NewReferenceService(client, store, log),
		Dashboard: service.NewDashboardService(lists),
		Hub:       hub,
		Cookie:    jwtCfg,
		Log:       log,
	})
	s.now = func() time.Time { return time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC) }
	return s
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func loginAs(t *testing.T, s *Server, username string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/login", "", map[string]string{"username": username, "password": "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, w.Code, w.Body.String())
	}
	var res APIResponse[loginResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res.Data.Token
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var res APIResponse[map[string]any]
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return res.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var res ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return res
}

func TestProtectedRouteRedirectsToLogin(t *testing.T) {
	s := setupServer(t, newFakeAPI(t))

	w := doJSON(t, s, http.MethodGet, "/orders?status=pending", "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("code = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?redirect="+url.QueryEscape("/orders?status=pending") {
		t.Fatalf("location = %q", loc)
	}

	w = doJSON(t, s, http.MethodGet, "/orders", "not-a-token", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("bad token code = %d, want 302", w.Code)
	}
}

func TestLoginSetsCookieAndSafeRedirect(t *testing.T) {
	s := setupServer(t, newFakeAPI(t))

	w := doJSON(t, s, http.MethodPost, "/login", "", map[string]string{
		"username": "admin", "password": "pw", "redirect": "//evil.example/steal",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["redirect"] != "/" {
		t.Fatalf("redirect = %v, want /", data["redirect"])
	}
	if data["token"] == "up-admin" {
		t.Fatal("upstream token leaked to the browser")
	}
	user := data["user"].(map[string]any)
	if user["role"] != "ADMIN" {
		t.Fatalf("role = %v, want normalized ADMIN", user["role"])
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("session cookie = %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/me with cookie = %d", rec.Code)
	}
}

func TestLoginFailures(t *testing.T) {
	s := setupServer(t, newFakeAPI(t))

	w := doJSON(t, s, http.MethodPost, "/login", "", map[string]string{"username": "admin", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password code = %d", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/login", "", map[string]string{"username": "", "password": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank form code = %d", w.Code)
	}
}

func TestRoleGate(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /doctors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":[],"pagination":{"currentPage":1,"totalPages":0,"totalRecords":0,"limit":10}}`)
	})
	s := setupServer(t, api)
	rep, admin := loginAs(t, s, "rep"), loginAs(t, s, "admin")

	cases := []struct {
		name  string
		token string
		path  string
		want  int
	}{
		{"rep on management", rep, "/management/doctors", http.StatusFound},
		{"admin on management", admin, "/management/doctors", http.StatusOK},
		{"admin on admins", admin, "/management/admins", http.StatusFound},
		{"admin on my-data", admin, "/my-data", http.StatusFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := api.count()
			w := doJSON(t, s, http.MethodGet, tc.path, tc.token, nil)
			if w.Code != tc.want {
				t.Fatalf("code = %d, want %d", w.Code, tc.want)
			}
			if tc.want != http.StatusFound {
				return
			}
			if !strings.HasPrefix(w.Header().Get("Location"), "/login?redirect=") {
				t.Fatalf("location = %q", w.Header().Get("Location"))
			}
			if n := api.count() - before; n != 0 {
				t.Fatalf("refused request reached the upstream %d times", n)
			}
		})
	}
}

func TestListForwardsFiltersAndPaging(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orderList("pending", 2))
	})
	s := setupServer(t, api)
	token := loginAs(t, s, "admin")

	w := doJSON(t, s, http.MethodGet, "/orders?status=pending&area=all&startDate=2024-01-01&page=2&limit=500", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}

	r, _ := api.last(http.MethodGet, "/orders")
	q := r.URL.Query()
	if q.Get("status") != "pending" || q.Has("area") || q.Get("startDate") != "2024-01-01" {
		t.Fatalf("query = %q", r.URL.RawQuery)
	}
	if q.Get("page") != "2" || q.Get("limit") != "100" {
		t.Fatalf("paging = page %q limit %q, want 2 and the 100 cap", q.Get("page"), q.Get("limit"))
	}
	if r.Header.Get("Authorization") != "Bearer up-admin" {
		t.Fatalf("upstream auth = %q", r.Header.Get("Authorization"))
	}

	data := decodeData(t, w)
	if rows := data["rows"].([]any); len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}
	if data["statistics"] == nil {
		t.Fatal("statistics missing")
	}
}

func TestApproveOrderRefetches(t *testing.T) {
	api := newFakeAPI(t)
	var approved atomic.Bool
	api.handle("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		status := "pending"
		if approved.Load() {
			status = "approved"
		}
		writeJSON(w, http.StatusOK, orderList(status, 1))
	})
	api.handle("PATCH /orders/o1/status", func(w http.ResponseWriter, r *http.Request) {
		approved.Store(true)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":"o1","status":"approved"}}`)
	})
	s := setupServer(t, api)
	token := loginAs(t, s, "admin")

	w := doJSON(t, s, http.MethodPost, "/management/orders/o1/approve?status=pending", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}
	rows := decodeData(t, w)["rows"].([]any)
	if rows[0].(map[string]any)["status"] != "approved" {
		t.Fatalf("rows = %v", rows)
	}

	_, body := api.last(http.MethodPatch, "/orders/o1/status")
	if !strings.Contains(body, `"status":"approved"`) || !strings.Contains(body, `"expectedStatus":"pending"`) {
		t.Fatalf("patch body = %s", body)
	}

	// the row is final now
	w = doJSON(t, s, http.MethodPost, "/management/orders/o1/reject", token, nil)
	if w.Code != http.StatusConflict || decodeError(t, w).Code != "NOT_PENDING" {
		t.Fatalf("second review = %d %s", w.Code, w.Body.String())
	}
}

func TestApproveConflictFromUpstream(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /sample-requests", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":[],"pagination":{"currentPage":1,"totalPages":0,"totalRecords":0,"limit":10}}`)
	})
	api.handle("PATCH /sample-requests/s1/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"success":false,"message":"تمت مراجعة الطلب بالفعل"}`)
	})
	s := setupServer(t, api)
	token := loginAs(t, s, "root")

	w := doJSON(t, s, http.MethodPost, "/management/sample-requests/s1/reject", token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}
	if e := decodeError(t, w); e.Code != "CONFLICT" || e.Error != "تمت مراجعة الطلب بالفعل" {
		t.Fatalf("error = %+v", e)
	}
}

func TestExportStreamsSpreadsheet(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /orders/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write([]byte("PK\x03\x04xlsx"))
	})
	s := setupServer(t, api)
	token := loginAs(t, s, "admin")

	w := doJSON(t, s, http.MethodGet, "/orders/export?status=approved&page=3", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="orders_export_2024-01-31.xlsx"` {
		t.Fatalf("content-disposition = %q", cd)
	}
	if w.Body.String() != "PK\x03\x04xlsx" {
		t.Fatalf("body = %q", w.Body.String())
	}

	r, _ := api.last(http.MethodGet, "/orders/export")
	if q := r.URL.Query(); q.Get("status") != "approved" || q.Has("page") || q.Has("limit") {
		t.Fatalf("export query = %q", r.URL.RawQuery)
	}
}

func TestUpstreamUnauthorizedEndsSession(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /visits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"success":false,"message":"انتهت صلاحية الجلسة"}`)
	})
	s := setupServer(t, api)
	token := loginAs(t, s, "admin")

	w := doJSON(t, s, http.MethodGet, "/visits", token, nil)
	if w.Code != http.StatusUnauthorized || decodeError(t, w).Code != "SESSION_EXPIRED" {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/me", token, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("session survived an upstream 401: %d", w.Code)
	}
}

func TestCreateVisitNeedsReference(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /medical-reps/my-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"doctors":[{"id":"d1","name":"د. سامي"}],"products":[{"id":"p1","name":"Panadol"}]}}`)
	})
	api.handle("POST /visits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":"v1","status":"pending"}}`)
	})
	s := setupServer(t, api)
	token := loginAs(t, s, "rep")

	visit := map[string]any{
		"doctorId":  "d1",
		"visitDate": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"products":  []map[string]any{{"productId": "p1", "samplesCount": 2}},
	}
	w := doJSON(t, s, http.MethodPost, "/create-visit", token, visit)
	if w.Code != http.StatusPreconditionFailed || decodeError(t, w).Code != "REFERENCE_NOT_LOADED" {
		t.Fatalf("before my-data = %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/my-data", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("my-data = %d %s", w.Code, w.Body.String())
	}
	if docs := decodeData(t, w)["doctors"].([]any); len(docs) != 1 {
		t.Fatalf("doctors = %v", docs)
	}

	w = doJSON(t, s, http.MethodPost, "/create-visit", token, visit)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}

	visit["doctorId"] = "d9"
	w = doJSON(t, s, http.MethodPost, "/create-visit", token, visit)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown doctor = %d", w.Code)
	}
	var verr ValidationErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &verr)
	if len(verr.Fields) == 0 || !strings.Contains(verr.Fields[0], "doctorId") {
		t.Fatalf("fields = %v", verr.Fields)
	}
}

func TestUnknownRouteAndHealth(t *testing.T) {
	s := setupServer(t, newFakeAPI(t))

	w := doJSON(t, s, http.MethodGet, "/nowhere", "", nil)
	if w.Code != http.StatusNotFound || decodeError(t, w).Code != "NOT_FOUND" {
		t.Fatalf("no route = %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("response has no request id")
	}
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"":                      "/",
		"/orders?status=x":      "/orders?status=x",
		"/management/doctors":   "/management/doctors",
		"//evil.example":        "/",
		"/\\evil.example":       "/",
		"https://evil.example/": "/",
		"javascript:alert(1)":   "/",
		"/login":                "/",
	}
	for in, want := range cases {
		if got := safeRedirect(in); got != want {
			t.Errorf("safeRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(2, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatal("burst should be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Fatal("third attempt inside the burst window should be refused")
	}
	if !l.allow("10.0.0.2") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(30 * time.Second)
	if !l.allow("10.0.0.1") {
		t.Fatal("one token refills every 30s at 2/min")
	}
}

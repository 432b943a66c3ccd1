package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/service"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
)

type counter struct{ n atomic.Int32 }

func (c *counter) Inc() { c.n.Add(1) }
func (c *counter) Dec() { c.n.Add(-1) }

type ordersAPI struct {
	approved     atomic.Bool
	fetches      atomic.Int32
	unauthorized atomic.Bool
}

func (a *ordersAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		a.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if a.unauthorized.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"انتهت الجلسة"}`))
			return
		}
		status := "pending"
		if a.approved.Load() {
			status = "approved"
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"o1","status":"` + status + `","totalOrderValue":"50"}],` +
			`"pagination":{"currentPage":1,"totalPages":1,"totalRecords":1,"limit":10}}`))
	})
	mux.HandleFunc("PATCH /orders/o1/status", func(w http.ResponseWriter, r *http.Request) {
		a.approved.Store(true)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"o1","status":"approved"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	hub     *Hub
	gauge   *counter
	revoked atomic.Bool
	url     string
}

func setup(t *testing.T, api *ordersAPI) *harness {
	t.Helper()
	upstreamSrv := api.server(t)
	client := upstream.New(
		config.UpstreamConfig{BaseURL: upstreamSrv.URL, Timeout: 2 * time.Second, BreakerFailures: 50, BreakerCooldown: time.Minute},
		upstream.TokenFunc(func(context.Context) (string, bool) { return "tok", true }),
		zap.NewNop(),
	)
	lists := service.NewLists(client, config.ListViewConfig{
		Debounce: time.Millisecond, DefaultLimit: 10, MaxLimit: 100, ChartTopN: 5,
	}, nil, nil, zap.NewNop())

	h := &harness{gauge: &counter{}}
	h.hub = NewHub(h.gauge, zap.NewNop())
	lists.OnChange(h.hub.Notify)

	ctx, cancel := context.WithCancel(context.Background())
	go h.hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		View[order.Order, service.OrderFilters]{
			Hub:          h.hub,
			Lists:        lists,
			Page:         lists.Orders(),
			Caller:       service.Caller{UserID: "u1", Role: domain.RoleAdmin},
			CanReview:    true,
			Unauthorized: func() { h.revoked.Store(true) },
			Log:          zap.NewNop(),
		}.Serve(ctx, conn)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	h.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return h
}

type stateFrame struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Error  string `json:"error"`
	State  struct {
		Status string `json:"status"`
		Rows   []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"rows"`
	} `json:"state"`
}

func dial(t *testing.T, h *harness) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// await reads frames until match accepts one.
func await(t *testing.T, conn *websocket.Conn, match func(stateFrame) bool) stateFrame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var f stateFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(f) {
			return f
		}
	}
}

func rowStatus(want string) func(stateFrame) bool {
	return func(f stateFrame) bool {
		return f.Type == "state" && f.State.Status == "success" &&
			len(f.State.Rows) == 1 && f.State.Rows[0].Status == want
	}
}

func TestViewPushesFirstPage(t *testing.T) {
	api := &ordersAPI{}
	h := setup(t, api)
	conn := dial(t, h)

	f := await(t, conn, rowStatus("pending"))
	if f.State.Rows[0].ID != "o1" {
		t.Fatalf("rows = %+v", f.State.Rows)
	}
	if h.gauge.n.Load() != 1 {
		t.Fatalf("open views = %d, want 1", h.gauge.n.Load())
	}
}

func TestViewApprovesAndPushesNewState(t *testing.T) {
	api := &ordersAPI{}
	h := setup(t, api)
	conn := dial(t, h)
	await(t, conn, rowStatus("pending"))

	if err := conn.WriteJSON(Message{Action: ActionApprove, ID: "o1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	await(t, conn, rowStatus("approved"))
}

func TestViewRefreshesOnChangeFromElsewhere(t *testing.T) {
	api := &ordersAPI{}
	h := setup(t, api)
	conn := dial(t, h)
	await(t, conn, rowStatus("pending"))

	api.approved.Store(true)
	h.hub.Notify(context.Background(), service.ResourceOrders)
	await(t, conn, rowStatus("approved"))
}

func TestViewReportsBadAction(t *testing.T) {
	api := &ordersAPI{}
	h := setup(t, api)
	conn := dial(t, h)
	await(t, conn, rowStatus("pending"))

	if err := conn.WriteJSON(Message{Action: "delete", ID: "o1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := await(t, conn, func(f stateFrame) bool { return f.Type == "error" })
	if f.Action != "delete" || !strings.Contains(f.Error, "action is invalid") {
		t.Fatalf("frame = %+v", f)
	}

	if err := conn.WriteJSON(Message{Action: ActionApprove}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f = await(t, conn, func(f stateFrame) bool { return f.Type == "error" })
	if f.Action != ActionApprove {
		t.Fatalf("frame = %+v", f)
	}
}

func TestViewClosesWhenUpstreamRejectsSession(t *testing.T) {
	api := &ordersAPI{}
	api.unauthorized.Store(true)
	h := setup(t, api)
	conn := dial(t, h)

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f stateFrame
		err := conn.ReadJSON(&f)
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			t.Fatalf("err = %v, want policy violation close", err)
		}
		break
	}
	if !h.revoked.Load() {
		t.Fatal("session was not revoked")
	}
}

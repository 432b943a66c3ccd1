package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/listview"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/service"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
)

const (
	ActionFilters = "filters"
	ActionPage    = "page"
	ActionRefresh = "refresh"
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Message is what the browser sends.
type Message struct {
	Action  string          `json:"action"`
	Filters json.RawMessage `json:"filters,omitempty"`
	Page    int             `json:"page,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// Frame is what the server pushes: the page state after every transition,
// or the failure of one action.
type Frame struct {
	Type   string   `json:"type"`
	State  any      `json:"state,omitempty"`
	Action string   `json:"action,omitempty"`
	Error  string   `json:"error,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// View is one live list page bound to a websocket connection. The
// connection owns its controller; nothing is shared between connections
// except the hub.
type View[T any, F listview.Filters] struct {
	Hub     *Hub
	Lists   *service.Lists
	Page    service.ListPage[T, F]
	Initial F
	Caller  service.Caller
	// CanReview allows approve and reject from this connection.
	CanReview bool
	// Unauthorized runs once when the upstream rejects the session token.
	Unauthorized func()
	Log          *zap.Logger
}

// Serve runs the view until the client leaves, ctx ends or the session is
// rejected upstream.
func (v View[T, F]) Serve(ctx context.Context, conn *websocket.Conn) {
	if v.Log == nil {
		v.Log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, ok := v.Hub.subscribe(v.Page.Resource.Name)
	if !ok {
		_ = conn.Close()
		return
	}
	defer v.Hub.unsubscribe(sub)

	var rejected sync.Once
	closeCode := websocket.CloseNormalClosure
	page := v.Page
	fetch := page.Resource.Fetch
	page.Resource.Fetch = func(ctx context.Context, q url.Values) (*domain.Page[T], error) {
		p, err := fetch(ctx, q)
		if upstream.IsKind(err, upstream.KindUnauthorized) {
			rejected.Do(func() {
				closeCode = websocket.ClosePolicyViolation
				if v.Unauthorized != nil {
					v.Unauthorized()
				}
				cancel()
			})
		}
		return p, err
	}

	ctl := service.Open(v.Lists, page, v.Initial, listview.WithBaseContext(ctx))
	defer ctl.Close()

	st := &stream[T, F]{ready: make(chan struct{}, 1), errs: make(chan Frame, 8)}
	unsubscribe := ctl.Subscribe(st.publish)
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		v.writeLoop(ctx, cancel, conn, ctl, sub, st, &closeCode)
	}()

	ctl.Refresh()
	v.readLoop(ctx, conn, ctl, page, st, sub)

	cancel()
	<-writerDone
	ctl.Close()
	ctl.Wait()
}

// stream keeps only the newest snapshot; a slow client skips intermediate
// states but always sees the last one.
type stream[T any, F listview.Filters] struct {
	mu     sync.Mutex
	latest listview.Snapshot[T, F]
	ready  chan struct{}
	errs   chan Frame
}

func (s *stream[T, F]) publish(snap listview.Snapshot[T, F]) {
	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *stream[T, F]) snapshot() listview.Snapshot[T, F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *stream[T, F]) fail(action string, err error) {
	f := Frame{Type: "error", Action: action, Error: message(err)}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		f.Fields = verr.Fields
	}
	select {
	case s.errs <- f:
	default:
	}
}

func (v View[T, F]) readLoop(ctx context.Context, conn *websocket.Conn, ctl *listview.Controller[T, F], page service.ListPage[T, F], st *stream[T, F], sub *subscriber) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.Log.Debug("live view read failed", zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		switch msg.Action {
		case ActionFilters:
			f := v.Initial
			if len(msg.Filters) > 0 {
				if err := json.Unmarshal(msg.Filters, &f); err != nil {
					st.fail(msg.Action, &service.ValidationError{Fields: []string{"filters are invalid"}})
					continue
				}
			}
			ctl.SetFilters(f)
		case ActionPage:
			ctl.SetPage(msg.Page)
		case ActionRefresh:
			ctl.Refresh()
		case ActionApprove, ActionReject:
			if !v.CanReview {
				st.fail(msg.Action, service.ErrForbidden)
				continue
			}
			next := domain.ReviewApproved
			if msg.Action == ActionReject {
				next = domain.ReviewRejected
			}
			if _, err := service.ChangeStatus(withOrigin(ctx, sub), v.Lists, ctl, page, v.Caller, msg.ID, next); err != nil {
				st.fail(msg.Action, err)
			}
		default:
			st.fail(msg.Action, &service.ValidationError{Fields: []string{"action is invalid"}})
		}
	}
}

func (v View[T, F]) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, ctl *listview.Controller[T, F], sub *subscriber, st *stream[T, F], closeCode *int) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(f Frame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f); err != nil {
			cancel()
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(*closeCode, ""))
			return
		case <-st.ready:
			if !write(Frame{Type: "state", State: st.snapshot()}) {
				return
			}
		case f := <-st.errs:
			if !write(f) {
				return
			}
		case <-sub.changed:
			ctl.Refresh()
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				return
			}
		}
	}
}

func message(err error) string {
	if upstream.KindOf(err) != "" {
		return upstream.MessageOf(err)
	}
	return err.Error()
}

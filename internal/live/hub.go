package live

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Gauge is the open-connection gauge; prometheus.Gauge satisfies it.
type Gauge interface {
	Inc()
	Dec()
}

// subscriber is one live view waiting for "resource changed" signals.
type subscriber struct {
	resource string
	changed  chan struct{}
}

type change struct {
	resource string
	origin   *subscriber
}

type originKey struct{}

// withOrigin marks mutations made by s, so s is not told about them; it
// refetches on its own.
func withOrigin(ctx context.Context, s *subscriber) context.Context {
	return context.WithValue(ctx, originKey{}, s)
}

// Hub fans "resource changed" signals out to every live view of that
// resource.
type Hub struct {
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan change
	done       chan struct{}
	stopOnce   sync.Once

	gauge Gauge
	log   *zap.Logger
}

func NewHub(gauge Gauge, log *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan change, 64),
		done:       make(chan struct{}),
		gauge:      gauge,
		log:        log,
	}
}

// Run serves the hub until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })

	subs := make(map[*subscriber]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			subs[s] = true
			if h.gauge != nil {
				h.gauge.Inc()
			}
		case s := <-h.unregister:
			if subs[s] {
				delete(subs, s)
				if h.gauge != nil {
					h.gauge.Dec()
				}
			}
		case ch := <-h.broadcast:
			n := 0
			for s := range subs {
				if s.resource != ch.resource || s == ch.origin {
					continue
				}
				// a pending signal already covers this one
				select {
				case s.changed <- struct{}{}:
				default:
				}
				n++
			}
			h.log.Debug("resource changed", zap.String("resource", ch.resource), zap.Int("views", n))
		}
	}
}

// Notify tells every live view of resource to refresh, except the one
// that made the change through ctx. It never blocks the caller; when the
// queue is full the signal is dropped.
func (h *Hub) Notify(ctx context.Context, resource string) {
	origin, _ := ctx.Value(originKey{}).(*subscriber)
	select {
	case h.broadcast <- change{resource: resource, origin: origin}:
	case <-h.done:
	default:
		h.log.Warn("live broadcast queue full, dropping signal", zap.String("resource", resource))
	}
}

func (h *Hub) subscribe(resource string) (*subscriber, bool) {
	s := &subscriber{resource: resource, changed: make(chan struct{}, 1)}
	select {
	case h.register <- s:
		return s, true
	case <-h.done:
		return nil, false
	}
}

func (h *Hub) unsubscribe(s *subscriber) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

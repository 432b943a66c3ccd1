package listview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

var (
	// ErrStale is returned by a fetch whose response lost to a newer one.
	ErrStale             = errors.New("listview: response superseded by a newer fetch")
	ErrClosed            = errors.New("listview: controller closed")
	ErrExportUnsupported = errors.New("listview: resource has no export")
)

const (
	DefaultLimit    = 10
	DefaultDebounce = 500 * time.Millisecond

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

type FetchFunc[T any] func(ctx context.Context, q url.Values) (*domain.Page[T], error)

type ExportFunc func(ctx context.Context, q url.Values) (data []byte, contentType string, err error)

// Resource describes one server-paginated list.
type Resource[T any, F Filters] struct {
	Name  string
	Fetch FetchFunc[T]
	// Summarize derives KPI data from the fetched rows only. It is used when
	// the upstream did not send statistics of its own.
	Summarize    func(rows []T) any
	Export       ExportFunc
	ExportPrefix string
	Limit        int
}

// Snapshot is the page state handed to renderers and subscribers.
type Snapshot[T any, F Filters] struct {
	Resource   string            `json:"resource"`
	Filters    F                 `json:"filters"`
	Rows       []T               `json:"rows"`
	Pagination domain.Pagination `json:"pagination"`
	Statistics any               `json:"statistics"`
	Status     State             `json:"status"`
	Error      string            `json:"error,omitempty"`
}

type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Observer is told about every finished fetch and export.
type Observer interface {
	FetchCompleted(resource string, err error)
	FetchDiscarded(resource string)
	ExportCompleted(resource string, err error)
}

type Option func(*options)

type options struct {
	scheduler Scheduler
	debounce  time.Duration
	observer  Observer
	log       *zap.Logger
	message   func(error) string
	base      context.Context
}

func WithScheduler(s Scheduler) Option { return func(o *options) { o.scheduler = s } }

func WithDebounce(d time.Duration) Option { return func(o *options) { o.debounce = d } }

func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithBaseContext sets the parent context of background fetches (debounced,
// SetPage, Refresh). Values such as the session travel with it.
func WithBaseContext(ctx context.Context) Option {
	return func(o *options) { o.base = ctx }
}

// WithErrorMessage sets how errors are rendered into Snapshot.Error.
func WithErrorMessage(f func(error) string) Option {
	return func(o *options) { o.message = f }
}

// Controller drives one list page: filters and page in, rows, pagination
// and statistics out. Every fetch carries a generation number and only the
// newest generation may write state.
type Controller[T any, F Filters] struct {
	res  Resource[T, F]
	opts options

	ctx      context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	snap     Snapshot[T, F]
	page     int
	gen      uint64
	inflight context.CancelFunc
	timer    Timer
	subs     map[int]func(Snapshot[T, F])
	nextSub  int
	closed   bool
	// seq orders state transitions; it is stamped under mu.
	seq uint64

	// notifyMu serializes deliveries. delivered is the seq of the last
	// snapshot handed to subscribers; older ones are dropped.
	notifyMu  sync.Mutex
	delivered uint64
}

func NewController[T any, F Filters](res Resource[T, F], initial F, opts ...Option) *Controller[T, F] {
	o := options{
		scheduler: realScheduler{},
		debounce:  DefaultDebounce,
		log:       zap.NewNop(),
		message:   func(err error) string { return err.Error() },
		base:      context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if res.Limit <= 0 {
		res.Limit = DefaultLimit
	}

	ctx, cancel := context.WithCancel(o.base)
	return &Controller[T, F]{
		res:      res,
		opts:     o,
		ctx:      ctx,
		shutdown: cancel,
		page:     1,
		subs:     make(map[int]func(Snapshot[T, F])),
		snap: Snapshot[T, F]{
			Resource:   res.Name,
			Filters:    initial,
			Rows:       []T{},
			Pagination: domain.Pagination{CurrentPage: 1, Limit: res.Limit},
			Status:     StateIdle,
		},
	}
}

func (c *Controller[T, F]) Snapshot() Snapshot[T, F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// SetFilters stores f, resets to page 1 and (re)arms the debounce timer.
// Only the last change inside the window fetches.
func (c *Controller[T, F]) SetFilters(f F) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.snap.Filters = f
	c.page = 1
	c.stopTimerLocked()
	c.wg.Add(1)
	var t Timer
	t = c.opts.scheduler.AfterFunc(c.opts.debounce, func() {
		defer c.wg.Done()
		c.mu.Lock()
		current := c.timer == t
		if current {
			c.timer = nil
		}
		c.mu.Unlock()
		if current {
			_, _ = c.fetch(c.ctx)
		}
	})
	c.timer = t
}

// SetPage fetches page p in the background.
func (c *Controller[T, F]) SetPage(p int) {
	if p < 1 {
		p = 1
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.page = p
	c.stopTimerLocked()
	c.mu.Unlock()
	c.background()
}

// Refresh refetches the current filters and page in the background.
func (c *Controller[T, F]) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.mu.Unlock()
	c.background()
}

// Load sets filters and page and fetches synchronously.
func (c *Controller[T, F]) Load(ctx context.Context, f F, page int) (Snapshot[T, F], error) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	if c.closed {
		snap := c.copyLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	c.snap.Filters = f
	c.page = page
	c.stopTimerLocked()
	c.mu.Unlock()
	return c.fetch(ctx)
}

// Mutate awaits fn and then refetches the current page. When fn fails the
// rows stay as they were and the error is returned.
func (c *Controller[T, F]) Mutate(ctx context.Context, fn func(ctx context.Context) error) (Snapshot[T, F], error) {
	if err := fn(ctx); err != nil {
		return c.Snapshot(), err
	}
	return c.fetch(ctx)
}

// Export re-issues the current filters against the export endpoint. State
// is untouched whatever the outcome.
func (c *Controller[T, F]) Export(ctx context.Context, now time.Time) (*Download, error) {
	if c.res.Export == nil {
		return nil, ErrExportUnsupported
	}
	c.mu.Lock()
	filters := c.snap.Filters
	c.mu.Unlock()

	data, ct, err := c.res.Export(ctx, ExportQuery(filters))
	if c.opts.observer != nil {
		c.opts.observer.ExportCompleted(c.res.Name, err)
	}
	if err != nil {
		return nil, err
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = xlsxContentType
	}
	return &Download{
		Filename:    ExportFilename(c.exportPrefix(), now),
		ContentType: ct,
		Data:        data,
	}, nil
}

func (c *Controller[T, F]) exportPrefix() string {
	if c.res.ExportPrefix != "" {
		return c.res.ExportPrefix
	}
	return c.res.Name
}

// ExportFilename is "<prefix>_<YYYY-MM-DD>.xlsx".
func ExportFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, now.Format(DateLayout))
}

// Subscribe registers fn for every state transition. Deliveries are
// serialized and never go back to an older state. fn must not call back
// into the controller. The returned func removes it.
func (c *Controller[T, F]) Subscribe(fn func(Snapshot[T, F])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Wait blocks until background fetches started so far have finished.
func (c *Controller[T, F]) Wait() {
	c.wg.Wait()
}

// Close stops the debounce timer and cancels any fetch in flight.
func (c *Controller[T, F]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	if c.inflight != nil {
		c.inflight()
	}
	c.subs = map[int]func(Snapshot[T, F]){}
	c.mu.Unlock()
	c.shutdown()
}

func (c *Controller[T, F]) background() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.fetch(c.ctx)
	}()
}

func (c *Controller[T, F]) stopTimerLocked() {
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	c.timer = nil
}

func (c *Controller[T, F]) fetch(ctx context.Context) (Snapshot[T, F], error) {
	c.mu.Lock()
	if c.closed {
		snap := c.copyLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	c.gen++
	gen := c.gen
	if c.inflight != nil {
		c.inflight()
	}
	fctx, cancel := context.WithCancel(ctx)
	c.inflight = cancel
	filters, page := c.snap.Filters, c.page
	c.snap.Status = StateLoading
	c.snap.Error = ""
	loading := c.copyLocked()
	subs, seq := c.subscribersLocked()
	c.mu.Unlock()
	c.notify(subs, loading, seq)

	p, err := c.res.Fetch(fctx, ListQuery(filters, page, c.res.Limit))
	cancel()

	c.mu.Lock()
	if gen != c.gen || c.closed {
		snap := c.copyLocked()
		c.mu.Unlock()
		if c.opts.observer != nil {
			c.opts.observer.FetchDiscarded(c.res.Name)
		}
		return snap, ErrStale
	}
	c.inflight = nil

	if err != nil {
		c.snap.Status = StateError
		c.snap.Error = c.opts.message(err)
		c.opts.log.Warn("list fetch failed",
			zap.String("resource", c.res.Name),
			zap.Int("page", page),
			zap.Error(err),
		)
	} else {
		c.apply(p, page)
	}
	snap := c.copyLocked()
	subs, seq = c.subscribersLocked()
	c.mu.Unlock()

	if c.opts.observer != nil {
		c.opts.observer.FetchCompleted(c.res.Name, err)
	}
	c.notify(subs, snap, seq)
	return snap, err
}

// apply normalizes a successful response into state. Caller holds mu.
func (c *Controller[T, F]) apply(p *domain.Page[T], requested int) {
	pg := p.Pagination
	if pg.CurrentPage != requested {
		if pg.CurrentPage != 0 {
			c.opts.log.Warn("upstream answered a different page",
				zap.String("resource", c.res.Name),
				zap.Int("requested", requested),
				zap.Int("answered", pg.CurrentPage),
			)
		}
		pg.CurrentPage = requested
	}
	if pg.Limit <= 0 {
		pg.Limit = c.res.Limit
	}

	rows := p.Rows
	if rows == nil {
		rows = []T{}
	}
	if len(rows) > pg.Limit {
		c.opts.log.Warn("upstream returned more rows than the page limit",
			zap.String("resource", c.res.Name),
			zap.Int("rows", len(rows)),
			zap.Int("limit", pg.Limit),
		)
		rows = rows[:pg.Limit]
	}
	if pg.TotalPages == 0 && pg.TotalCount > 0 {
		pg.TotalPages = (pg.TotalCount + pg.Limit - 1) / pg.Limit
	}

	c.snap.Rows = rows
	c.snap.Pagination = pg
	c.snap.Status = StateSuccess
	switch {
	case p.Statistics != nil:
		c.snap.Statistics = p.Statistics
	case c.res.Summarize != nil:
		c.snap.Statistics = c.res.Summarize(rows)
	default:
		c.snap.Statistics = nil
	}
}

func (c *Controller[T, F]) copyLocked() Snapshot[T, F] {
	s := c.snap
	s.Rows = append([]T(nil), c.snap.Rows...)
	if s.Rows == nil {
		s.Rows = []T{}
	}
	return s
}

// subscribersLocked returns the current subscribers and stamps the
// transition being published with the next seq.
func (c *Controller[T, F]) subscribersLocked() ([]func(Snapshot[T, F]), uint64) {
	out := make([]func(Snapshot[T, F]), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	c.seq++
	return out, c.seq
}

func (c *Controller[T, F]) notify(subs []func(Snapshot[T, F]), s Snapshot[T, F], seq uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if seq <= c.delivered {
		return
	}
	c.delivered = seq
	for _, fn := range subs {
		fn(s)
	}
}

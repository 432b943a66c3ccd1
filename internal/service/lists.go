package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/admin"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/marketing"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/product"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/sample"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/listview"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
)

const (
	ResourceDoctors             = "doctors"
	ResourcePharmacies          = "pharmacies"
	ResourceProducts            = "products"
	ResourceVisits              = "visits"
	ResourceOrders              = "orders"
	ResourceSampleRequests      = "sample-requests"
	ResourceMarketingActivities = "marketing-activities"
	ResourceAdmins              = "admins"
)

var ErrReviewUnsupported = errors.New("resource rows cannot be approved or rejected")

// ListMetrics is satisfied by the prometheus collector.
type ListMetrics interface {
	listview.Observer
	StatusChanged(resource, status string, err error)
}

type Auditor interface {
	LogAsync(ctx context.Context, entry AuditEntry)
}

// ListPage is one management list: how to fetch, summarize and export it,
// and how to approve or reject its rows when that applies.
type ListPage[T any, F listview.Filters] struct {
	Resource listview.Resource[T, F]
	Review   *Review[T]
}

// WithLimit returns p with a page size of n, capped at max. Non-positive n
// keeps the default.
func (p ListPage[T, F]) WithLimit(n, max int) ListPage[T, F] {
	if n <= 0 {
		return p
	}
	if max > 0 && n > max {
		n = max
	}
	p.Resource.Limit = n
	return p
}

type Review[T any] struct {
	ID     func(row T) string
	Status func(row T) domain.ReviewStatus
	Update func(ctx context.Context, id string, change upstream.StatusChange) error
}

// Lists builds list pages over the upstream client and runs the actions
// that mutate them.
type Lists struct {
	api     *upstream.Client
	cfg     config.ListViewConfig
	metrics ListMetrics
	audit   Auditor
	log     *zap.Logger

	mu        sync.RWMutex
	listeners []func(ctx context.Context, resource string)
}

func NewLists(api *upstream.Client, cfg config.ListViewConfig, metrics ListMetrics, audit Auditor, log *zap.Logger) *Lists {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = listview.DefaultLimit
	}
	return &Lists{api: api, cfg: cfg, metrics: metrics, audit: audit, log: log}
}

func (l *Lists) Config() config.ListViewConfig { return l.cfg }

// OnChange registers fn to run after every successful mutation of a
// resource. ctx is the one the mutation ran with.
func (l *Lists) OnChange(fn func(ctx context.Context, resource string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Notify runs the change listeners for resource.
func (l *Lists) Notify(ctx context.Context, resource string) {
	l.mu.RLock()
	fns := append([]func(context.Context, string){}, l.listeners...)
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, resource)
	}
}

func (l *Lists) Doctors() ListPage[doctor.Doctor, DoctorFilters] {
	return ListPage[doctor.Doctor, DoctorFilters]{
		Resource: listview.Resource[doctor.Doctor, DoctorFilters]{
			Name:         ResourceDoctors,
			Fetch:        l.api.ListDoctors,
			Summarize:    func(rows []doctor.Doctor) any { return SummarizeDoctors(rows, l.cfg.ChartTopN) },
			Export:       blob(l.api.ExportDoctors),
			ExportPrefix: "doctors_export",
			Limit:        l.cfg.DefaultLimit,
		},
	}
}

func (l *Lists) Pharmacies() ListPage[pharmacy.Pharmacy, PharmacyFilters] {
	return ListPage[pharmacy.Pharmacy, PharmacyFilters]{
		Resource: listview.Resource[pharmacy.Pharmacy, PharmacyFilters]{
			Name:         ResourcePharmacies,
			Fetch:        l.api.ListPharmacies,
			Summarize:    func(rows []pharmacy.Pharmacy) any { return SummarizePharmacies(rows, l.cfg.ChartTopN) },
			Export:       blob(l.api.ExportPharmacies),
			ExportPrefix: "pharmacies_export",
			Limit:        l.cfg.DefaultLimit,
		},
	}
}

func (l *Lists) Products() ListPage[product.Product, ProductFilters] {
	return ListPage[product.Product, ProductFilters]{
		Resource: listview.Resource[product.Product, ProductFilters]{
			Name:         ResourceProducts,
			Fetch:        l.api.ListProducts,
			Summarize:    func(rows []product.Product) any { return SummarizeProducts(rows, l.cfg.ChartTopN) },
			Export:       blob(l.api.ExportProducts),
			ExportPrefix: "products_export",
			Limit:        l.cfg.DefaultLimit,
		},
	}
}

func (l *Lists) Visits() ListPage[visit.Visit, VisitFilters] {
	return ListPage[visit.Visit, VisitFilters]{
		Resource: listview.Resource[visit.Visit, VisitFilters]{
			Name:         ResourceVisits,
			Fetch:        l.api.ListVisits,
			Summarize:    func(rows []visit.Visit) any { return SummarizeVisits(rows, l.cfg.ChartTopN) },
			Export:       blob(l.api.ExportVisits),
			ExportPrefix: "visits_export",
			Limit:        l.cfg.DefaultLimit,
		},
	}
}

func (l *Lists) Orders() ListPage[order.Order, OrderFilters] {
	return ListPage[order.Order, OrderFilters]{
		Resource: listview.Resource[order.Order, OrderFilters]{
			Name:         ResourceOrders,
			Fetch:        l.api.ListOrders,
			Summarize:    func(rows []order.Order) any { return SummarizeOrders(rows, l.cfg.ChartTopN) },
			Export:       blob(l.api.ExportOrders),
			ExportPrefix: "orders_export",
			Limit:        l.cfg.DefaultLimit,
		},
		Review: &Review[order.Order]{
			ID:     func(o order.Order) string { return o.ID },
			Status: func(o order.Order) domain.ReviewStatus { return o.Status },
			Update: func(ctx context.Context, id string, ch upstream.StatusChange) error {
				_, err := l.api.UpdateOrderStatus(ctx, id, ch)
				return err
			},
		},
	}
}

func (l *Lists) SampleRequests() ListPage[sample.Request, SampleRequestFilters] {
	return ListPage[sample.Request, SampleRequestFilters]{
		Resource: listview.Resource[sample.Request, SampleRequestFilters]{
			Name:         ResourceSampleRequests,
			Fetch:        l.api.ListSampleRequests,
			Summarize:    func(rows []sample.Request) any { return SummarizeSampleRequests(rows, l.cfg.ChartTopN) },
			Export:       blob(l.api.ExportSampleRequests),
			ExportPrefix: "sample-requests",
			Limit:        l.cfg.DefaultLimit,
		},
		Review: &Review[sample.Request]{
			ID:     func(r sample.Request) string { return r.ID },
			Status: func(r sample.Request) domain.ReviewStatus { return r.Status },
			Update: func(ctx context.Context, id string, ch upstream.StatusChange) error {
				_, err := l.api.UpdateSampleRequestStatus(ctx, id, ch)
				return err
			},
		},
	}
}

func (l *Lists) MarketingActivities() ListPage[marketing.Activity, MarketingFilters] {
	return ListPage[marketing.Activity, MarketingFilters]{
		Resource: listview.Resource[marketing.Activity, MarketingFilters]{
			Name:         ResourceMarketingActivities,
			Fetch:        l.api.ListMarketingActivities,
			Summarize:    func(rows []marketing.Activity) any { return SummarizeMarketing(rows, l.cfg.ChartTopN) },
			Export:       blob(l.api.ExportMarketingActivities),
			ExportPrefix: "marketing-activities",
			Limit:        l.cfg.DefaultLimit,
		},
		Review: &Review[marketing.Activity]{
			ID:     func(a marketing.Activity) string { return a.ID },
			Status: func(a marketing.Activity) domain.ReviewStatus { return a.Status },
			Update: func(ctx context.Context, id string, ch upstream.StatusChange) error {
				_, err := l.api.UpdateMarketingActivityStatus(ctx, id, ch)
				return err
			},
		},
	}
}

// Admins has no export endpoint upstream.
func (l *Lists) Admins() ListPage[admin.Admin, AdminFilters] {
	return ListPage[admin.Admin, AdminFilters]{
		Resource: listview.Resource[admin.Admin, AdminFilters]{
			Name:      ResourceAdmins,
			Fetch:     l.api.ListAdmins,
			Summarize: func(rows []admin.Admin) any { return SummarizeAdmins(rows) },
			Limit:     l.cfg.DefaultLimit,
		},
	}
}

func blob(fn func(context.Context, url.Values) (*upstream.Blob, error)) listview.ExportFunc {
	return func(ctx context.Context, q url.Values) ([]byte, string, error) {
		b, err := fn(ctx, q)
		if err != nil {
			return nil, "", err
		}
		return b.Data, b.ContentType, nil
	}
}

// Open creates a controller for page with the configured debounce, metrics
// and error messages. opts are applied last.
func Open[T any, F listview.Filters](l *Lists, page ListPage[T, F], initial F, opts ...listview.Option) *listview.Controller[T, F] {
	base := []listview.Option{
		listview.WithDebounce(l.cfg.Debounce),
		listview.WithLogger(l.log.With(zap.String("resource", page.Resource.Name))),
		listview.WithErrorMessage(upstream.MessageOf),
	}
	if l.metrics != nil {
		base = append(base, listview.WithObserver(l.metrics))
	}
	return listview.NewController(page.Resource, initial, append(base, opts...)...)
}

// ChangeStatus approves or rejects row id, then refetches the current page.
// A row visible on the page must still be pending; the upstream repeats the
// check through expectedStatus and answers 409 when another operator won.
func ChangeStatus[T any, F listview.Filters](
	ctx context.Context,
	l *Lists,
	ctl *listview.Controller[T, F],
	page ListPage[T, F],
	caller Caller,
	id string,
	next domain.ReviewStatus,
) (listview.Snapshot[T, F], error) {
	if page.Review == nil {
		return ctl.Snapshot(), ErrReviewUnsupported
	}
	if id == "" {
		return ctl.Snapshot(), &ValidationError{Fields: []string{"id: required"}}
	}
	if !next.IsValid() || next == domain.ReviewPending {
		return ctl.Snapshot(), ErrInvalidStatus
	}

	current := ctl.Snapshot()
	for _, row := range current.Rows {
		if page.Review.ID(row) != id {
			continue
		}
		if err := domain.ReviewTransition(page.Review.Status(row), next); err != nil {
			return current, err
		}
		break
	}

	resource := page.Resource.Name
	var mutated bool
	snap, err := ctl.Mutate(ctx, func(ctx context.Context) error {
		err := page.Review.Update(ctx, id, upstream.StatusChange{
			Status:         string(next),
			ExpectedStatus: string(domain.ReviewPending),
		})
		if l.metrics != nil {
			l.metrics.StatusChanged(resource, string(next), err)
		}
		if err != nil {
			return err
		}
		mutated = true
		return nil
	})
	if !mutated {
		l.log.Warn("status change failed",
			zap.String("resource", resource),
			zap.String("id", id),
			zap.String("status", string(next)),
			zap.Error(err),
		)
		return snap, err
	}

	l.record(ctx, caller, domain.ActionStatus, resource, id, `{"status":"`+string(next)+`"}`)
	l.Notify(ctx, resource)

	// a newer fetch already owns the state
	if errors.Is(err, listview.ErrStale) {
		return ctl.Snapshot(), nil
	}
	return snap, err
}

// Export downloads the spreadsheet for the controller's current filters.
func Export[T any, F listview.Filters](ctx context.Context, l *Lists, ctl *listview.Controller[T, F], caller Caller, now time.Time) (*listview.Download, error) {
	dl, err := ctl.Export(ctx, now)
	if err != nil {
		return nil, err
	}
	l.record(ctx, caller, domain.ActionExport, ctl.Snapshot().Resource, "", "")
	return dl, nil
}

func (l *Lists) record(ctx context.Context, caller Caller, action domain.AuditAction, resource, id, changes string) {
	if l.audit == nil {
		return
	}
	l.audit.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       action,
		ResourceType: resource,
		ResourceID:   id,
		Changes:      changes,
	})
}

package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/listview"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
)

type DashboardFilters struct {
	StartDate listview.Date `form:"startDate" json:"startDate"`
	EndDate   listview.Date `form:"endDate" json:"endDate"`
	Area      string        `form:"area" json:"area"`
}

type DashboardSection struct {
	Total      int    `json:"total"`
	Statistics any    `json:"statistics"`
	Recent     any    `json:"recent"`
	Error      string `json:"error,omitempty"`
}

type Dashboard struct {
	Filters DashboardFilters `json:"filters"`
	Orders  DashboardSection `json:"orders"`
	Visits  DashboardSection `json:"visits"`
}

// DashboardService builds the landing page KPI cards and charts from the
// first page of orders and visits.
type DashboardService struct {
	lists *Lists
}

func NewDashboardService(lists *Lists) *DashboardService {
	return &DashboardService{lists: lists}
}

// Build fetches both sections concurrently. A failing section carries its
// message; Build fails only when both do.
func (s *DashboardService) Build(ctx context.Context, f DashboardFilters) (*Dashboard, error) {
	orders := Open(s.lists, s.lists.Orders(), OrderFilters{})
	defer orders.Close()
	visits := Open(s.lists, s.lists.Visits(), VisitFilters{})
	defer visits.Close()

	d := &Dashboard{Filters: f}
	var orderErr, visitErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := orders.Load(gctx, OrderFilters{StartDate: f.StartDate, EndDate: f.EndDate, Area: f.Area}, 1)
		orderErr = err
		d.Orders = section(snap.Pagination.TotalCount, snap.Statistics, snap.Rows, err)
		return nil
	})
	g.Go(func() error {
		snap, err := visits.Load(gctx, VisitFilters{StartDate: f.StartDate, EndDate: f.EndDate}, 1)
		visitErr = err
		d.Visits = section(snap.Pagination.TotalCount, snap.Statistics, snap.Rows, err)
		return nil
	})
	_ = g.Wait()

	if orderErr != nil && visitErr != nil {
		return nil, orderErr
	}
	return d, nil
}

func section(total int, statistics, rows any, err error) DashboardSection {
	if err != nil {
		return DashboardSection{Error: upstream.MessageOf(err)}
	}
	return DashboardSection{Total: total, Statistics: statistics, Recent: rows}
}

package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/listview"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/live"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/service"
)

// pageRequest binds the filters of F plus page and limit from the query
// string and opens a controller for it. The caller must Close it.
func pageRequest[T any, F listview.Filters](s *Server, c *gin.Context, page func() service.ListPage[T, F]) (*listview.Controller[T, F], F, int, bool) {
	var f F
	if !bindQuery(c, &f) {
		return nil, f, 0, false
	}
	p := page().WithLimit(parseQueryInt(c, "limit", 0), s.lists.Config().MaxLimit)
	ctl := service.Open(s.lists, p, f, listview.WithBaseContext(c.Request.Context()))
	return ctl, f, parseQueryInt(c, "page", 1), true
}

// listHandler serves one page of a list view: rows, pagination and the
// statistics behind its cards and charts.
func listHandler[T any, F listview.Filters](s *Server, page func() service.ListPage[T, F]) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctl, f, n, ok := pageRequest(s, c, page)
		if !ok {
			return
		}
		defer ctl.Close()

		snap, err := ctl.Load(c.Request.Context(), f, n)
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		respondOK(c, snap)
	}
}

// exportHandler streams the spreadsheet for the current filters.
func exportHandler[T any, F listview.Filters](s *Server, page func() service.ListPage[T, F]) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctl, _, _, ok := pageRequest(s, c, page)
		if !ok {
			return
		}
		defer ctl.Close()

		dl, err := service.Export(c.Request.Context(), s.lists, ctl, caller(c), s.now())
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dl.Filename))
		c.Data(http.StatusOK, dl.ContentType, dl.Data)
	}
}

// statusHandler approves or rejects :id and answers with the refetched
// page. The query string carries the filters and page the operator is on.
func statusHandler[T any, F listview.Filters](s *Server, page func() service.ListPage[T, F], next domain.ReviewStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctl, f, n, ok := pageRequest(s, c, page)
		if !ok {
			return
		}
		defer ctl.Close()

		ctx := c.Request.Context()
		if _, err := ctl.Load(ctx, f, n); err != nil {
			s.respondServiceError(c, err)
			return
		}
		snap, err := service.ChangeStatus(ctx, s.lists, ctl, page(), caller(c), c.Param("id"), next)
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		respondOK(c, snap)
	}
}

// liveHandler upgrades to a websocket live view. Roles in reviewers may also
// approve and reject from it.
func liveHandler[T any, F listview.Filters](s *Server, page func() service.ListPage[T, F], reviewers ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var initial F
		if !bindQuery(c, &initial) {
			return
		}
		sess := currentSession(c)

		if !s.trackLive() {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "server is shutting down", Code: "UNAVAILABLE"})
			return
		}
		defer s.liveWG.Done()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()
		stop := context.AfterFunc(s.liveCtx, cancel)
		defer stop()

		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.log.Warn("websocket upgrade failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			return
		}

		p := page()
		s.log.Debug("live view opened", zap.String("resource", p.Resource.Name), zap.String("user_id", sess.User.ID))
		live.View[T, F]{
			Hub:       s.hub,
			Lists:     s.lists,
			Page:      p,
			Initial:   initial,
			Caller:    caller(c),
			CanReview: len(reviewers) > 0 && sess.User.Role.In(reviewers...),
			Unauthorized: func() {
				s.auth.Revoke(context.WithoutCancel(ctx), sess.ID)
			},
			Log: s.log,
		}.Serve(ctx, conn)
	}
}

func (s *Server) dashboardPage(c *gin.Context) {
	var f service.DashboardFilters
	if !bindQuery(c, &f) {
		return
	}
	d, err := s.dashboard.Build(c.Request.Context(), f)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

// myData loads the rep's doctors and products into the session on first
// use and returns them for the form pickers.
func (s *Server) myData(c *gin.Context) {
	ref, err := s.reference.Load(c.Request.Context(), currentSession(c))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondOK(c, ref)
}

func (s *Server) reloadMyData(c *gin.Context) {
	ref, err := s.reference.Reload(c.Request.Context(), currentSession(c))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondOK(c, ref)
}

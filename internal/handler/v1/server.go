package v1

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/live"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/service"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/metrics"
)

// Deps is everything the router needs. Metrics may be nil.
type Deps struct {
	Auth      *service.AuthService
	Lists     *service.Lists
	Forms     *service.Forms
	Reference *service.ReferenceService
	Dashboard *service.DashboardService
	Hub       *live.Hub
	Metrics   *metrics.Collector
	Cookie    config.JWTConfig
	RateLimit config.RateLimitConfig
	Log       *zap.Logger
}

type Server struct {
	engine *gin.Engine

	auth      *service.AuthService
	lists     *service.Lists
	forms     *service.Forms
	reference *service.ReferenceService
	dashboard *service.DashboardService
	hub       *live.Hub
	metrics   *metrics.Collector
	cookie    config.JWTConfig
	rateLimit config.RateLimitConfig
	upgrader  websocket.Upgrader
	now       func() time.Time
	log       *zap.Logger

	// Live views are hijacked connections; http.Server.Shutdown neither
	// cancels nor waits for them.
	liveCtx    context.Context
	stopLive   context.CancelFunc
	liveMu     sync.Mutex
	liveClosed bool
	liveWG     sync.WaitGroup
}

func NewServer(d Deps) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger(d.Log))
	if d.Metrics != nil {
		r.Use(Metrics(d.Metrics))
	}

	s := &Server{
		engine:    r,
		auth:      d.Auth,
		lists:     d.Lists,
		forms:     d.Forms,
		reference: d.Reference,
		dashboard: d.Dashboard,
		hub:       d.Hub,
		metrics:   d.Metrics,
		cookie:    d.Cookie,
		rateLimit: d.RateLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		now: time.Now,
		log: d.Log,
	}
	s.liveCtx, s.stopLive = context.WithCancel(context.Background())
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

// StopLive refuses new live views and tells open ones to close. Plain
// requests are not affected.
func (s *Server) StopLive() {
	s.liveMu.Lock()
	s.liveClosed = true
	s.liveMu.Unlock()
	s.stopLive()
}

// WaitLive blocks until every live view has returned or ctx ends.
func (s *Server) WaitLive(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.liveWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) trackLive() bool {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if s.liveClosed {
		return false
	}
	s.liveWG.Add(1)
	return true
}

func (s *Server) registerRoutes() {
	guard := s.RequireSession()
	for _, rt := range s.routes() {
		var chain []gin.HandlerFunc
		if !rt.public {
			chain = append(chain, guard, s.RequireRoles(rt.roles...))
		}
		chain = append(chain, rt.before...)
		chain = append(chain, rt.handler)
		s.engine.Handle(rt.method, rt.path, chain...)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "page not found", Code: "NOT_FOUND"})
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": s.now().UTC()})
}

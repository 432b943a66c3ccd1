package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/service"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
)

func createHandler[C, R any](s *Server, create func(context.Context, service.Caller, C) (R, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd C
		if !bindJSON(c, &cmd) {
			return
		}
		out, err := create(c.Request.Context(), caller(c), cmd)
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		respondCreated(c, out)
	}
}

func updateHandler[C, R any](s *Server, update func(context.Context, service.Caller, string, C) (R, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd C
		if !bindJSON(c, &cmd) {
			return
		}
		out, err := update(c.Request.Context(), caller(c), c.Param("id"), cmd)
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		respondOK(c, out)
	}
}

func deleteHandler(s *Server, remove func(context.Context, service.Caller, string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := remove(c.Request.Context(), caller(c), c.Param("id")); err != nil {
			s.respondServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// referenceForm runs a form that needs the rep's doctors and products. The
// cache is not loaded here; the client loads it through /my-data first.
func referenceForm[C, R any](s *Server, submit func(context.Context, service.Caller, *session.ReferenceCache, C) (R, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd C
		if !bindJSON(c, &cmd) {
			return
		}
		ctx := c.Request.Context()
		cache, err := s.reference.Cache(ctx, currentSession(c))
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		out, err := submit(ctx, caller(c), cache, cmd)
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		respondCreated(c, out)
	}
}

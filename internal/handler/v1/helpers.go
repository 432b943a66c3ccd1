package v1

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/listview"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/service"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code,omitempty"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError turns err into the status and body the client shows as
// a toast. An upstream 401 also ends the local session.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION",
			Fields: validErr.Fields,
		})
		return
	}

	if kind := upstream.KindOf(err); kind != "" {
		s.respondUpstreamError(c, kind, err)
		return
	}

	switch {
	case errors.Is(err, service.ErrReferenceNotLoaded):
		c.JSON(http.StatusPreconditionFailed, ErrorResponse{
			Error: "reference data is still loading",
			Code:  "REFERENCE_NOT_LOADED",
		})

	case errors.Is(err, service.ErrNotPending):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "NOT_PENDING"})

	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrReviewUnsupported),
		errors.Is(err, listview.ErrExportUnsupported):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrUnknownRole):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "role is not allowed to use the dashboard", Code: "UNKNOWN_ROLE"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "session expired", Code: "SESSION_EXPIRED"})

	default:
		s.log.Error("unhandled service error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func (s *Server) respondUpstreamError(c *gin.Context, kind upstream.Kind, err error) {
	msg := upstream.MessageOf(err)
	switch kind {
	case upstream.KindValidation:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "VALIDATION"})

	case upstream.KindUnauthorized:
		if sess, ok := session.FromContext(c.Request.Context()); ok {
			s.auth.Revoke(c.Request.Context(), sess.ID)
			s.clearCookie(c)
		}
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msg, Code: "SESSION_EXPIRED"})

	case upstream.KindForbidden:
		c.JSON(http.StatusForbidden, ErrorResponse{Error: msg, Code: "FORBIDDEN"})

	case upstream.KindNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msg, Code: "NOT_FOUND"})

	case upstream.KindConflict:
		c.JSON(http.StatusConflict, ErrorResponse{Error: msg, Code: "CONFLICT"})

	case upstream.KindTimeout:
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: msg, Code: "UPSTREAM_TIMEOUT"})

	case upstream.KindUnavailable:
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: msg, Code: "UPSTREAM_UNAVAILABLE"})

	case upstream.KindCanceled:
		c.AbortWithStatus(499)

	default:
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: msg, Code: "UPSTREAM"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid filters: " + err.Error()})
		return false
	}
	return true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// caller builds the audit identity of the request.
func caller(c *gin.Context) service.Caller {
	cl := service.Caller{
		IPAddress: c.ClientIP(),
		RequestID: c.GetString(requestIDKey),
	}
	if sess, ok := session.FromContext(c.Request.Context()); ok {
		cl.UserID = sess.User.ID
		cl.Role = sess.User.Role
	}
	return cl
}

func currentSession(c *gin.Context) *session.Session {
	sess, _ := session.FromContext(c.Request.Context())
	return sess
}

// safeRedirect accepts only local absolute paths; anything else sends the
// user home.
func safeRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	if u.Path == "/login" {
		return "/"
	}
	return raw
}

package v1

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
)

// RequireSession lets the request through only with a live session, taken
// from the session cookie or a bearer header. The session rides on the
// request context from here on.
func (s *Server) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.sessionToken(c)
		if token == "" {
			s.redirectToLogin(c)
			return
		}
		sess, err := s.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.log.Debug("session rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			s.clearCookie(c)
			s.redirectToLogin(c)
			return
		}
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

// RequireRoles admits the session's role only if it is one of roles. An
// empty list admits every signed-in user.
func (s *Server) RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil {
			s.redirectToLogin(c)
			return
		}
		if !sess.User.Role.In(roles...) {
			s.log.Warn("role not allowed",
				zap.String("path", c.Request.URL.Path),
				zap.String("user_id", sess.User.ID),
				zap.String("role", string(sess.User.Role)),
			)
			s.redirectToLogin(c)
			return
		}
		c.Next()
	}
}

func (s *Server) sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(s.cookie.CookieName); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (s *Server) redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, "/login?redirect="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

func (s *Server) setCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookie.CookieName, token, maxAge, "/", "", s.cookie.SecureCookie, true)
}

func (s *Server) clearCookie(c *gin.Context) {
	s.setCookie(c, "", -1)
}

package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Redirect string `json:"redirect"`
}

type loginResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Redirect  string      `json:"redirect"`
}

// loginPage tells the client where it goes after signing in.
func (s *Server) loginPage(c *gin.Context) {
	respondOK(c, gin.H{"redirect": safeRedirect(c.Query("redirect"))})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Redirect == "" {
		req.Redirect = c.Query("redirect")
	}

	res, err := s.auth.Login(c.Request.Context(), req.Username, req.Password, caller(c))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	s.setCookie(c, res.Token, int(res.ExpiresAt.Sub(s.now()).Seconds()))
	respondOK(c, loginResponse{
		User:      res.Session.User,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Redirect:  safeRedirect(req.Redirect),
	})
}

func (s *Server) logout(c *gin.Context) {
	sess := currentSession(c)
	if err := s.auth.Logout(c.Request.Context(), sess, caller(c)); err != nil {
		s.log.Error("logout failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
	}
	s.clearCookie(c)
	respondOK(c, gin.H{"redirect": "/login"})
}

func (s *Server) me(c *gin.Context) {
	sess := currentSession(c)
	respondOK(c, gin.H{"user": sess.User, "expiresAt": sess.ExpiresAt})
}

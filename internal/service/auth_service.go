package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/auth"
)

type Login struct {
	Session   *session.Session
	Token     string
	ExpiresAt time.Time
}

// AuthService signs users in against the upstream and keeps the result as a
// server-side session. Browsers only ever see the session token.
type AuthService struct {
	api        *upstream.Client
	store      *session.Store
	jwtManager *auth.JWTManager
	audit      Auditor
	log        *zap.Logger
}

func NewAuthService(api *upstream.Client, store *session.Store, jwtManager *auth.JWTManager, audit Auditor, log *zap.Logger) *AuthService {
	return &AuthService{api: api, store: store, jwtManager: jwtManager, audit: audit, log: log}
}

func (s *AuthService) Login(ctx context.Context, username, password string, caller Caller) (*Login, error) {
	username = strings.TrimSpace(username)
	var errs []string
	if username == "" {
		errs = append(errs, "username is required")
	}
	if password == "" {
		errs = append(errs, "password is required")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	res, err := s.api.Login(ctx, upstream.Credentials{Username: username, Password: password})
	if err != nil {
		if upstream.IsKind(err, upstream.KindUnauthorized) {
			s.log.Warn("failed login attempt",
				zap.String("username", username),
				zap.String("ip", caller.IPAddress),
			)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if res.Token == "" {
		return nil, errors.New("upstream login returned no token")
	}

	role, err := domain.ParseRole(res.User.Role)
	if err != nil {
		s.log.Warn("login refused: unknown role",
			zap.String("username", username),
			zap.String("role", res.User.Role),
		)
		return nil, ErrUnknownRole
	}

	user := domain.User{
		ID:           res.User.ID,
		Username:     res.User.Username,
		Role:         role,
		TeamArea:     res.User.TeamArea,
		TeamProducts: res.User.TeamProducts,
		Supervisor:   res.User.Supervisor,
	}
	sess, err := s.store.Create(ctx, user, res.Token)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.jwtManager.Issue(&domain.Claims{
		SessionID: sess.ID,
		UserID:    user.ID,
		Role:      role,
	})
	if err != nil {
		_ = s.store.Destroy(ctx, sess.ID)
		s.log.Error("failed to issue session token", zap.Error(err))
		return nil, fmt.Errorf("issuing session token: %w", err)
	}

	caller.UserID, caller.Role = user.ID, role
	s.record(ctx, caller, domain.ActionLogin, sess.ID)
	s.log.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("role", string(role)),
		zap.String("ip", caller.IPAddress),
	)

	return &Login{Session: sess, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a session token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.User.ID != claims.UserID {
		return nil, auth.ErrTokenInvalid
	}
	return sess, nil
}

func (s *AuthService) Logout(ctx context.Context, sess *session.Session, caller Caller) error {
	if err := s.store.Destroy(ctx, sess.ID); err != nil {
		return err
	}
	s.record(ctx, caller, domain.ActionLogout, sess.ID)
	return nil
}

// Revoke drops a session the upstream no longer accepts.
func (s *AuthService) Revoke(ctx context.Context, id uuid.UUID) {
	if err := s.store.Destroy(ctx, id); err != nil {
		s.log.Error("failed to revoke session", zap.String("session_id", id.String()), zap.Error(err))
		return
	}
	s.log.Info("session revoked after upstream 401", zap.String("session_id", id.String()))
}

func (s *AuthService) record(ctx context.Context, caller Caller, action domain.AuditAction, id uuid.UUID) {
	if s.audit == nil {
		return
	}
	s.audit.LogAsync(ctx, AuditEntry{
		Caller:       caller,
		Action:       action,
		ResourceType: "session",
		ResourceID:   id.String(),
	})
}

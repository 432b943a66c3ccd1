package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/auth"
)

func setupAuth(t *testing.T, f *fakeUpstream) (*AuthService, *session.Store, *recordingAuditor) {
	t.Helper()
	store := session.NewStore(session.NewMemoryRepository(), time.Hour, zap.NewNop())
	jwtm := auth.NewJWTManager(config.JWTConfig{
		Secret:     "test-secret-test-secret-test-secret",
		SessionTTL: time.Hour,
		Issuer:     "repdash-test",
	})
	audit := &recordingAuditor{}
	return NewAuthService(f.client(), store, jwtm, audit, zap.NewNop()), store, audit
}

func loginHandler(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, ok(map[string]any{
			"token": "upstream-token",
			"user": map[string]any{
				"id": "u1", "username": "mona", "role": role, "teamArea": "الجيزة",
			},
		}))
	}
}

func TestLoginCreatesSession(t *testing.T) {
	f := newFakeUpstream(t)
	f.handle("POST /auth/login", loginHandler("medical rep"))
	svc, store, audit := setupAuth(t, f)
	ctx := context.Background()

	res, err := svc.Login(ctx, " mona ", "pw", Caller{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Session.User.Role != domain.RoleMedicalRep {
		t.Fatalf("role = %q, want normalized MEDICAL_REP", res.Session.User.Role)
	}
	if res.Session.Token != "upstream-token" {
		t.Fatal("session should hold the upstream token")
	}
	if res.Token == "" || res.Token == "upstream-token" {
		t.Fatal("browser token must be the session token, not the upstream one")
	}

	sess, err := svc.Authenticate(ctx, res.Token)
	if err != nil || sess.ID != res.Session.ID {
		t.Fatalf("Authenticate = %v, %v", sess, err)
	}

	entries := audit.all()
	if len(entries) != 1 || entries[0].Action != domain.ActionLogin || entries[0].Caller.UserID != "u1" {
		t.Fatalf("audit = %+v", entries)
	}

	if err := svc.Logout(ctx, sess, Caller{UserID: "u1"}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("session survived logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.Token); err == nil {
		t.Fatal("token of a destroyed session must not authenticate")
	}
}

func TestLoginRefusesUnknownRole(t *testing.T) {
	f := newFakeUpstream(t)
	f.handle("POST /auth/login", loginHandler("pharmacist"))
	svc, _, _ := setupAuth(t, f)

	if _, err := svc.Login(context.Background(), "mona", "pw", Caller{}); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("err = %v, want ErrUnknownRole", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFakeUpstream(t)
	var calls atomic.Int32
	f.handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "" {
			t.Error("login must be sent without a bearer token")
		}
		writeEnvelope(w, 401, map[string]any{"success": false, "message": "بيانات الدخول غير صحيحة"})
	})
	svc, _, _ := setupAuth(t, f)

	if _, err := svc.Login(context.Background(), "mona", "bad", Caller{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}

	var verr *ValidationError
	if _, err := svc.Login(context.Background(), "", "", Caller{}); !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("blank login err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("upstream calls = %d, blank form should not reach it", calls.Load())
	}
}

func TestRevokeDropsSession(t *testing.T) {
	f := newFakeUpstream(t)
	f.handle("POST /auth/login", loginHandler("ADMIN"))
	svc, store, _ := setupAuth(t, f)
	ctx := context.Background()

	res, err := svc.Login(ctx, "mona", "pw", Caller{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	svc.Revoke(ctx, res.Session.ID)
	if _, err := store.Get(ctx, res.Session.ID); err == nil {
		t.Fatal("revoked session still resolves")
	}
}

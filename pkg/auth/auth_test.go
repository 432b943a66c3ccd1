package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		SessionTTL: time.Hour,
		Issuer:     "repdash-test",
	}
}

func TestIssueAndValidate(t *testing.T) {
	m := NewJWTManager(testConfig())
	sid := uuid.New()

	token, expiresAt, err := m.Issue(&domain.Claims{SessionID: sid, UserID: "u-1", Role: domain.RoleManager})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiresAt in the past: %v", expiresAt)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.SessionID != sid || claims.UserID != "u-1" || claims.Role != domain.RoleManager {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	m := NewJWTManager(testConfig())
	token, _, err := m.Issue(&domain.Claims{SessionID: uuid.New(), UserID: "u", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	later := NewJWTManager(testConfig())
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := later.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired err = %v", err)
	}

	other := testConfig()
	other.Secret = "another-secret-another-secret-xx"
	if _, err := NewJWTManager(other).Validate(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign err = %v", err)
	}

	if _, err := m.Validate("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("garbage err = %v", err)
	}
}

func TestSealerRoundTripAndTamper(t *testing.T) {
	s := NewSealer("secret-a")

	sealed, err := s.Seal("upstream-token")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == "upstream-token" {
		t.Fatal("token stored in clear")
	}
	plain, err := s.Open(sealed)
	if err != nil || plain != "upstream-token" {
		t.Fatalf("Open = %q, %v", plain, err)
	}

	if _, err := NewSealer("secret-b").Open(sealed); !errors.Is(err, ErrUnseal) {
		t.Fatalf("other key err = %v", err)
	}
	if _, err := s.Open("AAAA"); !errors.Is(err, ErrUnseal) {
		t.Fatalf("short input err = %v", err)
	}
}

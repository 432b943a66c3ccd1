package domain

import (
	"errors"
	"testing"
)

func TestParseRoleNormalizesSpellings(t *testing.T) {
	cases := map[string]Role{
		"ADMIN":         RoleAdmin,
		"admin":         RoleAdmin,
		" Manager ":     RoleManager,
		"SYSTEM_ADMIN":  RoleSystemAdmin,
		"system-admin":  RoleSystemAdmin,
		"MEDICAL REP":   RoleMedicalRep,
		"medical rep":   RoleMedicalRep,
		"medical  _rep": RoleMedicalRep,
		"sales_rep":     RoleSalesRep,
		"supervisor":    RoleSupervisor,
	}

	for raw, want := range cases {
		got, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("ParseRole(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "root", "doctor", "ADMINS"} {
		if _, err := ParseRole(raw); !errors.Is(err, ErrUnknownRole) {
			t.Fatalf("ParseRole(%q) err = %v, want ErrUnknownRole", raw, err)
		}
	}
}

func TestRoleIn(t *testing.T) {
	if !RoleManager.In() {
		t.Fatal("empty role list should allow every role")
	}
	if !RoleManager.In(RoleAdmin, RoleManager) {
		t.Fatal("manager should be allowed")
	}
	if RoleMedicalRep.In(RoleAdmin, RoleSystemAdmin) {
		t.Fatal("medical rep should not be allowed")
	}
}

func TestReviewTransition(t *testing.T) {
	if err := ReviewTransition(ReviewPending, ReviewApproved); err != nil {
		t.Fatalf("pending -> approved: %v", err)
	}
	if err := ReviewTransition(ReviewPending, ReviewRejected); err != nil {
		t.Fatalf("pending -> rejected: %v", err)
	}
	if err := ReviewTransition(ReviewApproved, ReviewRejected); !errors.Is(err, ErrNotPending) {
		t.Fatalf("approved -> rejected err = %v, want ErrNotPending", err)
	}
	if err := ReviewTransition(ReviewPending, ReviewPending); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("pending -> pending err = %v, want ErrInvalidStatus", err)
	}
	if err := ReviewTransition(ReviewPending, "shipped"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("pending -> shipped err = %v, want ErrInvalidStatus", err)
	}
}

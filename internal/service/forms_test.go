package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/admin"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/marketing"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/product"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/sample"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func setupForms(t *testing.T, f *fakeUpstream) (*Forms, *recordingAuditor, *[]string) {
	t.Helper()
	audit := &recordingAuditor{}
	var notified []string
	forms := NewForms(f.client(), audit, func(_ context.Context, r string) { notified = append(notified, r) }, zap.NewNop())
	forms.now = func() time.Time { return fixedNow }
	return forms, audit, &notified
}

func loadedCache(t *testing.T) *session.ReferenceCache {
	t.Helper()
	c := session.NewReferenceCache()
	_, err := c.Load(context.Background(), func(context.Context) (*session.Reference, error) {
		return &session.Reference{
			Doctors:  []doctor.Doctor{{ID: "d1", Name: "د. سامي"}},
			Products: []product.Product{{ID: "p1", Name: "Panadol"}, {ID: "p2", Name: "Brufen"}},
		}, nil
	})
	if err != nil {
		t.Fatalf("loading cache: %v", err)
	}
	return c
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	return verr.Fields
}

func hasField(fields []string, want string) bool {
	for _, f := range fields {
		if strings.Contains(f, want) {
			return true
		}
	}
	return false
}

func TestCreateVisitRequiresLoadedReference(t *testing.T) {
	f := newFakeUpstream(t)
	forms, _, _ := setupForms(t, f)

	cmd := visit.CreateVisitCommand{
		DoctorID:  "d1",
		VisitDate: fixedNow.Add(-time.Hour),
		Products:  []visit.ProductCommand{{ProductID: "p1", Samples: 2}},
	}
	if _, err := forms.CreateVisit(context.Background(), Caller{}, nil, cmd); !errors.Is(err, ErrReferenceNotLoaded) {
		t.Fatalf("nil cache err = %v", err)
	}
	if _, err := forms.CreateVisit(context.Background(), Caller{}, session.NewReferenceCache(), cmd); !errors.Is(err, ErrReferenceNotLoaded) {
		t.Fatalf("empty cache err = %v", err)
	}
	if n := len(f.calls("POST", "/visits")); n != 0 {
		t.Fatalf("unloaded cache still submitted (%d calls)", n)
	}
}

func TestCreateVisitValidation(t *testing.T) {
	f := newFakeUpstream(t)
	forms, _, _ := setupForms(t, f)
	cache := loadedCache(t)

	_, err := forms.CreateVisit(context.Background(), Caller{}, cache, visit.CreateVisitCommand{
		DoctorID:  "d9",
		VisitDate: fixedNow.Add(24 * time.Hour),
		Products: []visit.ProductCommand{
			{ProductID: "p1", Samples: 1},
			{ProductID: "p1", Samples: 1},
			{ProductID: "p7", Samples: -1},
		},
	})
	fields := fieldsOf(t, err)
	for _, want := range []string{
		"visitDate cannot be in the future",
		"doctorId is not in your doctor list",
		"products[1].productId is repeated",
		"products[2].productId is not in your product list",
		"products[2].samplesCount must be at least 0",
	} {
		if !hasField(fields, want) {
			t.Errorf("fields %v missing %q", fields, want)
		}
	}

	_, err = forms.CreateVisit(context.Background(), Caller{}, cache, visit.CreateVisitCommand{})
	fields = fieldsOf(t, err)
	for _, want := range []string{"doctorId is required", "visitDate is required", "products is required"} {
		if !hasField(fields, want) {
			t.Errorf("fields %v missing %q", fields, want)
		}
	}
}

func TestCreateVisitSubmits(t *testing.T) {
	f := newFakeUpstream(t)
	f.handle("POST /visits", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 201, ok(map[string]any{"id": "v1", "status": "pending"}))
	})
	forms, audit, notified := setupForms(t, f)

	v, err := forms.CreateVisit(context.Background(), Caller{UserID: "rep-1"}, loadedCache(t), visit.CreateVisitCommand{
		DoctorID:  "d1",
		VisitDate: fixedNow.Add(-2 * time.Hour),
		Products:  []visit.ProductCommand{{ProductID: "p1", Samples: 3}, {ProductID: "p2"}},
		Notes:     "زيارة متابعة",
	})
	if err != nil {
		t.Fatalf("CreateVisit: %v", err)
	}
	if v.ID != "v1" {
		t.Fatalf("visit = %+v", v)
	}

	posts := f.calls("POST", "/visits")
	if len(posts) != 1 {
		t.Fatalf("posts = %d", len(posts))
	}
	var sent visit.CreateVisitCommand
	if err := json.Unmarshal([]byte(posts[0].Body), &sent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sent.DoctorID != "d1" || len(sent.Products) != 2 || sent.Products[0].Samples != 3 {
		t.Fatalf("sent = %+v", sent)
	}
	if entries := audit.all(); len(entries) != 1 || entries[0].ResourceID != "v1" || entries[0].ResourceType != ResourceVisits {
		t.Fatalf("audit = %+v", entries)
	}
	if len(*notified) != 1 || (*notified)[0] != ResourceVisits {
		t.Fatalf("notified = %v", *notified)
	}
}

func TestMarketingActivityDateOrder(t *testing.T) {
	f := newFakeUpstream(t)
	forms, _, _ := setupForms(t, f)

	_, err := forms.CreateMarketingActivity(context.Background(), Caller{}, loadedCache(t), marketing.CreateActivityCommand{
		DoctorID:     "d1",
		ActivityType: "conference",
		RequestDate:  time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		ActivityDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Cost:         decimal.NewFromInt(-5),
	})
	fields := fieldsOf(t, err)
	if !hasField(fields, "activityDate must be on or after requestDate") {
		t.Errorf("fields %v missing date order rule", fields)
	}
	if !hasField(fields, "cost must be greater than 0") {
		t.Errorf("fields %v missing cost rule", fields)
	}
}

func TestSampleRequestQuantity(t *testing.T) {
	f := newFakeUpstream(t)
	forms, _, _ := setupForms(t, f)

	_, err := forms.CreateSampleRequest(context.Background(), Caller{}, loadedCache(t), sample.CreateRequestCommand{
		DoctorID:    "d1",
		ProductID:   "p2",
		Quantity:    0,
		RequestDate: fixedNow,
	})
	if fields := fieldsOf(t, err); !hasField(fields, "quantity is required") {
		t.Errorf("fields = %v", fields)
	}
}

func TestAdminRoleIsNormalized(t *testing.T) {
	f := newFakeUpstream(t)
	f.handle("POST /admins", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 201, ok(map[string]any{"id": "a1", "role": "SYSTEM_ADMIN"}))
	})
	forms, _, _ := setupForms(t, f)

	cmd := admin.CreateAdminCommand{
		Username:  "sara",
		Password:  "s3cret-pass",
		FirstName: "Sara",
		LastName:  "Adel",
		Role:      "system admin",
	}
	if _, err := forms.CreateAdmin(context.Background(), Caller{}, cmd); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	posts := f.calls("POST", "/admins")
	if len(posts) != 1 || !strings.Contains(posts[0].Body, `"role":"SYSTEM_ADMIN"`) {
		t.Fatalf("posts = %+v", posts)
	}

	cmd.Role = "janitor"
	cmd.Password = "short"
	fields := fieldsOf(t, func() error { _, err := forms.CreateAdmin(context.Background(), Caller{}, cmd); return err }())
	if !hasField(fields, "role is invalid") || !hasField(fields, "password must be at least 8 characters") {
		t.Fatalf("fields = %v", fields)
	}
}

func TestUpdateAdminPasswordOptional(t *testing.T) {
	f := newFakeUpstream(t)
	f.handle("PUT /admins/a1", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, ok(map[string]any{"id": "a1"}))
	})
	forms, _, _ := setupForms(t, f)

	_, err := forms.UpdateAdmin(context.Background(), Caller{}, "a1", admin.UpdateAdminCommand{
		FirstName: "Sara", LastName: "Adel", Role: "manager",
	})
	if err != nil {
		t.Fatalf("UpdateAdmin: %v", err)
	}
	if err := forms.DeleteAdmin(context.Background(), Caller{UserID: "a1"}, "a1"); err == nil {
		t.Fatal("deleting your own account should fail")
	}
}

func TestProductPriceNotNegative(t *testing.T) {
	f := newFakeUpstream(t)
	forms, _, _ := setupForms(t, f)

	_, err := forms.CreateProduct(context.Background(), Caller{}, product.CreateProductCommand{
		Code: "PN-500", Name: "Panadol", Price: decimal.RequireFromString("-1.5"),
	})
	if fields := fieldsOf(t, err); !hasField(fields, "price cannot be negative") {
		t.Fatalf("fields = %v", fields)
	}
}

func TestUpstreamValidationPassesThrough(t *testing.T) {
	f := newFakeUpstream(t)
	f.handle("POST /doctors", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 400, map[string]any{"success": false, "message": "الطبيب مسجل بالفعل"})
	})
	forms, audit, _ := setupForms(t, f)

	_, err := forms.CreateDoctor(context.Background(), Caller{}, doctor.CreateDoctorCommand{
		Name: "د. سامي", Specialty: "باطنة", Area: "الجيزة",
	})
	if err == nil || !strings.Contains(err.Error(), "الطبيب مسجل بالفعل") {
		t.Fatalf("err = %v", err)
	}
	if len(audit.all()) != 0 {
		t.Fatal("failed submit must not be audited")
	}
}

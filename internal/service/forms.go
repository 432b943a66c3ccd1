package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/admin"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/marketing"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/product"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/sample"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
)

var ErrReferenceNotLoaded = session.ErrReferenceNotLoaded

// Forms validates and submits every create/update form. All pages share
// these rules.
type Forms struct {
	api      *upstream.Client
	audit    Auditor
	notify   func(ctx context.Context, resource string)
	validate *validator.Validate
	now      func() time.Time
	log      *zap.Logger
}

func NewForms(api *upstream.Client, audit Auditor, notify func(ctx context.Context, resource string), log *zap.Logger) *Forms {
	if notify == nil {
		notify = func(context.Context, string) {}
	}
	return &Forms{
		api:      api,
		audit:    audit,
		notify:   notify,
		validate: newValidator(),
		now:      time.Now,
		log:      log,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return lowerFirst(f.Name)
		}
		return name
	})
	return v
}

// check runs the struct rules and appends the manual ones.
func (f *Forms) check(cmd any, extra ...string) error {
	var fields []string
	if err := f.validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, describe(fe))
		}
	}
	fields = append(fields, extra...)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	name := fe.Namespace()
	if _, rest, ok := strings.Cut(name, "."); ok {
		name = rest
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min", "gte":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("%s must have at least %s items", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must be on or after %s", name, lowerFirst(fe.Param()))
	}
	return name + " is invalid"
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func (f *Forms) done(ctx context.Context, caller Caller, action domain.AuditAction, resource, id string) {
	if f.audit != nil {
		f.audit.LogAsync(ctx, AuditEntry{
			Caller:       caller,
			Action:       action,
			ResourceType: resource,
			ResourceID:   id,
		})
	}
	f.notify(ctx, resource)
	f.log.Info("form submitted",
		zap.String("resource", resource),
		zap.String("action", string(action)),
		zap.String("id", id),
		zap.String("user_id", caller.UserID),
	)
}

func requireReference(cache *session.ReferenceCache) error {
	if cache == nil || !cache.IsLoaded() {
		return ErrReferenceNotLoaded
	}
	return nil
}

// Doctors

func (f *Forms) CreateDoctor(ctx context.Context, caller Caller, cmd doctor.CreateDoctorCommand) (*doctor.Doctor, error) {
	if err := f.check(&cmd); err != nil {
		return nil, err
	}
	d, err := f.api.CreateDoctor(ctx, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionCreate, ResourceDoctors, d.ID)
	return d, nil
}

func (f *Forms) UpdateDoctor(ctx context.Context, caller Caller, id string, cmd doctor.UpdateDoctorCommand) (*doctor.Doctor, error) {
	if err := f.check(&cmd, requireID(id)...); err != nil {
		return nil, err
	}
	d, err := f.api.UpdateDoctor(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionUpdate, ResourceDoctors, id)
	return d, nil
}

func (f *Forms) DeleteDoctor(ctx context.Context, caller Caller, id string) error {
	if fields := requireID(id); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if err := f.api.DeleteDoctor(ctx, id); err != nil {
		return err
	}
	f.done(ctx, caller, domain.ActionDelete, ResourceDoctors, id)
	return nil
}

// Pharmacies

func (f *Forms) CreatePharmacy(ctx context.Context, caller Caller, cmd pharmacy.CreatePharmacyCommand) (*pharmacy.Pharmacy, error) {
	if err := f.check(&cmd); err != nil {
		return nil, err
	}
	p, err := f.api.CreatePharmacy(ctx, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionCreate, ResourcePharmacies, p.ID)
	return p, nil
}

func (f *Forms) UpdatePharmacy(ctx context.Context, caller Caller, id string, cmd pharmacy.UpdatePharmacyCommand) (*pharmacy.Pharmacy, error) {
	if err := f.check(&cmd, requireID(id)...); err != nil {
		return nil, err
	}
	p, err := f.api.UpdatePharmacy(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionUpdate, ResourcePharmacies, id)
	return p, nil
}

func (f *Forms) DeletePharmacy(ctx context.Context, caller Caller, id string) error {
	if fields := requireID(id); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if err := f.api.DeletePharmacy(ctx, id); err != nil {
		return err
	}
	f.done(ctx, caller, domain.ActionDelete, ResourcePharmacies, id)
	return nil
}

// Products

func productRules(cmd *product.CreateProductCommand) []string {
	if cmd.Price.IsNegative() {
		return []string{"price cannot be negative"}
	}
	return nil
}

func (f *Forms) CreateProduct(ctx context.Context, caller Caller, cmd product.CreateProductCommand) (*product.Product, error) {
	if err := f.check(&cmd, productRules(&cmd)...); err != nil {
		return nil, err
	}
	p, err := f.api.CreateProduct(ctx, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionCreate, ResourceProducts, p.ID)
	return p, nil
}

func (f *Forms) UpdateProduct(ctx context.Context, caller Caller, id string, cmd product.UpdateProductCommand) (*product.Product, error) {
	if err := f.check(&cmd, append(requireID(id), productRules(&cmd)...)...); err != nil {
		return nil, err
	}
	p, err := f.api.UpdateProduct(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionUpdate, ResourceProducts, id)
	return p, nil
}

func (f *Forms) DeleteProduct(ctx context.Context, caller Caller, id string) error {
	if fields := requireID(id); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if err := f.api.DeleteProduct(ctx, id); err != nil {
		return err
	}
	f.done(ctx, caller, domain.ActionDelete, ResourceProducts, id)
	return nil
}

// Admins. The role is normalized before it leaves for the upstream so every
// stored account uses the canonical spelling.

func normalizeRole(raw *string) []string {
	if strings.TrimSpace(*raw) == "" {
		return nil
	}
	r, err := domain.ParseRole(*raw)
	if err != nil {
		return []string{"role is invalid"}
	}
	*raw = string(r)
	return nil
}

func (f *Forms) CreateAdmin(ctx context.Context, caller Caller, cmd admin.CreateAdminCommand) (*admin.Admin, error) {
	if err := f.check(&cmd, normalizeRole(&cmd.Role)...); err != nil {
		return nil, err
	}
	a, err := f.api.CreateAdmin(ctx, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionCreate, ResourceAdmins, a.ID)
	return a, nil
}

func (f *Forms) UpdateAdmin(ctx context.Context, caller Caller, id string, cmd admin.UpdateAdminCommand) (*admin.Admin, error) {
	if err := f.check(&cmd, append(requireID(id), normalizeRole(&cmd.Role)...)...); err != nil {
		return nil, err
	}
	a, err := f.api.UpdateAdmin(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionUpdate, ResourceAdmins, id)
	return a, nil
}

func (f *Forms) DeleteAdmin(ctx context.Context, caller Caller, id string) error {
	if fields := requireID(id); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if id == caller.UserID {
		return &ValidationError{Fields: []string{"id cannot be your own account"}}
	}
	if err := f.api.DeleteAdmin(ctx, id); err != nil {
		return err
	}
	f.done(ctx, caller, domain.ActionDelete, ResourceAdmins, id)
	return nil
}

// Forms that pick doctors and products from the session's reference data.

func (f *Forms) CreateVisit(ctx context.Context, caller Caller, cache *session.ReferenceCache, cmd visit.CreateVisitCommand) (*visit.Visit, error) {
	if err := requireReference(cache); err != nil {
		return nil, err
	}

	var extra []string
	if cmd.VisitDate.After(f.now()) {
		extra = append(extra, "visitDate cannot be in the future")
	}
	if cmd.DoctorID != "" {
		if _, ok := cache.Doctor(cmd.DoctorID); !ok {
			extra = append(extra, "doctorId is not in your doctor list")
		}
	}
	seen := make(map[string]bool, len(cmd.Products))
	for i, p := range cmd.Products {
		if p.ProductID == "" {
			continue
		}
		if seen[p.ProductID] {
			extra = append(extra, fmt.Sprintf("products[%d].productId is repeated", i))
		}
		seen[p.ProductID] = true
		if _, ok := cache.Product(p.ProductID); !ok {
			extra = append(extra, fmt.Sprintf("products[%d].productId is not in your product list", i))
		}
	}
	if err := f.check(&cmd, extra...); err != nil {
		return nil, err
	}

	v, err := f.api.CreateVisit(ctx, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionCreate, ResourceVisits, v.ID)
	return v, nil
}

func (f *Forms) CreateMarketingActivity(ctx context.Context, caller Caller, cache *session.ReferenceCache, cmd marketing.CreateActivityCommand) (*marketing.Activity, error) {
	if err := requireReference(cache); err != nil {
		return nil, err
	}

	var extra []string
	if cmd.DoctorID != "" {
		if _, ok := cache.Doctor(cmd.DoctorID); !ok {
			extra = append(extra, "doctorId is not in your doctor list")
		}
	}
	if !cmd.Cost.IsPositive() {
		extra = append(extra, "cost must be greater than 0")
	}
	if err := f.check(&cmd, extra...); err != nil {
		return nil, err
	}

	a, err := f.api.CreateMarketingActivity(ctx, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionCreate, ResourceMarketingActivities, a.ID)
	return a, nil
}

func (f *Forms) CreateSampleRequest(ctx context.Context, caller Caller, cache *session.ReferenceCache, cmd sample.CreateRequestCommand) (*sample.Request, error) {
	if err := requireReference(cache); err != nil {
		return nil, err
	}

	var extra []string
	if cmd.DoctorID != "" {
		if _, ok := cache.Doctor(cmd.DoctorID); !ok {
			extra = append(extra, "doctorId is not in your doctor list")
		}
	}
	if cmd.ProductID != "" {
		if _, ok := cache.Product(cmd.ProductID); !ok {
			extra = append(extra, "productId is not in your product list")
		}
	}
	if cmd.DeliveryDate != nil && cmd.DeliveryDate.Before(cmd.RequestDate) {
		extra = append(extra, "deliveryDate must be on or after requestDate")
	}
	if err := f.check(&cmd, extra...); err != nil {
		return nil, err
	}

	r, err := f.api.CreateSampleRequest(ctx, cmd)
	if err != nil {
		return nil, err
	}
	f.done(ctx, caller, domain.ActionCreate, ResourceSampleRequests, r.ID)
	return r, nil
}

func requireID(id string) []string {
	if strings.TrimSpace(id) == "" {
		return []string{"id is required"}
	}
	return nil
}

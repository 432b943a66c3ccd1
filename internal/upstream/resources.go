package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/admin"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/marketing"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/product"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/sample"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/visit"
)

// Credentials is the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Account is the user as the upstream reports it. Role is raw and must go
// through domain.ParseRole before use.
type Account struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Role         string   `json:"role"`
	TeamArea     string   `json:"teamArea"`
	TeamProducts []string `json:"teamProducts"`
	Supervisor   *string  `json:"supervisor"`
}

type LoginResult struct {
	Token string  `json:"token"`
	User  Account `json:"user"`
}

type MyData = domain.Reference[doctor.Doctor, product.Product]

func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	return call[LoginResult](ctx, c, request{
		op: "auth.login", method: http.MethodPost, path: "/auth/login", body: creds, anonymous: true,
	})
}

func (c *Client) Me(ctx context.Context) (*Account, error) {
	return call[Account](ctx, c, request{op: "auth.me", method: http.MethodGet, path: "/auth/me"})
}

func (c *Client) MyData(ctx context.Context) (*MyData, error) {
	return call[MyData](ctx, c, request{op: "reference.my_data", method: http.MethodGet, path: "/medical-reps/my-data"})
}

// Doctors

func (c *Client) ListDoctors(ctx context.Context, q url.Values) (*domain.Page[doctor.Doctor], error) {
	return getList[doctor.Doctor](ctx, c, "doctors.list", "/doctors", q)
}

func (c *Client) GetDoctor(ctx context.Context, id string) (*doctor.Doctor, error) {
	return call[doctor.Doctor](ctx, c, request{op: "doctors.get", method: http.MethodGet, path: "/doctors/" + url.PathEscape(id)})
}

func (c *Client) CreateDoctor(ctx context.Context, cmd doctor.CreateDoctorCommand) (*doctor.Doctor, error) {
	return call[doctor.Doctor](ctx, c, request{op: "doctors.create", method: http.MethodPost, path: "/doctors", body: cmd})
}

func (c *Client) UpdateDoctor(ctx context.Context, id string, cmd doctor.UpdateDoctorCommand) (*doctor.Doctor, error) {
	return call[doctor.Doctor](ctx, c, request{op: "doctors.update", method: http.MethodPut, path: "/doctors/" + url.PathEscape(id), body: cmd})
}

func (c *Client) DeleteDoctor(ctx context.Context, id string) error {
	return exec(ctx, c, request{op: "doctors.delete", method: http.MethodDelete, path: "/doctors/" + url.PathEscape(id)})
}

func (c *Client) ExportDoctors(ctx context.Context, q url.Values) (*Blob, error) {
	return download(ctx, c, "doctors.export", "/doctors/export", q)
}

// Pharmacies

func (c *Client) ListPharmacies(ctx context.Context, q url.Values) (*domain.Page[pharmacy.Pharmacy], error) {
	return getList[pharmacy.Pharmacy](ctx, c, "pharmacies.list", "/pharmacies", q)
}

func (c *Client) CreatePharmacy(ctx context.Context, cmd pharmacy.CreatePharmacyCommand) (*pharmacy.Pharmacy, error) {
	return call[pharmacy.Pharmacy](ctx, c, request{op: "pharmacies.create", method: http.MethodPost, path: "/pharmacies", body: cmd})
}

func (c *Client) UpdatePharmacy(ctx context.Context, id string, cmd pharmacy.UpdatePharmacyCommand) (*pharmacy.Pharmacy, error) {
	return call[pharmacy.Pharmacy](ctx, c, request{op: "pharmacies.update", method: http.MethodPut, path: "/pharmacies/" + url.PathEscape(id), body: cmd})
}

func (c *Client) DeletePharmacy(ctx context.Context, id string) error {
	return exec(ctx, c, request{op: "pharmacies.delete", method: http.MethodDelete, path: "/pharmacies/" + url.PathEscape(id)})
}

func (c *Client) ExportPharmacies(ctx context.Context, q url.Values) (*Blob, error) {
	return download(ctx, c, "pharmacies.export", "/pharmacies/export", q)
}

// Products

func (c *Client) ListProducts(ctx context.Context, q url.Values) (*domain.Page[product.Product], error) {
	return getList[product.Product](ctx, c, "products.list", "/products", q)
}

func (c *Client) CreateProduct(ctx context.Context, cmd product.CreateProductCommand) (*product.Product, error) {
	return call[product.Product](ctx, c, request{op: "products.create", method: http.MethodPost, path: "/products", body: cmd})
}

func (c *Client) UpdateProduct(ctx context.Context, id string, cmd product.UpdateProductCommand) (*product.Product, error) {
	return call[product.Product](ctx, c, request{op: "products.update", method: http.MethodPut, path: "/products/" + url.PathEscape(id), body: cmd})
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return exec(ctx, c, request{op: "products.delete", method: http.MethodDelete, path: "/products/" + url.PathEscape(id)})
}

func (c *Client) ExportProducts(ctx context.Context, q url.Values) (*Blob, error) {
	return download(ctx, c, "products.export", "/products/export", q)
}

// Visits

func (c *Client) ListVisits(ctx context.Context, q url.Values) (*domain.Page[visit.Visit], error) {
	return getList[visit.Visit](ctx, c, "visits.list", "/visits", q)
}

func (c *Client) CreateVisit(ctx context.Context, cmd visit.CreateVisitCommand) (*visit.Visit, error) {
	return call[visit.Visit](ctx, c, request{op: "visits.create", method: http.MethodPost, path: "/visits", body: cmd})
}

func (c *Client) ExportVisits(ctx context.Context, q url.Values) (*Blob, error) {
	return download(ctx, c, "visits.export", "/visits/export", q)
}

// Orders

func (c *Client) ListOrders(ctx context.Context, q url.Values) (*domain.Page[order.Order], error) {
	return getList[order.Order](ctx, c, "orders.list", "/orders", q)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, change StatusChange) (*order.Order, error) {
	return call[order.Order](ctx, c, request{op: "orders.status", method: http.MethodPatch, path: "/orders/" + url.PathEscape(id) + "/status", body: change})
}

func (c *Client) ExportOrders(ctx context.Context, q url.Values) (*Blob, error) {
	return download(ctx, c, "orders.export", "/orders/export", q)
}

// Sample requests

func (c *Client) ListSampleRequests(ctx context.Context, q url.Values) (*domain.Page[sample.Request], error) {
	return getList[sample.Request](ctx, c, "sample_requests.list", "/sample-requests", q)
}

func (c *Client) CreateSampleRequest(ctx context.Context, cmd sample.CreateRequestCommand) (*sample.Request, error) {
	return call[sample.Request](ctx, c, request{op: "sample_requests.create", method: http.MethodPost, path: "/sample-requests", body: cmd})
}

func (c *Client) UpdateSampleRequestStatus(ctx context.Context, id string, change StatusChange) (*sample.Request, error) {
	return call[sample.Request](ctx, c, request{op: "sample_requests.status", method: http.MethodPatch, path: "/sample-requests/" + url.PathEscape(id) + "/status", body: change})
}

func (c *Client) ExportSampleRequests(ctx context.Context, q url.Values) (*Blob, error) {
	return download(ctx, c, "sample_requests.export", "/sample-requests/export", q)
}

// Marketing activities

func (c *Client) ListMarketingActivities(ctx context.Context, q url.Values) (*domain.Page[marketing.Activity], error) {
	return getList[marketing.Activity](ctx, c, "marketing_activities.list", "/marketing-activities", q)
}

func (c *Client) CreateMarketingActivity(ctx context.Context, cmd marketing.CreateActivityCommand) (*marketing.Activity, error) {
	return call[marketing.Activity](ctx, c, request{op: "marketing_activities.create", method: http.MethodPost, path: "/marketing-activities", body: cmd})
}

func (c *Client) UpdateMarketingActivityStatus(ctx context.Context, id string, change StatusChange) (*marketing.Activity, error) {
	return call[marketing.Activity](ctx, c, request{op: "marketing_activities.status", method: http.MethodPatch, path: "/marketing-activities/" + url.PathEscape(id) + "/status", body: change})
}

func (c *Client) ExportMarketingActivities(ctx context.Context, q url.Values) (*Blob, error) {
	return download(ctx, c, "marketing_activities.export", "/marketing-activities/export", q)
}

// Admins

func (c *Client) ListAdmins(ctx context.Context, q url.Values) (*domain.Page[admin.Admin], error) {
	return getList[admin.Admin](ctx, c, "admins.list", "/admins", q)
}

func (c *Client) CreateAdmin(ctx context.Context, cmd admin.CreateAdminCommand) (*admin.Admin, error) {
	return call[admin.Admin](ctx, c, request{op: "admins.create", method: http.MethodPost, path: "/admins", body: cmd})
}

func (c *Client) UpdateAdmin(ctx context.Context, id string, cmd admin.UpdateAdminCommand) (*admin.Admin, error) {
	return call[admin.Admin](ctx, c, request{op: "admins.update", method: http.MethodPut, path: "/admins/" + url.PathEscape(id), body: cmd})
}

func (c *Client) DeleteAdmin(ctx context.Context, id string) error {
	return exec(ctx, c, request{op: "admins.delete", method: http.MethodDelete, path: "/admins/" + url.PathEscape(id)})
}

package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/metrics"
)

var (
	anyRole   []domain.Role
	managers  = []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleSystemAdmin}
	sysAdmins = []domain.Role{domain.RoleSystemAdmin}
	reps      = []domain.Role{domain.RoleMedicalRep}
)

// route is one row of the access table. Non-public routes need a session
// whose role is in roles; an empty roles list admits any signed-in user.
type route struct {
	method  string
	path    string
	public  bool
	roles   []domain.Role
	before  []gin.HandlerFunc
	handler gin.HandlerFunc
}

func (s *Server) routes() []route {
	l, f := s.lists, s.forms

	rs := []route{
		{method: http.MethodGet, path: "/health", public: true, handler: s.health},
		{method: http.MethodGet, path: "/metrics", public: true, handler: gin.WrapH(metrics.MetricsHandler())},
		{method: http.MethodGet, path: "/login", public: true, handler: s.loginPage},
		{method: http.MethodPost, path: "/login", public: true, handler: s.login,
			before: []gin.HandlerFunc{RateLimit(s.rateLimit.LoginPerMinute, s.rateLimit.LoginBurst)}},
		{method: http.MethodPost, path: "/logout", roles: anyRole, handler: s.logout},
		{method: http.MethodGet, path: "/me", roles: anyRole, handler: s.me},

		{method: http.MethodGet, path: "/", roles: anyRole, handler: s.dashboardPage},
		{method: http.MethodGet, path: "/dashboards", roles: anyRole, handler: s.dashboardPage},
		{method: http.MethodGet, path: "/dashboards/orders", roles: anyRole, handler: listHandler(s, l.Orders)},
		{method: http.MethodGet, path: "/dashboards/visits", roles: anyRole, handler: listHandler(s, l.Visits)},
		{method: http.MethodGet, path: "/dashboards/sample-requests", roles: anyRole, handler: listHandler(s, l.SampleRequests)},
		{method: http.MethodGet, path: "/dashboards/marketing-activities", roles: anyRole, handler: listHandler(s, l.MarketingActivities)},
		{method: http.MethodGet, path: "/clients", roles: anyRole, handler: listHandler(s, l.Doctors)},
		{method: http.MethodGet, path: "/clients/pharmacies", roles: anyRole, handler: listHandler(s, l.Pharmacies)},
		{method: http.MethodGet, path: "/orders", roles: anyRole, handler: listHandler(s, l.Orders)},
		{method: http.MethodGet, path: "/orders/export", roles: anyRole, handler: exportHandler(s, l.Orders)},
		{method: http.MethodGet, path: "/visits", roles: anyRole, handler: listHandler(s, l.Visits)},
		{method: http.MethodGet, path: "/visits/export", roles: anyRole, handler: exportHandler(s, l.Visits)},
		{method: http.MethodGet, path: "/ws/orders", roles: anyRole, handler: liveHandler(s, l.Orders, managers...)},
		{method: http.MethodGet, path: "/ws/visits", roles: anyRole, handler: liveHandler(s, l.Visits)},

		{method: http.MethodGet, path: "/management/doctors", roles: managers, handler: listHandler(s, l.Doctors)},
		{method: http.MethodGet, path: "/management/doctors/export", roles: managers, handler: exportHandler(s, l.Doctors)},
		{method: http.MethodPost, path: "/management/doctors", roles: managers, handler: createHandler(s, f.CreateDoctor)},
		{method: http.MethodPut, path: "/management/doctors/:id", roles: managers, handler: updateHandler(s, f.UpdateDoctor)},
		{method: http.MethodDelete, path: "/management/doctors/:id", roles: managers, handler: deleteHandler(s, f.DeleteDoctor)},
		{method: http.MethodGet, path: "/ws/doctors", roles: managers, handler: liveHandler(s, l.Doctors)},

		{method: http.MethodGet, path: "/management/pharmacies", roles: managers, handler: listHandler(s, l.Pharmacies)},
		{method: http.MethodGet, path: "/management/pharmacies/export", roles: managers, handler: exportHandler(s, l.Pharmacies)},
		{method: http.MethodPost, path: "/management/pharmacies", roles: managers, handler: createHandler(s, f.CreatePharmacy)},
		{method: http.MethodPut, path: "/management/pharmacies/:id", roles: managers, handler: updateHandler(s, f.UpdatePharmacy)},
		{method: http.MethodDelete, path: "/management/pharmacies/:id", roles: managers, handler: deleteHandler(s, f.DeletePharmacy)},
		{method: http.MethodGet, path: "/ws/pharmacies", roles: managers, handler: liveHandler(s, l.Pharmacies)},

		{method: http.MethodGet, path: "/management/products", roles: managers, handler: listHandler(s, l.Products)},
		{method: http.MethodGet, path: "/management/products/export", roles: managers, handler: exportHandler(s, l.Products)},
		{method: http.MethodPost, path: "/management/products", roles: managers, handler: createHandler(s, f.CreateProduct)},
		{method: http.MethodPut, path: "/management/products/:id", roles: managers, handler: updateHandler(s, f.UpdateProduct)},
		{method: http.MethodDelete, path: "/management/products/:id", roles: managers, handler: deleteHandler(s, f.DeleteProduct)},
		{method: http.MethodGet, path: "/ws/products", roles: managers, handler: liveHandler(s, l.Products)},

		{method: http.MethodGet, path: "/management/orders", roles: managers, handler: listHandler(s, l.Orders)},
		{method: http.MethodGet, path: "/management/orders/export", roles: managers, handler: exportHandler(s, l.Orders)},
		{method: http.MethodPost, path: "/management/orders/:id/approve", roles: managers, handler: statusHandler(s, l.Orders, domain.ReviewApproved)},
		{method: http.MethodPost, path: "/management/orders/:id/reject", roles: managers, handler: statusHandler(s, l.Orders, domain.ReviewRejected)},

		{method: http.MethodGet, path: "/management/sample-requests", roles: managers, handler: listHandler(s, l.SampleRequests)},
		{method: http.MethodGet, path: "/management/sample-requests/export", roles: managers, handler: exportHandler(s, l.SampleRequests)},
		{method: http.MethodPost, path: "/management/sample-requests/:id/approve", roles: managers, handler: statusHandler(s, l.SampleRequests, domain.ReviewApproved)},
		{method: http.MethodPost, path: "/management/sample-requests/:id/reject", roles: managers, handler: statusHandler(s, l.SampleRequests, domain.ReviewRejected)},
		{method: http.MethodGet, path: "/ws/sample-requests", roles: managers, handler: liveHandler(s, l.SampleRequests, managers...)},

		{method: http.MethodGet, path: "/management/marketing-activities", roles: managers, handler: listHandler(s, l.MarketingActivities)},
		{method: http.MethodGet, path: "/management/marketing-activities/export", roles: managers, handler: exportHandler(s, l.MarketingActivities)},
		{method: http.MethodPost, path: "/management/marketing-activities/:id/approve", roles: managers, handler: statusHandler(s, l.MarketingActivities, domain.ReviewApproved)},
		{method: http.MethodPost, path: "/management/marketing-activities/:id/reject", roles: managers, handler: statusHandler(s, l.MarketingActivities, domain.ReviewRejected)},
		{method: http.MethodGet, path: "/ws/marketing-activities", roles: managers, handler: liveHandler(s, l.MarketingActivities, managers...)},

		{method: http.MethodGet, path: "/management/admins", roles: sysAdmins, handler: listHandler(s, l.Admins)},
		{method: http.MethodPost, path: "/management/admins", roles: sysAdmins, handler: createHandler(s, f.CreateAdmin)},
		{method: http.MethodPut, path: "/management/admins/:id", roles: sysAdmins, handler: updateHandler(s, f.UpdateAdmin)},
		{method: http.MethodDelete, path: "/management/admins/:id", roles: sysAdmins, handler: deleteHandler(s, f.DeleteAdmin)},
		{method: http.MethodGet, path: "/ws/admins", roles: sysAdmins, handler: liveHandler(s, l.Admins)},

		{method: http.MethodGet, path: "/my-data", roles: reps, handler: s.myData},
		{method: http.MethodPost, path: "/my-data/reload", roles: reps, handler: s.reloadMyData},
		{method: http.MethodPost, path: "/my-data/sample-requests", roles: reps, handler: referenceForm(s, f.CreateSampleRequest)},
		{method: http.MethodPost, path: "/my-data/marketing-activities", roles: reps, handler: referenceForm(s, f.CreateMarketingActivity)},
		{method: http.MethodGet, path: "/create-visit", roles: reps, handler: s.myData},
		{method: http.MethodPost, path: "/create-visit", roles: reps, handler: referenceForm(s, f.CreateVisit)},
	}
	return rs
}

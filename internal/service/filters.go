package service

import "github.com/dmehra2102/prod-golang-projects/repdash/internal/listview"

// Page filter sets. Each binds from the query string (form tags) on plain
// requests and from JSON on live views.

type DoctorFilters struct {
	Search    string `form:"search" json:"search"`
	Specialty string `form:"specialty" json:"specialty"`
	Area      string `form:"area" json:"area"`
	City      string `form:"city" json:"city"`
	Brand     string `form:"brand" json:"brand"`
}

func (f DoctorFilters) Apply(q *listview.Query) {
	q.Set("search", f.Search).
		Set("specialty", f.Specialty).
		Set("area", f.Area).
		Set("city", f.City).
		Set("brand", f.Brand)
}

type PharmacyFilters struct {
	Search string `form:"search" json:"search"`
	Area   string `form:"area" json:"area"`
	City   string `form:"city" json:"city"`
}

func (f PharmacyFilters) Apply(q *listview.Query) {
	q.Set("search", f.Search).Set("area", f.Area).Set("city", f.City)
}

type ProductFilters struct {
	Search string `form:"search" json:"search"`
	Line   string `form:"productLine" json:"productLine"`
	Type   string `form:"productType" json:"productType"`
	Brand  string `form:"brand" json:"brand"`
}

func (f ProductFilters) Apply(q *listview.Query) {
	q.Set("search", f.Search).
		Set("productLine", f.Line).
		Set("productType", f.Type).
		Set("brand", f.Brand)
}

type VisitFilters struct {
	Search    string        `form:"search" json:"search"`
	DoctorID  string        `form:"doctorId" json:"doctorId"`
	RepID     string        `form:"medicalRepId" json:"medicalRepId"`
	Status    string        `form:"status" json:"status"`
	StartDate listview.Date `form:"startDate" json:"startDate"`
	EndDate   listview.Date `form:"endDate" json:"endDate"`
}

func (f VisitFilters) Apply(q *listview.Query) {
	q.Set("search", f.Search).
		Set("doctorId", f.DoctorID).
		Set("medicalRepId", f.RepID).
		Set("status", f.Status).
		SetDay("startDate", f.StartDate).
		SetDay("endDate", f.EndDate)
}

type OrderFilters struct {
	Search     string        `form:"search" json:"search"`
	Status     string        `form:"status" json:"status"`
	Area       string        `form:"area" json:"area"`
	SalesRepID string        `form:"salesRepId" json:"salesRepId"`
	StartDate  listview.Date `form:"startDate" json:"startDate"`
	EndDate    listview.Date `form:"endDate" json:"endDate"`
}

func (f OrderFilters) Apply(q *listview.Query) {
	q.Set("search", f.Search).
		Set("status", f.Status).
		Set("area", f.Area).
		Set("salesRepId", f.SalesRepID).
		SetDay("startDate", f.StartDate).
		SetDay("endDate", f.EndDate)
}

type SampleRequestFilters struct {
	Search    string        `form:"search" json:"search"`
	Status    string        `form:"status" json:"status"`
	DoctorID  string        `form:"doctorId" json:"doctorId"`
	ProductID string        `form:"productId" json:"productId"`
	StartDate listview.Date `form:"startDate" json:"startDate"`
	EndDate   listview.Date `form:"endDate" json:"endDate"`
}

func (f SampleRequestFilters) Apply(q *listview.Query) {
	q.Set("search", f.Search).
		Set("status", f.Status).
		Set("doctorId", f.DoctorID).
		Set("productId", f.ProductID).
		SetDay("startDate", f.StartDate).
		SetDay("endDate", f.EndDate)
}

type MarketingFilters struct {
	Search       string        `form:"search" json:"search"`
	Status       string        `form:"status" json:"status"`
	ActivityType string        `form:"activityType" json:"activityType"`
	StartDate    listview.Date `form:"startDate" json:"startDate"`
	EndDate      listview.Date `form:"endDate" json:"endDate"`
}

func (f MarketingFilters) Apply(q *listview.Query) {
	q.Set("search", f.Search).
		Set("status", f.Status).
		Set("activityType", f.ActivityType).
		SetDay("startDate", f.StartDate).
		SetDay("endDate", f.EndDate)
}

type AdminFilters struct {
	Search   string `form:"search" json:"search"`
	Role     string `form:"role" json:"role"`
	IsActive string `form:"isActive" json:"isActive"`
}

func (f AdminFilters) Apply(q *listview.Query) {
	q.Set("search", f.Search).Set("role", f.Role).Set("isActive", f.IsActive)
}

package service

import (
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/admin"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/marketing"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/product"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/sample"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/stats"
)

// Summaries are computed from the rows of the current page only.

type OrderSummary struct {
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	OrderCount        int             `json:"orderCount"`
	PendingCount      int             `json:"pendingCount"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	ByStatus          []stats.Bucket  `json:"byStatus"`
	RevenueByRep      []stats.Bucket  `json:"revenueByRep"`
	OrdersByArea      []stats.Bucket  `json:"ordersByArea"`
	TopProducts       []stats.Bucket  `json:"topProducts"`
}

func SummarizeOrders(rows []order.Order, topN int) OrderSummary {
	revenue := stats.SumDecimal(rows, func(o order.Order) decimal.Decimal { return o.ComputedTotal() })

	avg := decimal.Zero
	if len(rows) > 0 {
		avg = revenue.Div(decimal.NewFromInt(int64(len(rows)))).Round(2)
	}

	var items []order.LineItem
	for _, o := range rows {
		items = append(items, o.Items...)
	}

	return OrderSummary{
		TotalRevenue:      revenue,
		OrderCount:        len(rows),
		PendingCount:      countStatus(rows, func(o order.Order) domain.ReviewStatus { return o.Status }, domain.ReviewPending),
		AverageOrderValue: avg,
		ByStatus:          stats.CountBy(rows, func(o order.Order) string { return string(o.Status) }),
		RevenueByRep: stats.TopN(stats.SumBy(rows,
			func(o order.Order) string { return o.SalesRep.Name },
			func(o order.Order) float64 { return stats.Float(o.ComputedTotal()) },
		), topN),
		OrdersByArea: stats.CountBy(rows, func(o order.Order) string { return o.Area }),
		TopProducts: stats.TopN(stats.SumBy(items,
			func(li order.LineItem) string { return li.Name },
			func(li order.LineItem) float64 { return float64(li.Quantity) },
		), topN),
	}
}

type VisitSummary struct {
	VisitCount   int            `json:"visitCount"`
	SamplesGiven int            `json:"samplesGiven"`
	ByStatus     []stats.Bucket `json:"byStatus"`
	ByDoctor     []stats.Bucket `json:"byDoctor"`
	ByRep        []stats.Bucket `json:"byRep"`
}

func SummarizeVisits(rows []visit.Visit, topN int) VisitSummary {
	return VisitSummary{
		VisitCount:   len(rows),
		SamplesGiven: int(stats.Sum(rows, func(v visit.Visit) float64 { return float64(v.SampleCount()) })),
		ByStatus:     stats.CountBy(rows, func(v visit.Visit) string { return string(v.Status) }),
		ByDoctor:     stats.TopN(stats.CountBy(rows, func(v visit.Visit) string { return v.Doctor.Name }), topN),
		ByRep:        stats.TopN(stats.CountBy(rows, func(v visit.Visit) string { return v.Rep.Name }), topN),
	}
}

type SampleRequestSummary struct {
	RequestCount      int            `json:"requestCount"`
	TotalQuantity     int            `json:"totalQuantity"`
	PendingCount      int            `json:"pendingCount"`
	ByStatus          []stats.Bucket `json:"byStatus"`
	QuantityByProduct []stats.Bucket `json:"quantityByProduct"`
}

func SummarizeSampleRequests(rows []sample.Request, topN int) SampleRequestSummary {
	return SampleRequestSummary{
		RequestCount:  len(rows),
		TotalQuantity: int(stats.Sum(rows, func(r sample.Request) float64 { return float64(r.Quantity) })),
		PendingCount:  countStatus(rows, func(r sample.Request) domain.ReviewStatus { return r.Status }, domain.ReviewPending),
		ByStatus:      stats.CountBy(rows, func(r sample.Request) string { return string(r.Status) }),
		QuantityByProduct: stats.TopN(stats.SumBy(rows,
			func(r sample.Request) string { return r.Product.Name },
			func(r sample.Request) float64 { return float64(r.Quantity) },
		), topN),
	}
}

type MarketingSummary struct {
	ActivityCount int             `json:"activityCount"`
	TotalBudget   decimal.Decimal `json:"totalBudget"`
	ApprovedShare float64         `json:"approvedShare"`
	ByStatus      []stats.Bucket  `json:"byStatus"`
	BudgetByType  []stats.Bucket  `json:"budgetByType"`
}

func SummarizeMarketing(rows []marketing.Activity, topN int) MarketingSummary {
	approved := countStatus(rows, func(a marketing.Activity) domain.ReviewStatus { return a.Status }, domain.ReviewApproved)
	return MarketingSummary{
		ActivityCount: len(rows),
		TotalBudget:   stats.SumDecimal(rows, func(a marketing.Activity) decimal.Decimal { return a.Cost }),
		ApprovedShare: stats.Percent(float64(approved), float64(len(rows))),
		ByStatus:      stats.CountBy(rows, func(a marketing.Activity) string { return string(a.Status) }),
		BudgetByType: stats.TopN(stats.SumBy(rows,
			func(a marketing.Activity) string { return a.ActivityType },
			func(a marketing.Activity) float64 { return stats.Float(a.Cost) },
		), topN),
	}
}

type DoctorSummary struct {
	DoctorCount int            `json:"doctorCount"`
	BySpecialty []stats.Bucket `json:"bySpecialty"`
	ByArea      []stats.Bucket `json:"byArea"`
}

func SummarizeDoctors(rows []doctor.Doctor, topN int) DoctorSummary {
	return DoctorSummary{
		DoctorCount: len(rows),
		BySpecialty: stats.TopN(stats.CountBy(rows, func(d doctor.Doctor) string { return d.Specialty }), topN),
		ByArea:      stats.TopN(stats.CountBy(rows, func(d doctor.Doctor) string { return d.Area }), topN),
	}
}

type PharmacySummary struct {
	PharmacyCount int            `json:"pharmacyCount"`
	ByArea        []stats.Bucket `json:"byArea"`
}

func SummarizePharmacies(rows []pharmacy.Pharmacy, topN int) PharmacySummary {
	return PharmacySummary{
		PharmacyCount: len(rows),
		ByArea:        stats.TopN(stats.CountBy(rows, func(p pharmacy.Pharmacy) string { return p.Area }), topN),
	}
}

type ProductSummary struct {
	ProductCount int             `json:"productCount"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	ByLine       []stats.Bucket  `json:"byLine"`
}

func SummarizeProducts(rows []product.Product, topN int) ProductSummary {
	avg := decimal.Zero
	if len(rows) > 0 {
		total := stats.SumDecimal(rows, func(p product.Product) decimal.Decimal { return p.Price })
		avg = total.Div(decimal.NewFromInt(int64(len(rows)))).Round(2)
	}
	return ProductSummary{
		ProductCount: len(rows),
		AveragePrice: avg,
		ByLine:       stats.TopN(stats.CountBy(rows, func(p product.Product) string { return p.Line }), topN),
	}
}

type AdminSummary struct {
	AdminCount  int            `json:"adminCount"`
	ActiveCount int            `json:"activeCount"`
	ByRole      []stats.Bucket `json:"byRole"`
}

func SummarizeAdmins(rows []admin.Admin) AdminSummary {
	active := 0
	for _, a := range rows {
		if a.IsActive {
			active++
		}
	}
	return AdminSummary{
		AdminCount:  len(rows),
		ActiveCount: active,
		ByRole: stats.CountBy(rows, func(a admin.Admin) string {
			if r, err := domain.ParseRole(a.Role); err == nil {
				return string(r)
			}
			return a.Role
		}),
	}
}

func countStatus[T any](rows []T, status func(T) domain.ReviewStatus, want domain.ReviewStatus) int {
	n := 0
	for _, r := range rows {
		if status(r) == want {
			n++
		}
	}
	return n
}

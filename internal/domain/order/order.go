package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

type Order struct {
	ID         string              `json:"id"`
	SalesRep   domain.Ref          `json:"salesRep"`
	Pharmacy   domain.Ref          `json:"pharmacy"`
	Area       string              `json:"area,omitempty"`
	Items      []LineItem          `json:"products"`
	TotalValue decimal.Decimal     `json:"totalOrderValue"`
	Status     domain.ReviewStatus `json:"status"`
	OrderDate  time.Time           `json:"orderDate"`
	CreatedAt  time.Time           `json:"createdAt"`
}

type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (li LineItem) Total() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ComputedTotal sums the line totals. It is what the dashboard displays;
// TotalValue is the upstream's figure and should match it.
func (o *Order) ComputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Total())
	}
	return total
}

// TotalMismatch reports whether the upstream total disagrees with the sum
// of the line items.
func (o *Order) TotalMismatch() bool {
	return !o.TotalValue.Equal(o.ComputedTotal())
}

func (o *Order) CanTransitionTo(next domain.ReviewStatus) error {
	return domain.ReviewTransition(o.Status, next)
}

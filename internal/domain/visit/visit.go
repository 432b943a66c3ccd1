package visit

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

type Visit struct {
	ID        string               `json:"id"`
	Rep       domain.Ref           `json:"medicalRep"`
	Doctor    domain.Ref           `json:"doctor"`
	Specialty string               `json:"specialty,omitempty"`
	Area      string               `json:"area,omitempty"`
	VisitDate time.Time            `json:"visitDate"`
	Products  []Product            `json:"products"`
	Notes     string               `json:"notes,omitempty"`
	Status    domain.BookingStatus `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Product is one product presented during a visit, with the number of
// samples left with the doctor.
type Product struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Samples   int    `json:"samplesCount"`
	Message   string `json:"messageId,omitempty"`
}

// SampleCount is the total samples handed out during the visit.
func (v *Visit) SampleCount() int {
	n := 0
	for _, p := range v.Products {
		n += p.Samples
	}
	return n
}

type CreateVisitCommand struct {
	DoctorID  string           `json:"doctorId" validate:"required"`
	VisitDate time.Time        `json:"visitDate" validate:"required"`
	Products  []ProductCommand `json:"products" validate:"required,min=1,dive"`
	Notes     string           `json:"notes" validate:"omitempty,max=1000"`
}

type ProductCommand struct {
	ProductID string `json:"productId" validate:"required"`
	Samples   int    `json:"samplesCount" validate:"gte=0,lte=1000"`
	Message   string `json:"messageId" validate:"omitempty,max=64"`
}

package sample

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

// Request is a medical rep's request for product samples to hand to a
// doctor.
type Request struct {
	ID           string              `json:"id"`
	MedicalRep   domain.Ref          `json:"medicalRep"`
	Doctor       domain.Ref          `json:"doctor"`
	Product      domain.Ref          `json:"product"`
	Quantity     int                 `json:"quantity"`
	RequestDate  time.Time           `json:"requestDate"`
	DeliveryDate *time.Time          `json:"deliveryDate,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	Status       domain.ReviewStatus `json:"status"`
	CreatedAt    time.Time           `json:"createdAt"`
}

func (r *Request) CanTransitionTo(next domain.ReviewStatus) error {
	return domain.ReviewTransition(r.Status, next)
}

type CreateRequestCommand struct {
	DoctorID     string     `json:"doctorId" validate:"required"`
	ProductID    string     `json:"productId" validate:"required"`
	Quantity     int        `json:"quantity" validate:"required,gt=0,lte=10000"`
	RequestDate  time.Time  `json:"requestDate" validate:"required"`
	DeliveryDate *time.Time `json:"deliveryDate" validate:"omitempty"`
	Notes        string     `json:"notes" validate:"omitempty,max=1000"`
}

package marketing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

// Activity is a request to fund a marketing activity (conference, lecture,
// sponsorship) with a doctor.
type Activity struct {
	ID           string              `json:"id"`
	MedicalRep   domain.Ref          `json:"medicalRep"`
	Doctor       domain.Ref          `json:"doctor"`
	ActivityType string              `json:"activityType"`
	RequestDate  time.Time           `json:"requestDate"`
	ActivityDate time.Time           `json:"activityDate"`
	Cost         decimal.Decimal     `json:"cost"`
	Notes        string              `json:"notes,omitempty"`
	Status       domain.ReviewStatus `json:"status"`
	CreatedAt    time.Time           `json:"createdAt"`
}

func (a *Activity) CanTransitionTo(next domain.ReviewStatus) error {
	return domain.ReviewTransition(a.Status, next)
}

type CreateActivityCommand struct {
	DoctorID     string          `json:"doctorId" validate:"required"`
	ActivityType string          `json:"activityType" validate:"required,max=80"`
	RequestDate  time.Time       `json:"requestDate" validate:"required"`
	ActivityDate time.Time       `json:"activityDate" validate:"required,gtefield=RequestDate"`
	Cost         decimal.Decimal `json:"cost"`
	Notes        string          `json:"notes" validate:"omitempty,max=1000"`
}

package doctor

import "time"

type Doctor struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Specialty    string    `json:"specialty"`
	Phone        string    `json:"phone,omitempty"`
	Organization string    `json:"organizationName,omitempty"`
	Area         string    `json:"area"`
	City         string    `json:"city,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	Segment      string    `json:"segment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CreateDoctorCommand struct {
	Name         string `json:"name" validate:"required,max=120"`
	Specialty    string `json:"specialty" validate:"required,max=80"`
	Phone        string `json:"phone" validate:"omitempty,max=20"`
	Organization string `json:"organizationName" validate:"omitempty,max=120"`
	Area         string `json:"area" validate:"required,max=80"`
	City         string `json:"city" validate:"omitempty,max=80"`
	Brand        string `json:"brand" validate:"omitempty,max=80"`
	Segment      string `json:"segment" validate:"omitempty,oneof=A B C"`
}

type UpdateDoctorCommand = CreateDoctorCommand

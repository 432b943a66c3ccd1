package pharmacy

import "time"

type Pharmacy struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Area      string    `json:"area"`
	City      string    `json:"city,omitempty"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreatePharmacyCommand struct {
	Name    string `json:"name" validate:"required,max=120"`
	Area    string `json:"area" validate:"required,max=80"`
	City    string `json:"city" validate:"omitempty,max=80"`
	Address string `json:"address" validate:"omitempty,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
}

type UpdatePharmacyCommand = CreatePharmacyCommand

package admin

import "time"

// Admin is a dashboard account managed by system admins. Role keeps the
// upstream spelling; it is normalized only when a session is created.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         string    `json:"role"`
	TeamArea     string    `json:"teamArea,omitempty"`
	TeamProducts []string  `json:"teamProducts,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CreateAdminCommand struct {
	Username     string   `json:"username" validate:"required,min=3,max=50"`
	Password     string   `json:"password,omitempty" validate:"required,min=8,max=128"`
	FirstName    string   `json:"firstName" validate:"required,max=60"`
	LastName     string   `json:"lastName" validate:"required,max=60"`
	Role         string   `json:"role" validate:"required"`
	TeamArea     string   `json:"teamArea" validate:"omitempty,max=80"`
	TeamProducts []string `json:"teamProducts" validate:"omitempty,dive,required"`
}

// UpdateAdminCommand leaves the password unchanged when it is empty.
type UpdateAdminCommand struct {
	Password     string   `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	FirstName    string   `json:"firstName" validate:"required,max=60"`
	LastName     string   `json:"lastName" validate:"required,max=60"`
	Role         string   `json:"role" validate:"required"`
	TeamArea     string   `json:"teamArea" validate:"omitempty,max=80"`
	TeamProducts []string `json:"teamProducts" validate:"omitempty,dive,required"`
	IsActive     *bool    `json:"isActive,omitempty"`
}

package product

import "github.com/shopspring/decimal"

type Product struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Line        string          `json:"productLine,omitempty"`
	Type        string          `json:"productType,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	CompanyName string          `json:"companyName,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

type CreateProductCommand struct {
	Code        string          `json:"code" validate:"required,max=40"`
	Name        string          `json:"name" validate:"required,max=120"`
	Line        string          `json:"productLine" validate:"omitempty,max=80"`
	Type        string          `json:"productType" validate:"omitempty,max=80"`
	Brand       string          `json:"brand" validate:"omitempty,max=80"`
	CompanyName string          `json:"companyName" validate:"omitempty,max=120"`
	Price       decimal.Decimal `json:"price"`
}

type UpdateProductCommand = CreateProductCommand

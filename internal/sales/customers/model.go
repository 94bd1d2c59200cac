package customers

import "time"

type Customer struct {
	ID               int64     `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Email            *string   `json:"email,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	TaxID            *string   `json:"tax_id,omitempty"`
	PaymentTermsDays int       `json:"payment_terms_days"`
	Address          *string   `json:"address,omitempty"`
	City             *string   `json:"city,omitempty"`
	Country          string    `json:"country"`
	IsActive         bool      `json:"is_active"`
	Notes            *string   `json:"notes,omitempty"`
	CreatedBy        int64     `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

package procurement

import "time"

type LineInput struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"required,gt=0"`
}

type CreatePORequest struct {
	SupplierID  int64       `json:"supplier_id" validate:"required,gt=0"`
	Description *string     `json:"description,omitempty"`
	Currency    string      `json:"currency" validate:"required,len=3"`
	OrderedAt   time.Time   `json:"ordered_at" validate:"required"`
	Lines       []LineInput `json:"lines" validate:"required,min=1,dive"`
}

type ListPORequest struct {
	SupplierID *int64
	Status     *Status
	Limit      int
	Offset     int
}

package quotations

import "time"

type CreateQuotationRequest struct {
	CustomerID int64                    `json:"customer_id" validate:"required,gt=0"`
	QuoteDate  time.Time                `json:"quote_date" validate:"required"`
	ValidUntil time.Time                `json:"valid_until" validate:"required"`
	Currency   string                   `json:"currency" validate:"required,len=3"`
	TaxRate    float64                  `json:"tax_rate" validate:"gte=0,lte=1"`
	Notes      *string                  `json:"notes,omitempty"`
	Lines      []CreateQuotationLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateQuotationLineReq struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"required,gte=0"`
	LineOrder   int     `json:"line_order" validate:"gte=0"`
}

type UpdateQuotationRequest struct {
	QuoteDate  *time.Time                `json:"quote_date,omitempty"`
	ValidUntil *time.Time                `json:"valid_until,omitempty"`
	TaxRate    *float64                  `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	Notes      *string                   `json:"notes,omitempty"`
	Lines      *[]CreateQuotationLineReq `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type ListQuotationsRequest struct {
	CustomerID *int64
	Status     *QuotationStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

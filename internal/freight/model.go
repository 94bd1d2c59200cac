package freight

import "time"

// Kind distinguishes sea and air shipping documents.
type Kind string

const (
	KindBillOfLading Kind = "BL"
	KindAirWaybill   Kind = "AWB"
)

// Status enumerates the document lifecycle.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusIssued   Status = "ISSUED"
	StatusReleased Status = "RELEASED"
)

var transitions = map[Status][]Status{
	StatusDraft:  {StatusIssued},
	StatusIssued: {StatusReleased},
}

// CanTransition reports whether a document may move between two states.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Document is a bill of lading or air waybill tied to a quotation.
type Document struct {
	ID               int64      `json:"id"`
	Kind             Kind       `json:"kind"`
	Number           string     `json:"number"`
	QuotationID      int64      `json:"quotation_id"`
	InvoiceID        *int64     `json:"invoice_id,omitempty"`
	Carrier          string     `json:"carrier"`
	VesselOrFlight   *string    `json:"vessel_or_flight,omitempty"`
	Origin           string     `json:"origin"`
	Destination      string     `json:"destination"`
	CargoDescription *string    `json:"cargo_description,omitempty"`
	Status           Status     `json:"status"`
	IssuedAt         *time.Time `json:"issued_at,omitempty"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	CreatedBy        int64      `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

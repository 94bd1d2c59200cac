package freight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type CreateDocumentRequest struct {
	Kind             Kind    `json:"kind" validate:"required,oneof=BL AWB"`
	Number           string  `json:"number" validate:"required,max=40"`
	QuotationID      int64   `json:"quotation_id" validate:"required,gt=0"`
	InvoiceID        *int64  `json:"invoice_id,omitempty"`
	Carrier          string  `json:"carrier" validate:"required,max=200"`
	VesselOrFlight   *string `json:"vessel_or_flight,omitempty"`
	Origin           string  `json:"origin" validate:"required,max=100"`
	Destination      string  `json:"destination" validate:"required,max=100"`
	CargoDescription *string `json:"cargo_description,omitempty"`
}

// QuotationChecker verifies the quotation a document points at exists.
type QuotationChecker interface {
	Exists(ctx context.Context, quotationID int64) (bool, error)
}

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo       Repository
	quotations QuotationChecker
	audit      AuditPort
	now        func() time.Time
}

func NewService(repo Repository, quotations QuotationChecker, audit AuditPort) *Service {
	return &Service{repo: repo, quotations: quotations, audit: audit, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, fmt.Errorf("%w: freight document %d", httpx.ErrNotFound, id)
		}
		return Document{}, err
	}
	return d, nil
}

func (s *Service) ListByQuotation(ctx context.Context, quotationID int64) ([]Document, error) {
	return s.repo.ListByQuotation(ctx, quotationID)
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]Document, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Create(ctx context.Context, req CreateDocumentRequest, actor shared.Actor) (Document, error) {
	if s.quotations != nil {
		ok, err := s.quotations.Exists(ctx, req.QuotationID)
		if err != nil {
			return Document{}, err
		}
		if !ok {
			return Document{}, fmt.Errorf("%w: quotation %d", httpx.ErrValidation, req.QuotationID)
		}
	}
	id, err := s.repo.Create(ctx, Document{
		Kind:             req.Kind,
		Number:           req.Number,
		QuotationID:      req.QuotationID,
		InvoiceID:        req.InvoiceID,
		Carrier:          req.Carrier,
		VesselOrFlight:   req.VesselOrFlight,
		Origin:           req.Origin,
		Destination:      req.Destination,
		CargoDescription: req.CargoDescription,
		Status:           StatusDraft,
		CreatedBy:        actor.ID,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateDoc) {
			return Document{}, fmt.Errorf("%w: document number %s", httpx.ErrDuplicate, req.Number)
		}
		return Document{}, err
	}
	s.record(ctx, actor, "freight.create", id)
	return s.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req CreateDocumentRequest, actor shared.Actor) (Document, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if existing.Status != StatusDraft {
		return Document{}, fmt.Errorf("%w: only draft documents can be edited", httpx.ErrConflict)
	}
	existing.Carrier = req.Carrier
	existing.VesselOrFlight = req.VesselOrFlight
	existing.Origin = req.Origin
	existing.Destination = req.Destination
	existing.CargoDescription = req.CargoDescription
	existing.InvoiceID = req.InvoiceID
	if err := s.repo.Update(ctx, id, existing); err != nil {
		return Document{}, err
	}
	s.record(ctx, actor, "freight.update", id)
	return s.Get(ctx, id)
}

func (s *Service) Issue(ctx context.Context, id int64, actor shared.Actor) (Document, error) {
	return s.transition(ctx, id, StatusIssued, "freight.issue", actor)
}

func (s *Service) Release(ctx context.Context, id int64, actor shared.Actor) (Document, error) {
	return s.transition(ctx, id, StatusReleased, "freight.release", actor)
}

func (s *Service) transition(ctx context.Context, id int64, to Status, action string, actor shared.Actor) (Document, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if !CanTransition(existing.Status, to) {
		return Document{}, fmt.Errorf("%w: %s -> %s", httpx.ErrConflict, existing.Status, to)
	}
	if err := s.repo.SetStatus(ctx, id, existing.Status, to); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, fmt.Errorf("%w: %s -> %s", httpx.ErrConflict, existing.Status, to)
		}
		return Document{}, err
	}
	s.record(ctx, actor, action, id)
	return s.Get(ctx, id)
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "freight_document",
		EntityID: fmt.Sprintf("%d", id),
		At:       s.now(),
	})
}

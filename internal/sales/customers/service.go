package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type CreateCustomerRequest struct {
	Code             string  `json:"code" validate:"required,max=20"`
	Name             string  `json:"name" validate:"required,max=200"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string `json:"phone,omitempty"`
	TaxID            *string `json:"tax_id,omitempty"`
	PaymentTermsDays int     `json:"payment_terms_days" validate:"gte=0,lte=365"`
	Address          *string `json:"address,omitempty"`
	City             *string `json:"city,omitempty"`
	Country          string  `json:"country" validate:"required,len=2"`
	Notes            *string `json:"notes,omitempty"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: customer %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Create(ctx context.Context, req CreateCustomerRequest, actor shared.Actor) (*Customer, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: code and name are required", httpx.ErrValidation)
	}
	id, err := s.repo.Create(ctx, Customer{
		Code:             req.Code,
		Name:             strings.TrimSpace(req.Name),
		Email:            req.Email,
		Phone:            req.Phone,
		TaxID:            req.TaxID,
		PaymentTermsDays: req.PaymentTermsDays,
		Address:          req.Address,
		City:             req.City,
		Country:          strings.ToUpper(req.Country),
		Notes:            req.Notes,
		CreatedBy:        actor.ID,
	})
	if err != nil {
		if err == ErrAlreadyExists {
			return nil, fmt.Errorf("%w: customer code %s", httpx.ErrDuplicate, req.Code)
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req CreateCustomerRequest) (*Customer, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Name = strings.TrimSpace(req.Name)
	existing.Email = req.Email
	existing.Phone = req.Phone
	existing.TaxID = req.TaxID
	existing.PaymentTermsDays = req.PaymentTermsDays
	existing.Address = req.Address
	existing.City = req.City
	existing.Country = strings.ToUpper(req.Country)
	existing.Notes = req.Notes
	if err := s.repo.Update(ctx, id, *existing); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if err == ErrNotFound {
			return fmt.Errorf("%w: customer %d", httpx.ErrNotFound, id)
		}
		return err
	}
	return nil
}

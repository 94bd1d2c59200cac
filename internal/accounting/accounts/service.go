package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	Code       string      `json:"code" validate:"required"`
	Name       string      `json:"name" validate:"required"`
	Type       AccountType `json:"type" validate:"required"`
	ParentCode *string     `json:"parent_code"`
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return Account{}, fmt.Errorf("%w: code and name are required", httpx.ErrValidation)
	}
	if !ValidType(input.Type) {
		return Account{}, fmt.Errorf("%w: unknown account type %q", httpx.ErrValidation, input.Type)
	}
	if input.ParentCode != nil {
		parent, err := s.repo.GetByCode(ctx, *input.ParentCode)
		if err != nil {
			return Account{}, fmt.Errorf("%w: parent account %s", httpx.ErrValidation, *input.ParentCode)
		}
		if parent.Type != input.Type {
			return Account{}, fmt.Errorf("%w: parent account type mismatch", httpx.ErrValidation)
		}
	}
	account, err := s.repo.Create(ctx, Account{
		Code:       input.Code,
		Name:       input.Name,
		Type:       input.Type,
		ParentCode: input.ParentCode,
	})
	if err != nil {
		if err == shared.ErrDuplicateCode {
			return Account{}, fmt.Errorf("%w: account code %s", httpx.ErrDuplicate, input.Code)
		}
		return Account{}, err
	}
	return account, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (Account, error) {
	account, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if err == shared.ErrAccountNotFound {
			return Account{}, fmt.Errorf("%w: account %s", httpx.ErrNotFound, code)
		}
		return Account{}, err
	}
	return account, nil
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Tree arranges the flat chart into parent/child nodes ordered by code.
func (s *Service) Tree(ctx context.Context) ([]TreeNode, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(accounts), nil
}

func (s *Service) Deactivate(ctx context.Context, code string) error {
	if err := s.repo.SetActive(ctx, code, false); err != nil {
		if err == shared.ErrAccountNotFound {
			return fmt.Errorf("%w: account %s", httpx.ErrNotFound, code)
		}
		return err
	}
	return nil
}

// TreeNode is an account with its direct children.
type TreeNode struct {
	Account
	Children []TreeNode `json:"children,omitempty"`
}

// BuildTree nests accounts by ParentCode. Orphans (missing parents) are
// promoted to roots so a partial chart still renders.
func BuildTree(accounts []Account) []TreeNode {
	byCode := make(map[string][]Account)
	known := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		known[a.Code] = true
	}
	var roots []Account
	for _, a := range accounts {
		if a.ParentCode != nil && known[*a.ParentCode] {
			byCode[*a.ParentCode] = append(byCode[*a.ParentCode], a)
			continue
		}
		roots = append(roots, a)
	}
	var build func(list []Account) []TreeNode
	build = func(list []Account) []TreeNode {
		nodes := make([]TreeNode, 0, len(list))
		for _, a := range list {
			nodes = append(nodes, TreeNode{Account: a, Children: build(byCode[a.Code])})
		}
		return nodes
	}
	return build(roots)
}

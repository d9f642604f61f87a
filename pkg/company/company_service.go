package company

import (
	"context"
	"fmt"
	"strings"

	"github.com/NescAdmin/nesc-planering/internal/utils"
)

type Service interface {
	Create(ctx context.Context, company Company) (Company, error)
	Get(ctx context.Context, id string) (Company, error)
	GetAll(ctx context.Context) ([]Company, error)
}

type ServiceImpl struct {
	repo  Repo
	clock utils.Clock
}

func NewService(repo Repo, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, clock: clock}
}

func (s *ServiceImpl) Create(ctx context.Context, company Company) (Company, error) {
	if strings.TrimSpace(company.Name) == "" {
		return Company{}, fmt.Errorf("company name must not be empty")
	}
	company.CreatedAt = s.clock.Now()
	id, err := s.repo.Create(ctx, company)
	if err != nil {
		return Company{}, err
	}
	company.Id = id
	return company, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (Company, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) GetAll(ctx context.Context) ([]Company, error) {
	return s.repo.GetAll(ctx)
}

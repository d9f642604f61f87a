package company

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

type StubCompanyRepo struct {
	data map[string]Company
}

func NewStubCompanyRepo() *StubCompanyRepo {
	return &StubCompanyRepo{data: map[string]Company{}}
}

func (s *StubCompanyRepo) Create(ctx context.Context, company Company) (string, error) {
	company.Id = uuid.New().String()
	s.data[company.Id] = company
	return company.Id, nil
}

func (s *StubCompanyRepo) Get(ctx context.Context, id string) (Company, error) {
	company, ok := s.data[id]
	if !ok {
		return Company{}, ErrCompanyNotFound
	}
	return company, nil
}

func (s *StubCompanyRepo) GetAll(ctx context.Context) ([]Company, error) {
	companies := make([]Company, 0, len(s.data))
	for _, c := range s.data {
		companies = append(companies, c)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
	return companies, nil
}

package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NescAdmin/nesc-planering/pkg/company"
)

var ErrInvalidProjectData = errors.New("invalid project data")

type Service interface {
	Create(ctx context.Context, p Project) (Project, error)
	Get(ctx context.Context, id string) (Project, error)
	GetAll(ctx context.Context, includeArchived bool) ([]Project, error)
	Update(ctx context.Context, p Project) (Project, error)
	Delete(ctx context.Context, id string) error

	AddWorkItem(ctx context.Context, item WorkItem) (WorkItem, error)
	GetWorkItem(ctx context.Context, id string) (WorkItem, error)
	GetWorkItems(ctx context.Context, projectId string) ([]WorkItem, error)
	UpdateWorkItem(ctx context.Context, item WorkItem) (WorkItem, error)
	RemoveWorkItem(ctx context.Context, projectId string, id string) error

	// Scope returns the project's scope in minutes (zero means unlimited).
	Scope(ctx context.Context, projectId string) (int64, error)
}

type ServiceImpl struct {
	repo Repo
}

func NewService(repo Repo) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) Create(ctx context.Context, p Project) (Project, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Project{}, fmt.Errorf("failed to get current company: %w", err)
	}
	if err := validateProject(p); err != nil {
		return Project{}, err
	}
	id, err := s.repo.Create(ctx, companyId, p)
	if err != nil {
		return Project{}, err
	}
	p.Id = id
	return p, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (Project, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Project{}, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.Get(ctx, companyId, id)
}

func (s *ServiceImpl) GetAll(ctx context.Context, includeArchived bool) ([]Project, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.GetAll(ctx, companyId, includeArchived)
}

func (s *ServiceImpl) Update(ctx context.Context, p Project) (Project, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Project{}, fmt.Errorf("failed to get current company: %w", err)
	}
	if err := validateProject(p); err != nil {
		return Project{}, err
	}
	updated, err := s.repo.Update(ctx, companyId, p)
	if err != nil {
		return Project{}, err
	}
	if !updated {
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id string) error {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current company: %w", err)
	}
	deleted, err := s.repo.Delete(ctx, companyId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrProjectNotFound
	}
	return nil
}

func (s *ServiceImpl) AddWorkItem(ctx context.Context, item WorkItem) (WorkItem, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return WorkItem{}, fmt.Errorf("failed to get current company: %w", err)
	}
	if err := validateWorkItem(item); err != nil {
		return WorkItem{}, err
	}
	if _, err := s.repo.Get(ctx, companyId, item.ProjectId); err != nil {
		return WorkItem{}, err
	}
	id, err := s.repo.CreateWorkItem(ctx, companyId, item)
	if err != nil {
		return WorkItem{}, err
	}
	item.Id = id
	return item, nil
}

func (s *ServiceImpl) GetWorkItem(ctx context.Context, id string) (WorkItem, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return WorkItem{}, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.GetWorkItem(ctx, companyId, id)
}

func (s *ServiceImpl) GetWorkItems(ctx context.Context, projectId string) ([]WorkItem, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.GetWorkItems(ctx, companyId, projectId)
}

func (s *ServiceImpl) UpdateWorkItem(ctx context.Context, item WorkItem) (WorkItem, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return WorkItem{}, fmt.Errorf("failed to get current company: %w", err)
	}
	if err := validateWorkItem(item); err != nil {
		return WorkItem{}, err
	}
	updated, err := s.repo.UpdateWorkItem(ctx, companyId, item)
	if err != nil {
		return WorkItem{}, err
	}
	if !updated {
		return WorkItem{}, ErrWorkItemNotFound
	}
	return item, nil
}

func (s *ServiceImpl) RemoveWorkItem(ctx context.Context, projectId string, id string) error {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current company: %w", err)
	}
	deleted, err := s.repo.DeleteWorkItem(ctx, companyId, projectId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrWorkItemNotFound
	}
	return nil
}

func (s *ServiceImpl) Scope(ctx context.Context, projectId string) (int64, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current company: %w", err)
	}
	p, err := s.repo.Get(ctx, companyId, projectId)
	if err != nil {
		return 0, err
	}
	items, err := s.repo.GetWorkItems(ctx, companyId, projectId)
	if err != nil {
		return 0, err
	}
	return ScopeMinutes(p, items), nil
}

func validateProject(p Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidProjectData)
	}
	if p.BudgetMinutes < 0 {
		return fmt.Errorf("%w: budget minutes must not be negative", ErrInvalidProjectData)
	}
	return nil
}

func validateWorkItem(item WorkItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidProjectData)
	}
	if item.ProjectId == "" {
		return fmt.Errorf("%w: project id is required", ErrInvalidProjectData)
	}
	if item.TotalMinutes < 0 {
		return fmt.Errorf("%w: total minutes must not be negative", ErrInvalidProjectData)
	}
	return nil
}

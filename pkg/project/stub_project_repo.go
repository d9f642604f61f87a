package project

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

type StubProjectRepo struct {
	projects map[string]Project
	items    map[string]WorkItem
}

func NewStubProjectRepo() *StubProjectRepo {
	return &StubProjectRepo{
		projects: map[string]Project{},
		items:    map[string]WorkItem{},
	}
}

func (s *StubProjectRepo) Create(ctx context.Context, companyId string, p Project) (string, error) {
	p.Id = uuid.New().String()
	s.projects[p.Id] = p
	return p.Id, nil
}

func (s *StubProjectRepo) Get(ctx context.Context, companyId string, id string) (Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *StubProjectRepo) GetAll(ctx context.Context, companyId string, includeArchived bool) ([]Project, error) {
	projects := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		if p.Archived && !includeArchived {
			continue
		}
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

func (s *StubProjectRepo) Update(ctx context.Context, companyId string, p Project) (bool, error) {
	if _, ok := s.projects[p.Id]; !ok {
		return false, nil
	}
	s.projects[p.Id] = p
	return true, nil
}

func (s *StubProjectRepo) Delete(ctx context.Context, companyId string, id string) (bool, error) {
	if _, ok := s.projects[id]; !ok {
		return false, nil
	}
	delete(s.projects, id)
	for itemId, item := range s.items {
		if item.ProjectId == id {
			delete(s.items, itemId)
		}
	}
	return true, nil
}

func (s *StubProjectRepo) CreateWorkItem(ctx context.Context, companyId string, item WorkItem) (string, error) {
	item.Id = uuid.New().String()
	s.items[item.Id] = item
	return item.Id, nil
}

func (s *StubProjectRepo) GetWorkItem(ctx context.Context, companyId string, id string) (WorkItem, error) {
	item, ok := s.items[id]
	if !ok {
		return WorkItem{}, ErrWorkItemNotFound
	}
	return item, nil
}

func (s *StubProjectRepo) GetWorkItems(ctx context.Context, companyId string, projectId string) ([]WorkItem, error) {
	items := make([]WorkItem, 0)
	for _, item := range s.items {
		if item.ProjectId == projectId {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (s *StubProjectRepo) UpdateWorkItem(ctx context.Context, companyId string, item WorkItem) (bool, error) {
	existing, ok := s.items[item.Id]
	if !ok {
		return false, nil
	}
	item.ProjectId = existing.ProjectId
	s.items[item.Id] = item
	return true, nil
}

func (s *StubProjectRepo) DeleteWorkItem(ctx context.Context, companyId string, projectId string, id string) (bool, error) {
	item, ok := s.items[id]
	if !ok || item.ProjectId != projectId {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

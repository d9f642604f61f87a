package allocation

import (
	"context"
	"sort"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/google/uuid"
)

// StubAllocationRepo is the in-memory Repository used by tests. The
// WorkItemProjects map stands in for the work_items join and must be seeded
// for unit allocations to resolve their project.
type StubAllocationRepo struct {
	percents map[string]Percent
	units    map[string]Unit
	adhocs   map[string]Adhoc

	WorkItemProjects map[string]string
}

func NewStubAllocationRepo() *StubAllocationRepo {
	return &StubAllocationRepo{
		percents:         map[string]Percent{},
		units:            map[string]Unit{},
		adhocs:           map[string]Adhoc{},
		WorkItemProjects: map[string]string{},
	}
}

// WithTransaction snapshots the maps so an error from fn rolls the stub back,
// mirroring the sql implementation's rollback.
func (s *StubAllocationRepo) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	percents := cloneMap(s.percents)
	units := cloneMap(s.units)
	adhocs := cloneMap(s.adhocs)

	if err := fn(s); err != nil {
		s.percents = percents
		s.units = units
		s.adhocs = adhocs
		return err
	}
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func overlaps(start, end, from, to time.Time) bool {
	return !start.After(period.Date(to)) && !end.Before(period.Date(from))
}

func wanted(personIds []string) map[string]bool {
	if len(personIds) == 0 {
		return nil
	}
	m := make(map[string]bool, len(personIds))
	for _, id := range personIds {
		m[id] = true
	}
	return m
}

func (s *StubAllocationRepo) StorePercent(ctx context.Context, companyId string, a Percent) (string, error) {
	a.Id = uuid.New().String()
	s.percents[a.Id] = a
	return a.Id, nil
}

func (s *StubAllocationRepo) GetPercent(ctx context.Context, companyId string, id string) (Percent, error) {
	a, ok := s.percents[id]
	if !ok {
		return Percent{}, ErrAllocationNotFound
	}
	return a, nil
}

func (s *StubAllocationRepo) UpdatePercent(ctx context.Context, companyId string, a Percent) (bool, error) {
	if _, ok := s.percents[a.Id]; !ok {
		return false, nil
	}
	s.percents[a.Id] = a
	return true, nil
}

func (s *StubAllocationRepo) DeletePercent(ctx context.Context, companyId string, id string) (bool, error) {
	if _, ok := s.percents[id]; !ok {
		return false, nil
	}
	delete(s.percents, id)
	return true, nil
}

func (s *StubAllocationRepo) FindPercentForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Percent, error) {
	want := wanted(personIds)
	out := make([]Percent, 0)
	for _, a := range s.percents {
		if want != nil && !want[a.PersonId] {
			continue
		}
		if overlaps(a.StartDate, a.EndDate, from, to) {
			out = append(out, a)
		}
	}
	sortPercent(out)
	return out, nil
}

func (s *StubAllocationRepo) FindPercentByProject(ctx context.Context, companyId string, projectId string) ([]Percent, error) {
	out := make([]Percent, 0)
	for _, a := range s.percents {
		if a.ProjectId == projectId {
			out = append(out, a)
		}
	}
	sortPercent(out)
	return out, nil
}

func (s *StubAllocationRepo) StoreUnit(ctx context.Context, companyId string, a Unit) (string, error) {
	a.Id = uuid.New().String()
	a.ProjectId = s.WorkItemProjects[a.WorkItemId]
	s.units[a.Id] = a
	return a.Id, nil
}

func (s *StubAllocationRepo) GetUnit(ctx context.Context, companyId string, id string) (Unit, error) {
	a, ok := s.units[id]
	if !ok {
		return Unit{}, ErrAllocationNotFound
	}
	a.ProjectId = s.WorkItemProjects[a.WorkItemId]
	return a, nil
}

func (s *StubAllocationRepo) UpdateUnit(ctx context.Context, companyId string, a Unit) (bool, error) {
	if _, ok := s.units[a.Id]; !ok {
		return false, nil
	}
	s.units[a.Id] = a
	return true, nil
}

func (s *StubAllocationRepo) DeleteUnit(ctx context.Context, companyId string, id string) (bool, error) {
	if _, ok := s.units[id]; !ok {
		return false, nil
	}
	delete(s.units, id)
	return true, nil
}

func (s *StubAllocationRepo) FindUnitForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Unit, error) {
	want := wanted(personIds)
	out := make([]Unit, 0)
	for _, a := range s.units {
		if want != nil && !want[a.PersonId] {
			continue
		}
		if overlaps(a.StartDate, a.EndDate, from, to) {
			a.ProjectId = s.WorkItemProjects[a.WorkItemId]
			out = append(out, a)
		}
	}
	sortUnit(out)
	return out, nil
}

func (s *StubAllocationRepo) FindUnitByProject(ctx context.Context, companyId string, projectId string) ([]Unit, error) {
	out := make([]Unit, 0)
	for _, a := range s.units {
		if s.WorkItemProjects[a.WorkItemId] != projectId {
			continue
		}
		a.ProjectId = projectId
		out = append(out, a)
	}
	sortUnit(out)
	return out, nil
}

func (s *StubAllocationRepo) FindUnitByWorkItem(ctx context.Context, companyId string, workItemId string) ([]Unit, error) {
	out := make([]Unit, 0)
	for _, a := range s.units {
		if a.WorkItemId != workItemId {
			continue
		}
		a.ProjectId = s.WorkItemProjects[a.WorkItemId]
		out = append(out, a)
	}
	sortUnit(out)
	return out, nil
}

func (s *StubAllocationRepo) StoreAdhoc(ctx context.Context, companyId string, a Adhoc) (string, error) {
	a.Id = uuid.New().String()
	s.adhocs[a.Id] = a
	return a.Id, nil
}

func (s *StubAllocationRepo) GetAdhoc(ctx context.Context, companyId string, id string) (Adhoc, error) {
	a, ok := s.adhocs[id]
	if !ok {
		return Adhoc{}, ErrAllocationNotFound
	}
	return a, nil
}

func (s *StubAllocationRepo) UpdateAdhoc(ctx context.Context, companyId string, a Adhoc) (bool, error) {
	if _, ok := s.adhocs[a.Id]; !ok {
		return false, nil
	}
	s.adhocs[a.Id] = a
	return true, nil
}

func (s *StubAllocationRepo) DeleteAdhoc(ctx context.Context, companyId string, id string) (bool, error) {
	if _, ok := s.adhocs[id]; !ok {
		return false, nil
	}
	delete(s.adhocs, id)
	return true, nil
}

func (s *StubAllocationRepo) FindAdhocForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Adhoc, error) {
	want := wanted(personIds)
	out := make([]Adhoc, 0)
	for _, a := range s.adhocs {
		if want != nil && !want[a.PersonId] {
			continue
		}
		if overlaps(a.StartDate, a.EndDate, from, to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].Id < out[j].Id
	})
	return out, nil
}

func (s *StubAllocationRepo) HasAllocationsForPerson(ctx context.Context, companyId string, personId string, from time.Time) (bool, error) {
	from = period.Date(from)
	for _, a := range s.percents {
		if a.PersonId == personId && !a.EndDate.Before(from) {
			return true, nil
		}
	}
	for _, a := range s.units {
		if a.PersonId == personId && !a.EndDate.Before(from) {
			return true, nil
		}
	}
	for _, a := range s.adhocs {
		if a.PersonId == personId && !a.EndDate.Before(from) {
			return true, nil
		}
	}
	return false, nil
}

func sortPercent(allocations []Percent) {
	sort.Slice(allocations, func(i, j int) bool {
		if !allocations[i].StartDate.Equal(allocations[j].StartDate) {
			return allocations[i].StartDate.Before(allocations[j].StartDate)
		}
		return allocations[i].Id < allocations[j].Id
	})
}

func sortUnit(allocations []Unit) {
	sort.Slice(allocations, func(i, j int) bool {
		if !allocations[i].StartDate.Equal(allocations[j].StartDate) {
			return allocations[i].StartDate.Before(allocations[j].StartDate)
		}
		return allocations[i].Id < allocations[j].Id
	})
}

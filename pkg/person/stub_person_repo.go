package person

import (
	"context"
	"sort"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/google/uuid"
)

type StubPersonRepo struct {
	people  map[string]Person
	timeOff map[string]TimeOff
}

func NewStubPersonRepo() *StubPersonRepo {
	return &StubPersonRepo{
		people:  map[string]Person{},
		timeOff: map[string]TimeOff{},
	}
}

func (s *StubPersonRepo) Create(ctx context.Context, companyId string, p Person) (string, error) {
	p.Id = uuid.New().String()
	s.people[p.Id] = p
	return p.Id, nil
}

func (s *StubPersonRepo) Get(ctx context.Context, companyId string, id string) (Person, error) {
	p, ok := s.people[id]
	if !ok {
		return Person{}, ErrPersonNotFound
	}
	return p, nil
}

func (s *StubPersonRepo) GetAll(ctx context.Context, companyId string) ([]Person, error) {
	people := make([]Person, 0, len(s.people))
	for _, p := range s.people {
		people = append(people, p)
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	return people, nil
}

func (s *StubPersonRepo) Update(ctx context.Context, companyId string, p Person) (bool, error) {
	if _, ok := s.people[p.Id]; !ok {
		return false, nil
	}
	s.people[p.Id] = p
	return true, nil
}

func (s *StubPersonRepo) Delete(ctx context.Context, companyId string, id string) (bool, error) {
	if _, ok := s.people[id]; !ok {
		return false, nil
	}
	delete(s.people, id)
	return true, nil
}

func (s *StubPersonRepo) CreateTimeOff(ctx context.Context, companyId string, off TimeOff) (string, error) {
	off.Id = uuid.New().String()
	s.timeOff[off.Id] = off
	return off.Id, nil
}

func (s *StubPersonRepo) DeleteTimeOff(ctx context.Context, companyId string, personId string, id string) (bool, error) {
	off, ok := s.timeOff[id]
	if !ok || off.PersonId != personId {
		return false, nil
	}
	delete(s.timeOff, id)
	return true, nil
}

func (s *StubPersonRepo) GetTimeOff(ctx context.Context, companyId string, personId string, from, to time.Time) ([]TimeOff, error) {
	byPerson, err := s.GetTimeOffForPeople(ctx, companyId, []string{personId}, from, to)
	if err != nil {
		return nil, err
	}
	return byPerson[personId], nil
}

func (s *StubPersonRepo) GetTimeOffForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) (map[string][]TimeOff, error) {
	wanted := make(map[string]bool, len(personIds))
	for _, id := range personIds {
		wanted[id] = true
	}
	result := make(map[string][]TimeOff)
	for _, off := range s.timeOff {
		if !wanted[off.PersonId] {
			continue
		}
		if off.StartDate.After(period.Date(to)) || off.EndDate.Before(period.Date(from)) {
			continue
		}
		result[off.PersonId] = append(result[off.PersonId], off)
	}
	for id := range result {
		offs := result[id]
		sort.Slice(offs, func(i, j int) bool { return offs[i].StartDate.Before(offs[j].StartDate) })
		result[id] = offs
	}
	return result, nil
}

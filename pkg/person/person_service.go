package person

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/utils"
	"github.com/NescAdmin/nesc-planering/pkg/company"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidPersonData  = errors.New("invalid person data")
	ErrInvalidTimeOffData = errors.New("invalid time off data")
	// ErrPersonInUse is returned when deleting a person that still has
	// allocations today or later.
	ErrPersonInUse = errors.New("person has future allocations")
)

// HasAllocationsFunc reports whether a person has any allocation ending on
// or after the given date. Wired from the allocation store.
type HasAllocationsFunc func(ctx context.Context, personId string, from time.Time) (bool, error)

type Service interface {
	Create(ctx context.Context, p Person) (Person, error)
	Get(ctx context.Context, id string) (Person, error)
	GetAll(ctx context.Context) ([]Person, error)
	Update(ctx context.Context, p Person) (Person, error)
	Delete(ctx context.Context, id string) error

	AddTimeOff(ctx context.Context, off TimeOff) (TimeOff, error)
	RemoveTimeOff(ctx context.Context, personId string, id string) error
	GetTimeOff(ctx context.Context, personId string, from, to time.Time) ([]TimeOff, error)
}

type ServiceImpl struct {
	repo           Repo
	clock          utils.Clock
	hasAllocations HasAllocationsFunc
}

func NewService(repo Repo, clock utils.Clock, hasAllocations HasAllocationsFunc) *ServiceImpl {
	return &ServiceImpl{repo: repo, clock: clock, hasAllocations: hasAllocations}
}

func (s *ServiceImpl) Create(ctx context.Context, p Person) (Person, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Person{}, fmt.Errorf("failed to get current company: %w", err)
	}
	applyDefaults(&p)
	if err := validatePerson(p); err != nil {
		return Person{}, err
	}
	now := s.clock.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	id, err := s.repo.Create(ctx, companyId, p)
	if err != nil {
		return Person{}, err
	}
	p.Id = id
	log.Debugf("created person %s (%s)", p.Name, p.Id)
	return p, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (Person, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Person{}, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.Get(ctx, companyId, id)
}

func (s *ServiceImpl) GetAll(ctx context.Context) ([]Person, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.GetAll(ctx, companyId)
}

func (s *ServiceImpl) Update(ctx context.Context, p Person) (Person, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Person{}, fmt.Errorf("failed to get current company: %w", err)
	}
	applyDefaults(&p)
	if err := validatePerson(p); err != nil {
		return Person{}, err
	}
	p.UpdatedAt = s.clock.Now()
	updated, err := s.repo.Update(ctx, companyId, p)
	if err != nil {
		return Person{}, err
	}
	if !updated {
		return Person{}, ErrPersonNotFound
	}
	return p, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id string) error {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current company: %w", err)
	}
	inUse, err := s.hasAllocations(ctx, id, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to check person allocations: %w", err)
	}
	if inUse {
		return ErrPersonInUse
	}
	deleted, err := s.repo.Delete(ctx, companyId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPersonNotFound
	}
	return nil
}

func (s *ServiceImpl) AddTimeOff(ctx context.Context, off TimeOff) (TimeOff, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return TimeOff{}, fmt.Errorf("failed to get current company: %w", err)
	}
	if off.Kind == "" {
		off.Kind = TimeOffVacation
	}
	if err := validateTimeOff(off); err != nil {
		return TimeOff{}, err
	}
	if _, err := s.repo.Get(ctx, companyId, off.PersonId); err != nil {
		return TimeOff{}, err
	}
	id, err := s.repo.CreateTimeOff(ctx, companyId, off)
	if err != nil {
		return TimeOff{}, err
	}
	off.Id = id
	return off, nil
}

func (s *ServiceImpl) RemoveTimeOff(ctx context.Context, personId string, id string) error {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current company: %w", err)
	}
	deleted, err := s.repo.DeleteTimeOff(ctx, companyId, personId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTimeOffNotFound
	}
	return nil
}

func (s *ServiceImpl) GetTimeOff(ctx context.Context, personId string, from, to time.Time) ([]TimeOff, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.GetTimeOff(ctx, companyId, personId, from, to)
}

func applyDefaults(p *Person) {
	if p.WorkdayStart == "" {
		p.WorkdayStart = "08:00"
	}
	if p.WorkdayEnd == "" {
		p.WorkdayEnd = "17:00"
	}
}

func validatePerson(p Person) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidPersonData)
	}
	start, err := parseClock(p.WorkdayStart)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPersonData, err)
	}
	end, err := parseClock(p.WorkdayEnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPersonData, err)
	}
	if end <= start {
		return fmt.Errorf("%w: workday must end after it starts", ErrInvalidPersonData)
	}
	if p.LunchMinutes < 0 {
		return fmt.Errorf("%w: lunch minutes must not be negative", ErrInvalidPersonData)
	}
	return nil
}

func validateTimeOff(off TimeOff) error {
	if off.PersonId == "" {
		return fmt.Errorf("%w: person id is required", ErrInvalidTimeOffData)
	}
	if off.StartDate.IsZero() || off.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidTimeOffData)
	}
	if off.EndDate.Before(off.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidTimeOffData)
	}
	switch off.Kind {
	case TimeOffVacation, TimeOffSick, TimeOffOther:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTimeOffData, off.Kind)
	}
}

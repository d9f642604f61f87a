package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/event_bus"
	"github.com/NescAdmin/nesc-planering/internal/utils"
	"github.com/NescAdmin/nesc-planering/pkg/company"
	log "github.com/sirupsen/logrus"
)

// Service is the single entry point for mutating allocations. Every mutation
// moves Proposed -> Validated -> Committed: writes are applied inside a
// transaction, the validator prices the resulting state, and a soft conflict
// rolls the write back unless the caller passed allowOver. Deletes never
// consult the validator since they can only reduce load.
type Service interface {
	CreatePercent(ctx context.Context, a Percent, allowOver bool) (Percent, error)
	UpdatePercent(ctx context.Context, a Percent, allowOver bool) (Percent, error)
	DeletePercent(ctx context.Context, id string) error
	GetPercent(ctx context.Context, id string) (Percent, error)
	ListPercent(ctx context.Context, personIds []string, from, to time.Time) ([]Percent, error)
	CreatePercentBatch(ctx context.Context, batch []Percent, allowOver bool) ([]Percent, error)

	CreateUnit(ctx context.Context, a Unit, allowOver bool) (Unit, error)
	UpdateUnit(ctx context.Context, a Unit, allowOver bool) (Unit, error)
	DeleteUnit(ctx context.Context, id string) error
	GetUnit(ctx context.Context, id string) (Unit, error)
	ListUnit(ctx context.Context, personIds []string, from, to time.Time) ([]Unit, error)
	ListUnitByWorkItem(ctx context.Context, workItemId string) ([]Unit, error)
	CreateUnitBatch(ctx context.Context, batch []Unit, allowOver bool) ([]Unit, error)

	CreateAdhoc(ctx context.Context, a Adhoc, allowOver bool) (Adhoc, error)
	UpdateAdhoc(ctx context.Context, a Adhoc, allowOver bool) (Adhoc, error)
	DeleteAdhoc(ctx context.Context, id string) error
	GetAdhoc(ctx context.Context, id string) (Adhoc, error)
	ListAdhoc(ctx context.Context, personIds []string, from, to time.Time) ([]Adhoc, error)
	CreateAdhocBatch(ctx context.Context, batch []Adhoc, allowOver bool) ([]Adhoc, error)

	// HasAllocations reports whether the person has any allocation ending on
	// or after from. The person service uses it to refuse roster deletes.
	HasAllocations(ctx context.Context, personId string, from time.Time) (bool, error)
}

type ServiceImpl struct {
	repo      Repository
	validator *Validator
	projects  ProjectReader
	people    PersonReader
	bus       *event_bus.EventBus
	clock     utils.Clock
	locks     *projectLocks
}

func NewService(repo Repository, validator *Validator, projects ProjectReader, people PersonReader, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:      repo,
		validator: validator,
		projects:  projects,
		people:    people,
		bus:       bus,
		clock:     clock,
		locks:     newProjectLocks(),
	}
}

// guard names what a mutation must be checked against: the project whose
// scope it loads (empty for adhoc) and the person-weeks it touches (empty for
// units, which never overbook).
type guard struct {
	projectId string
	personIds []string
	from, to  time.Time
}

// runGuarded wraps write in the validation pipeline. With allowOver the
// validator is skipped entirely and the write commits regardless. Otherwise
// the planned figures are captured before and after the write inside one
// transaction; checks only fire where the load actually grew, so decreases
// and moves that free more than they book always commit. Project scope is
// serialized through a per-project lock; the person axis has no lock and the
// overbooking window comes from the record as read before the lock, so that
// check stays best-effort under concurrency.
//
// Roster and scope inputs are loaded before the transaction opens: sqlite
// runs on a single connection, and a pool read with the transaction holding
// that connection would never return.
func (s *ServiceImpl) runGuarded(ctx context.Context, companyId string, g guard, allowOver bool, write func(txRepo Repository) error) error {
	if g.projectId != "" {
		unlock := s.locks.Lock(companyId + "/" + g.projectId)
		defer unlock()
	}
	var inputs ScopeInputs
	if !allowOver && g.projectId != "" {
		var err error
		inputs, err = s.validator.LoadScopeInputs(ctx, g.projectId)
		if err != nil {
			return err
		}
	}
	return s.repo.WithTransaction(ctx, func(txRepo Repository) error {
		var plannedBefore int64
		var weeksBefore map[WeekKey]int
		if !allowOver {
			if g.projectId != "" {
				pct, units, err := s.validator.PlannedMinutes(ctx, txRepo, inputs)
				if err != nil {
					return err
				}
				plannedBefore = pct + units
			}
			if len(g.personIds) > 0 {
				var err error
				weeksBefore, err = s.validator.WeeklyLoads(ctx, txRepo, g.personIds, g.from, g.to)
				if err != nil {
					return err
				}
			}
		}

		if err := write(txRepo); err != nil {
			return err
		}
		if allowOver {
			return nil
		}

		if g.projectId != "" {
			pct, units, err := s.validator.PlannedMinutes(ctx, txRepo, inputs)
			if err != nil {
				return err
			}
			if pct+units > plannedBefore {
				if err := s.validator.CheckScope(inputs, pct, units); err != nil {
					return err
				}
			}
		}
		if len(g.personIds) > 0 {
			weeksAfter, err := s.validator.WeeklyLoads(ctx, txRepo, g.personIds, g.from, g.to)
			if err != nil {
				return err
			}
			if err := s.validator.CheckOverbooking(weeksBefore, weeksAfter); err != nil {
				return err
			}
		}
		return nil
	})
}

// span accumulates the union of the people and dates a mutation touches, for
// the overbooking window and the change event.
type span struct {
	personIds []string
	from, to  time.Time
}

func (sp *span) add(personId string, start, end time.Time) {
	found := false
	for _, id := range sp.personIds {
		if id == personId {
			found = true
			break
		}
	}
	if !found {
		sp.personIds = append(sp.personIds, personId)
	}
	if sp.from.IsZero() || start.Before(sp.from) {
		sp.from = start
	}
	if sp.to.IsZero() || end.After(sp.to) {
		sp.to = end
	}
}

func (s *ServiceImpl) publishChange(ctx context.Context, companyId string, sp span) {
	data := event_bus.AllocationChanged{
		CompanyId: companyId,
		PersonIds: sp.personIds,
		From:      sp.from,
		To:        sp.to,
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.TypeAllocationChanged, data)); err != nil {
		log.Warnf("allocation change listeners failed: %v", err)
	}
}

func (s *ServiceImpl) checkPersonExists(ctx context.Context, personId string) error {
	_, err := s.people.Get(ctx, personId)
	return err
}

func (s *ServiceImpl) CreatePercent(ctx context.Context, a Percent, allowOver bool) (Percent, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Percent{}, fmt.Errorf("failed to get current company: %w", err)
	}
	if err := validatePercent(a); err != nil {
		return Percent{}, err
	}
	if _, err := s.projects.Get(ctx, a.ProjectId); err != nil {
		return Percent{}, err
	}
	if err := s.checkPersonExists(ctx, a.PersonId); err != nil {
		return Percent{}, err
	}
	now := s.clock.Now()
	a.CreatedAt, a.UpdatedAt = now, now

	sp := span{}
	sp.add(a.PersonId, a.StartDate, a.EndDate)
	g := guard{projectId: a.ProjectId, personIds: sp.personIds, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		id, err := txRepo.StorePercent(ctx, companyId, a)
		if err != nil {
			return err
		}
		a.Id = id
		return nil
	})
	if err != nil {
		return Percent{}, err
	}
	s.publishChange(ctx, companyId, sp)
	return a, nil
}

// UpdatePercent rewrites person, range, percent and note. The project binding
// is fixed at creation.
func (s *ServiceImpl) UpdatePercent(ctx context.Context, a Percent, allowOver bool) (Percent, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Percent{}, fmt.Errorf("failed to get current company: %w", err)
	}
	existing, err := s.repo.GetPercent(ctx, companyId, a.Id)
	if err != nil {
		return Percent{}, err
	}
	a.ProjectId = existing.ProjectId
	a.CreatedAt = existing.CreatedAt
	if err := validatePercent(a); err != nil {
		return Percent{}, err
	}
	if a.PersonId != existing.PersonId {
		if err := s.checkPersonExists(ctx, a.PersonId); err != nil {
			return Percent{}, err
		}
	}
	a.UpdatedAt = s.clock.Now()

	sp := span{}
	sp.add(existing.PersonId, existing.StartDate, existing.EndDate)
	sp.add(a.PersonId, a.StartDate, a.EndDate)
	g := guard{projectId: existing.ProjectId, personIds: sp.personIds, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		updated, err := txRepo.UpdatePercent(ctx, companyId, a)
		if err != nil {
			return err
		}
		if !updated {
			return ErrAllocationNotFound
		}
		return nil
	})
	if err != nil {
		return Percent{}, err
	}
	s.publishChange(ctx, companyId, sp)
	return a, nil
}

func (s *ServiceImpl) DeletePercent(ctx context.Context, id string) error {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current company: %w", err)
	}
	existing, err := s.repo.GetPercent(ctx, companyId, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeletePercent(ctx, companyId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAllocationNotFound
	}
	sp := span{}
	sp.add(existing.PersonId, existing.StartDate, existing.EndDate)
	s.publishChange(ctx, companyId, sp)
	return nil
}

func (s *ServiceImpl) GetPercent(ctx context.Context, id string) (Percent, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Percent{}, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.GetPercent(ctx, companyId, id)
}

func (s *ServiceImpl) ListPercent(ctx context.Context, personIds []string, from, to time.Time) ([]Percent, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.FindPercentForPeople(ctx, companyId, personIds, from, to)
}

// CreatePercentBatch stores several rows in one transaction with a single
// validation pass, so a range-select fill either lands whole or not at all.
// All rows must target the same project.
func (s *ServiceImpl) CreatePercentBatch(ctx context.Context, batch []Percent, allowOver bool) ([]Percent, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	if len(batch) == 0 {
		return []Percent{}, nil
	}
	projectId := batch[0].ProjectId
	sp := span{}
	for i := range batch {
		if err := validatePercent(batch[i]); err != nil {
			return nil, err
		}
		if batch[i].ProjectId != projectId {
			return nil, fmt.Errorf("%w: batch rows must target one project", ErrInvalidAllocation)
		}
		sp.add(batch[i].PersonId, batch[i].StartDate, batch[i].EndDate)
	}
	if _, err := s.projects.Get(ctx, projectId); err != nil {
		return nil, err
	}
	for _, personId := range sp.personIds {
		if err := s.checkPersonExists(ctx, personId); err != nil {
			return nil, err
		}
	}
	now := s.clock.Now()

	created := make([]Percent, len(batch))
	g := guard{projectId: projectId, personIds: sp.personIds, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		for i, a := range batch {
			a.CreatedAt, a.UpdatedAt = now, now
			id, err := txRepo.StorePercent(ctx, companyId, a)
			if err != nil {
				return err
			}
			a.Id = id
			created[i] = a
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishChange(ctx, companyId, sp)
	return created, nil
}

// resolveUnitProject maps the work item to its project and refuses unit
// planning on budget-mode projects, which size their scope without items.
func (s *ServiceImpl) resolveUnitProject(ctx context.Context, workItemId string) (string, error) {
	wi, err := s.projects.GetWorkItem(ctx, workItemId)
	if err != nil {
		return "", err
	}
	p, err := s.projects.Get(ctx, wi.ProjectId)
	if err != nil {
		return "", err
	}
	if p.BudgetMinutes > 0 {
		return "", fmt.Errorf("%w: project %s uses budget planning, unit allocations are disabled", ErrInvalidAllocation, p.Id)
	}
	return p.Id, nil
}

func (s *ServiceImpl) CreateUnit(ctx context.Context, a Unit, allowOver bool) (Unit, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Unit{}, fmt.Errorf("failed to get current company: %w", err)
	}
	if err := validateUnit(a); err != nil {
		return Unit{}, err
	}
	projectId, err := s.resolveUnitProject(ctx, a.WorkItemId)
	if err != nil {
		return Unit{}, err
	}
	if err := s.checkPersonExists(ctx, a.PersonId); err != nil {
		return Unit{}, err
	}
	now := s.clock.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	a.ProjectId = projectId

	sp := span{}
	sp.add(a.PersonId, a.StartDate, a.EndDate)
	g := guard{projectId: projectId, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		id, err := txRepo.StoreUnit(ctx, companyId, a)
		if err != nil {
			return err
		}
		a.Id = id
		return nil
	})
	if err != nil {
		return Unit{}, err
	}
	s.publishChange(ctx, companyId, sp)
	return a, nil
}

// UpdateUnit rewrites person, range, minutes and note. The work item binding
// is fixed at creation.
func (s *ServiceImpl) UpdateUnit(ctx context.Context, a Unit, allowOver bool) (Unit, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Unit{}, fmt.Errorf("failed to get current company: %w", err)
	}
	existing, err := s.repo.GetUnit(ctx, companyId, a.Id)
	if err != nil {
		return Unit{}, err
	}
	a.WorkItemId = existing.WorkItemId
	a.ProjectId = existing.ProjectId
	a.CreatedAt = existing.CreatedAt
	if err := validateUnit(a); err != nil {
		return Unit{}, err
	}
	if _, err := s.resolveUnitProject(ctx, existing.WorkItemId); err != nil {
		return Unit{}, err
	}
	if a.PersonId != existing.PersonId {
		if err := s.checkPersonExists(ctx, a.PersonId); err != nil {
			return Unit{}, err
		}
	}
	a.UpdatedAt = s.clock.Now()

	sp := span{}
	sp.add(existing.PersonId, existing.StartDate, existing.EndDate)
	sp.add(a.PersonId, a.StartDate, a.EndDate)
	g := guard{projectId: existing.ProjectId, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		updated, err := txRepo.UpdateUnit(ctx, companyId, a)
		if err != nil {
			return err
		}
		if !updated {
			return ErrAllocationNotFound
		}
		return nil
	})
	if err != nil {
		return Unit{}, err
	}
	s.publishChange(ctx, companyId, sp)
	return a, nil
}

func (s *ServiceImpl) DeleteUnit(ctx context.Context, id string) error {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current company: %w", err)
	}
	existing, err := s.repo.GetUnit(ctx, companyId, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteUnit(ctx, companyId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAllocationNotFound
	}
	sp := span{}
	sp.add(existing.PersonId, existing.StartDate, existing.EndDate)
	s.publishChange(ctx, companyId, sp)
	return nil
}

func (s *ServiceImpl) GetUnit(ctx context.Context, id string) (Unit, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Unit{}, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.GetUnit(ctx, companyId, id)
}

func (s *ServiceImpl) ListUnit(ctx context.Context, personIds []string, from, to time.Time) ([]Unit, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.FindUnitForPeople(ctx, companyId, personIds, from, to)
}

// ListUnitByWorkItem returns every unit allocation booked on a work item, for
// computing the item's remaining minutes.
func (s *ServiceImpl) ListUnitByWorkItem(ctx context.Context, workItemId string) ([]Unit, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.FindUnitByWorkItem(ctx, companyId, workItemId)
}

// CreateUnitBatch stores several rows against one work item in a single
// transaction with one validation pass. The auto-scheduler uses it so a plan
// either lands whole or not at all.
func (s *ServiceImpl) CreateUnitBatch(ctx context.Context, batch []Unit, allowOver bool) ([]Unit, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	if len(batch) == 0 {
		return []Unit{}, nil
	}
	workItemId := batch[0].WorkItemId
	sp := span{}
	for i := range batch {
		if err := validateUnit(batch[i]); err != nil {
			return nil, err
		}
		if batch[i].WorkItemId != workItemId {
			return nil, fmt.Errorf("%w: batch rows must target one work item", ErrInvalidAllocation)
		}
		sp.add(batch[i].PersonId, batch[i].StartDate, batch[i].EndDate)
	}
	projectId, err := s.resolveUnitProject(ctx, workItemId)
	if err != nil {
		return nil, err
	}
	for _, personId := range sp.personIds {
		if err := s.checkPersonExists(ctx, personId); err != nil {
			return nil, err
		}
	}
	now := s.clock.Now()

	created := make([]Unit, len(batch))
	g := guard{projectId: projectId, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		for i, a := range batch {
			a.CreatedAt, a.UpdatedAt = now, now
			a.ProjectId = projectId
			id, err := txRepo.StoreUnit(ctx, companyId, a)
			if err != nil {
				return err
			}
			a.Id = id
			created[i] = a
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishChange(ctx, companyId, sp)
	return created, nil
}

func (s *ServiceImpl) CreateAdhoc(ctx context.Context, a Adhoc, allowOver bool) (Adhoc, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Adhoc{}, fmt.Errorf("failed to get current company: %w", err)
	}
	applyAdhocDefaults(&a)
	if err := validateAdhoc(a); err != nil {
		return Adhoc{}, err
	}
	if err := s.checkPersonExists(ctx, a.PersonId); err != nil {
		return Adhoc{}, err
	}
	now := s.clock.Now()
	a.CreatedAt, a.UpdatedAt = now, now

	sp := span{}
	sp.add(a.PersonId, a.StartDate, a.EndDate)
	g := guard{personIds: sp.personIds, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		id, err := txRepo.StoreAdhoc(ctx, companyId, a)
		if err != nil {
			return err
		}
		a.Id = id
		return nil
	})
	if err != nil {
		return Adhoc{}, err
	}
	s.publishChange(ctx, companyId, sp)
	return a, nil
}

func (s *ServiceImpl) UpdateAdhoc(ctx context.Context, a Adhoc, allowOver bool) (Adhoc, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Adhoc{}, fmt.Errorf("failed to get current company: %w", err)
	}
	existing, err := s.repo.GetAdhoc(ctx, companyId, a.Id)
	if err != nil {
		return Adhoc{}, err
	}
	a.CreatedAt = existing.CreatedAt
	if a.Label == "" {
		a.Label = existing.Label
	}
	if a.Color == "" {
		a.Color = existing.Color
	}
	if err := validateAdhoc(a); err != nil {
		return Adhoc{}, err
	}
	if a.PersonId != existing.PersonId {
		if err := s.checkPersonExists(ctx, a.PersonId); err != nil {
			return Adhoc{}, err
		}
	}
	a.UpdatedAt = s.clock.Now()

	sp := span{}
	sp.add(existing.PersonId, existing.StartDate, existing.EndDate)
	sp.add(a.PersonId, a.StartDate, a.EndDate)
	g := guard{personIds: sp.personIds, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		updated, err := txRepo.UpdateAdhoc(ctx, companyId, a)
		if err != nil {
			return err
		}
		if !updated {
			return ErrAllocationNotFound
		}
		return nil
	})
	if err != nil {
		return Adhoc{}, err
	}
	s.publishChange(ctx, companyId, sp)
	return a, nil
}

func (s *ServiceImpl) DeleteAdhoc(ctx context.Context, id string) error {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current company: %w", err)
	}
	existing, err := s.repo.GetAdhoc(ctx, companyId, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteAdhoc(ctx, companyId, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAllocationNotFound
	}
	sp := span{}
	sp.add(existing.PersonId, existing.StartDate, existing.EndDate)
	s.publishChange(ctx, companyId, sp)
	return nil
}

func (s *ServiceImpl) GetAdhoc(ctx context.Context, id string) (Adhoc, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return Adhoc{}, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.GetAdhoc(ctx, companyId, id)
}

func (s *ServiceImpl) ListAdhoc(ctx context.Context, personIds []string, from, to time.Time) ([]Adhoc, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.FindAdhocForPeople(ctx, companyId, personIds, from, to)
}

func (s *ServiceImpl) CreateAdhocBatch(ctx context.Context, batch []Adhoc, allowOver bool) ([]Adhoc, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}
	if len(batch) == 0 {
		return []Adhoc{}, nil
	}
	sp := span{}
	for i := range batch {
		applyAdhocDefaults(&batch[i])
		if err := validateAdhoc(batch[i]); err != nil {
			return nil, err
		}
		sp.add(batch[i].PersonId, batch[i].StartDate, batch[i].EndDate)
	}
	for _, personId := range sp.personIds {
		if err := s.checkPersonExists(ctx, personId); err != nil {
			return nil, err
		}
	}
	now := s.clock.Now()

	created := make([]Adhoc, len(batch))
	g := guard{personIds: sp.personIds, from: sp.from, to: sp.to}
	err = s.runGuarded(ctx, companyId, g, allowOver, func(txRepo Repository) error {
		for i, a := range batch {
			a.CreatedAt, a.UpdatedAt = now, now
			id, err := txRepo.StoreAdhoc(ctx, companyId, a)
			if err != nil {
				return err
			}
			a.Id = id
			created[i] = a
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishChange(ctx, companyId, sp)
	return created, nil
}

func (s *ServiceImpl) HasAllocations(ctx context.Context, personId string, from time.Time) (bool, error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current company: %w", err)
	}
	return s.repo.HasAllocationsForPerson(ctx, companyId, personId, from)
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NescAdmin/nesc-planering/pkg/allocation"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/NescAdmin/nesc-planering/pkg/project"
)

var ErrInvalidPlan = errors.New("invalid plan request")

// Request asks the planner to fill one person's free capacity with one work
// item over an inclusive date range. SlotMinutes zero means the smallest
// plannable unit.
type Request struct {
	PersonId    string
	WorkItemId  string
	From        time.Time
	To          time.Time
	SlotMinutes int64
}

// Plan is the committed outcome of a planning run.
type Plan struct {
	Allocations  []allocation.Unit
	TotalMinutes int64
}

type Service interface {
	Plan(ctx context.Context, req Request) (Plan, error)
}

type ServiceImpl struct {
	allocations allocation.Service
	projects    project.Service
	people      person.Service
	defaultSlot int64
}

// NewService builds the planner. defaultSlot is used when a request does not
// name a slot size; anything that is not a positive multiple of the minimum
// falls back to the minimum.
func NewService(allocations allocation.Service, projects project.Service, people person.Service, defaultSlot int64) *ServiceImpl {
	if defaultSlot < allocation.MinUnitMinutes || defaultSlot%allocation.MinUnitMinutes != 0 {
		defaultSlot = allocation.MinUnitMinutes
	}
	return &ServiceImpl{allocations: allocations, projects: projects, people: people, defaultSlot: defaultSlot}
}

// Plan books a day-sized unit allocation on every workday in the range where
// the person still has free minutes, until the work item's remaining minutes
// run out. Free minutes are the workday minus time off, minus the load implied
// by percent and free-text allocations, minus unit minutes already booked that
// day. Every booking is snapped down to the slot size and the whole plan
// commits as one batch, so a scope overage books nothing.
func (s *ServiceImpl) Plan(ctx context.Context, req Request) (Plan, error) {
	req, err := normalizeRequest(req, s.defaultSlot)
	if err != nil {
		return Plan{}, err
	}
	p, err := s.people.Get(ctx, req.PersonId)
	if err != nil {
		return Plan{}, err
	}
	item, err := s.projects.GetWorkItem(ctx, req.WorkItemId)
	if err != nil {
		return Plan{}, err
	}
	remaining, err := s.remainingMinutes(ctx, item)
	if err != nil {
		return Plan{}, err
	}

	workday := int64(p.WorkdayMinutes())
	if workday == 0 || remaining < req.SlotMinutes {
		return Plan{Allocations: []allocation.Unit{}}, nil
	}

	timeOff, err := s.people.GetTimeOff(ctx, req.PersonId, req.From, req.To)
	if err != nil {
		return Plan{}, err
	}
	percents, err := s.allocations.ListPercent(ctx, []string{req.PersonId}, req.From, req.To)
	if err != nil {
		return Plan{}, err
	}
	adhocs, err := s.allocations.ListAdhoc(ctx, []string{req.PersonId}, req.From, req.To)
	if err != nil {
		return Plan{}, err
	}
	units, err := s.allocations.ListUnit(ctx, []string{req.PersonId}, req.From, req.To)
	if err != nil {
		return Plan{}, err
	}

	var batch []allocation.Unit
	period.EachWorkday(req.From, req.To, func(day time.Time) {
		if remaining < req.SlotMinutes {
			return
		}
		free := freeMinutes(day, workday, timeOff, percents, adhocs, units)
		book := free - free%req.SlotMinutes
		if book < req.SlotMinutes {
			return
		}
		if left := remaining - remaining%req.SlotMinutes; book > left {
			book = left
		}
		batch = append(batch, allocation.Unit{
			PersonId:   req.PersonId,
			WorkItemId: req.WorkItemId,
			StartDate:  day,
			EndDate:    day,
			Minutes:    book,
		})
		remaining -= book
	})
	if len(batch) == 0 {
		return Plan{Allocations: []allocation.Unit{}}, nil
	}

	created, err := s.allocations.CreateUnitBatch(ctx, batch, false)
	if err != nil {
		return Plan{}, err
	}
	var total int64
	for _, u := range created {
		total += u.Minutes
	}
	return Plan{Allocations: created, TotalMinutes: total}, nil
}

func normalizeRequest(req Request, defaultSlot int64) (Request, error) {
	if req.PersonId == "" || req.WorkItemId == "" {
		return Request{}, fmt.Errorf("%w: person and work item are required", ErrInvalidPlan)
	}
	if req.From.IsZero() || req.To.IsZero() {
		return Request{}, fmt.Errorf("%w: from and to dates are required", ErrInvalidPlan)
	}
	req.From, req.To = period.Date(req.From), period.Date(req.To)
	if req.To.Before(req.From) {
		return Request{}, fmt.Errorf("%w: to is before from", ErrInvalidPlan)
	}
	if req.SlotMinutes == 0 {
		req.SlotMinutes = defaultSlot
	}
	if req.SlotMinutes < allocation.MinUnitMinutes || req.SlotMinutes%allocation.MinUnitMinutes != 0 {
		return Request{}, fmt.Errorf("%w: slot must be a multiple of %d minutes", ErrInvalidPlan, allocation.MinUnitMinutes)
	}
	return req, nil
}

// remainingMinutes is the work item total minus everything already booked on
// it, across all people.
func (s *ServiceImpl) remainingMinutes(ctx context.Context, item project.WorkItem) (int64, error) {
	booked, err := s.allocations.ListUnitByWorkItem(ctx, item.Id)
	if err != nil {
		return 0, err
	}
	remaining := item.TotalMinutes
	for _, u := range booked {
		remaining -= u.Minutes
	}
	return remaining, nil
}

// freeMinutes is the person's unplanned minutes on one workday. A time off
// day has none; percent and free-text allocations consume their share of the
// workday; unit allocations consume their even per-workday spread, the same
// spread the grid renders.
func freeMinutes(day time.Time, workday int64, timeOff []person.TimeOff, percents []allocation.Percent, adhocs []allocation.Adhoc, units []allocation.Unit) int64 {
	for _, off := range timeOff {
		if covers(off.StartDate, off.EndDate, day) {
			return 0
		}
	}
	free := workday
	for _, a := range percents {
		if covers(a.StartDate, a.EndDate, day) {
			free -= workday * int64(a.Percent) / 100
		}
	}
	for _, a := range adhocs {
		if covers(a.StartDate, a.EndDate, day) {
			free -= workday * int64(a.Percent) / 100
		}
	}
	for _, u := range units {
		if covers(u.StartDate, u.EndDate, day) {
			free -= unitDailyMinutes(u)
		}
	}
	if free < 0 {
		return 0
	}
	return free
}

func covers(start, end, day time.Time) bool {
	return !day.Before(period.Date(start)) && !day.After(period.Date(end))
}

func unitDailyMinutes(u allocation.Unit) int64 {
	days := period.Workdays(u.StartDate, u.EndDate)
	if days == 0 {
		return u.Minutes
	}
	return decimal.NewFromInt(u.Minutes).
		Div(decimal.NewFromInt(int64(days))).
		Round(0).
		IntPart()
}

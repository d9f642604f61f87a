package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/event_bus"
	"github.com/NescAdmin/nesc-planering/internal/test_utils"
	"github.com/NescAdmin/nesc-planering/internal/utils"
	"github.com/NescAdmin/nesc-planering/pkg/allocation"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/NescAdmin/nesc-planering/pkg/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCtx = test_utils.CompanyContext("company-1")

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// scheduleFixture wires the planner against the real allocation service
// backed by in-memory stubs. The default person works 480 minutes a day.
type scheduleFixture struct {
	planner     *ServiceImpl
	handler     *Handler
	allocations allocation.Service
	projects    project.Service
	people      person.Service
	repo        *allocation.StubAllocationRepo
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	repo := allocation.NewStubAllocationRepo()
	clock := &utils.MockClock{FixedNow: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
	projects := project.NewService(project.NewStubProjectRepo())
	people := person.NewService(person.NewStubPersonRepo(), clock, func(ctx context.Context, personId string, from time.Time) (bool, error) {
		return false, nil
	})
	bus := event_bus.NewEventBus()
	validator := allocation.NewValidator(projects, people, allocation.DefaultOverbookingPct)
	allocations := allocation.NewService(repo, validator, projects, people, bus, clock)

	planner := NewService(allocations, projects, people, allocation.MinUnitMinutes)
	return &scheduleFixture{
		planner:     planner,
		handler:     NewHandler(planner),
		allocations: allocations,
		projects:    projects,
		people:      people,
		repo:        repo,
	}
}

func (f *scheduleFixture) addPerson(t *testing.T, name string) person.Person {
	t.Helper()
	p, err := f.people.Create(testCtx, person.Person{Name: name, LunchMinutes: 60})
	require.NoError(t, err)
	return p
}

func (f *scheduleFixture) addProject(t *testing.T, name string, budgetMinutes int64) project.Project {
	t.Helper()
	p, err := f.projects.Create(testCtx, project.Project{Name: name, Color: "#3366ff", BudgetMinutes: budgetMinutes})
	require.NoError(t, err)
	return p
}

func (f *scheduleFixture) addWorkItem(t *testing.T, projectId, name string, totalMinutes int64) project.WorkItem {
	t.Helper()
	item, err := f.projects.AddWorkItem(testCtx, project.WorkItem{ProjectId: projectId, Name: name, TotalMinutes: totalMinutes})
	require.NoError(t, err)
	f.repo.WorkItemProjects[item.Id] = projectId
	return item
}

func (f *scheduleFixture) storedUnits(t *testing.T) []allocation.Unit {
	t.Helper()
	stored, err := f.allocations.ListUnit(testCtx, nil, date(2026, time.January, 1), date(2026, time.December, 31))
	require.NoError(t, err)
	return stored
}

func TestService_Plan(t *testing.T) {
	t.Run("should fill free workdays until the item total is reached", func(t *testing.T) {
		// given: 1000 minutes of work and empty weekdays
		f := newScheduleFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 1000)

		// when
		plan, err := f.planner.Plan(testCtx, Request{
			PersonId:   maja.Id,
			WorkItemId: item.Id,
			From:       date(2026, time.August, 24),
			To:         date(2026, time.August, 30),
		})

		// then: two full days plus a slot-snapped tail, 10 minutes unplannable
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 3)
		assert.Equal(t, int64(990), plan.TotalMinutes)
		assert.Equal(t, date(2026, time.August, 24), plan.Allocations[0].StartDate)
		assert.Equal(t, int64(480), plan.Allocations[0].Minutes)
		assert.Equal(t, date(2026, time.August, 25), plan.Allocations[1].StartDate)
		assert.Equal(t, int64(480), plan.Allocations[1].Minutes)
		assert.Equal(t, date(2026, time.August, 26), plan.Allocations[2].StartDate)
		assert.Equal(t, int64(30), plan.Allocations[2].Minutes)
		for _, u := range plan.Allocations {
			assert.NotEmpty(t, u.Id)
			assert.Equal(t, u.StartDate, u.EndDate, "Planned bookings should be day-sized")
			assert.Equal(t, website.Id, u.ProjectId)
		}
		assert.Len(t, f.storedUnits(t), 3)
	})

	t.Run("should plan only the minutes the existing load leaves free", func(t *testing.T) {
		// given: 50% on a project and 150 unit minutes a day already booked
		f := newScheduleFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		backend := f.addWorkItem(t, website.Id, "Backend", 6000)
		frontend := f.addWorkItem(t, website.Id, "Frontend", 1000)
		_, err := f.allocations.CreatePercent(testCtx, allocation.Percent{
			PersonId:  maja.Id,
			ProjectId: website.Id,
			StartDate: date(2026, time.August, 24),
			EndDate:   date(2026, time.August, 28),
			Percent:   50,
		}, false)
		require.NoError(t, err)
		_, err = f.allocations.CreateUnit(testCtx, allocation.Unit{
			PersonId:   maja.Id,
			WorkItemId: frontend.Id,
			StartDate:  date(2026, time.August, 24),
			EndDate:    date(2026, time.August, 25),
			Minutes:    300,
		}, false)
		require.NoError(t, err)

		// when
		plan, err := f.planner.Plan(testCtx, Request{
			PersonId:   maja.Id,
			WorkItemId: backend.Id,
			From:       date(2026, time.August, 24),
			To:         date(2026, time.August, 25),
		})

		// then: 480 - 240 percent share - 150 unit share = 90 a day
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 2)
		assert.Equal(t, int64(180), plan.TotalMinutes)
		assert.Equal(t, int64(90), plan.Allocations[0].Minutes)
		assert.Equal(t, int64(90), plan.Allocations[1].Minutes)
	})

	t.Run("should skip time off and fully booked days", func(t *testing.T) {
		// given: vacation Tuesday, a 100% free-text block Wednesday
		f := newScheduleFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 10000)
		_, err := f.people.AddTimeOff(testCtx, person.TimeOff{
			PersonId:  maja.Id,
			StartDate: date(2026, time.August, 25),
			EndDate:   date(2026, time.August, 25),
			Kind:      person.TimeOffVacation,
		})
		require.NoError(t, err)
		_, err = f.allocations.CreateAdhoc(testCtx, allocation.Adhoc{
			PersonId:  maja.Id,
			StartDate: date(2026, time.August, 26),
			EndDate:   date(2026, time.August, 26),
			Percent:   100,
		}, false)
		require.NoError(t, err)

		// when
		plan, err := f.planner.Plan(testCtx, Request{
			PersonId:   maja.Id,
			WorkItemId: item.Id,
			From:       date(2026, time.August, 24),
			To:         date(2026, time.August, 26),
		})

		// then: only Monday takes work
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 1)
		assert.Equal(t, date(2026, time.August, 24), plan.Allocations[0].StartDate)
		assert.Equal(t, int64(480), plan.Allocations[0].Minutes)
	})

	t.Run("should plan nothing on a weekend window", func(t *testing.T) {
		// given
		f := newScheduleFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 1000)

		// when: Saturday through Sunday
		plan, err := f.planner.Plan(testCtx, Request{
			PersonId:   maja.Id,
			WorkItemId: item.Id,
			From:       date(2026, time.August, 29),
			To:         date(2026, time.August, 30),
		})

		// then
		require.NoError(t, err)
		assert.Empty(t, plan.Allocations)
		assert.Zero(t, plan.TotalMinutes)
		assert.Empty(t, f.storedUnits(t))
	})

	t.Run("should snap each booking down to the requested slot", func(t *testing.T) {
		// given: 45% existing load leaves 264 free minutes
		f := newScheduleFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 1000)
		_, err := f.allocations.CreatePercent(testCtx, allocation.Percent{
			PersonId:  maja.Id,
			ProjectId: website.Id,
			StartDate: date(2026, time.August, 24),
			EndDate:   date(2026, time.August, 24),
			Percent:   45,
		}, false)
		require.NoError(t, err)

		// when: hour slots
		plan, err := f.planner.Plan(testCtx, Request{
			PersonId:    maja.Id,
			WorkItemId:  item.Id,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.August, 24),
			SlotMinutes: 60,
		})

		// then: 264 free snaps down to 240
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 1)
		assert.Equal(t, int64(240), plan.Allocations[0].Minutes)
	})

	t.Run("should book nothing when the item is already fully planned", func(t *testing.T) {
		// given: all 600 minutes booked on a colleague
		f := newScheduleFixture(t)
		maja := f.addPerson(t, "Maja")
		lukas := f.addPerson(t, "Lukas")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 600)
		_, err := f.allocations.CreateUnit(testCtx, allocation.Unit{
			PersonId:   lukas.Id,
			WorkItemId: item.Id,
			StartDate:  date(2026, time.August, 17),
			EndDate:    date(2026, time.August, 21),
			Minutes:    600,
		}, false)
		require.NoError(t, err)

		// when
		plan, err := f.planner.Plan(testCtx, Request{
			PersonId:   maja.Id,
			WorkItemId: item.Id,
			From:       date(2026, time.August, 24),
			To:         date(2026, time.August, 28),
		})

		// then
		require.NoError(t, err)
		assert.Empty(t, plan.Allocations)
		assert.Len(t, f.storedUnits(t), 1)
	})

	t.Run("should roll the whole plan back on a scope conflict", func(t *testing.T) {
		// given: the item promises more minutes than the project budget
		f := newScheduleFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 300)
		item := f.addWorkItem(t, website.Id, "Backend", 600)

		// when
		plan, err := f.planner.Plan(testCtx, Request{
			PersonId:   maja.Id,
			WorkItemId: item.Id,
			From:       date(2026, time.August, 24),
			To:         date(2026, time.August, 24),
		})

		// then: the conflict carries the numbers and nothing was stored
		var conflict *allocation.ScopeConflict
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, website.Id, conflict.ProjectId)
		assert.Equal(t, int64(300), conflict.Scope)
		assert.Equal(t, int64(480), conflict.Planned)
		assert.Empty(t, plan.Allocations)
		assert.Empty(t, f.storedUnits(t))
	})
}

func TestService_PlanValidation(t *testing.T) {
	f := newScheduleFixture(t)
	maja := f.addPerson(t, "Maja")
	website := f.addProject(t, "Website", 0)
	item := f.addWorkItem(t, website.Id, "Backend", 600)
	valid := Request{
		PersonId:   maja.Id,
		WorkItemId: item.Id,
		From:       date(2026, time.August, 24),
		To:         date(2026, time.August, 28),
	}

	t.Run("should require person and work item", func(t *testing.T) {
		req := valid
		req.PersonId = ""
		_, err := f.planner.Plan(testCtx, req)
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("should reject a reversed range", func(t *testing.T) {
		req := valid
		req.From, req.To = req.To, req.From
		_, err := f.planner.Plan(testCtx, req)
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("should reject a slot that is not a multiple of the minimum", func(t *testing.T) {
		req := valid
		req.SlotMinutes = 20
		_, err := f.planner.Plan(testCtx, req)
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("should report an unknown person", func(t *testing.T) {
		req := valid
		req.PersonId = "missing"
		_, err := f.planner.Plan(testCtx, req)
		assert.ErrorIs(t, err, person.ErrPersonNotFound)
	})

	t.Run("should report an unknown work item", func(t *testing.T) {
		req := valid
		req.WorkItemId = "missing"
		_, err := f.planner.Plan(testCtx, req)
		assert.ErrorIs(t, err, project.ErrWorkItemNotFound)
	})
}

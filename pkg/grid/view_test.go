package grid

import (
	"testing"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/allocation"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findEntry(t *testing.T, c Cell, id string) Entry {
	t.Helper()
	for _, e := range c.Entries {
		if e.Id == id {
			return e
		}
	}
	t.Fatalf("cell has no entry %s", id)
	return Entry{}
}

func findRow(t *testing.T, v View, personId string) Row {
	t.Helper()
	for _, r := range v.Rows {
		if r.PersonId == personId {
			return r
		}
	}
	t.Fatalf("view has no row for person %s", personId)
	return Row{}
}

func TestViewBuilder_Build(t *testing.T) {
	t.Run("should lay out one column per period of the window", func(t *testing.T) {
		// given
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.September, 4),
		})

		// then
		require.NoError(t, err)
		require.Len(t, view.Columns, 2)
		assert.Equal(t, "2026-W35", view.Columns[0].Label)
		assert.Equal(t, "2026-W36", view.Columns[1].Label)
		assert.Equal(t, date(2026, time.August, 24), view.From)
		assert.Equal(t, date(2026, time.September, 6), view.To, "the window widens to whole periods")
		require.Len(t, view.Rows, 1)
		assert.Equal(t, maja.Id, view.Rows[0].PersonId)
		assert.Equal(t, "Maja", view.Rows[0].PersonName)
		require.Len(t, view.Rows[0].Cells, 2)
	})

	t.Run("should sum percent and ad-hoc load per cell", func(t *testing.T) {
		// given: 40% project work and 30% ad-hoc in the same week
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		f.addWorkItem(t, website.Id, "Backend", 60000)
		_, err := f.allocations.CreatePercent(testCtx, allocation.Percent{
			PersonId:  maja.Id,
			ProjectId: website.Id,
			StartDate: date(2026, time.August, 24),
			EndDate:   date(2026, time.August, 30),
			Percent:   40,
		}, false)
		require.NoError(t, err)
		_, err = f.allocations.CreateAdhoc(testCtx, allocation.Adhoc{
			PersonId:  maja.Id,
			Label:     "Utbildning",
			Color:     "#00aa66",
			StartDate: date(2026, time.August, 24),
			EndDate:   date(2026, time.August, 30),
			Percent:   30,
		}, false)
		require.NoError(t, err)

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.September, 4),
		})

		// then
		require.NoError(t, err)
		row := findRow(t, view, maja.Id)
		assert.Equal(t, 70, row.Cells[0].Percent)
		assert.Equal(t, 0, row.Cells[1].Percent)
		assert.Len(t, row.Cells[0].Entries, 2)
		assert.Equal(t, 70, row.PeakPercent)
		assert.Equal(t, 35, row.AvgPercent)
	})

	t.Run("should convert unit minutes into cell load against capacity", func(t *testing.T) {
		// given: 1200 booked minutes in a 2400 minute week
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 6000)
		created, err := f.allocations.CreateUnit(testCtx, allocation.Unit{
			PersonId:   maja.Id,
			WorkItemId: item.Id,
			StartDate:  date(2026, time.August, 24),
			EndDate:    date(2026, time.August, 28),
			Minutes:    1200,
		}, false)
		require.NoError(t, err)

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.August, 30),
		})

		// then
		require.NoError(t, err)
		row := findRow(t, view, maja.Id)
		assert.Equal(t, 50, row.Cells[0].Percent)
		entry := findEntry(t, row.Cells[0], created.Id)
		assert.Equal(t, int64(1200), entry.Minutes, "entries carry record totals")
	})

	t.Run("should spread a multi-week unit over its workdays", func(t *testing.T) {
		// given: 1500 minutes across ten workdays, 150 a day
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 6000)
		_, err := f.allocations.CreateUnit(testCtx, allocation.Unit{
			PersonId:   maja.Id,
			WorkItemId: item.Id,
			StartDate:  date(2026, time.August, 24),
			EndDate:    date(2026, time.September, 4),
			Minutes:    1500,
		}, false)
		require.NoError(t, err)

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.September, 4),
		})

		// then: 750 minutes per week against 2400 capacity
		require.NoError(t, err)
		row := findRow(t, view, maja.Id)
		assert.Equal(t, 31, row.Cells[0].Percent)
		assert.Equal(t, 31, row.Cells[1].Percent)
	})

	t.Run("should mark a week with no capacity as off", func(t *testing.T) {
		// given: vacation covering the whole week
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")
		_, err := f.people.AddTimeOff(testCtx, person.TimeOff{
			PersonId:  maja.Id,
			StartDate: date(2026, time.August, 24),
			EndDate:   date(2026, time.August, 30),
		})
		require.NoError(t, err)

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.September, 4),
		})

		// then
		require.NoError(t, err)
		row := findRow(t, view, maja.Id)
		assert.True(t, row.Cells[0].Off)
		assert.False(t, row.Cells[1].Off)
	})

	t.Run("should shrink capacity by partial time off", func(t *testing.T) {
		// given: two vacation days leave 3 x 480 minutes; a 720 minute unit
		// then loads the week at 50%
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 6000)
		_, err := f.people.AddTimeOff(testCtx, person.TimeOff{
			PersonId:  maja.Id,
			StartDate: date(2026, time.August, 24),
			EndDate:   date(2026, time.August, 25),
		})
		require.NoError(t, err)
		_, err = f.allocations.CreateUnit(testCtx, allocation.Unit{
			PersonId:   maja.Id,
			WorkItemId: item.Id,
			StartDate:  date(2026, time.August, 26),
			EndDate:    date(2026, time.August, 28),
			Minutes:    720,
		}, false)
		require.NoError(t, err)

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.August, 30),
		})

		// then
		require.NoError(t, err)
		row := findRow(t, view, maja.Id)
		assert.False(t, row.Cells[0].Off)
		assert.Equal(t, 50, row.Cells[0].Percent)
	})

	t.Run("should pack overlapping bars into separate lanes", func(t *testing.T) {
		// given: a two-week bar, a bar under its first week and a bar under
		// its second
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		f.addWorkItem(t, website.Id, "Backend", 60000)
		long, err := f.allocations.CreatePercent(testCtx, allocation.Percent{
			PersonId: maja.Id, ProjectId: website.Id,
			StartDate: date(2026, time.August, 24), EndDate: date(2026, time.September, 6), Percent: 20,
		}, false)
		require.NoError(t, err)
		first, err := f.allocations.CreatePercent(testCtx, allocation.Percent{
			PersonId: maja.Id, ProjectId: website.Id,
			StartDate: date(2026, time.August, 24), EndDate: date(2026, time.August, 30), Percent: 20,
		}, false)
		require.NoError(t, err)
		second, err := f.allocations.CreatePercent(testCtx, allocation.Percent{
			PersonId: maja.Id, ProjectId: website.Id,
			StartDate: date(2026, time.August, 31), EndDate: date(2026, time.September, 6), Percent: 20,
		}, false)
		require.NoError(t, err)

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.September, 4),
		})

		// then: the concurrent bars sit on different tracks and the second
		// week reuses the track freed by the first
		require.NoError(t, err)
		row := findRow(t, view, maja.Id)
		assert.Equal(t, 2, row.Lanes)
		longLane := findEntry(t, row.Cells[0], long.Id).Lane
		firstLane := findEntry(t, row.Cells[0], first.Id).Lane
		secondLane := findEntry(t, row.Cells[1], second.Id).Lane
		assert.NotEqual(t, longLane, firstLane)
		assert.Equal(t, firstLane, secondLane)
	})

	t.Run("should label bars from their projects and work items", func(t *testing.T) {
		// given
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		item := f.addWorkItem(t, website.Id, "Backend", 60000)
		pct, err := f.allocations.CreatePercent(testCtx, allocation.Percent{
			PersonId: maja.Id, ProjectId: website.Id,
			StartDate: date(2026, time.August, 24), EndDate: date(2026, time.August, 30), Percent: 20,
		}, false)
		require.NoError(t, err)
		unit, err := f.allocations.CreateUnit(testCtx, allocation.Unit{
			PersonId: maja.Id, WorkItemId: item.Id,
			StartDate: date(2026, time.August, 24), EndDate: date(2026, time.August, 28), Minutes: 300,
		}, false)
		require.NoError(t, err)
		adhoc, err := f.allocations.CreateAdhoc(testCtx, allocation.Adhoc{
			PersonId: maja.Id, Label: "Utbildning", Color: "#00aa66",
			StartDate: date(2026, time.August, 24), EndDate: date(2026, time.August, 30), Percent: 10,
		}, false)
		require.NoError(t, err)

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.August, 30),
		})

		// then
		require.NoError(t, err)
		row := findRow(t, view, maja.Id)
		pctEntry := findEntry(t, row.Cells[0], pct.Id)
		assert.Equal(t, "Website", pctEntry.Label)
		assert.Equal(t, "#3366ff", pctEntry.Color)
		unitEntry := findEntry(t, row.Cells[0], unit.Id)
		assert.Equal(t, "Backend", unitEntry.Label)
		assert.Equal(t, "#3366ff", unitEntry.Color, "unit bars wear the project color")
		adhocEntry := findEntry(t, row.Cells[0], adhoc.Id)
		assert.Equal(t, "Utbildning", adhocEntry.Label)
		assert.Equal(t, "#00aa66", adhocEntry.Color)
	})

	t.Run("should flag where a bar starts and ends", func(t *testing.T) {
		// given: a bar spanning both columns
		f := newGridFixture(t)
		maja := f.addPerson(t, "Maja")
		website := f.addProject(t, "Website", 0)
		f.addWorkItem(t, website.Id, "Backend", 60000)
		created, err := f.allocations.CreatePercent(testCtx, allocation.Percent{
			PersonId: maja.Id, ProjectId: website.Id,
			StartDate: date(2026, time.August, 24), EndDate: date(2026, time.September, 6), Percent: 20,
		}, false)
		require.NoError(t, err)

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.September, 4),
		})

		// then
		require.NoError(t, err)
		row := findRow(t, view, maja.Id)
		head := findEntry(t, row.Cells[0], created.Id)
		assert.True(t, head.StartsHere)
		assert.False(t, head.EndsHere)
		tail := findEntry(t, row.Cells[1], created.Id)
		assert.False(t, tail.StartsHere)
		assert.True(t, tail.EndsHere)
	})

	t.Run("should include only the requested people", func(t *testing.T) {
		// given
		f := newGridFixture(t)
		f.addPerson(t, "Maja")
		lukas := f.addPerson(t, "Lukas")

		// when
		view, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.August, 30),
			PersonIds:   []string{lukas.Id},
		})

		// then
		require.NoError(t, err)
		require.Len(t, view.Rows, 1)
		assert.Equal(t, lukas.Id, view.Rows[0].PersonId)
	})

	t.Run("should reject an unknown person filter", func(t *testing.T) {
		f := newGridFixture(t)

		_, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.August, 24),
			To:          date(2026, time.August, 30),
			PersonIds:   []string{"missing"},
		})
		assert.ErrorIs(t, err, person.ErrPersonNotFound)
	})

	t.Run("should reject an empty window", func(t *testing.T) {
		f := newGridFixture(t)

		_, err := f.view.Build(testCtx, ViewQuery{
			Granularity: period.Week,
			From:        date(2026, time.September, 4),
			To:          date(2026, time.August, 24),
		})
		assert.ErrorIs(t, err, period.ErrInvalidPeriod)
	})
}

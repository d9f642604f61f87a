package grid

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/allocation"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/NescAdmin/nesc-planering/pkg/project"
	"github.com/shopspring/decimal"
)

// View is one render of the planning grid: a period column per bucket and a
// row per person, with every cell carrying its load and the bars that overlap
// it. It is computed fresh on every request; the session only tracks which
// parts went stale.
type View struct {
	Granularity period.Granularity
	From, To    time.Time
	Columns     []Column
	Rows        []Row
}

type Column struct {
	Period period.Period
	Label  string
}

// Entry is one bar's slice through a cell. Percent and Minutes are the
// record's totals, not the cell's share; Lane keeps overlapping bars on
// separate tracks within the row.
type Entry struct {
	Family     Family
	Id         string
	Label      string
	Color      string
	Percent    int
	Minutes    int64
	Lane       int
	StartsHere bool
	EndsHere   bool
}

// Cell is one person-period bucket. Percent is the summed load of everything
// overlapping the bucket; Off marks buckets where the person has no capacity
// at all, e.g. a fully booked-off vacation week.
type Cell struct {
	Percent int
	Off     bool
	Entries []Entry
}

type Row struct {
	PersonId   string
	PersonName string
	Cells      []Cell
	// Lanes is the number of parallel tracks the row's bars need.
	Lanes       int
	AvgPercent  int
	PeakPercent int
}

type ViewQuery struct {
	Granularity period.Granularity
	From, To    time.Time
	// PersonIds filters the rows; empty means everyone.
	PersonIds []string
}

// ViewBuilder assembles grid views from the planning services.
type ViewBuilder struct {
	allocations allocation.Service
	projects    project.Service
	people      person.Service
}

func NewViewBuilder(allocations allocation.Service, projects project.Service, people person.Service) *ViewBuilder {
	return &ViewBuilder{
		allocations: allocations,
		projects:    projects,
		people:      people,
	}
}

func (b *ViewBuilder) Build(ctx context.Context, q ViewQuery) (View, error) {
	columns := period.Between(q.Granularity, q.From, q.To)
	if len(columns) == 0 {
		return View{}, fmt.Errorf("%w: empty view range", period.ErrInvalidPeriod)
	}
	from := columns[0].Start
	to := columns[len(columns)-1].End()

	roster, err := b.roster(ctx, q.PersonIds)
	if err != nil {
		return View{}, err
	}
	personIds := make([]string, 0, len(roster))
	for _, p := range roster {
		personIds = append(personIds, p.Id)
	}

	percents, err := b.allocations.ListPercent(ctx, personIds, from, to)
	if err != nil {
		return View{}, err
	}
	units, err := b.allocations.ListUnit(ctx, personIds, from, to)
	if err != nil {
		return View{}, err
	}
	adhocs, err := b.allocations.ListAdhoc(ctx, personIds, from, to)
	if err != nil {
		return View{}, err
	}

	labels, err := b.labels(ctx, percents, units)
	if err != nil {
		return View{}, err
	}

	view := View{
		Granularity: q.Granularity,
		From:        from,
		To:          to,
		Columns:     make([]Column, 0, len(columns)),
		Rows:        make([]Row, 0, len(roster)),
	}
	for _, col := range columns {
		view.Columns = append(view.Columns, Column{Period: col, Label: col.String()})
	}
	for _, p := range roster {
		row, err := b.buildRow(ctx, p, columns, from, to, percents, units, adhocs, labels)
		if err != nil {
			return View{}, err
		}
		view.Rows = append(view.Rows, row)
	}
	return view, nil
}

func (b *ViewBuilder) roster(ctx context.Context, personIds []string) ([]person.Person, error) {
	if len(personIds) == 0 {
		return b.people.GetAll(ctx)
	}
	roster := make([]person.Person, 0, len(personIds))
	for _, id := range personIds {
		p, err := b.people.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		roster = append(roster, p)
	}
	return roster, nil
}

// barLabel is the display name and color a record renders with. Percent bars
// carry their project's identity, unit bars the work item's name under the
// project color, adhoc bars their own.
type barLabel struct {
	name  string
	color string
}

func (b *ViewBuilder) labels(ctx context.Context, percents []allocation.Percent, units []allocation.Unit) (map[string]barLabel, error) {
	projects, err := b.projects.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}
	byProject := make(map[string]project.Project, len(projects))
	for _, p := range projects {
		byProject[p.Id] = p
	}

	labels := make(map[string]barLabel)
	for _, a := range percents {
		p := byProject[a.ProjectId]
		labels[a.Id] = barLabel{name: p.Name, color: p.Color}
	}
	itemNames := make(map[string]string)
	for _, u := range units {
		if _, ok := itemNames[u.WorkItemId]; !ok {
			item, err := b.projects.GetWorkItem(ctx, u.WorkItemId)
			if err != nil {
				return nil, err
			}
			itemNames[u.WorkItemId] = item.Name
		}
		labels[u.Id] = barLabel{name: itemNames[u.WorkItemId], color: byProject[u.ProjectId].Color}
	}
	return labels, nil
}

// bar is the lane-packing shape shared by all three families.
type bar struct {
	family     Family
	id         string
	personId   string
	start, end time.Time
}

func (b *ViewBuilder) buildRow(ctx context.Context, p person.Person, columns []period.Period, from, to time.Time,
	percents []allocation.Percent, units []allocation.Unit, adhocs []allocation.Adhoc, labels map[string]barLabel) (Row, error) {

	timeOff, err := b.people.GetTimeOff(ctx, p.Id, from, to)
	if err != nil {
		return Row{}, err
	}

	var bars []bar
	rowPercents := make(map[string]allocation.Percent)
	rowUnits := make(map[string]allocation.Unit)
	rowAdhocs := make(map[string]allocation.Adhoc)
	for _, a := range percents {
		if a.PersonId == p.Id {
			bars = append(bars, bar{family: FamilyPercent, id: a.Id, personId: a.PersonId, start: a.StartDate, end: a.EndDate})
			rowPercents[a.Id] = a
		}
	}
	for _, u := range units {
		if u.PersonId == p.Id {
			bars = append(bars, bar{family: FamilyUnit, id: u.Id, personId: u.PersonId, start: u.StartDate, end: u.EndDate})
			rowUnits[u.Id] = u
		}
	}
	for _, a := range adhocs {
		if a.PersonId == p.Id {
			bars = append(bars, bar{family: FamilyAdhoc, id: a.Id, personId: a.PersonId, start: a.StartDate, end: a.EndDate})
			rowAdhocs[a.Id] = a
		}
	}

	lanes, laneCount := packLanes(bars)

	row := Row{
		PersonId:   p.Id,
		PersonName: p.Name,
		Cells:      make([]Cell, 0, len(columns)),
		Lanes:      laneCount,
	}
	var peak int
	var sum int64
	for _, col := range columns {
		capacity := person.CapacityMinutes(p, timeOff, col.Start, col.End())
		cell := Cell{Off: capacity == 0}

		var pct int64
		for _, a := range rowPercents {
			if overlapsPeriod(a.StartDate, a.EndDate, col) {
				pct += int64(a.Percent)
			}
		}
		for _, a := range rowAdhocs {
			if overlapsPeriod(a.StartDate, a.EndDate, col) {
				pct += int64(a.Percent)
			}
		}
		var unitMinutes int64
		for _, u := range rowUnits {
			unitMinutes += unitMinutesIn(u, col)
		}
		if unitMinutes > 0 && capacity > 0 {
			pct += decimal.NewFromInt(unitMinutes).
				Div(decimal.NewFromInt(capacity)).
				Mul(decimal.NewFromInt(100)).
				Round(0).IntPart()
		}
		cell.Percent = int(pct)

		for _, rec := range bars {
			if !overlapsPeriod(rec.start, rec.end, col) {
				continue
			}
			entry := Entry{
				Family:     rec.family,
				Id:         rec.id,
				Label:      labels[rec.id].name,
				Color:      labels[rec.id].color,
				Lane:       lanes[rec.id],
				StartsHere: col.ContainsDate(rec.start),
				EndsHere:   col.ContainsDate(rec.end),
			}
			switch rec.family {
			case FamilyPercent:
				entry.Percent = rowPercents[rec.id].Percent
			case FamilyUnit:
				entry.Minutes = rowUnits[rec.id].Minutes
			case FamilyAdhoc:
				a := rowAdhocs[rec.id]
				entry.Percent = a.Percent
				entry.Label = a.Label
				entry.Color = a.Color
			}
			cell.Entries = append(cell.Entries, entry)
		}
		sort.Slice(cell.Entries, func(i, j int) bool { return cell.Entries[i].Lane < cell.Entries[j].Lane })

		if cell.Percent > peak {
			peak = cell.Percent
		}
		sum += int64(cell.Percent)
		row.Cells = append(row.Cells, cell)
	}

	row.PeakPercent = peak
	row.AvgPercent = int(decimal.NewFromInt(sum).
		Div(decimal.NewFromInt(int64(len(columns)))).
		Round(0).IntPart())
	return row, nil
}

// packLanes assigns each bar the lowest track whose previous bar ended before
// it starts, scanning in (start, id) order so the output is stable.
func packLanes(bars []bar) (map[string]int, int) {
	sorted := make([]bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].start.Equal(sorted[j].start) {
			return sorted[i].start.Before(sorted[j].start)
		}
		return sorted[i].id < sorted[j].id
	})

	lanes := make(map[string]int, len(sorted))
	var laneEnds []time.Time
	for _, b := range sorted {
		placed := false
		for lane, end := range laneEnds {
			if end.Before(period.Date(b.start)) {
				lanes[b.id] = lane
				laneEnds[lane] = period.Date(b.end)
				placed = true
				break
			}
		}
		if !placed {
			lanes[b.id] = len(laneEnds)
			laneEnds = append(laneEnds, period.Date(b.end))
		}
	}
	return lanes, len(laneEnds)
}

func overlapsPeriod(start, end time.Time, p period.Period) bool {
	return !period.Date(start).After(p.End()) && !period.Date(end).Before(p.Start)
}

// unitMinutesIn spreads a unit allocation's minutes evenly over its span's
// workdays and returns the share falling inside the column. A span with no
// workdays keeps all minutes in the column containing its start date.
func unitMinutesIn(u allocation.Unit, col period.Period) int64 {
	if !overlapsPeriod(u.StartDate, u.EndDate, col) {
		return 0
	}
	spanWorkdays := period.Workdays(u.StartDate, u.EndDate)
	if spanWorkdays == 0 {
		if col.ContainsDate(u.StartDate) {
			return u.Minutes
		}
		return 0
	}
	overlapFrom, overlapTo := u.StartDate, u.EndDate
	if col.Start.After(period.Date(overlapFrom)) {
		overlapFrom = col.Start
	}
	if col.End().Before(period.Date(overlapTo)) {
		overlapTo = col.End()
	}
	overlapWorkdays := period.Workdays(overlapFrom, overlapTo)
	if overlapWorkdays == 0 {
		return 0
	}
	return decimal.NewFromInt(u.Minutes).
		Div(decimal.NewFromInt(int64(spanWorkdays))).
		Mul(decimal.NewFromInt(int64(overlapWorkdays))).
		Round(0).IntPart()
}

package allocation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/company"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/NescAdmin/nesc-planering/pkg/person"
	"github.com/NescAdmin/nesc-planering/pkg/project"
)

// DefaultOverbookingPct is the weekly percent load past which a person counts
// as overbooked.
const DefaultOverbookingPct = 100

// ProjectReader is the slice of the project service the allocation layer
// needs: scope inputs and work item resolution.
type ProjectReader interface {
	Get(ctx context.Context, id string) (project.Project, error)
	GetWorkItem(ctx context.Context, id string) (project.WorkItem, error)
	GetWorkItems(ctx context.Context, projectId string) ([]project.WorkItem, error)
}

// PersonReader supplies the roster whose workday minutes scale percent
// allocations into planned minutes, plus single lookups so mutations can 404
// on unknown people instead of tripping foreign keys.
type PersonReader interface {
	Get(ctx context.Context, id string) (person.Person, error)
	GetAll(ctx context.Context) ([]person.Person, error)
}

// WeekKey identifies one person's load bucket for overbooking checks.
type WeekKey struct {
	PersonId string
	// Week is the ISO week identifier, e.g. "2026-W35".
	Week string
}

// Validator computes project scope and person overbooking figures. It is
// advisory: callers decide whether a conflict blocks, the store itself never
// refuses an over-scope state.
type Validator struct {
	projects  ProjectReader
	people    PersonReader
	threshold int
}

func NewValidator(projects ProjectReader, people PersonReader, overbookingPct int) *Validator {
	if overbookingPct <= 0 {
		overbookingPct = DefaultOverbookingPct
	}
	return &Validator{projects: projects, people: people, threshold: overbookingPct}
}

// ScopeInputs is everything the scope check needs that does not live in the
// allocation tables: the roster that scales percent allocations into minutes
// and the project's scope. It is loaded before the mutation transaction opens
// because sqlite runs on a single connection, so nothing may touch the
// connection pool while the transaction holds it.
type ScopeInputs struct {
	ProjectId string
	// Scope is the project's plannable minutes; zero means unlimited.
	Scope  int64
	roster map[string]person.Person
}

// LoadScopeInputs resolves the roster and the project's scope. Callers hold
// the per-project lock across the load and the subsequent transaction, which
// keeps the figures stable until commit.
func (v *Validator) LoadScopeInputs(ctx context.Context, projectId string) (ScopeInputs, error) {
	p, err := v.projects.Get(ctx, projectId)
	if err != nil {
		return ScopeInputs{}, err
	}
	items, err := v.projects.GetWorkItems(ctx, projectId)
	if err != nil {
		return ScopeInputs{}, err
	}
	people, err := v.people.GetAll(ctx)
	if err != nil {
		return ScopeInputs{}, err
	}
	roster := make(map[string]person.Person, len(people))
	for _, pers := range people {
		roster[pers.Id] = pers
	}
	return ScopeInputs{
		ProjectId: projectId,
		Scope:     project.ScopeMinutes(p, items),
		roster:    roster,
	}, nil
}

// PlannedMinutes sums the project's booked load from the given repository
// view (pass the transaction-bound repo to price a hypothetical state).
// A percent allocation contributes its share of the person's workday for
// every Monday through Friday date in its range; unit allocations contribute
// their minutes as-is.
func (v *Validator) PlannedMinutes(ctx context.Context, repo Repository, in ScopeInputs) (plannedPct int64, plannedUnits int64, err error) {
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get current company: %w", err)
	}

	percents, err := repo.FindPercentByProject(ctx, companyId, in.ProjectId)
	if err != nil {
		return 0, 0, err
	}
	for _, a := range percents {
		p, ok := in.roster[a.PersonId]
		if !ok {
			continue
		}
		dayMinutes := int64(p.WorkdayMinutes())
		pct := int64(a.Percent)
		period.EachWorkday(a.StartDate, a.EndDate, func(time.Time) {
			plannedPct += dayMinutes * pct / 100
		})
	}

	units, err := repo.FindUnitByProject(ctx, companyId, in.ProjectId)
	if err != nil {
		return 0, 0, err
	}
	for _, u := range units {
		plannedUnits += u.Minutes
	}
	return plannedPct, plannedUnits, nil
}

// CheckScope compares already computed planned figures against the project's
// scope. A scope of zero (no budget, no work items) is unlimited.
func (v *Validator) CheckScope(in ScopeInputs, plannedPct, plannedUnits int64) error {
	planned := plannedPct + plannedUnits
	if in.Scope == 0 || planned <= in.Scope {
		return nil
	}
	return &ScopeConflict{
		ProjectId:    in.ProjectId,
		Scope:        in.Scope,
		Planned:      planned,
		PlannedPct:   plannedPct,
		PlannedUnits: plannedUnits,
		Over:         planned - in.Scope,
	}
}

// WeeklyLoads sums the percent-family load per person and ISO week over
// [from, to]. Allocations reaching outside the window only count for the
// weeks inside it, so two snapshots over the same window compare pairwise.
func (v *Validator) WeeklyLoads(ctx context.Context, repo Repository, personIds []string, from, to time.Time) (map[WeekKey]int, error) {
	loads := make(map[WeekKey]int)
	if len(personIds) == 0 {
		return loads, nil
	}
	companyId, err := company.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current company: %w", err)
	}

	lo, hi := period.Date(from), period.Date(to)
	add := func(personId string, start, end time.Time, pct int) {
		if start.Before(lo) {
			start = lo
		}
		if end.After(hi) {
			end = hi
		}
		for _, w := range period.Between(period.Week, start, end) {
			loads[WeekKey{PersonId: personId, Week: w.String()}] += pct
		}
	}

	percents, err := repo.FindPercentForPeople(ctx, companyId, personIds, from, to)
	if err != nil {
		return nil, err
	}
	for _, a := range percents {
		add(a.PersonId, a.StartDate, a.EndDate, a.Percent)
	}

	adhocs, err := repo.FindAdhocForPeople(ctx, companyId, personIds, from, to)
	if err != nil {
		return nil, err
	}
	for _, a := range adhocs {
		add(a.PersonId, a.StartDate, a.EndDate, a.Percent)
	}
	return loads, nil
}

// CheckOverbooking flags the first person-week whose load both grew and ended
// above the threshold. Weeks that were already over and did not grow pass, so
// decreases and unrelated edits never trip on pre-existing overages.
func (v *Validator) CheckOverbooking(before, after map[WeekKey]int) error {
	keys := make([]WeekKey, 0, len(after))
	for k := range after {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PersonId != keys[j].PersonId {
			return keys[i].PersonId < keys[j].PersonId
		}
		return keys[i].Week < keys[j].Week
	})

	for _, k := range keys {
		load := after[k]
		if load <= v.threshold || load <= before[k] {
			continue
		}
		return &OverbookingConflict{
			PersonId:  k.PersonId,
			Week:      k.Week,
			Percent:   load,
			Threshold: v.threshold,
		}
	}
	return nil
}

// Threshold returns the configured overbooking limit in percent.
func (v *Validator) Threshold() int {
	return v.threshold
}

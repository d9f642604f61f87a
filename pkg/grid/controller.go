package grid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/allocation"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/NescAdmin/nesc-planering/pkg/project"
	log "github.com/sirupsen/logrus"
)

// DefaultDropPercent is booked when a project chip lands on a cell without an
// explicit magnitude.
const DefaultDropPercent = 50

var ErrInvalidGesture = errors.New("invalid gesture")

// Ref names the record a gesture touched.
type Ref struct {
	Family Family `json:"family"`
	Id     string `json:"id"`
}

// Drop is a chip or bar released over a grid cell. Palette chips create,
// existing bars move. Confirmed is the second phase of the conflict protocol:
// the client re-sends the identical gesture after the user accepted the
// overage, and the mutation commits with the override.
type Drop struct {
	Payload  Payload
	PersonId string
	Date     time.Time
	// Percent overrides the default when a project chip is dropped.
	Percent int
	// Minutes is the prompt value for a work item drop; zero means "the
	// item's remaining minutes".
	Minutes   int64
	Confirmed bool
}

// Edge selects which resize handle was dragged.
type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

type Resize struct {
	Target    Payload
	Edge      Edge
	Date      time.Time
	Confirmed bool
}

// SelectAction names the context-menu choice after a range selection.
type SelectAction string

const (
	SelectPercent  SelectAction = "percent"
	SelectUnit     SelectAction = "unit"
	SelectFreeText SelectAction = "free_text"
)

// Select fills a contiguous cell selection in one person row.
type Select struct {
	PersonId string
	From, To time.Time
	Action   SelectAction

	ProjectId  string // percent fill
	WorkItemId string // unit fill
	Label      string // free-text fill
	Color      string
	Percent    int
	Minutes    int64
	Confirmed  bool
}

// Controller turns grid gestures into allocation service calls and keeps the
// session's undo history. It holds no per-gesture state: the two-phase
// conflict protocol works by the client re-sending the identical gesture with
// Confirmed set.
type Controller struct {
	allocations allocation.Service
	projects    project.Service
}

func NewController(allocations allocation.Service, projects project.Service) *Controller {
	return &Controller{
		allocations: allocations,
		projects:    projects,
	}
}

func (c *Controller) Drop(ctx context.Context, s *Session, g Drop) (Ref, error) {
	switch g.Payload.Kind {
	case PayloadProject:
		return c.dropProject(ctx, s, g)
	case PayloadWorkItem:
		return c.dropWorkItem(ctx, s, g)
	case PayloadAlloc:
		return c.movePercent(ctx, s, g)
	case PayloadUnit:
		return c.moveUnit(ctx, s, g)
	case PayloadAdhoc:
		return c.moveAdhoc(ctx, s, g)
	default:
		return Ref{}, fmt.Errorf("%w: nothing to drop", ErrInvalidGesture)
	}
}

func (c *Controller) dropProject(ctx context.Context, s *Session, g Drop) (Ref, error) {
	pct := g.Percent
	if pct == 0 {
		pct = DefaultDropPercent
	}
	start, end := period.At(s.Granularity, g.Date).Bounds()
	created, err := c.allocations.CreatePercent(ctx, allocation.Percent{
		PersonId:  g.PersonId,
		ProjectId: g.Payload.Id,
		StartDate: start,
		EndDate:   end,
		Percent:   pct,
	}, g.Confirmed)
	if err != nil {
		return Ref{}, err
	}
	s.undo.Push(Action{Kind: ActionCreated, Family: FamilyPercent, Ids: []string{created.Id}})
	return Ref{Family: FamilyPercent, Id: created.Id}, nil
}

func (c *Controller) dropWorkItem(ctx context.Context, s *Session, g Drop) (Ref, error) {
	var minutes int64
	if g.Minutes > 0 {
		minutes = roundToSlot(g.Minutes)
	} else {
		remaining, err := c.remainingMinutes(ctx, g.Payload.Id)
		if err != nil {
			return Ref{}, err
		}
		minutes = remaining
	}
	start, end := period.At(s.Granularity, g.Date).Bounds()
	created, err := c.allocations.CreateUnit(ctx, allocation.Unit{
		PersonId:   g.PersonId,
		WorkItemId: g.Payload.Id,
		StartDate:  start,
		EndDate:    end,
		Minutes:    minutes,
	}, g.Confirmed)
	if err != nil {
		return Ref{}, err
	}
	s.undo.Push(Action{Kind: ActionCreated, Family: FamilyUnit, Ids: []string{created.Id}})
	return Ref{Family: FamilyUnit, Id: created.Id}, nil
}

// remainingMinutes is the work item's total minus what is already booked on
// it, snapped down to a whole slot. A fully planned item still yields one
// slot so the drop lands and the scope check raises the conflict.
func (c *Controller) remainingMinutes(ctx context.Context, workItemId string) (int64, error) {
	item, err := c.projects.GetWorkItem(ctx, workItemId)
	if err != nil {
		return 0, err
	}
	booked, err := c.allocations.ListUnitByWorkItem(ctx, workItemId)
	if err != nil {
		return 0, err
	}
	remaining := item.TotalMinutes
	for _, u := range booked {
		remaining -= u.Minutes
	}
	remaining -= remaining % allocation.MinUnitMinutes
	if remaining < allocation.MinUnitMinutes {
		return allocation.MinUnitMinutes, nil
	}
	return remaining, nil
}

// roundToSlot rounds prompt input to the nearest 15 minute slot, at least one
// slot.
func roundToSlot(minutes int64) int64 {
	slot := int64(allocation.MinUnitMinutes)
	rounded := (minutes + slot/2) / slot * slot
	if rounded < slot {
		rounded = slot
	}
	return rounded
}

// shiftSpan relocates a period-aligned range to the cell containing date,
// preserving its length in periods.
func shiftSpan(g period.Granularity, start, end, date time.Time) (time.Time, time.Time) {
	spanPeriods := len(period.Between(g, start, end))
	target := period.At(g, date)
	last := target
	for i := 1; i < spanPeriods; i++ {
		last = last.Next()
	}
	return target.Start, last.End()
}

func (c *Controller) movePercent(ctx context.Context, s *Session, g Drop) (Ref, error) {
	existing, err := c.allocations.GetPercent(ctx, g.Payload.Id)
	if err != nil {
		return Ref{}, err
	}
	moved := existing
	if g.PersonId != "" {
		moved.PersonId = g.PersonId
	}
	moved.StartDate, moved.EndDate = shiftSpan(s.Granularity, existing.StartDate, existing.EndDate, g.Date)
	if _, err := c.allocations.UpdatePercent(ctx, moved, g.Confirmed); err != nil {
		return Ref{}, err
	}
	s.undo.Push(Action{Kind: ActionUpdated, Family: FamilyPercent, Ids: []string{existing.Id}, Prior: existing})
	return Ref{Family: FamilyPercent, Id: existing.Id}, nil
}

func (c *Controller) moveUnit(ctx context.Context, s *Session, g Drop) (Ref, error) {
	existing, err := c.allocations.GetUnit(ctx, g.Payload.Id)
	if err != nil {
		return Ref{}, err
	}
	moved := existing
	if g.PersonId != "" {
		moved.PersonId = g.PersonId
	}
	// Units keep their day length; only the anchor moves to the cell.
	length := existing.EndDate.Sub(existing.StartDate)
	moved.StartDate = period.At(s.Granularity, g.Date).Start
	moved.EndDate = moved.StartDate.Add(length)
	if _, err := c.allocations.UpdateUnit(ctx, moved, g.Confirmed); err != nil {
		return Ref{}, err
	}
	s.undo.Push(Action{Kind: ActionUpdated, Family: FamilyUnit, Ids: []string{existing.Id}, Prior: existing})
	return Ref{Family: FamilyUnit, Id: existing.Id}, nil
}

func (c *Controller) moveAdhoc(ctx context.Context, s *Session, g Drop) (Ref, error) {
	existing, err := c.allocations.GetAdhoc(ctx, g.Payload.Id)
	if err != nil {
		return Ref{}, err
	}
	moved := existing
	if g.PersonId != "" {
		moved.PersonId = g.PersonId
	}
	moved.StartDate, moved.EndDate = shiftSpan(s.Granularity, existing.StartDate, existing.EndDate, g.Date)
	if _, err := c.allocations.UpdateAdhoc(ctx, moved, g.Confirmed); err != nil {
		return Ref{}, err
	}
	s.undo.Push(Action{Kind: ActionUpdated, Family: FamilyAdhoc, Ids: []string{existing.Id}, Prior: existing})
	return Ref{Family: FamilyAdhoc, Id: existing.Id}, nil
}

func (c *Controller) Resize(ctx context.Context, s *Session, g Resize) (Ref, error) {
	if g.Edge != EdgeStart && g.Edge != EdgeEnd {
		return Ref{}, fmt.Errorf("%w: edge must be %q or %q", ErrInvalidGesture, EdgeStart, EdgeEnd)
	}
	switch g.Target.Kind {
	case PayloadAlloc:
		return c.resizePercent(ctx, s, g)
	case PayloadUnit:
		return c.resizeUnit(ctx, s, g)
	case PayloadAdhoc:
		return c.resizeAdhoc(ctx, s, g)
	default:
		return Ref{}, fmt.Errorf("%w: only allocation bars have resize handles", ErrInvalidGesture)
	}
}

// resizeBounds computes the new period-aligned range for one dragged handle.
// A handle never crosses the opposite boundary: dragging the left handle past
// the end clamps it to the period containing the end, and vice versa.
func resizeBounds(g period.Granularity, start, end time.Time, edge Edge, date time.Time) (time.Time, time.Time) {
	cell := period.At(g, date)
	if edge == EdgeStart {
		if cell.Start.After(end) {
			cell = period.At(g, end)
		}
		return cell.Start, end
	}
	if cell.End().Before(start) {
		cell = period.At(g, start)
	}
	return start, cell.End()
}

func (c *Controller) resizePercent(ctx context.Context, s *Session, g Resize) (Ref, error) {
	existing, err := c.allocations.GetPercent(ctx, g.Target.Id)
	if err != nil {
		return Ref{}, err
	}
	resized := existing
	resized.StartDate, resized.EndDate = resizeBounds(s.Granularity, existing.StartDate, existing.EndDate, g.Edge, g.Date)
	if _, err := c.allocations.UpdatePercent(ctx, resized, g.Confirmed); err != nil {
		return Ref{}, err
	}
	s.undo.Push(Action{Kind: ActionUpdated, Family: FamilyPercent, Ids: []string{existing.Id}, Prior: existing})
	return Ref{Family: FamilyPercent, Id: existing.Id}, nil
}

func (c *Controller) resizeUnit(ctx context.Context, s *Session, g Resize) (Ref, error) {
	existing, err := c.allocations.GetUnit(ctx, g.Target.Id)
	if err != nil {
		return Ref{}, err
	}
	resized := existing
	// Unit dates are free-form, so the handle lands on the dragged day itself
	// instead of re-snapping to a period bound.
	day := period.Date(g.Date)
	if g.Edge == EdgeStart {
		if day.After(existing.EndDate) {
			day = existing.EndDate
		}
		resized.StartDate = day
	} else {
		if day.Before(existing.StartDate) {
			day = existing.StartDate
		}
		resized.EndDate = day
	}
	if _, err := c.allocations.UpdateUnit(ctx, resized, g.Confirmed); err != nil {
		return Ref{}, err
	}
	s.undo.Push(Action{Kind: ActionUpdated, Family: FamilyUnit, Ids: []string{existing.Id}, Prior: existing})
	return Ref{Family: FamilyUnit, Id: existing.Id}, nil
}

func (c *Controller) resizeAdhoc(ctx context.Context, s *Session, g Resize) (Ref, error) {
	existing, err := c.allocations.GetAdhoc(ctx, g.Target.Id)
	if err != nil {
		return Ref{}, err
	}
	resized := existing
	resized.StartDate, resized.EndDate = resizeBounds(s.Granularity, existing.StartDate, existing.EndDate, g.Edge, g.Date)
	if _, err := c.allocations.UpdateAdhoc(ctx, resized, g.Confirmed); err != nil {
		return Ref{}, err
	}
	s.undo.Push(Action{Kind: ActionUpdated, Family: FamilyAdhoc, Ids: []string{existing.Id}, Prior: existing})
	return Ref{Family: FamilyAdhoc, Id: existing.Id}, nil
}

// Select fills the selected range. Percent and free-text fills create one
// allocation per period so each cell stays individually editable afterwards;
// a unit fill creates a single allocation spanning the whole selection. The
// per-period creates go through a batch so a conflict aborts the fill whole.
func (c *Controller) Select(ctx context.Context, s *Session, g Select) ([]Ref, error) {
	if g.From.After(g.To) {
		return nil, fmt.Errorf("%w: selection is reversed", ErrInvalidGesture)
	}
	periods := period.Between(s.Granularity, g.From, g.To)

	switch g.Action {
	case SelectPercent:
		if g.ProjectId == "" {
			return nil, fmt.Errorf("%w: percent fill needs a project", ErrInvalidGesture)
		}
		pct := g.Percent
		if pct == 0 {
			pct = DefaultDropPercent
		}
		batch := make([]allocation.Percent, 0, len(periods))
		for _, p := range periods {
			batch = append(batch, allocation.Percent{
				PersonId:  g.PersonId,
				ProjectId: g.ProjectId,
				StartDate: p.Start,
				EndDate:   p.End(),
				Percent:   pct,
			})
		}
		created, err := c.allocations.CreatePercentBatch(ctx, batch, g.Confirmed)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(created))
		refs := make([]Ref, 0, len(created))
		for _, a := range created {
			ids = append(ids, a.Id)
			refs = append(refs, Ref{Family: FamilyPercent, Id: a.Id})
		}
		s.undo.Push(Action{Kind: ActionCreated, Family: FamilyPercent, Ids: ids})
		return refs, nil

	case SelectFreeText:
		pct := g.Percent
		if pct == 0 {
			pct = DefaultDropPercent
		}
		batch := make([]allocation.Adhoc, 0, len(periods))
		for _, p := range periods {
			batch = append(batch, allocation.Adhoc{
				PersonId:  g.PersonId,
				Label:     g.Label,
				Color:     g.Color,
				StartDate: p.Start,
				EndDate:   p.End(),
				Percent:   pct,
			})
		}
		created, err := c.allocations.CreateAdhocBatch(ctx, batch, g.Confirmed)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(created))
		refs := make([]Ref, 0, len(created))
		for _, a := range created {
			ids = append(ids, a.Id)
			refs = append(refs, Ref{Family: FamilyAdhoc, Id: a.Id})
		}
		s.undo.Push(Action{Kind: ActionCreated, Family: FamilyAdhoc, Ids: ids})
		return refs, nil

	case SelectUnit:
		if g.WorkItemId == "" {
			return nil, fmt.Errorf("%w: unit fill needs a work item", ErrInvalidGesture)
		}
		var minutes int64
		if g.Minutes > 0 {
			minutes = roundToSlot(g.Minutes)
		} else {
			remaining, err := c.remainingMinutes(ctx, g.WorkItemId)
			if err != nil {
				return nil, err
			}
			minutes = remaining
		}
		created, err := c.allocations.CreateUnit(ctx, allocation.Unit{
			PersonId:   g.PersonId,
			WorkItemId: g.WorkItemId,
			StartDate:  periods[0].Start,
			EndDate:    periods[len(periods)-1].End(),
			Minutes:    minutes,
		}, g.Confirmed)
		if err != nil {
			return nil, err
		}
		s.undo.Push(Action{Kind: ActionCreated, Family: FamilyUnit, Ids: []string{created.Id}})
		return []Ref{{Family: FamilyUnit, Id: created.Id}}, nil

	default:
		return nil, fmt.Errorf("%w: unknown selection action %q", ErrInvalidGesture, g.Action)
	}
}

// Delete removes the bar the payload names. Deletion is never validated; the
// snapshot goes on the undo stack so the record can be recreated.
func (c *Controller) Delete(ctx context.Context, s *Session, target Payload) (Ref, error) {
	switch target.Kind {
	case PayloadAlloc:
		existing, err := c.allocations.GetPercent(ctx, target.Id)
		if err != nil {
			return Ref{}, err
		}
		if err := c.allocations.DeletePercent(ctx, target.Id); err != nil {
			return Ref{}, err
		}
		s.undo.Push(Action{Kind: ActionDeleted, Family: FamilyPercent, Prior: existing})
		return Ref{Family: FamilyPercent, Id: target.Id}, nil
	case PayloadUnit:
		existing, err := c.allocations.GetUnit(ctx, target.Id)
		if err != nil {
			return Ref{}, err
		}
		if err := c.allocations.DeleteUnit(ctx, target.Id); err != nil {
			return Ref{}, err
		}
		s.undo.Push(Action{Kind: ActionDeleted, Family: FamilyUnit, Prior: existing})
		return Ref{Family: FamilyUnit, Id: target.Id}, nil
	case PayloadAdhoc:
		existing, err := c.allocations.GetAdhoc(ctx, target.Id)
		if err != nil {
			return Ref{}, err
		}
		if err := c.allocations.DeleteAdhoc(ctx, target.Id); err != nil {
			return Ref{}, err
		}
		s.undo.Push(Action{Kind: ActionDeleted, Family: FamilyAdhoc, Prior: existing})
		return Ref{Family: FamilyAdhoc, Id: target.Id}, nil
	default:
		return Ref{}, fmt.Errorf("%w: only allocation bars can be deleted", ErrInvalidGesture)
	}
}

// Undo pops the most recent action and performs its inverse with the override
// set, since restoring state must never be blocked by a scope check. The
// second return value is false when the stack was empty. A failed inverse
// stays popped; undo is best-effort.
func (c *Controller) Undo(ctx context.Context, s *Session) ([]Ref, bool, error) {
	action, ok := s.undo.Pop()
	if !ok {
		return nil, false, nil
	}
	refs, err := c.applyInverse(ctx, action)
	if err != nil {
		log.Warnf("undo of %s %s failed: %v", action.Family, action.Kind, err)
		return nil, true, err
	}
	return refs, true, nil
}

func (c *Controller) applyInverse(ctx context.Context, a Action) ([]Ref, error) {
	switch a.Kind {
	case ActionCreated:
		refs := make([]Ref, 0, len(a.Ids))
		// newest first, so a failure leaves a contiguous tail behind
		for i := len(a.Ids) - 1; i >= 0; i-- {
			if err := c.deleteByFamily(ctx, a.Family, a.Ids[i]); err != nil {
				return nil, err
			}
			refs = append(refs, Ref{Family: a.Family, Id: a.Ids[i]})
		}
		return refs, nil

	case ActionUpdated:
		switch prior := a.Prior.(type) {
		case allocation.Percent:
			if _, err := c.allocations.UpdatePercent(ctx, prior, true); err != nil {
				return nil, err
			}
			return []Ref{{Family: FamilyPercent, Id: prior.Id}}, nil
		case allocation.Unit:
			if _, err := c.allocations.UpdateUnit(ctx, prior, true); err != nil {
				return nil, err
			}
			return []Ref{{Family: FamilyUnit, Id: prior.Id}}, nil
		case allocation.Adhoc:
			if _, err := c.allocations.UpdateAdhoc(ctx, prior, true); err != nil {
				return nil, err
			}
			return []Ref{{Family: FamilyAdhoc, Id: prior.Id}}, nil
		}
		return nil, fmt.Errorf("%w: update action without prior state", ErrInvalidGesture)

	case ActionDeleted:
		switch prior := a.Prior.(type) {
		case allocation.Percent:
			created, err := c.allocations.CreatePercent(ctx, prior, true)
			if err != nil {
				return nil, err
			}
			return []Ref{{Family: FamilyPercent, Id: created.Id}}, nil
		case allocation.Unit:
			created, err := c.allocations.CreateUnit(ctx, prior, true)
			if err != nil {
				return nil, err
			}
			return []Ref{{Family: FamilyUnit, Id: created.Id}}, nil
		case allocation.Adhoc:
			created, err := c.allocations.CreateAdhoc(ctx, prior, true)
			if err != nil {
				return nil, err
			}
			return []Ref{{Family: FamilyAdhoc, Id: created.Id}}, nil
		}
		return nil, fmt.Errorf("%w: delete action without prior state", ErrInvalidGesture)

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidGesture, a.Kind)
	}
}

func (c *Controller) deleteByFamily(ctx context.Context, f Family, id string) error {
	switch f {
	case FamilyPercent:
		return c.allocations.DeletePercent(ctx, id)
	case FamilyUnit:
		return c.allocations.DeleteUnit(ctx, id)
	case FamilyAdhoc:
		return c.allocations.DeleteAdhoc(ctx, id)
	default:
		return fmt.Errorf("%w: unknown family %q", ErrInvalidGesture, f)
	}
}

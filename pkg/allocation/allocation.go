package allocation

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MaxPercent caps a single percent-family allocation. The override
	// confirmation allows committing past 100%, never past 200%.
	MaxPercent = 200
	// MinUnitMinutes is the smallest plannable unit; every unit allocation
	// is a multiple of it.
	MinUnitMinutes = 15

	DefaultAdhocLabel = "Fri text"
	DefaultAdhocColor = "#ff4fa3"
)

var ErrInvalidAllocation = errors.New("invalid allocation data")

// Percent commits a person to a project for a share of their workdays over an
// inclusive date range. Gesture-created ranges are snapped to period bounds;
// the JSON API accepts any ordered range.
type Percent struct {
	Id        string
	PersonId  string
	ProjectId string
	StartDate time.Time
	EndDate   time.Time
	Percent   int
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unit books a fixed number of minutes on a work item. Unlike the percent
// family the range is free-form and the load does not scale with the number
// of days.
type Unit struct {
	Id         string
	PersonId   string
	WorkItemId string
	// ProjectId is resolved through the work item on reads, never stored.
	ProjectId string
	StartDate time.Time
	EndDate   time.Time
	Minutes   int64
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Adhoc is free-text percent work with no project behind it: absences,
// internal duties, placeholders. It counts against the person's week but
// never against any project scope.
type Adhoc struct {
	Id        string
	PersonId  string
	Label     string
	Color     string
	StartDate time.Time
	EndDate   time.Time
	Percent   int
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidAllocation)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidAllocation)
	}
	return nil
}

func validatePercentValue(pct int) error {
	if pct < 0 || pct > MaxPercent {
		return fmt.Errorf("%w: percent must be between 0 and %d", ErrInvalidAllocation, MaxPercent)
	}
	return nil
}

func validatePercent(a Percent) error {
	if a.PersonId == "" || a.ProjectId == "" {
		return fmt.Errorf("%w: person and project are required", ErrInvalidAllocation)
	}
	if err := validateRange(a.StartDate, a.EndDate); err != nil {
		return err
	}
	return validatePercentValue(a.Percent)
}

func validateUnit(a Unit) error {
	if a.PersonId == "" || a.WorkItemId == "" {
		return fmt.Errorf("%w: person and work item are required", ErrInvalidAllocation)
	}
	if err := validateRange(a.StartDate, a.EndDate); err != nil {
		return err
	}
	if a.Minutes < MinUnitMinutes || a.Minutes%MinUnitMinutes != 0 {
		return fmt.Errorf("%w: minutes must be a multiple of %d and at least %d", ErrInvalidAllocation, MinUnitMinutes, MinUnitMinutes)
	}
	return nil
}

func validateAdhoc(a Adhoc) error {
	if a.PersonId == "" {
		return fmt.Errorf("%w: person is required", ErrInvalidAllocation)
	}
	if err := validateRange(a.StartDate, a.EndDate); err != nil {
		return err
	}
	return validatePercentValue(a.Percent)
}

func applyAdhocDefaults(a *Adhoc) {
	if a.Label == "" {
		a.Label = DefaultAdhocLabel
	}
	if a.Color == "" {
		a.Color = DefaultAdhocColor
	}
}

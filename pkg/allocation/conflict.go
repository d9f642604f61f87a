package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ScopeConflict is the soft-conflict signal returned when a mutation would
// push a project's planned minutes past its scope. It is an error value so it
// can travel through the transaction boundary, but callers are expected to
// pick it apart with errors.As and offer the override instead of failing.
type ScopeConflict struct {
	ProjectId    string
	Scope        int64
	Planned      int64
	PlannedPct   int64
	PlannedUnits int64
	Over         int64
}

func (c *ScopeConflict) Error() string {
	return fmt.Sprintf("project %s scope exceeded: %s h planned of %s h", c.ProjectId, Hours(c.Planned), Hours(c.Scope))
}

// OverbookingConflict is the person-axis counterpart: a percent-family
// mutation grew a person's week past the booking threshold.
type OverbookingConflict struct {
	PersonId string
	// Week is the ISO week identifier, e.g. "2026-W35".
	Week      string
	Percent   int
	Threshold int
}

func (c *OverbookingConflict) Error() string {
	return fmt.Sprintf("person %s overbooked in %s: %d%% of %d%%", c.PersonId, c.Week, c.Percent, c.Threshold)
}

// Hours renders minutes as hours with one decimal, the form the confirmation
// prompt shows ("10.5").
func Hours(minutes int64) string {
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)).StringFixed(1)
}

type ScopeConflictDTO struct {
	Error        string `json:"error"`
	ProjectId    string `json:"project_id"`
	Scope        int64  `json:"scope"`
	Planned      int64  `json:"planned"`
	PlannedPct   int64  `json:"planned_pct"`
	PlannedUnits int64  `json:"planned_units"`
	Over         int64  `json:"over"`
	ScopeHours   string `json:"scope_hours"`
	PlannedHours string `json:"planned_hours"`
	OverHours    string `json:"over_hours"`
}

type OverbookingConflictDTO struct {
	Error     string `json:"error"`
	PersonId  string `json:"person_id"`
	Period    string `json:"period"`
	Percent   int    `json:"percent"`
	Threshold int    `json:"threshold"`
}

func NewScopeConflictDTO(c *ScopeConflict) ScopeConflictDTO {
	return ScopeConflictDTO{
		Error:        "scope_exceeded",
		ProjectId:    c.ProjectId,
		Scope:        c.Scope,
		Planned:      c.Planned,
		PlannedPct:   c.PlannedPct,
		PlannedUnits: c.PlannedUnits,
		Over:         c.Over,
		ScopeHours:   Hours(c.Scope),
		PlannedHours: Hours(c.Planned),
		OverHours:    Hours(c.Over),
	}
}

func NewOverbookingConflictDTO(c *OverbookingConflict) OverbookingConflictDTO {
	return OverbookingConflictDTO{
		Error:     "overbooked",
		PersonId:  c.PersonId,
		Period:    c.Week,
		Percent:   c.Percent,
		Threshold: c.Threshold,
	}
}

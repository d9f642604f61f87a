package company

import "time"

// Company is the tenancy axis of the planner. Every person, project and
// allocation row belongs to exactly one company.
type Company struct {
	Id        string
	Name      string
	CreatedAt time.Time
}

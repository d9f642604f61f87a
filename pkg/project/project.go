package project

// Project groups work items and carries an optional time budget.
type Project struct {
	Id   string
	Name string
	// Color is the hex color used by the planning grid.
	Color string
	// BudgetMinutes caps the project scope. Zero means the scope is derived
	// from the work items instead.
	BudgetMinutes int64
	Archived      bool
}

// WorkItem is a concrete piece of project work with an estimated size.
type WorkItem struct {
	Id           string
	ProjectId    string
	Name         string
	TotalMinutes int64
	SortOrder    int
}

// ScopeMinutes is the project's plannable scope: the explicit budget when one
// is set, otherwise the sum of the work item estimates. Zero means unlimited.
func ScopeMinutes(p Project, items []WorkItem) int64 {
	if p.BudgetMinutes > 0 {
		return p.BudgetMinutes
	}
	var total int64
	for _, item := range items {
		total += item.TotalMinutes
	}
	return total
}

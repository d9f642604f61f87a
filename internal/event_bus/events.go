package event_bus

import "time"

// TypeAllocationChanged is published after any committed allocation mutation.
const TypeAllocationChanged EventType = "allocation.changed"

// AllocationChanged describes the window touched by a committed mutation so
// listeners can refresh just the affected rows instead of reloading
// everything. For moves the span covers both the old and the new bounds.
type AllocationChanged struct {
	CompanyId string
	PersonIds []string
	From      time.Time
	To        time.Time
}

package grid

import "sync"

// UndoDepth is how many gestures a session can take back.
const UndoDepth = 50

// ActionKind tags what the original gesture did, which decides its inverse.
type ActionKind string

const (
	ActionCreated ActionKind = "created"
	ActionUpdated ActionKind = "updated"
	ActionDeleted ActionKind = "deleted"
)

// Family names which allocation table an action touched.
type Family string

const (
	FamilyPercent Family = "percent"
	FamilyUnit    Family = "unit"
	FamilyAdhoc   Family = "adhoc"
)

// Action is one undoable step. Ids lists the records the gesture created or
// changed (range-select fills create several at once). Prior holds the record
// as it was before an update or delete (an allocation.Percent, Unit or Adhoc
// matching Family) and is nil for creates.
type Action struct {
	Kind   ActionKind
	Family Family
	Ids    []string
	Prior  any
}

// UndoStack is a bounded LIFO of inverse actions. Pushing onto a full stack
// drops the oldest entry, so the cap is enforced at the moment of growth and
// the stack never exceeds its depth.
type UndoStack struct {
	mu      sync.Mutex
	actions []Action
	depth   int
}

func NewUndoStack(depth int) *UndoStack {
	if depth <= 0 {
		depth = UndoDepth
	}
	return &UndoStack{depth: depth}
}

func (s *UndoStack) Push(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.actions) == s.depth {
		copy(s.actions, s.actions[1:])
		s.actions = s.actions[:len(s.actions)-1]
	}
	s.actions = append(s.actions, a)
}

// Pop removes and returns the most recent action. The second value is false
// when the stack is empty.
func (s *UndoStack) Pop() (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.actions) == 0 {
		return Action{}, false
	}
	a := s.actions[len(s.actions)-1]
	s.actions = s.actions[:len(s.actions)-1]
	return a, true
}

func (s *UndoStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

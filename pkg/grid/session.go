package grid

import (
	"errors"
	"sync"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/event_bus"
	"github.com/NescAdmin/nesc-planering/internal/utils"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ErrSessionNotFound = errors.New("grid session not found")

var openSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "planering_grid_open_sessions",
	Help: "Grid editing sessions currently registered.",
})

// maxPendingHints bounds the refresh queue of a client that stopped polling.
// Beyond it the queue collapses into one hint covering everything.
const maxPendingHints = 100

// RefreshHint tells a polling client which rows went stale and for which date
// window. Empty PersonIds means every row.
type RefreshHint struct {
	PersonIds []string
	From, To  time.Time
}

// Session is one client's editing context on the grid: the granularity its
// columns use, its undo history and the refresh hints queued since its last
// changes poll. Sessions live in memory only; an expired one just means the
// client reopens and loses its undo history.
type Session struct {
	Id          string
	CompanyId   string
	Granularity period.Granularity
	CreatedAt   time.Time

	undo *UndoStack

	mu      sync.Mutex
	pending []RefreshHint
}

func (s *Session) queueHint(h RefreshHint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= maxPendingHints {
		merged := h
		for _, p := range s.pending {
			if p.From.Before(merged.From) {
				merged.From = p.From
			}
			if p.To.After(merged.To) {
				merged.To = p.To
			}
		}
		merged.PersonIds = nil
		s.pending = s.pending[:0]
		s.pending = append(s.pending, merged)
		return
	}
	s.pending = append(s.pending, h)
}

// DrainHints returns the queued refresh hints and clears the queue.
func (s *Session) DrainHints() []RefreshHint {
	s.mu.Lock()
	defer s.mu.Unlock()
	hints := s.pending
	s.pending = nil
	return hints
}

// Registry keeps the open sessions and fans committed allocation changes out
// to them as refresh hints, scoped to the session's company.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    utils.Clock

	unsubscribe func()
}

func NewRegistry(bus *event_bus.EventBus, clock utils.Clock) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		clock:    clock,
	}
	r.unsubscribe = event_bus.SubscribeTyped[event_bus.AllocationChanged](bus, event_bus.TypeAllocationChanged,
		func(e event_bus.EventT[event_bus.AllocationChanged]) error {
			r.broadcast(e.Data)
			return nil
		})
	return r
}

func (r *Registry) broadcast(change event_bus.AllocationChanged) {
	hint := RefreshHint{PersonIds: change.PersonIds, From: change.From, To: change.To}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.CompanyId == change.CompanyId {
			s.queueHint(hint)
		}
	}
}

// Open registers a new session for the company.
func (r *Registry) Open(companyId string, g period.Granularity) *Session {
	s := &Session{
		Id:          uuid.NewString(),
		CompanyId:   companyId,
		Granularity: g,
		CreatedAt:   r.clock.Now(),
		undo:        NewUndoStack(UndoDepth),
	}
	r.mu.Lock()
	r.sessions[s.Id] = s
	r.mu.Unlock()
	openSessions.Inc()
	return s
}

// Get returns the company's session with the given id.
func (r *Registry) Get(companyId, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.CompanyId != companyId {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close drops the session. Closing an unknown id reports ErrSessionNotFound.
func (r *Registry) Close(companyId, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.CompanyId != companyId {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	openSessions.Dec()
	return nil
}

// Shutdown detaches the registry from the event bus.
func (r *Registry) Shutdown() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

package grid

import (
	"context"
	"testing"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/event_bus"
	"github.com/NescAdmin/nesc-planering/internal/utils"
	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *event_bus.EventBus) {
	bus := event_bus.NewEventBus()
	clock := &utils.MockClock{FixedNow: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
	return NewRegistry(bus, clock), bus
}

func TestRegistry_OpenAndGet(t *testing.T) {
	t.Run("should return the company's own session", func(t *testing.T) {
		// given
		registry, _ := newTestRegistry()
		s := registry.Open("company-1", period.Week)

		// when
		found, err := registry.Get("company-1", s.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, s.Id, found.Id)
		assert.Equal(t, period.Week, found.Granularity)
		assert.Equal(t, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC), found.CreatedAt)
	})

	t.Run("should hide sessions from other companies", func(t *testing.T) {
		// given
		registry, _ := newTestRegistry()
		s := registry.Open("company-1", period.Week)

		// when
		_, err := registry.Get("company-2", s.Id)

		// then
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("should report an unknown id", func(t *testing.T) {
		registry, _ := newTestRegistry()
		_, err := registry.Get("company-1", "nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestRegistry_Close(t *testing.T) {
	t.Run("should drop the session exactly once", func(t *testing.T) {
		// given
		registry, _ := newTestRegistry()
		s := registry.Open("company-1", period.Day)

		// when / then
		require.NoError(t, registry.Close("company-1", s.Id))
		assert.ErrorIs(t, registry.Close("company-1", s.Id), ErrSessionNotFound)
		_, err := registry.Get("company-1", s.Id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("should not let another company close the session", func(t *testing.T) {
		registry, _ := newTestRegistry()
		s := registry.Open("company-1", period.Day)

		assert.ErrorIs(t, registry.Close("company-2", s.Id), ErrSessionNotFound)
		_, err := registry.Get("company-1", s.Id)
		assert.NoError(t, err)
	})
}

func TestRegistry_BroadcastsAllocationChanges(t *testing.T) {
	t.Run("should queue a refresh hint on sessions of the changed company", func(t *testing.T) {
		// given
		registry, bus := newTestRegistry()
		mine := registry.Open("company-1", period.Week)
		other := registry.Open("company-2", period.Week)

		// when
		err := bus.Publish(event_bus.NewEvent(context.Background(), event_bus.TypeAllocationChanged, event_bus.AllocationChanged{
			CompanyId: "company-1",
			PersonIds: []string{"person-1"},
			From:      time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
			To:        time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		}))
		require.NoError(t, err)

		// then
		hints := mine.DrainHints()
		require.Len(t, hints, 1)
		assert.Equal(t, []string{"person-1"}, hints[0].PersonIds)
		assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), hints[0].From)
		assert.Empty(t, other.DrainHints())
	})

	t.Run("should drain the queue exactly once", func(t *testing.T) {
		// given
		registry, bus := newTestRegistry()
		s := registry.Open("company-1", period.Week)
		require.NoError(t, bus.Publish(event_bus.NewEvent(context.Background(), event_bus.TypeAllocationChanged, event_bus.AllocationChanged{
			CompanyId: "company-1",
		})))

		// when / then
		assert.Len(t, s.DrainHints(), 1)
		assert.Empty(t, s.DrainHints())
	})

	t.Run("should stop broadcasting after shutdown", func(t *testing.T) {
		// given
		registry, bus := newTestRegistry()
		s := registry.Open("company-1", period.Week)

		// when
		registry.Shutdown()
		require.NoError(t, bus.Publish(event_bus.NewEvent(context.Background(), event_bus.TypeAllocationChanged, event_bus.AllocationChanged{
			CompanyId: "company-1",
		})))

		// then
		assert.Empty(t, s.DrainHints())
	})
}

func TestSession_HintQueueCollapsesAtCap(t *testing.T) {
	// given: a session whose client stopped polling
	registry, _ := newTestRegistry()
	s := registry.Open("company-1", period.Week)
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	for i := 0; i < maxPendingHints; i++ {
		s.queueHint(RefreshHint{PersonIds: []string{"person-1"}, From: day, To: day.AddDate(0, 0, i)})
	}

	// when: one more hint arrives over the cap
	s.queueHint(RefreshHint{PersonIds: []string{"person-2"}, From: day.AddDate(0, 0, -7), To: day})

	// then: the queue collapses into a single hint covering everything
	hints := s.DrainHints()
	require.Len(t, hints, 1)
	assert.Nil(t, hints[0].PersonIds, "a merged hint must refresh every row")
	assert.Equal(t, day.AddDate(0, 0, -7), hints[0].From)
	assert.Equal(t, day.AddDate(0, 0, maxPendingHints-1), hints[0].To)
}

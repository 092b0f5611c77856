package messaging

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var completed, leveled []shared.Event
	require.NoError(t, bus.Subscribe(shared.EventHabitCompleted, func(e shared.Event) error {
		completed = append(completed, e)
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(e shared.Event) error {
		leveled = append(leveled, e)
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 35, 1, true)))
	require.NoError(t, bus.Publish(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 30, 1, true)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("user-1", 1, 2, 1035)))

	assert.Len(t, completed, 2)
	require.Len(t, leveled, 1)
	assert.Equal(t, shared.EventLevelUp, leveled[0].EventType())
}

func TestInMemoryEventBus_SubscribeAll(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var all []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 35, 1, false)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("user-1", 1, 2, 1035)))

	assert.Equal(t, []shared.EventType{shared.EventHabitCompleted, shared.EventLevelUp}, all)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var called bool
	require.NoError(t, bus.Subscribe(shared.EventHabitCompleted, func(shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventHabitCompleted, func(shared.Event) error {
		called = true
		return nil
	}))

	// Publish reports success; handler failures are logged, not returned.
	require.NoError(t, bus.Publish(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 35, 1, false)))
	assert.True(t, called)
}

func TestInMemoryEventBus_AsyncDelivery(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.Subscribe(shared.EventHabitCompleted, func(shared.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 35, 1, false)))
	}

	// Close waits for in-flight handlers.
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, count)
}

func TestInMemoryEventBus_ClosedBusRejectsPublish(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewLevelUpEvent("user-1", 1, 2, 1035))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)

	// Closing twice is a no-op.
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_Metrics(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventHabitCompleted, func(shared.Event) error { return nil }))
	require.NoError(t, bus.Subscribe(shared.EventHabitCompleted, func(shared.Event) error { return errors.New("boom") }))

	require.NoError(t, bus.Publish(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 35, 1, false)))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.InDelta(t, 0.5, snap.HandlerSuccessRate, 0.001)
	assert.False(t, snap.StartedAt.IsZero())
}

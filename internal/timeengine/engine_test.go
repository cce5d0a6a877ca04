package timeengine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/simtypes"
)

func newTestEngine(opts ...Option) *Engine {
	e := New(zap.NewNop(), opts...)
	e.sleepFunc = func(time.Duration) {} // tests run in virtual time only
	return e
}

func TestDispatchOrderedByTimestampThenPriority(t *testing.T) {
	e := newTestEngine()
	var order []string
	e.RegisterHandler(simtypes.EventTrade, func(ev Event) error {
		order = append(order, "trade")
		return nil
	})
	e.RegisterHandler(simtypes.EventOrder, func(ev Event) error {
		order = append(order, "order")
		return nil
	})
	e.RegisterHandler(simtypes.EventAgentWakeup, func(ev Event) error {
		order = append(order, "wakeup")
		return nil
	})

	// Same timestamp: priority order (trade=2, order=3, wakeup=4) must win
	// regardless of schedule call order.
	e.ScheduleEvent(Event{Kind: simtypes.EventAgentWakeup, Priority: simtypes.PriorityAgentWakeup}, 100)
	e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 100)
	e.ScheduleEvent(Event{Kind: simtypes.EventTrade, Priority: simtypes.PriorityTrade}, 100)

	e.Run(nil)
	require.Equal(t, []string{"trade", "order", "wakeup"}, order)
	require.Equal(t, int64(100), e.GetStats().CurrentTsUs)
}

func TestFIFOWithinSameTimestampAndPriority(t *testing.T) {
	e := newTestEngine()
	var seen []string
	e.RegisterHandler(simtypes.EventOrder, func(ev Event) error {
		seen = append(seen, ev.AgentID)
		return nil
	})
	for _, id := range []string{"a", "b", "c"} {
		e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder, AgentID: id}, 50)
	}
	e.Run(nil)
	require.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestTimeNeverMovesBackward(t *testing.T) {
	e := newTestEngine()
	var tsSeq []int64
	e.RegisterHandler(simtypes.EventOrder, func(ev Event) error {
		tsSeq = append(tsSeq, ev.TimestampUs)
		return nil
	})
	e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder, TimestampUs: 300}, 300)
	e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder, TimestampUs: 100}, 100)
	e.Run(nil)
	require.Len(t, tsSeq, 2)
	require.Equal(t, int64(300), e.GetStats().CurrentTsUs)
}

func TestBackpressureDropsPastCapacity(t *testing.T) {
	e := newTestEngine(WithMaxQueueSize(2))
	require.True(t, e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 1))
	require.True(t, e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 2))
	require.False(t, e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 3))
	stats := e.GetStats()
	require.Equal(t, uint64(1), stats.Dropped)
	require.Equal(t, 2, stats.QueueLen)
}

func TestPauseBlocksUntilResume(t *testing.T) {
	e := newTestEngine()
	var dispatched int32
	e.RegisterHandler(simtypes.EventOrder, func(ev Event) error {
		atomic.AddInt32(&dispatched, 1)
		return nil
	})
	e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 10)
	e.Pause()

	done := make(chan struct{})
	go func() {
		e.Run(nil)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Run returned while paused")
	case <-time.After(30 * time.Millisecond):
	}
	require.Equal(t, int32(0), atomic.LoadInt32(&dispatched))

	e.Resume()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not complete after Resume")
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&dispatched))
}

func TestClearQueueDropsEverything(t *testing.T) {
	e := newTestEngine()
	e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 1)
	e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 2)
	e.ClearQueue()
	require.Equal(t, 0, e.GetStats().QueueLen)
	e.Run(nil) // should return immediately, nothing to dispatch
}

func TestScheduleRecurringRespectsCount(t *testing.T) {
	e := newTestEngine()
	n := e.ScheduleRecurring(func(tsUs int64) Event {
		return Event{Kind: simtypes.EventAgentWakeup, Priority: simtypes.PriorityAgentWakeup, TimestampUs: tsUs}
	}, 1000, 5)
	require.Equal(t, 5, n)
	require.Equal(t, 5, e.GetStats().QueueLen)
}

func TestStopHaltsRunWithEventsStillQueued(t *testing.T) {
	e := newTestEngine()
	e.RegisterHandler(simtypes.EventOrder, func(ev Event) error {
		e.Stop()
		return nil
	})
	e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 10)
	e.ScheduleEvent(Event{Kind: simtypes.EventOrder, Priority: simtypes.PriorityOrder}, 20)
	e.Run(nil)
	require.Equal(t, 1, e.GetStats().QueueLen)
}

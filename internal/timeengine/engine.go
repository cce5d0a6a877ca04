package timeengine

import (
	"container/heap"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/simtypes"
)

// DefaultMaxQueueSize is the queue capacity at which schedule_event starts
// rejecting with backpressure.
const DefaultMaxQueueSize = 100_000

// DefaultYieldEvery is how many dispatches elapse between cooperative yields.
const DefaultYieldEvery = 256

// Stats is a point-in-time snapshot of engine counters, returned by
// GetStats.
type Stats struct {
	CurrentTsUs   int64
	QueueLen      int
	Dispatched    uint64
	Dropped       uint64
	Paused        bool
	SpeedMultiple float64
}

// Engine is the discrete-event virtual-time scheduler: a min-priority queue
// ordered by (timestamp_us, priority, insertion_counter), a pause gate, and
// a real-time speed multiplier. One Engine drives one simulation; it is not
// safe to Run concurrently from two goroutines.
type Engine struct {
	logger *zap.Logger

	mu           sync.Mutex
	q            entryHeap
	seq          uint64
	maxQueueSize int
	dropped      uint64
	dispatched   uint64
	currentTsUs  int64
	speed        float64
	paused       bool
	pauseCond    *sync.Cond
	stopped      bool

	handlers  map[simtypes.EventKind][]HandlerFunc
	yieldN    int
	sleepFunc func(time.Duration)
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithMaxQueueSize overrides DefaultMaxQueueSize.
func WithMaxQueueSize(n int) Option {
	return func(e *Engine) { e.maxQueueSize = n }
}

// WithYieldEvery overrides DefaultYieldEvery.
func WithYieldEvery(n int) Option {
	return func(e *Engine) { e.yieldN = n }
}

// WithInitialTime sets the starting virtual clock in microseconds.
func WithInitialTime(tsUs int64) Option {
	return func(e *Engine) { e.currentTsUs = tsUs }
}

// New returns a ready-to-run Engine, initially resumed at speed 1.0.
func New(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:       logger,
		maxQueueSize: DefaultMaxQueueSize,
		speed:        1.0,
		handlers:     make(map[simtypes.EventKind][]HandlerFunc),
		yieldN:       DefaultYieldEvery,
		sleepFunc:    time.Sleep,
	}
	e.pauseCond = sync.NewCond(&e.mu)
	for _, o := range opts {
		o(e)
	}
	heap.Init(&e.q)
	return e
}

// RegisterHandler attaches fn to every dispatch of events of kind variant.
// Multiple handlers per variant are allowed; all run on every dispatch.
func (e *Engine) RegisterHandler(variant simtypes.EventKind, fn HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[variant] = append(e.handlers[variant], fn)
}

// ScheduleEvent enqueues ev to fire delayUs microseconds after the engine's
// current virtual time. Returns false (and counts a drop) when the queue is
// at capacity — the engine's backpressure signal.
func (e *Engine) ScheduleEvent(ev Event, delayUs int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduleLocked(ev, e.currentTsUs+delayUs)
}

func (e *Engine) scheduleLocked(ev Event, tsUs int64) bool {
	if len(e.q) >= e.maxQueueSize {
		e.dropped++
		return false
	}
	e.seq++
	heap.Push(&e.q, &entry{event: ev, tsUs: tsUs, priority: ev.Priority, seq: e.seq})
	return true
}

// ScheduleRecurring schedules up to count future events spaced intervalUs
// apart (or fewer if the queue fills first). count <= 0 schedules events
// until the queue fills or DefaultMaxQueueSize have been scheduled;
// open-ended recurrence re-arms from within a handler instead.
func (e *Engine) ScheduleRecurring(factory Factory, intervalUs int64, count int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts := e.currentTsUs
	scheduled := 0
	for i := 0; count <= 0 || i < count; i++ {
		ts += intervalUs
		if !e.scheduleLocked(factory(ts), ts) {
			break
		}
		scheduled++
		if count <= 0 && scheduled >= DefaultMaxQueueSize {
			break
		}
	}
	return scheduled
}

// Pause blocks the loop before it next pops an event.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Resume releases a paused loop.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	e.pauseCond.Broadcast()
}

// SetSpeed sets the real-time dilation factor. 0 means as-fast-as-possible.
func (e *Engine) SetSpeed(mul float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = mul
}

// Stop halts Run after its current dispatch.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.pauseCond.Broadcast()
}

// ClearQueue drops every pending event without dispatching it.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.q = entryHeap{}
}

// GetStats returns a snapshot of the engine's counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		CurrentTsUs:   e.currentTsUs,
		QueueLen:      len(e.q),
		Dispatched:    e.dispatched,
		Dropped:       e.dropped,
		Paused:        e.paused,
		SpeedMultiple: e.speed,
	}
}

// Run drains the queue until empty or untilUs (if non-nil) is reached, or
// Stop is called. It respects the pause gate, advances current_ts
// monotonically to each dispatched event's timestamp, sleeps real time when
// speed > 0, and yields cooperatively every yieldN dispatches.
func (e *Engine) Run(untilUs *int64) {
	for {
		e.mu.Lock()
		for e.paused && !e.stopped {
			e.pauseCond.Wait()
		}
		if e.stopped {
			e.mu.Unlock()
			return
		}
		if len(e.q) == 0 {
			e.mu.Unlock()
			return
		}
		next := e.q[0]
		if untilUs != nil && next.tsUs > *untilUs {
			e.mu.Unlock()
			return
		}
		heap.Pop(&e.q)
		speed := e.speed
		prevTs := e.currentTsUs
		if next.tsUs > prevTs {
			e.currentTsUs = next.tsUs
		}
		e.dispatched++
		count := e.dispatched
		ev := next.event
		e.mu.Unlock()

		if speed > 0 {
			deltaUs := next.tsUs - prevTs
			if deltaUs > 0 {
				e.sleepFunc(time.Duration(float64(deltaUs)/speed) * time.Microsecond)
			}
		}

		e.dispatch(ev)

		if e.yieldN > 0 && count%uint64(e.yieldN) == 0 {
			runtime.Gosched()
		}
	}
}

func (e *Engine) dispatch(ev Event) {
	e.mu.Lock()
	hs := append([]HandlerFunc(nil), e.handlers[ev.Kind]...)
	e.mu.Unlock()
	if len(hs) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(hs))
	for _, h := range hs {
		h := h
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("event handler panicked",
						zap.Any("panic", r), zap.Int("event_kind", int(ev.Kind)))
				}
			}()
			if err := h(ev); err != nil {
				e.logger.Warn("event handler returned error",
					zap.Error(err), zap.Int("event_kind", int(ev.Kind)))
			}
		}()
	}
	wg.Wait()
}

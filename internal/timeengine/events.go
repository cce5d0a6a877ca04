package timeengine

import "github.com/ayoubachak/marksim/internal/simtypes"

// Event is whatever the engine schedules and dispatches; priority and kind
// are carried on simtypes.Event so orchestrator handlers can switch on Kind.
type Event = simtypes.Event

// HandlerFunc processes one dispatched event. Returned errors are logged
// by the engine and never abort the loop.
type HandlerFunc func(ev Event) error

// Factory produces the next event of a recurring schedule, given the
// virtual timestamp it will fire at.
type Factory func(tsUs int64) Event

package jdb

import (
	"sync"
	"time"
)

// drainTimeout bounds how long events still queued when the session ends
// wait for a reader before they are dropped.
const drainTimeout = 5 * time.Second

// EventKind identifies an unsolicited notification.
type EventKind int

const (
	EventBreakpointHit EventKind = iota
	EventInvalidBreakpointStop
	EventOutput
	EventError
)

var eventKindNames = map[EventKind]string{
	EventBreakpointHit:         "breakpoint",
	EventInvalidBreakpointStop: "invalidbreakpoint",
	EventOutput:                "output",
	EventError:                 "error",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ConsoleStream labels output events carrying jdb console text that no
// command asked for, such as an uncaught exception report.
const ConsoleStream = "jdb"

// Event is delivered on Driver.Events.
type Event struct {
	Kind       EventKind `json:"kind"`
	ThreadName string    `json:"thread_name,omitempty"`
	// Text holds the raw lines that triggered the event, newline joined.
	Text string `json:"text,omitempty"`
	// Stream is "stdout" or "stderr" for output events.
	Stream string    `json:"stream,omitempty"`
	At     time.Time `json:"at"`
}

type gatedEvent struct {
	gate <-chan struct{}
	ev   Event
}

// emitter delivers events in the order they were pushed. An event with a
// gate is held until the gate closes or the emitter is finished. Once
// finished, events nobody reads within the drain timeout are dropped.
type emitter struct {
	mu       sync.Mutex
	queue    []gatedEvent
	finished bool
	wake     chan struct{}
	release  chan struct{}
	abandon  chan struct{}
	drain    time.Duration
	out      chan Event
}

func newEmitter(buffer int) *emitter {
	e := &emitter{
		wake:    make(chan struct{}, 1),
		release: make(chan struct{}),
		abandon: make(chan struct{}),
		drain:   drainTimeout,
		out:     make(chan Event, buffer),
	}
	go e.run()
	return e
}

func (e *emitter) push(gate <-chan struct{}, ev Event) {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, gatedEvent{gate: gate, ev: ev})
	e.mu.Unlock()
	e.signal()
}

// finish releases all gates; out is closed once the queue drains.
func (e *emitter) finish() {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	e.finished = true
	close(e.release)
	time.AfterFunc(e.drain, func() { close(e.abandon) })
	e.mu.Unlock()
	e.signal()
}

func (e *emitter) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *emitter) run() {
	defer close(e.out)
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			done := e.finished
			e.mu.Unlock()
			if done {
				return
			}
			<-e.wake
			continue
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		if next.gate != nil {
			select {
			case <-next.gate:
			case <-e.release:
			}
		}
		select {
		case e.out <- next.ev:
		case <-e.abandon:
		}
	}
}

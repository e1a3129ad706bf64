package jdb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Driver turns the jdb console into a command/response interface. It owns
// the command queue, the line buffer and the session flags; every input
// (output chunks, stream end, submissions) is applied under one lock.
type Driver struct {
	mu      sync.Mutex
	st      State
	stdin   io.Writer
	log     *slog.Logger
	metrics *Metrics
	emit    *emitter

	started     *Future[string]
	readyBP     *Future[struct{}]
	terminated  *Future[struct{}]
	failed      bool
	eventBuffer int
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) { d.log = l }
}

// WithMetrics records command and event counts.
func WithMetrics(m *Metrics) DriverOption {
	return func(d *Driver) { d.metrics = m }
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) DriverOption {
	return func(d *Driver) { d.eventBuffer = n }
}

// NewDriver returns a driver that writes commands to stdin. Output of the
// debugger must be passed to Feed.
func NewDriver(stdin io.Writer, opts ...DriverOption) *Driver {
	d := &Driver{
		stdin:       stdin,
		log:         slog.Default(),
		started:     newFuture[string](),
		readyBP:     newFuture[struct{}](),
		terminated:  newFuture[struct{}](),
		eventBuffer: 64,
	}
	for _, o := range opts {
		o(d)
	}
	d.emit = newEmitter(d.eventBuffer)
	return d
}

// StartupCompleted resolves with the initial thread name once the initial run
// has completed, or with "" if the application exited before that.
func (d *Driver) StartupCompleted() *Future[string] { return d.started }

// ReadyForBreakpoints resolves once the VM start banner has been seen.
func (d *Driver) ReadyForBreakpoints() *Future[struct{}] { return d.readyBP }

// Terminated resolves once the session has ended for any reason.
func (d *Driver) Terminated() *Future[struct{}] { return d.terminated }

// Events delivers notifications in detection order. It is closed after the
// session ends and all pending notifications have been delivered.
func (d *Driver) Events() <-chan Event { return d.emit.out }

// Snapshot returns a copy of the current session state.
func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.st.snapshot()
	snap.Phase = d.phase().String()
	return snap
}

// Phase reports the lifecycle position derived from the session flags.
func (d *Driver) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase()
}

func (d *Driver) phase() Phase {
	if d.failed {
		return PhaseFailed
	}
	return d.st.phase()
}

// Submit enqueues a command. The returned Command resolves with the parsed
// response; after the session has exited it resolves at once with an empty
// response and nothing is written.
func (d *Driver) Submit(text string, category Category) *Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmd := newCommand(strings.TrimRight(text, "\r\n"), category, d.st.q.nextSeq())
	if d.st.Exited {
		cmd.resolve(Response{})
		return cmd
	}
	d.st.q.waiting = append(d.st.q.waiting, cmd)
	d.log.Debug("command submitted", "id", cmd.ID, "cmd", cmd.Text, "category", category.String())
	d.st.q.admit(d.st.gateOpen)
	d.dispatch()
	return cmd
}

// Exec submits a command and waits for its response.
func (d *Driver) Exec(ctx context.Context, text string, category Category) (Response, error) {
	return d.Submit(text, category).Wait(ctx)
}

// Feed appends a chunk of debugger output and applies every completion it
// makes possible.
func (d *Driver) Feed(chunk []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.st.Exited {
		return
	}
	d.st.Output.Feed(chunk)
	d.process()
}

// EndOfStream reports that the debugger's output stream has closed. The
// executing command resolves with whatever was buffered and every other
// command resolves empty.
func (d *Driver) EndOfStream() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.st.Exited {
		return
	}
	if cmd := d.st.q.executing; cmd != nil {
		d.st.q.executing = nil
		d.resolve(cmd, Response{ThreadName: d.st.ThreadName, Lines: closingLines(d.st.Output.Lines())})
	}
	var cause error
	if !d.st.ReadyForCommands && !detectAppExited(d.st.Output.Lines()) {
		cause = fmt.Errorf("%w: %w", ErrStartupFailed, ErrStreamClosed)
	}
	d.shutdown(cause)
}

// StreamError reports a read failure on the debugger's output. Before the
// session is ready it fails startup; afterwards it is surfaced as an event.
func (d *Driver) StreamError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.st.Exited {
		return
	}
	if !d.st.ReadyForCommands {
		d.shutdown(fmt.Errorf("%w: %w", ErrStartupFailed, err))
		return
	}
	d.log.Warn("debugger stream error", "error", err)
	d.notify(nil, Event{Kind: EventError, Text: err.Error(), ThreadName: d.st.ThreadName})
}

// Fail ends the session with err, rejecting startup if it is still pending.
func (d *Driver) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.st.Exited {
		return
	}
	d.shutdown(err)
}

// Publish emits an event produced outside the debugger console, such as
// target program output. It is delivered after any notification that is
// already queued.
func (d *Driver) Publish(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.st.Exited {
		return
	}
	d.notify(nil, ev)
}

// process applies transitions until the buffer is exhausted, writing the
// next admitted command whenever nothing is executing.
func (d *Driver) process() {
	for !d.st.Exited {
		if d.step() {
			continue
		}
		if !d.dispatch() {
			return
		}
	}
}

// step applies at most one transition and reports whether another may follow.
func (d *Driver) step() bool {
	lines := d.st.Output.Lines()
	if len(lines) == 0 {
		return false
	}

	if det, ok := detectAsync(lines); ok {
		text := strings.Join(lines[det.marker:], "\n")
		var gate <-chan struct{}
		if cmd := d.st.q.executing; cmd != nil {
			d.st.q.executing = nil
			d.resolve(cmd, Response{ThreadName: det.thread, Lines: payload(lines[:det.marker])})
			gate = cmd.observed
		}
		d.st.ThreadName = det.thread
		d.st.Output.Reset()
		d.notify(gate, Event{Kind: det.kind, ThreadName: det.thread, Text: text})
		return true
	}

	cmd := d.st.q.executing
	if cmd == nil {
		return d.idle(lines)
	}
	v := terminatorFor(cmd.Category)(lines, &d.st, cmd)
	if !v.Complete {
		return false
	}
	d.st.Output.Consume(v.Consumed)
	if v.Response.ThreadName != "" {
		d.st.ThreadName = v.Response.ThreadName
	}
	d.st.q.executing = nil
	d.resolve(cmd, v.Response)
	return true
}

// idle handles output seen while no command is executing: the VM start
// banner during startup, the application exit banner at any time and, once
// ready, unsolicited console output closed by a prompt.
func (d *Driver) idle(lines []string) bool {
	if !d.st.VMStarted {
		if thread, ok := detectVMStarted(lines); ok {
			d.st.VMStarted = true
			d.st.ReadyForBreakpoints = true
			d.st.ThreadName = thread
			d.st.Output.Reset()
			d.log.Info("debugger attached", "thread", thread)
			d.readyBP.resolve(struct{}{})
			d.st.q.admit(d.st.gateOpen)
			return true
		}
	}
	if detectAppExited(lines) {
		d.log.Info("application exited")
		d.shutdown(nil)
		return false
	}
	if d.st.ReadyForCommands && isTerminator(lines[len(lines)-1], d.st.ThreadName) {
		d.flushUnsolicited()
	}
	return false
}

// resolve completes cmd and applies its session side effects.
func (d *Driver) resolve(cmd *Command, resp Response) {
	if resp.Lines == nil {
		resp.Lines = []string{}
	}
	cmd.resolve(resp)
	d.metrics.command(cmd, "ok")
	d.log.Debug("command resolved", "id", cmd.ID, "category", cmd.Category.String(), "lines", len(resp.Lines))

	if cmd.Category == CategoryRun && !d.st.RunCompleted {
		d.st.RunCompleted = true
		d.st.ReadyForCommands = true
		if resp.ThreadName != "" {
			d.st.ThreadName = resp.ThreadName
		}
		d.started.resolve(d.st.ThreadName)
		d.st.q.admit(d.st.gateOpen)
	}
}

// dispatch writes the next admitted command if none is executing and reports
// whether one was written. Output buffered before the write never belongs to
// the new command: everything up to its last terminator is flushed as an
// output event, and leading prompt, banner and blank lines are dropped.
func (d *Driver) dispatch() bool {
	for !d.st.Exited && d.st.q.executing == nil {
		cmd := d.st.q.pop()
		if cmd == nil {
			return false
		}
		d.flushUnsolicited()
		d.discardResidue()
		if cmd.Category == CategoryRun {
			d.st.RunSent = true
		}
		d.st.q.executing = cmd
		cmd.sentAt = time.Now()
		if _, err := io.WriteString(d.stdin, cmd.Text+"\n"); err != nil {
			d.st.q.executing = nil
			cmd.reject(fmt.Errorf("write %q: %w", cmd.Text, err))
			d.metrics.command(cmd, "error")
			d.log.Error("command write failed", "id", cmd.ID, "error", err)
			continue
		}
		d.log.Debug("command sent", "id", cmd.ID, "cmd", cmd.Text)
		return true
	}
	return false
}

// flushUnsolicited emits the buffered output up to the last terminator line
// as console output and drops it. Text after that terminator stays buffered
// since it may be the start of an asynchronous notification.
func (d *Driver) flushUnsolicited() {
	lines := d.st.Output.Lines()
	last := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if isTerminator(lines[i], d.st.ThreadName) {
			last = i
			break
		}
	}
	if last < 0 {
		return
	}
	d.st.ThreadName = threadAt(lines[last], d.st.ThreadName)
	text := trimBlank(payload(lines[:last]))
	d.st.Output.Consume(last + 1)
	if len(text) == 0 {
		return
	}
	d.notify(nil, Event{Kind: EventOutput, Stream: ConsoleStream, ThreadName: d.st.ThreadName, Text: strings.Join(text, "\n")})
}

func (d *Driver) discardResidue() {
	lines := d.st.Output.Lines()
	n := 0
	for ; n < len(lines); n++ {
		l := lines[n]
		if strings.TrimSpace(l) == "" || isPrompt(l) {
			continue
		}
		if name, ok := bannerThread(l); ok {
			d.st.ThreadName = name
			continue
		}
		break
	}
	d.st.Output.Consume(n)
}

func (d *Driver) notify(gate <-chan struct{}, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	d.metrics.event(ev.Kind)
	d.log.Debug("debugger event", "kind", ev.Kind.String(), "thread", ev.ThreadName)
	d.emit.push(gate, ev)
}

// shutdown marks the session exited. A nil cause means a normal exit.
func (d *Driver) shutdown(cause error) {
	d.st.Exited = true
	for _, cmd := range d.st.q.drain() {
		cmd.resolve(Response{ThreadName: d.st.ThreadName, Lines: []string{}})
		d.metrics.command(cmd, "drained")
	}
	d.st.Output.Reset()
	if cause != nil {
		d.failed = !d.started.Settled()
		d.readyBP.reject(cause)
		d.started.reject(cause)
		d.log.Info("debugger session ended", "cause", cause)
	} else {
		d.readyBP.resolve(struct{}{})
		d.started.resolve("")
	}
	d.terminated.resolve(struct{}{})
	d.emit.finish()
}

// closingLines is the payload flushed when the stream closes mid-command.
func closingLines(lines []string) []string {
	out := payload(lines)
	kept := out[:0]
	for _, l := range out {
		if strings.Contains(l, markerAppExited) {
			continue
		}
		kept = append(kept, l)
	}
	return trimBlank(kept)
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

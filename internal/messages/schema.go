package messages

import (
	"fmt"
	"time"
)

// =============================================================================
// CORE INTERFACES
// =============================================================================

// Message represents any message in the system
type Message interface {
	Subject() string
	Validate() error
}

// Command represents an input that requests something to happen
type Command interface {
	Message
	IsCommand()
}

// Event represents something that has happened
type Event interface {
	Message
	IsEvent()
	Timestamp() time.Time
}

// =============================================================================
// SUBJECT CONSTANTS - Single source of truth for all subjects
// =============================================================================

const (
	// JetStream stream holding every debugger event
	EventStreamName    = "JDB_EVENT"
	EventStreamSubject = "event.jdb.>"

	// Debugger domain - Commands (request/reply, not persisted)
	DebuggerExecSubjectPattern = "command.jdb.*.exec" // * = session id

	// Debugger domain - Events
	BreakpointHitSubjectPattern     = "event.jdb.*.breakpoint"
	InvalidBreakpointSubjectPattern = "event.jdb.*.invalidbreakpoint"
	DebuggerOutputSubjectPattern    = "event.jdb.*.output.*" // session id, stream
	DebuggerErrorSubjectPattern     = "event.jdb.*.error"
	SessionStartedSubjectPattern    = "event.jdb.*.started"
	SessionExitedSubjectPattern     = "event.jdb.*.exited"
	CommandCompletedSubjectPattern  = "event.jdb.*.command.completed"
)

// =============================================================================
// DEBUGGER DOMAIN - COMMANDS
// =============================================================================

// DebuggerCommandMessage asks the session to run one jdb command.
type DebuggerCommandMessage struct {
	SessionID     string `json:"-"` // Derived from subject
	Cmd           string `json:"cmd" required:"true" placeholder:"where"`
	Category      string `json:"category" required:"true" field_type:"select"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (c DebuggerCommandMessage) Subject() string { return DebuggerExecSubject(c.SessionID) }
func (c DebuggerCommandMessage) IsCommand()      {}
func (c DebuggerCommandMessage) Validate() error {
	return validateDebuggerCommand(c)
}

// CommandResultMessage is the reply to a DebuggerCommandMessage.
type CommandResultMessage struct {
	CommandID     string   `json:"command_id,omitempty"`
	ThreadName    string   `json:"thread_name"`
	Lines         []string `json:"lines"`
	Error         string   `json:"error,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// =============================================================================
// DEBUGGER DOMAIN - EVENTS
// =============================================================================

// BreakpointHitEvent reports that a thread stopped at a breakpoint
type BreakpointHitEvent struct {
	SessionID  string    `json:"session_id"`
	ThreadName string    `json:"thread_name"`
	Text       string    `json:"text"`
	HitAt      time.Time `json:"hit_at"`
}

func (e BreakpointHitEvent) Subject() string      { return BreakpointHitSubject(e.SessionID) }
func (e BreakpointHitEvent) IsEvent()             {}
func (e BreakpointHitEvent) Timestamp() time.Time { return e.HitAt }
func (e BreakpointHitEvent) Validate() error      { return requireSession(e.SessionID) }

// InvalidBreakpointStopEvent reports that the VM stopped because a deferred
// breakpoint could not be set
type InvalidBreakpointStopEvent struct {
	SessionID  string    `json:"session_id"`
	ThreadName string    `json:"thread_name"`
	Text       string    `json:"text"`
	StoppedAt  time.Time `json:"stopped_at"`
}

func (e InvalidBreakpointStopEvent) Subject() string      { return InvalidBreakpointSubject(e.SessionID) }
func (e InvalidBreakpointStopEvent) IsEvent()             {}
func (e InvalidBreakpointStopEvent) Timestamp() time.Time { return e.StoppedAt }
func (e InvalidBreakpointStopEvent) Validate() error      { return requireSession(e.SessionID) }

// DebuggerOutputEvent carries one line of target program or jdb stderr output
type DebuggerOutputEvent struct {
	SessionID string    `json:"session_id"`
	Stream    string    `json:"stream"` // "stdout" | "stderr" | "jdb" | "jdb-stderr"
	Data      string    `json:"data"`
	EmittedAt time.Time `json:"emitted_at"`
}

func (e DebuggerOutputEvent) Subject() string      { return DebuggerOutputSubject(e.SessionID, e.Stream) }
func (e DebuggerOutputEvent) IsEvent()             {}
func (e DebuggerOutputEvent) Timestamp() time.Time { return e.EmittedAt }
func (e DebuggerOutputEvent) Validate() error {
	if err := requireSession(e.SessionID); err != nil {
		return err
	}
	if e.Stream == "" {
		return fmt.Errorf("stream is required")
	}
	return nil
}

// DebuggerErrorEvent reports a read failure on jdb's output after startup
type DebuggerErrorEvent struct {
	SessionID  string    `json:"session_id"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e DebuggerErrorEvent) Subject() string      { return DebuggerErrorSubject(e.SessionID) }
func (e DebuggerErrorEvent) IsEvent()             {}
func (e DebuggerErrorEvent) Timestamp() time.Time { return e.OccurredAt }
func (e DebuggerErrorEvent) Validate() error      { return requireSession(e.SessionID) }

// SessionStartedEvent indicates the session accepts commands
type SessionStartedEvent struct {
	SessionID  string    `json:"session_id"`
	ThreadName string    `json:"thread_name"`
	MainClass  string    `json:"main_class,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

func (e SessionStartedEvent) Subject() string      { return SessionStartedSubject(e.SessionID) }
func (e SessionStartedEvent) IsEvent()             {}
func (e SessionStartedEvent) Timestamp() time.Time { return e.StartedAt }
func (e SessionStartedEvent) Validate() error      { return requireSession(e.SessionID) }

// SessionExitedEvent indicates the session ended, normally or not
type SessionExitedEvent struct {
	SessionID string    `json:"session_id"`
	Error     string    `json:"error,omitempty"`
	ExitedAt  time.Time `json:"exited_at"`
}

func (e SessionExitedEvent) Subject() string      { return SessionExitedSubject(e.SessionID) }
func (e SessionExitedEvent) IsEvent()             {}
func (e SessionExitedEvent) Timestamp() time.Time { return e.ExitedAt }
func (e SessionExitedEvent) Validate() error      { return requireSession(e.SessionID) }

// CommandCompletedEvent records a finished command and its response
type CommandCompletedEvent struct {
	SessionID     string    `json:"session_id"`
	CommandID     string    `json:"command_id"`
	Cmd           string    `json:"cmd"`
	Category      string    `json:"category"`
	ThreadName    string    `json:"thread_name"`
	Lines         []string  `json:"lines"`
	Error         string    `json:"error,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CompletedAt   time.Time `json:"completed_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e CommandCompletedEvent) Subject() string      { return CommandCompletedSubject(e.SessionID) }
func (e CommandCompletedEvent) IsEvent()             {}
func (e CommandCompletedEvent) Timestamp() time.Time { return e.CompletedAt }
func (e CommandCompletedEvent) Validate() error      { return requireSession(e.SessionID) }

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Subject builder functions for dynamic subjects
func DebuggerExecSubject(sessionID string) string {
	return fmt.Sprintf("command.jdb.%s.exec", sessionID)
}

func BreakpointHitSubject(sessionID string) string {
	return fmt.Sprintf("event.jdb.%s.breakpoint", sessionID)
}

func InvalidBreakpointSubject(sessionID string) string {
	return fmt.Sprintf("event.jdb.%s.invalidbreakpoint", sessionID)
}

func DebuggerOutputSubject(sessionID, stream string) string {
	return fmt.Sprintf("event.jdb.%s.output.%s", sessionID, stream)
}

func DebuggerErrorSubject(sessionID string) string {
	return fmt.Sprintf("event.jdb.%s.error", sessionID)
}

func SessionStartedSubject(sessionID string) string {
	return fmt.Sprintf("event.jdb.%s.started", sessionID)
}

func SessionExitedSubject(sessionID string) string {
	return fmt.Sprintf("event.jdb.%s.exited", sessionID)
}

func CommandCompletedSubject(sessionID string) string {
	return fmt.Sprintf("event.jdb.%s.command.completed", sessionID)
}

package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"jdbrun/internal/jdb"

	"github.com/nats-io/nats.go/jetstream"
)

// =============================================================================
// CONSTRUCTORS - Easy message creation
// =============================================================================

// NewDebuggerCommandMessage creates a command for the given session
func NewDebuggerCommandMessage(sessionID, cmd string, category jdb.Category) *DebuggerCommandMessage {
	return &DebuggerCommandMessage{
		SessionID: sessionID,
		Cmd:       cmd,
		Category:  category.String(),
	}
}

// WithCorrelation adds correlation ID to a debugger command
func (c *DebuggerCommandMessage) WithCorrelation(id string) *DebuggerCommandMessage {
	c.CorrelationID = id
	return c
}

// NewSessionStartedEvent creates a session started event
func NewSessionStartedEvent(sessionID, threadName, mainClass string) *SessionStartedEvent {
	return &SessionStartedEvent{
		SessionID:  sessionID,
		ThreadName: threadName,
		MainClass:  mainClass,
		StartedAt:  time.Now(),
	}
}

// NewSessionExitedEvent creates a session exited event
func NewSessionExitedEvent(sessionID string) *SessionExitedEvent {
	return &SessionExitedEvent{SessionID: sessionID, ExitedAt: time.Now()}
}

// WithError records why the session ended
func (e *SessionExitedEvent) WithError(err error) *SessionExitedEvent {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// NewCommandCompletedEvent builds the event for a resolved command
func NewCommandCompletedEvent(sessionID string, cmd *jdb.Command, resp jdb.Response, err error) *CommandCompletedEvent {
	e := &CommandCompletedEvent{
		SessionID:   sessionID,
		CommandID:   cmd.ID,
		Cmd:         cmd.Text,
		Category:    cmd.Category.String(),
		ThreadName:  resp.ThreadName,
		Lines:       resp.Lines,
		DurationMS:  time.Since(cmd.SubmittedAt).Milliseconds(),
		CompletedAt: time.Now(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithCorrelation adds correlation ID to a command completed event
func (e *CommandCompletedEvent) WithCorrelation(id string) *CommandCompletedEvent {
	e.CorrelationID = id
	return e
}

// NewCommandResult builds the reply for a command
func NewCommandResult(cmd *jdb.Command, resp jdb.Response, err error) *CommandResultMessage {
	r := &CommandResultMessage{ThreadName: resp.ThreadName, Lines: resp.Lines}
	if cmd != nil {
		r.CommandID = cmd.ID
	}
	if r.Lines == nil {
		r.Lines = []string{}
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// FromDriverEvent converts a driver notification into its message.
func FromDriverEvent(sessionID string, ev jdb.Event) (Event, error) {
	switch ev.Kind {
	case jdb.EventBreakpointHit:
		return &BreakpointHitEvent{SessionID: sessionID, ThreadName: ev.ThreadName, Text: ev.Text, HitAt: ev.At}, nil
	case jdb.EventInvalidBreakpointStop:
		return &InvalidBreakpointStopEvent{SessionID: sessionID, ThreadName: ev.ThreadName, Text: ev.Text, StoppedAt: ev.At}, nil
	case jdb.EventOutput:
		return &DebuggerOutputEvent{SessionID: sessionID, Stream: ev.Stream, Data: ev.Text, EmittedAt: ev.At}, nil
	case jdb.EventError:
		return &DebuggerErrorEvent{SessionID: sessionID, Error: ev.Text, OccurredAt: ev.At}, nil
	default:
		return nil, fmt.Errorf("unknown event kind: %s", ev.Kind)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

var sessionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func requireSession(id string) error {
	if id == "" {
		return fmt.Errorf("session_id is required")
	}
	if !sessionIDRegex.MatchString(id) {
		return fmt.Errorf("session_id must contain only alphanumeric characters, hyphens, and underscores")
	}
	return nil
}

// validateDebuggerCommand implements validation for DebuggerCommandMessage
func validateDebuggerCommand(c DebuggerCommandMessage) error {
	if err := requireSession(c.SessionID); err != nil {
		return err
	}
	if c.Cmd == "" {
		return fmt.Errorf("cmd is required")
	}
	if _, err := jdb.ParseCategory(c.Category); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// PUBLISHER - Type-safe message publishing
// =============================================================================

// Publisher provides type-safe message publishing
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new type-safe publisher
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishEvent publishes an event with validation
func (p *Publisher) PublishEvent(ctx context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("event validation failed: %w", err)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.js.Publish(ctx, evt.Subject(), data)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// =============================================================================
// UTILITIES - Helper functions for common operations
// =============================================================================

// SubjectPatterns returns all known event subject patterns for renderer registration
func SubjectPatterns() map[string]string {
	return map[string]string{
		"jdb.breakpoint":        BreakpointHitSubjectPattern,
		"jdb.invalidbreakpoint": InvalidBreakpointSubjectPattern,
		"jdb.output":            DebuggerOutputSubjectPattern,
		"jdb.error":             DebuggerErrorSubjectPattern,
		"jdb.started":           SessionStartedSubjectPattern,
		"jdb.exited":            SessionExitedSubjectPattern,
		"jdb.command.completed": CommandCompletedSubjectPattern,
	}
}

// BuildCommand creates a typed command from form or JSON data
func BuildCommand(messageType string, data map[string]any) (Command, error) {
	switch messageType {
	case "DebuggerCommandMessage":
		sessionID, _ := data["session_id"].(string)
		cmdText, _ := data["cmd"].(string)
		category, _ := data["category"].(string)
		cmd := &DebuggerCommandMessage{SessionID: sessionID, Cmd: cmdText, Category: category}
		if corrID, ok := data["correlation_id"].(string); ok && corrID != "" {
			cmd.CorrelationID = corrID
		}
		return cmd, nil

	default:
		return nil, fmt.Errorf("unknown command type: %s", messageType)
	}
}

// GetCommandTypes returns all available command message types
func GetCommandTypes() []string {
	return []string{
		"DebuggerCommandMessage",
	}
}

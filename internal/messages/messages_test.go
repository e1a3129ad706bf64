package messages

import (
	"testing"
	"time"

	"jdbrun/internal/jdb"
	"jdbrun/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebuggerCommandMessage_Validate(t *testing.T) {
	cmd := NewDebuggerCommandMessage("s-1", "where", jdb.CategoryListStack)
	require.NoError(t, cmd.Validate())
	assert.Equal(t, "command.jdb.s-1.exec", cmd.Subject())

	assert.Error(t, (&DebuggerCommandMessage{SessionID: "s-1", Category: "print"}).Validate())
	assert.Error(t, (&DebuggerCommandMessage{SessionID: "s.1", Cmd: "where", Category: "list_stack"}).Validate())
	err := (&DebuggerCommandMessage{SessionID: "s-1", Cmd: "where", Category: "bogus"}).Validate()
	assert.ErrorIs(t, err, jdb.ErrUnknownCategory)
}

func TestFromDriverEvent(t *testing.T) {
	at := time.Now()
	cases := []struct {
		ev      jdb.Event
		subject string
		pattern string
	}{
		{jdb.Event{Kind: jdb.EventBreakpointHit, ThreadName: "main", At: at}, "event.jdb.s1.breakpoint", BreakpointHitSubjectPattern},
		{jdb.Event{Kind: jdb.EventInvalidBreakpointStop, ThreadName: "main", At: at}, "event.jdb.s1.invalidbreakpoint", InvalidBreakpointSubjectPattern},
		{jdb.Event{Kind: jdb.EventOutput, Stream: "stdout", Text: "hi", At: at}, "event.jdb.s1.output.stdout", DebuggerOutputSubjectPattern},
		{jdb.Event{Kind: jdb.EventError, Text: "boom", At: at}, "event.jdb.s1.error", DebuggerErrorSubjectPattern},
	}
	for _, tc := range cases {
		t.Run(tc.ev.Kind.String(), func(t *testing.T) {
			msg, err := FromDriverEvent("s1", tc.ev)
			require.NoError(t, err)
			require.NoError(t, msg.Validate())
			assert.Equal(t, tc.subject, msg.Subject())
			assert.Equal(t, at, msg.Timestamp())
			assert.True(t, util.SubjectMatches(tc.pattern, msg.Subject()))
			assert.True(t, util.SubjectMatches(EventStreamSubject, msg.Subject()))
		})
	}

	_, err := FromDriverEvent("s1", jdb.Event{Kind: jdb.EventKind(99)})
	assert.Error(t, err)
}

func TestBuildCommand(t *testing.T) {
	cmd, err := BuildCommand("DebuggerCommandMessage", map[string]any{
		"session_id":     "s1",
		"cmd":            "locals",
		"category":       "locals",
		"correlation_id": "req-1",
	})
	require.NoError(t, err)
	require.NoError(t, cmd.Validate())
	dc := cmd.(*DebuggerCommandMessage)
	assert.Equal(t, "req-1", dc.CorrelationID)

	_, err = BuildCommand("Nope", nil)
	assert.Error(t, err)
}

func TestGetFieldSchemas(t *testing.T) {
	fields := GetFieldSchemas("DebuggerCommandMessage")
	require.Len(t, fields, 2)
	assert.Equal(t, "cmd", fields[0].JSONName)
	assert.True(t, fields[0].Required)
	assert.Equal(t, "where", fields[0].Placeholder)
	assert.Equal(t, FieldTypeSelect, fields[1].Type)
	assert.Equal(t, jdb.Categories(), fields[1].Options)
	assert.Nil(t, GetFieldSchemas("Nope"))
}

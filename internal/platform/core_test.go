package platform

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"jdbrun/internal/jdb"
	"jdbrun/internal/messages"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const localsReply = "Method arguments:\nLocal variables:\nx = 1\nmain[1] "

func lastEvent(t *testing.T, js jetstream.JetStream, subject string, into any) {
	t.Helper()
	ctx := context.Background()
	stream, err := js.Stream(ctx, messages.EventStreamName)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		msg, err := stream.GetLastMsgForSubject(ctx, subject)
		if err != nil {
			return false
		}
		return json.Unmarshal(msg.Data, into) == nil
	}, 5*time.Second, 20*time.Millisecond, "no event on %s", subject)
}

func TestCore_CommandRoundTrip(t *testing.T) {
	nc, js := startNATS(t)
	target := readyTarget(t, map[string]string{"locals": localsReply})
	startCore(t, nc, target)

	req, err := json.Marshal(messages.NewDebuggerCommandMessage("s1", "locals", jdb.CategoryLocals).WithCorrelation("viewer-1"))
	require.NoError(t, err)
	reply, err := nc.Request(messages.DebuggerExecSubject("s1"), req, 5*time.Second)
	require.NoError(t, err)

	var result messages.CommandResultMessage
	require.NoError(t, json.Unmarshal(reply.Data, &result))
	assert.Empty(t, result.Error)
	assert.Equal(t, "main", result.ThreadName)
	assert.Equal(t, []string{"Method arguments:", "Local variables:", "x = 1"}, result.Lines)
	assert.Equal(t, "viewer-1", result.CorrelationID)
	assert.NotEmpty(t, result.CommandID)

	var completed messages.CommandCompletedEvent
	lastEvent(t, js, messages.CommandCompletedSubject("s1"), &completed)
	assert.Equal(t, "locals", completed.Cmd)
	assert.Equal(t, "locals", completed.Category)
	assert.Equal(t, result.CommandID, completed.CommandID)
	assert.Equal(t, "viewer-1", completed.CorrelationID)
}

func TestCore_InvalidRequest(t *testing.T) {
	nc, _ := startNATS(t)
	target := readyTarget(t, map[string]string{})
	startCore(t, nc, target)

	for name, body := range map[string]string{
		"bad json":         `{`,
		"empty cmd":        `{"cmd":"","category":"locals"}`,
		"unknown category": `{"cmd":"where","category":"teleport"}`,
	} {
		t.Run(name, func(t *testing.T) {
			reply, err := nc.Request(messages.DebuggerExecSubject("s1"), []byte(body), 5*time.Second)
			require.NoError(t, err)
			var result messages.CommandResultMessage
			require.NoError(t, json.Unmarshal(reply.Data, &result))
			assert.NotEmpty(t, result.Error)
		})
	}
	assert.Empty(t, target.Driver.Snapshot().Executing, "nothing reached the debugger")
}

func TestCommandBridge_LateRequestAfterStop(t *testing.T) {
	nc, js := startNATS(t)
	target := readyTarget(t, map[string]string{})
	b := NewCommandBridge(nc, target, messages.NewPublisher(js))
	require.NoError(t, b.Start(context.Background()))
	b.Stop()

	req, err := json.Marshal(messages.NewDebuggerCommandMessage("s1", "locals", jdb.CategoryLocals))
	require.NoError(t, err)
	b.handle(context.Background(), &nats.Msg{Subject: messages.DebuggerExecSubject("s1"), Data: req})
	b.Stop()

	assert.Empty(t, target.Driver.Snapshot().Executing, "nothing submitted after stop")
	_, err = nc.Request(messages.DebuggerExecSubject("s1"), req, 200*time.Millisecond)
	assert.ErrorIs(t, err, nats.ErrNoResponders)
}

func TestCore_PublishesDriverEvents(t *testing.T) {
	nc, js := startNATS(t)
	target := readyTarget(t, map[string]string{})
	core := startCore(t, nc, target)

	target.Driver.Feed([]byte("\nBreakpoint hit: \"thread=main\", demo.Foo.run(), line=4 bci=0\nmain[1] "))
	var hit messages.BreakpointHitEvent
	lastEvent(t, js, messages.BreakpointHitSubject("s1"), &hit)
	assert.Equal(t, "main", hit.ThreadName)
	assert.Contains(t, hit.Text, "demo.Foo.run()")

	target.Driver.Publish(jdb.Event{Kind: jdb.EventOutput, Stream: "stdout", Text: "hello", At: time.Now()})
	var out messages.DebuggerOutputEvent
	lastEvent(t, js, messages.DebuggerOutputSubject("s1", "stdout"), &out)
	assert.Equal(t, "hello", out.Data)

	core.SessionStarted(context.Background(), "main")
	var started messages.SessionStartedEvent
	lastEvent(t, js, messages.SessionStartedSubject("s1"), &started)
	assert.Equal(t, "demo.Foo", started.MainClass)

	core.SessionExited(context.Background(), jdb.ErrExited)
	var exited messages.SessionExitedEvent
	lastEvent(t, js, messages.SessionExitedSubject("s1"), &exited)
	assert.Empty(t, exited.Error, "a requested exit is not an error")
}

func TestCore_StoresSnapshot(t *testing.T) {
	nc, js := startNATS(t)
	target := readyTarget(t, map[string]string{})
	core := startCore(t, nc, target)
	core.SessionStarted(context.Background(), "main")

	kv, err := js.KeyValue(context.Background(), SessionsBucket)
	require.NoError(t, err)
	entry, err := kv.Get(context.Background(), "s1")
	require.NoError(t, err)

	var snap jdb.Snapshot
	require.NoError(t, json.Unmarshal(entry.Value(), &snap))
	assert.Equal(t, "s1", snap.Session)
	assert.Equal(t, jdb.PhaseReady.String(), snap.Phase)
	assert.True(t, snap.ReadyForCommands)
}

package jdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminators(t *testing.T) {
	cases := []struct {
		name     string
		category Category
		runSent  bool
		lines    []string
		complete bool
		want     []string
		consumed int
		thread   string
	}{
		{
			name: "query waits for prompt", category: CategoryPrint,
			lines: []string{"x = 1"},
		},
		{
			name: "query last terminator", category: CategoryDump, runSent: true,
			lines:    []string{"foo = {", "  a: 1", "}", "main[1] "},
			complete: true, want: []string{"foo = {", "  a: 1", "}"}, consumed: 4, thread: "main",
		},
		{
			name: "breakpoint before run", category: CategorySetBreakpoint,
			lines:    []string{"Deferring breakpoint Foo:10.", "It will be set after the class is loaded.", "> "},
			complete: true, want: []string{"Deferring breakpoint Foo:10.", "It will be set after the class is loaded."}, consumed: 3, thread: "main",
		},
		{
			name: "breakpoint after run skips noise", category: CategorySetBreakpoint, runSent: true,
			lines:    []string{"main[1] ", "Set breakpoint Foo:12", "main[1] "},
			complete: true, want: []string{"Set breakpoint Foo:12"}, consumed: 3, thread: "main",
		},
		{
			name: "clear after run waits for marker", category: CategoryClearBreakpoint, runSent: true,
			lines: []string{"main[1] "},
		},
		{
			name: "clear removed", category: CategoryClearBreakpoint, runSent: true,
			lines:    []string{"Removed: breakpoint Foo:12", "main[1] "},
			complete: true, want: []string{"Removed: breakpoint Foo:12"}, consumed: 2, thread: "main",
		},
		{
			name: "step waits for completion", category: CategoryStep, runSent: true,
			lines: []string{"> ", "main[1] "},
		},
		{
			name: "step up", category: CategoryStepUp, runSent: true,
			lines:    []string{"> ", "Step completed: \"thread=main\", Foo.main(), line=5 bci=9", "5        bar();", "", "main[1] "},
			complete: true, want: []string{"Step completed: \"thread=main\", Foo.main(), line=5 bci=9", "5        bar();", ""}, consumed: 5, thread: "main",
		},
		{
			name: "continue first prompt", category: CategoryContinue, runSent: true,
			lines:    []string{"> ", "more"},
			complete: true, want: []string{}, consumed: 1, thread: "main",
		},
		{
			name: "suspend", category: CategorySuspend, runSent: true,
			lines:    []string{"All threads suspended.", "> "},
			complete: true, want: []string{"All threads suspended."}, consumed: 2, thread: "main",
		},
		{
			name: "resume needs its marker", category: CategoryResume, runSent: true,
			lines: []string{"All threads suspended.", "> "},
		},
		{
			name: "run acknowledges first prompt text", category: CategoryRun, runSent: true,
			lines:    []string{"> Set uncaught java.lang.Throwable", "Set deferred uncaught java.lang.Throwable"},
			complete: true, want: []string{"> Set uncaught java.lang.Throwable"}, consumed: 1, thread: "main",
		},
		{
			name: "exit never completes", category: CategoryExit, runSent: true,
			lines: []string{"> ", "main[1] "},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &State{RunSent: tc.runSent, ThreadName: "main"}
			v := terminatorFor(tc.category)(tc.lines, st, nil)
			assert.Equal(t, tc.complete, v.Complete)
			if !tc.complete {
				return
			}
			assert.Equal(t, tc.want, v.Response.Lines)
			assert.Equal(t, tc.consumed, v.Consumed)
			assert.Equal(t, tc.thread, v.Response.ThreadName)
		})
	}
}

func TestDetectAsync(t *testing.T) {
	det, ok := detectAsync([]string{"Step completed: x", "Breakpoint hit: y", "worker[1] "})
	assert.True(t, ok)
	assert.Equal(t, EventBreakpointHit, det.kind)
	assert.Equal(t, "worker", det.thread)
	assert.Equal(t, 1, det.marker)

	_, ok = detectAsync([]string{"Breakpoint hit: y", "10   x++;"})
	assert.False(t, ok, "needs a trailing banner")

	det, ok = detectAsync([]string{
		"Breakpoint hit: y",
		"Unable to set deferred breakpoint Foo:99 : No code at line 99",
		"Stopping due to deferred breakpoint errors.",
		"main[1] ",
	})
	assert.True(t, ok)
	assert.Equal(t, EventInvalidBreakpointStop, det.kind)
	assert.Equal(t, 1, det.marker)
}

func TestDetectAppExited(t *testing.T) {
	assert.True(t, detectAppExited([]string{"x", "The application exited"}))
	assert.True(t, detectAppExited([]string{"The application exited", "> "}))
	assert.False(t, detectAppExited([]string{"The application exited", "> ", "more"}))
	assert.False(t, detectAppExited(nil))
}

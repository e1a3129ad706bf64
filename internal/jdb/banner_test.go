package jdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBannerThread(t *testing.T) {
	cases := []struct {
		line   string
		thread string
		ok     bool
	}{
		{"main[1] ", "main", true},
		{"  main[12]", "main", true},
		{"main[1] main[1] ", "main", true},
		{"Thread-0[1] ", "Thread-0", true},
		{"Signal Dispatcher[1] ", "Signal Dispatcher", true},
		{"> ", "", false},
		{"main[", "", false},
		{"x = Thread[0]", "", false},
		{"  [1] Foo.main (Foo.java:10)", "", false},
		{"String[] args", "", false},
		{`Breakpoint hit: "thread=main", Foo.main(), line=10 bci=0`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			thread, ok := bannerThread(tc.line)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.thread, thread)
		})
	}
}

func TestIsTerminator(t *testing.T) {
	assert.True(t, isTerminator("> ", "main"))
	assert.True(t, isTerminator("> > ", ""))
	assert.True(t, isTerminator("main[1] ", ""))
	assert.True(t, isTerminator("main[2] Step completed", "main"))
	assert.False(t, isTerminator("main[2] Step completed", "worker"))
	assert.False(t, isTerminator("main[", "main"))
	assert.False(t, isTerminator("main[x] ", "main"))
	assert.False(t, isTerminator("", "main"))
	assert.False(t, isTerminator(">x", "main"))
}

func TestPayload(t *testing.T) {
	got := payload([]string{"> ", "a", "main[1] ", "", "main[1] b"})
	assert.Equal(t, []string{"a", "", "main[1] b"}, got)
}

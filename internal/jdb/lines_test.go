package jdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineBuffer_Split(t *testing.T) {
	cases := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{"lf", []string{"a\nb\n"}, []string{"a", "b"}},
		{"crlf", []string{"a\r\nb\r\n"}, []string{"a", "b"}},
		{"cr", []string{"a\rb"}, []string{"a", "b"}},
		{"partial tail", []string{"a\nmain[1] "}, []string{"a", "main[1] "}},
		{"blank interior", []string{"a\n\nb\n"}, []string{"a", "", "b"}},
		{"crlf split across chunks", []string{"a\r", "\nb"}, []string{"a", "b"}},
		{"line split across chunks", []string{"Local var", "iables:\n"}, []string{"Local variables:"}},
		{"empty", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b LineBuffer
			for _, c := range tc.chunks {
				b.Feed([]byte(c))
			}
			if tc.want == nil {
				assert.Empty(t, b.Lines())
				return
			}
			assert.Equal(t, tc.want, b.Lines())
			assert.Equal(t, tc.want[len(tc.want)-1], b.Last())
		})
	}
}

func TestLineBuffer_Consume(t *testing.T) {
	var b LineBuffer
	b.Feed([]byte("one\r\ntwo\nthree"))
	b.Consume(1)
	assert.Equal(t, []string{"two", "three"}, b.Lines())
	assert.Equal(t, "two\nthree", b.Text())

	b.Feed([]byte(" more\n"))
	assert.Equal(t, []string{"two", "three more"}, b.Lines())

	b.Consume(5)
	assert.Zero(t, b.Len())
	assert.Equal(t, "", b.Last())

	b.Feed([]byte("x"))
	b.Reset()
	assert.Empty(t, b.Text())
}

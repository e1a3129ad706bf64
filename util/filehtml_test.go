package util

import (
	"bytes"
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooJava = `package demo;

public class Foo {
    public static void main(String[] args) {
        int answer = 42;
        System.out.println(answer);
    }
}
`

func render(t *testing.T, fsys fstest.MapFS, path string, focus, radius int) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := SourceExcerpt(fsys, path, focus, radius).Render(context.Background(), &buf)
	return buf.String(), err
}

func TestSourceExcerpt(t *testing.T) {
	fsys := fstest.MapFS{"demo/Foo.java": {Data: []byte(fooJava)}}

	out, err := render(t, fsys, "demo/Foo.java", 5, 1)
	require.NoError(t, err)
	assert.Contains(t, out, "answer")
	assert.Contains(t, out, "main")
	assert.NotContains(t, out, "Foo", "class line is outside the window")

	again, err := render(t, fsys, "demo/Foo.java", 5, 1)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestSourceExcerpt_Errors(t *testing.T) {
	fsys := fstest.MapFS{"demo/Foo.java": {Data: []byte(fooJava)}}

	_, err := render(t, fsys, "demo/Missing.java", 1, 2)
	assert.Error(t, err)

	_, err = render(t, fsys, "demo/Foo.java", 500, 2)
	assert.Error(t, err)
}

func TestSubjectMatches(t *testing.T) {
	assert.True(t, SubjectMatches("event.jdb.>", "event.jdb.s1.breakpoint"))
	assert.True(t, SubjectMatches("event.jdb.*.output.*", "event.jdb.s1.output.stdout"))
	assert.False(t, SubjectMatches("event.jdb.*.output.*", "event.jdb.s1.output"))
	assert.False(t, SubjectMatches("command.jdb.*.exec", "event.jdb.s1.exec"))
}

func TestFileToHTML(t *testing.T) {
	fsys := fstest.MapFS{
		"README.md":     {Data: []byte("# Debugging\n\nRun `jdbrun`.\n")},
		"demo/Foo.java": {Data: []byte(fooJava)},
	}

	var buf bytes.Buffer
	require.NoError(t, FileToHTML("README.md", "", fsys).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "<h1>Debugging</h1>")

	buf.Reset()
	require.NoError(t, FileToHTML("demo/Foo.java", "", fsys).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "answer")

	assert.Error(t, FileToHTML("nope.md", "", fsys).Render(context.Background(), &buf))
}

package jdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsComplexObject(t *testing.T) {
	assert.True(t, IsComplexObject(" {1, 2, 3} "))
	assert.True(t, IsComplexObject("instance of int[3] (id=42)"))
	assert.True(t, IsComplexObject("instance of java.lang.Object[2] (id=7)"))
	assert.False(t, IsComplexObject("instance of java.lang.String(id=3)"))
	assert.False(t, IsComplexObject(`"hello"`))
	assert.False(t, IsComplexObject("42"))
}

func TestIsArray(t *testing.T) {
	assert.True(t, IsArray("instance of int[3] (id=42)", "{1, 2, 3}"))
	assert.False(t, IsArray("instance of int[3] (id=42)", "1"))
	assert.False(t, IsArray("instance of Foo(id=42)", "{a: 1}"))
	assert.False(t, IsArray("instance of int[3]", "{1, 2, 3}"))
}

func TestArrayElements(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, ArrayElements("{1, 2, 3}"))
	assert.Equal(t, []string{}, ArrayElements("{}"))
	assert.Nil(t, ArrayElements(""))
}

func TestParseLocals(t *testing.T) {
	vars := ParseLocals([]string{
		"Method arguments:",
		"args = instance of java.lang.String[0] (id=1)",
		"Local variables:",
		"x = 1",
		"garbage",
	})
	assert.Equal(t, []Variable{
		{Scope: "arguments", Name: "args", Value: "instance of java.lang.String[0] (id=1)"},
		{Scope: "locals", Name: "x", Value: "1"},
	}, vars)
	assert.Empty(t, ParseLocals([]string{"No local variables"}))
}

func TestParseFrames(t *testing.T) {
	frames := ParseFrames([]string{
		"  [1] com.example.Foo.bar (Foo.java:20)",
		"  [2] com.example.Foo.main (Foo.java:1,024)",
		"  [3] java.lang.Thread.run (native method)",
		"not a frame",
	})
	assert.Equal(t, []Frame{
		{Index: 1, Function: "com.example.Foo.bar", File: "Foo.java", Line: 20},
		{Index: 2, Function: "com.example.Foo.main", File: "Foo.java", Line: 1024},
		{Index: 3, Function: "java.lang.Thread.run"},
	}, frames)
}

func TestParseLocation(t *testing.T) {
	loc, ok := ParseLocation(`Breakpoint hit: "thread=main", com.example.Foo$Inner.<init>(), line=1,204 bci=0`)
	assert.True(t, ok)
	assert.Equal(t, Location{Thread: "main", Class: "com.example.Foo$Inner", Method: "<init>", Line: 1204}, loc)
	assert.Equal(t, "com/example/Foo.java", loc.SourceFile())

	_, ok = ParseLocation("Set breakpoint Foo:10")
	assert.False(t, ok)
}

package jdb

import (
	"regexp"
	"strconv"
	"strings"
)

// IsComplexObject reports whether a printed value refers to something with
// children: a "{...}" dump or an "instance of T[...]" reference.
func IsComplexObject(value string) bool {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		return true
	}
	return strings.HasPrefix(value, "instance of ") && strings.Index(value, "]") > strings.Index(value, "[")
}

// IsArray reports whether a variable is an array given its print and dump
// output: the dump is "{...}" and the print names an array type, e.g.
// "instance of int[3] (id=42)".
func IsArray(printValue, dumpValue string) bool {
	dumpValue = strings.TrimSpace(dumpValue)
	printValue = strings.TrimSpace(printValue)
	if !strings.HasPrefix(dumpValue, "{") || !strings.HasSuffix(dumpValue, "}") {
		return false
	}
	if !strings.HasPrefix(printValue, "instance of ") || strings.Index(printValue, "]") <= strings.Index(printValue, "[") {
		return false
	}
	rest := strings.TrimSpace(printValue[strings.LastIndex(printValue, "]")+1:])
	return strings.HasPrefix(rest, "(")
}

// ArrayElements splits an array dump "{a, b, c}" into its elements.
func ArrayElements(dumpValue string) []string {
	v := strings.TrimSpace(dumpValue)
	if len(v) < 2 {
		return nil
	}
	v = strings.TrimSpace(v[1 : len(v)-1])
	if v == "" {
		return []string{}
	}
	return strings.Split(v, ", ")
}

// Variable is one "name = value" line from a locals listing.
type Variable struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseLocals splits the output of "locals" into method arguments and local
// variables. Lines without " = " are skipped.
func ParseLocals(lines []string) []Variable {
	var out []Variable
	scope := ""
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "Method arguments:"):
			scope = "arguments"
			continue
		case strings.HasPrefix(l, "Local variables:"):
			scope = "locals"
			continue
		}
		i := strings.Index(l, " = ")
		if i < 0 || scope == "" {
			continue
		}
		out = append(out, Variable{
			Scope: scope,
			Name:  strings.TrimSpace(l[:i]),
			Value: strings.TrimSpace(l[i+3:]),
		})
	}
	return out
}

// Frame is one line of "where" output:
//
//	[1] com.example.Foo.main (Foo.java:10)
type Frame struct {
	Index    int    `json:"index"`
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// ParseFrames parses the frames of a "where" listing, skipping lines that do
// not look like frames. Native and unknown locations leave File and Line empty.
func ParseFrames(lines []string) []Frame {
	var out []Frame
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if !strings.HasPrefix(l, "[") {
			continue
		}
		end := strings.Index(l, "]")
		if end < 0 {
			continue
		}
		idx, err := strconv.Atoi(l[1:end])
		if err != nil {
			continue
		}
		f := Frame{Index: idx}
		rest := l[end+1:]
		open := strings.LastIndex(rest, "(")
		if open < 0 {
			f.Function = strings.TrimSpace(rest)
			out = append(out, f)
			continue
		}
		f.Function = strings.TrimSpace(rest[:open])
		loc := strings.TrimSuffix(rest[open+1:], ")")
		if colon := strings.LastIndex(loc, ":"); colon >= 0 {
			f.File = loc[:colon]
			f.Line, _ = strconv.Atoi(strings.ReplaceAll(loc[colon+1:], ",", ""))
		}
		if f.File == "null" {
			f.File = ""
		}
		out = append(out, f)
	}
	return out
}

// Location is where a thread stopped, as printed by "Breakpoint hit:" and
// "Step completed:" lines:
//
//	Breakpoint hit: "thread=main", com.example.Foo.main(), line=10 bci=0
type Location struct {
	Thread string `json:"thread"`
	Class  string `json:"class"`
	Method string `json:"method"`
	Line   int    `json:"line"`
}

var locationRE = regexp.MustCompile(`"thread=([^"]*)", ([\w.$]+)\.([\w$<>]+)\(\), line=([\d,]+)`)

// ParseLocation finds the first stop location in text.
func ParseLocation(text string) (Location, bool) {
	m := locationRE.FindStringSubmatch(text)
	if m == nil {
		return Location{}, false
	}
	line, err := strconv.Atoi(strings.ReplaceAll(m[4], ",", ""))
	if err != nil {
		return Location{}, false
	}
	return Location{Thread: m[1], Class: m[2], Method: m[3], Line: line}, true
}

// SourceFile guesses the source path of a class from its name: nested
// classes live in their outer class's file.
func (l Location) SourceFile() string {
	class, _, _ := strings.Cut(l.Class, "$")
	return strings.ReplaceAll(class, ".", "/") + ".java"
}

package jdb

import (
	"regexp"
	"strings"
)

// Marker phrases printed by jdb.
const (
	markerVMStarted        = "VM Started"
	markerAppExited        = "The application exited"
	markerBreakpointHit    = "Breakpoint hit:"
	markerDeferredFailed   = "Unable to set deferred breakpoint"
	markerDeferredStopping = "Stopping due to deferred breakpoint errors."
	markerStepCompleted    = "Step completed:"
	markerSuspended        = "All threads suspended."
	markerResumed          = "All threads resumed."
)

var breakpointMarkers = []string{
	"Set breakpoint",
	"Unable to set breakpoint",
	"Not found:",
	"Removed:",
	"Deferring breakpoint",
}

// bannerRE matches the thread prompt "name[frame]", possibly repeated when
// jdb prints several prompts on one line ("main[1] main[1]").
var bannerRE = regexp.MustCompile(`^([^\[\]=\s][^\[\]=]*?)\[(\d+)\](?:\s*[^\[\]=]+?\[\d+\])*$`)

var promptRE = regexp.MustCompile(`^(?:>\s*)+$`)

// bannerThread returns the thread name of a thread banner line.
func bannerThread(line string) (string, bool) {
	m := bannerRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func isBanner(line string) bool {
	_, ok := bannerThread(line)
	return ok
}

// isPrompt reports whether line is the bare ">" prompt jdb shows when no
// thread is current.
func isPrompt(line string) bool {
	return promptRE.MatchString(strings.TrimSpace(line))
}

// isTerminator reports whether line ends a response: a bare prompt, a thread
// banner, or a line starting with the current thread's "name[n]".
func isTerminator(line, thread string) bool {
	if isPrompt(line) || isBanner(line) {
		return true
	}
	return thread != "" && hasThreadPrefix(strings.TrimSpace(line), thread)
}

// hasThreadPrefix reports whether line starts with "thread[n]".
func hasThreadPrefix(line, thread string) bool {
	rest, ok := strings.CutPrefix(line, thread+"[")
	if !ok {
		return false
	}
	end := strings.IndexByte(rest, ']')
	if end <= 0 {
		return false
	}
	for _, r := range rest[:end] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// threadAt returns the thread named by the terminator line, falling back to
// the current thread for bare prompts and prefixed lines.
func threadAt(line, current string) string {
	if name, ok := bannerThread(line); ok {
		return name
	}
	return current
}

func containsAny(line string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(line, n) {
			return true
		}
	}
	return false
}

func indexContaining(lines []string, needle string) int {
	for i, l := range lines {
		if strings.Contains(l, needle) {
			return i
		}
	}
	return -1
}

// payload strips bare prompt and banner lines from lines.
func payload(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if isPrompt(l) || isBanner(l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

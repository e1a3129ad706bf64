package jdb

import "strings"

// detection is an unsolicited notification found in the buffered output.
type detection struct {
	kind   EventKind
	thread string
	// marker is the index of the first line belonging to the notification.
	marker int
}

// detectAsync looks for a breakpoint hit or a deferred breakpoint failure.
// Both require the buffer to end in a thread banner. The failure is checked
// first since jdb prints it in place of a hit.
func detectAsync(lines []string) (detection, bool) {
	if len(lines) == 0 {
		return detection{}, false
	}
	thread, ok := bannerThread(lines[len(lines)-1])
	if !ok {
		return detection{}, false
	}
	failed := indexContaining(lines, markerDeferredFailed)
	stopping := indexContaining(lines, markerDeferredStopping)
	if failed >= 0 && stopping >= 0 {
		return detection{kind: EventInvalidBreakpointStop, thread: thread, marker: min(failed, stopping)}, true
	}
	if hit := indexContaining(lines, markerBreakpointHit); hit >= 0 {
		return detection{kind: EventBreakpointHit, thread: thread, marker: hit}, true
	}
	return detection{}, false
}

// detectVMStarted reports the initial thread once the VM start banner has
// been followed by a thread banner.
func detectVMStarted(lines []string) (string, bool) {
	if len(lines) == 0 || indexContaining(lines, markerVMStarted) < 0 {
		return "", false
	}
	return bannerThread(lines[len(lines)-1])
}

// detectAppExited reports whether one of the last two lines carries the
// application exit banner; jdb may print a prompt after it.
func detectAppExited(lines []string) bool {
	for i := len(lines) - 1; i >= 0 && i >= len(lines)-2; i-- {
		if strings.Contains(lines[i], markerAppExited) {
			return true
		}
	}
	return false
}

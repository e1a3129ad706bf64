package jdb

import "strings"

// Verdict is the result of applying a terminator to the buffered output.
type Verdict struct {
	Complete bool
	Response Response
	// Consumed is the number of leading lines that belong to the response,
	// including the terminator line.
	Consumed int
}

// Terminator decides whether the buffered lines hold the complete response
// to cmd.
type Terminator func(lines []string, st *State, cmd *Command) Verdict

var terminators = map[Category]Terminator{
	CategoryListThreads:     terminateQuery,
	CategoryListStack:       terminateQuery,
	CategoryLocals:          terminateQuery,
	CategoryDump:            terminateQuery,
	CategoryPrint:           terminateQuery,
	CategorySetBreakpoint:   terminateBreakpoint,
	CategoryClearBreakpoint: terminateBreakpoint,
	CategoryStep:            terminateAfter(markerStepCompleted),
	CategoryNext:            terminateAfter(markerStepCompleted),
	CategoryStepUp:          terminateAfter(markerStepCompleted),
	CategoryContinue:        terminateContinue,
	CategorySuspend:         terminateAfter(markerSuspended),
	CategoryResume:          terminateAfter(markerResumed),
	CategoryRun:             terminateRun,
	CategoryExit:            terminateNever,
}

func terminatorFor(c Category) Terminator {
	if t, ok := terminators[c]; ok {
		return t
	}
	return terminateQuery
}

func incomplete() Verdict { return Verdict{} }

func complete(lines []string, end int, thread string) Verdict {
	return Verdict{
		Complete: true,
		Response: Response{ThreadName: thread, Lines: payload(lines)},
		Consumed: end + 1,
	}
}

// terminateQuery completes at the last terminator line in the buffer. Output
// that arrived before the command was written has already been flushed, so
// an earlier terminator-shaped line is part of the printed value.
func terminateQuery(lines []string, st *State, _ *Command) Verdict {
	for i := len(lines) - 1; i >= 0; i-- {
		if isTerminator(lines[i], st.ThreadName) {
			return complete(lines[:i], i, threadAt(lines[i], st.ThreadName))
		}
	}
	return incomplete()
}

// terminateBreakpoint handles stop/clear. Before the initial run jdb answers
// with a deferral notice, so the first terminator ends the response. After
// it, the response starts at a breakpoint marker line.
func terminateBreakpoint(lines []string, st *State, _ *Command) Verdict {
	start := 0
	if st.RunSent {
		start = -1
		for i, l := range lines {
			if containsAny(l, breakpointMarkers) {
				start = i
				break
			}
		}
		if start < 0 {
			return incomplete()
		}
	}
	from := start
	if st.RunSent {
		from++
	}
	for j := from; j < len(lines); j++ {
		if isTerminator(lines[j], st.ThreadName) {
			return complete(lines[start:j], j, threadAt(lines[j], st.ThreadName))
		}
	}
	return incomplete()
}

// terminateAfter completes at the first terminator following a line that
// contains marker.
func terminateAfter(marker string) Terminator {
	return func(lines []string, st *State, _ *Command) Verdict {
		start := indexContaining(lines, marker)
		if start < 0 {
			return incomplete()
		}
		for j := start + 1; j < len(lines); j++ {
			if isTerminator(lines[j], st.ThreadName) {
				return complete(lines[start:j], j, threadAt(lines[j], st.ThreadName))
			}
		}
		return incomplete()
	}
}

// terminateContinue completes at the first terminator anywhere. A hit that
// follows is picked up by the async detector.
func terminateContinue(lines []string, st *State, _ *Command) Verdict {
	for i, l := range lines {
		if isTerminator(l, st.ThreadName) {
			return complete(lines[:i], i, threadAt(l, st.ThreadName))
		}
	}
	return incomplete()
}

// terminateRun completes at the first prompt text of any kind. The response
// is that single line.
func terminateRun(lines []string, st *State, _ *Command) Verdict {
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, ">") || isTerminator(l, st.ThreadName) {
			return Verdict{
				Complete: true,
				Response: Response{ThreadName: threadAt(l, st.ThreadName), Lines: []string{trimmed}},
				Consumed: i + 1,
			}
		}
	}
	return incomplete()
}

// terminateNever is used for exit; it resolves when the stream closes.
func terminateNever([]string, *State, *Command) Verdict { return incomplete() }

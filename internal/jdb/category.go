package jdb

import (
	"fmt"
	"strings"
)

// Category selects the response terminator used for a command and the
// admission gate it waits on.
type Category int

const (
	CategoryListThreads Category = iota
	CategoryListStack
	CategoryLocals
	CategoryDump
	CategoryPrint
	CategorySetBreakpoint
	CategoryClearBreakpoint
	CategoryStep
	CategoryNext
	CategoryStepUp
	CategoryContinue
	CategorySuspend
	CategoryResume
	CategoryRun
	CategoryExit
)

var categoryNames = map[Category]string{
	CategoryListThreads:     "list_threads",
	CategoryListStack:       "list_stack",
	CategoryLocals:          "locals",
	CategoryDump:            "dump",
	CategoryPrint:           "print",
	CategorySetBreakpoint:   "set_breakpoint",
	CategoryClearBreakpoint: "clear_breakpoint",
	CategoryStep:            "step",
	CategoryNext:            "next",
	CategoryStepUp:          "step_up",
	CategoryContinue:        "continue",
	CategorySuspend:         "suspend",
	CategoryResume:          "resume",
	CategoryRun:             "run",
	CategoryExit:            "exit",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory maps a category name (as produced by String) back to its value.
func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Categories returns every known category name, in declaration order.
func Categories() []string {
	out := make([]string, 0, len(categoryNames))
	for c := CategoryListThreads; c <= CategoryExit; c++ {
		out = append(out, c.String())
	}
	return out
}

// gatedOnBreakpoints reports whether c may run as soon as the VM has started,
// before the initial run has completed.
func (c Category) gatedOnBreakpoints() bool {
	return c == CategorySetBreakpoint || c == CategoryRun
}

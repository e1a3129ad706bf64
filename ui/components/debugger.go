package components

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Element ids the feed renderers merge into.
const (
	SessionStatusID = "session-status"
	EventsID        = "feed-events"
	OutputID        = "feed-output"
	CommandsID      = "feed-commands"
)

var esc = templ.EscapeString

// SessionStatus renders the status badge. state is one of the session phases.
func SessionStatus(state, detail string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<span id="%s" class="session-status status-%s">%s`, SessionStatusID, esc(state), esc(state))
		if err != nil {
			return err
		}
		if detail != "" {
			if _, err := fmt.Fprintf(w, ` <small>%s</small>`, esc(detail)); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, "</span>")
		return err
	})
}

// BreakpointCard shows where a thread stopped. source may be nil when no
// source root is configured or the file is unknown.
func BreakpointCard(thread, text string, source templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div class="event breakpoint"><header>%s</header><pre>%s</pre>`, esc(thread), esc(text)); err != nil {
			return err
		}
		if source != nil {
			if _, err := io.WriteString(w, `<div class="source">`); err != nil {
				return err
			}
			// a missing source file should not drop the card
			_ = source.Render(ctx, w)
			if _, err := io.WriteString(w, `</div>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</div>")
		return err
	})
}

// InvalidBreakpointCard reports a deferred breakpoint that could not be set.
func InvalidBreakpointCard(thread, text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="event invalid-breakpoint"><header>%s</header><pre>%s</pre></div>`, esc(thread), esc(text))
		return err
	})
}

// ErrorLine renders a debugger stream error.
func ErrorLine(msg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="event error">%s</div>`, esc(msg))
		return err
	})
}

// OutputLine renders a line of target or debugger output.
func OutputLine(stream, line string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<pre class="output %s">%s</pre>`, esc(stream), esc(line))
		return err
	})
}

// CommandBlock renders a finished command with its response lines. mine marks
// commands submitted from the viewing browser.
func CommandBlock(cmd, category, thread string, lines []string, errMsg string, mine bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		class := "command"
		if mine {
			class += " mine"
		}
		if errMsg != "" {
			class += " failed"
		}
		if _, err := fmt.Fprintf(w, `<div class="%s"><header><code>%s</code> <span class="category">%s</span> <span class="thread">%s</span></header>`,
			class, esc(cmd), esc(category), esc(thread)); err != nil {
			return err
		}
		if errMsg != "" {
			if _, err := fmt.Fprintf(w, `<div class="error">%s</div>`, esc(errMsg)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "<pre>%s</pre></div>", esc(strings.Join(lines, "\n"))); err != nil {
			return err
		}
		return nil
	})
}

// RawMessage is the catch-all rendering of an unrecognised subject.
func RawMessage(subject string, data []byte) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<pre class=\"raw\">%s\n%s</pre>", esc(subject), esc(string(data)))
		return err
	})
}

package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jdbrun/internal/jdb"
	"jdbrun/internal/messages"
	components "jdbrun/ui/components"
	"jdbrun/util"

	"github.com/a-h/templ"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// SourceRadius is how many lines surround the stop line in a breakpoint card.
const SourceRadius = 4

// ─────────────────── BREAKPOINTS ───────────────────

func renderBreakpoint(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator, evt messages.BreakpointHitEvent) error {
	return sse.MergeFragmentTempl(
		components.BreakpointCard(evt.ThreadName, evt.Text, sourceFor(ctx, evt.Text)),
		datastar.WithSelectorID(components.EventsID),
		datastar.WithMergeAppend(),
	)
}

// sourceFor returns an excerpt around the stop location in text, or nil.
func sourceFor(ctx context.Context, text string) templ.Component {
	v := viewerFrom(ctx)
	if v.Sources == nil {
		return nil
	}
	loc, ok := jdb.ParseLocation(text)
	if !ok {
		return nil
	}
	return util.SourceExcerpt(v.Sources, loc.SourceFile(), loc.Line, SourceRadius)
}

func renderInvalidBreakpoint(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator, evt messages.InvalidBreakpointStopEvent) error {
	return sse.MergeFragmentTempl(
		components.InvalidBreakpointCard(evt.ThreadName, evt.Text),
		datastar.WithSelectorID(components.EventsID),
		datastar.WithMergeAppend(),
	)
}

// ─────────────────── OUTPUT / ERRORS ───────────────────

func renderOutput(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator, evt messages.DebuggerOutputEvent) error {
	return sse.MergeFragmentTempl(
		components.OutputLine(evt.Stream, evt.Data),
		datastar.WithSelectorID(components.OutputID),
		datastar.WithMergeAppend(),
	)
}

func renderError(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator, evt messages.DebuggerErrorEvent) error {
	return sse.MergeFragmentTempl(
		components.ErrorLine(evt.Error),
		datastar.WithSelectorID(components.EventsID),
		datastar.WithMergeAppend(),
	)
}

// ─────────────────── SESSION ───────────────────

func renderStarted(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator, evt messages.SessionStartedEvent) error {
	detail := evt.ThreadName
	if evt.MainClass != "" {
		detail = fmt.Sprintf("%s (%s)", evt.MainClass, evt.ThreadName)
	}
	return sse.MergeFragmentTempl(components.SessionStatus(jdb.PhaseReady.String(), detail))
}

func renderExited(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator, evt messages.SessionExitedEvent) error {
	state := jdb.PhaseExited.String()
	if evt.Error != "" {
		state = jdb.PhaseFailed.String()
	}
	return sse.MergeFragmentTempl(components.SessionStatus(state, evt.Error))
}

// ─────────────────── COMMANDS ───────────────────

func renderCommandCompleted(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator, evt messages.CommandCompletedEvent) error {
	viewer := viewerFrom(ctx)
	mine := viewer.ID != "" && evt.CorrelationID == viewer.ID
	if evt.Error != "" {
		slog.Debug("command failed", "session", evt.SessionID, "cmd", evt.Cmd, "error", evt.Error)
	}
	frag := components.CommandBlock(evt.Cmd, evt.Category, evt.ThreadName, trimBlank(evt.Lines), evt.Error, mine)
	return sse.MergeFragmentTempl(frag, datastar.WithSelectorID(components.CommandsID), datastar.WithMergeAppend())
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ─────────────────── REGISTRY ──────────────────────────

func init() {
	Specs = []RendererSpec{
		{Pattern: messages.BreakpointHitSubjectPattern, Build: func(subj string) Renderer {
			return newTypedRenderer(subj, renderBreakpoint)
		}},
		{Pattern: messages.InvalidBreakpointSubjectPattern, Build: func(subj string) Renderer {
			return newTypedRenderer(subj, renderInvalidBreakpoint)
		}},
		{Pattern: messages.DebuggerOutputSubjectPattern, Build: func(subj string) Renderer {
			return newTypedRenderer(subj, renderOutput)
		}},
		{Pattern: messages.DebuggerErrorSubjectPattern, Build: func(subj string) Renderer {
			return newTypedRenderer(subj, renderError)
		}},
		{Pattern: messages.SessionStartedSubjectPattern, Build: func(subj string) Renderer {
			return newTypedRenderer(subj, renderStarted)
		}},
		{Pattern: messages.SessionExitedSubjectPattern, Build: func(subj string) Renderer {
			return newTypedRenderer(subj, renderExited)
		}},
		{Pattern: messages.CommandCompletedSubjectPattern, Build: func(subj string) Renderer {
			return newTypedRenderer(subj, renderCommandCompleted)
		}},
	}
}

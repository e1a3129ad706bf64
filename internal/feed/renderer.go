package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	components "jdbrun/ui/components"
	"jdbrun/util"

	datastar "github.com/starfederation/datastar/sdk/go"
)

// Msg is the part of a JetStream message the renderers read.
type Msg interface {
	Subject() string
	Data() []byte
}

// RenderFunc renders a message into the SSE stream.
type RenderFunc func(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator) error

type Renderer struct {
	Pattern    string
	MatchFunc  func(string) bool
	RenderFunc RenderFunc
}

// RendererSpec is a catalogue entry: a wildcard pattern and a factory that
// builds a concrete Renderer for a subscription subject matching the pattern.
type RendererSpec struct {
	Pattern string
	Build   func(subj string) Renderer
}

// Specs is filled by renderers.go during init and treated as read-only.
var Specs []RendererSpec

// ForSubjects materialises a renderer for every (subject, spec) pair where
// the subject matches its pattern. The fallback renderer is last.
func ForSubjects(subjects []string) []Renderer {
	out := make([]Renderer, 0)
	seen := make(map[string]struct{})
	for _, s := range subjects {
		for _, spec := range Specs {
			if !overlaps(spec.Pattern, s) {
				continue
			}
			key := spec.Pattern + "|" + s
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, spec.Build(spec.Pattern))
		}
	}
	out = append(out, fallback)
	return out
}

// Dispatch renders msg with the first matching renderer.
func Dispatch(ctx context.Context, renderers []Renderer, msg Msg, sse *datastar.ServerSentEventGenerator) error {
	for _, r := range renderers {
		if r.MatchFunc(msg.Subject()) {
			return r.RenderFunc(ctx, msg, sse)
		}
	}
	return nil
}

// overlaps reports whether some subject matches both patterns.
func overlaps(a, b string) bool {
	at, bt := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(at) && i < len(bt); i++ {
		if at[i] == ">" || bt[i] == ">" {
			return true
		}
		if at[i] != "*" && bt[i] != "*" && at[i] != bt[i] {
			return false
		}
	}
	return len(at) == len(bt)
}

func newRenderer(pattern string, fn RenderFunc) Renderer {
	return Renderer{
		Pattern:    pattern,
		MatchFunc:  func(subj string) bool { return util.SubjectMatches(pattern, subj) },
		RenderFunc: fn,
	}
}

// newTypedRenderer decodes the JSON payload into T and invokes handler.
func newTypedRenderer[T any](pattern string, handler func(context.Context, Msg, *datastar.ServerSentEventGenerator, T) error) Renderer {
	return newRenderer(pattern, func(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator) error {
		var p T
		dec := json.NewDecoder(bytes.NewReader(msg.Data()))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("decode %T: %w", p, err)
		}
		return handler(ctx, msg, sse, p)
	})
}

// fallback appends any unrecognised message to the output pane.
var fallback = newRenderer(
	">",
	func(ctx context.Context, msg Msg, sse *datastar.ServerSentEventGenerator) error {
		return sse.MergeFragmentTempl(
			components.RawMessage(msg.Subject(), msg.Data()),
			datastar.WithSelectorID(components.OutputID),
			datastar.WithMergeAppend(),
		)
	},
)

// Viewer is what renderers know about the browser they render for.
type Viewer struct {
	// ID is the viewer cookie value; commands carrying it as correlation id
	// are marked as the viewer's own.
	ID string
	// Sources, when set, is the root that breakpoint source excerpts are read from.
	Sources fs.FS
}

type viewerKey struct{}

// WithViewer attaches v to ctx for the renderers.
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

func viewerFrom(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerKey{}).(Viewer)
	return v
}

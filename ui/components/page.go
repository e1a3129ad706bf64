package components

import (
	"context"
	"fmt"
	"io"
	"strings"

	"jdbrun/internal/messages"

	"github.com/a-h/templ"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-beta.11/bundles/datastar.js"

// Index is the single debugger page. The browser opens /events on load and
// the feed renderers merge fragments into the ids declared here.
func Index(sessionID, phase string, fields []messages.FieldSchema) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>jdbrun %s</title>
<script type="module" src="%s"></script>
</head>
<body data-on-load="@get('/events')">
<header><h1>jdbrun</h1> <code>%s</code> `, esc(sessionID), datastarScript, esc(sessionID)); err != nil {
			return err
		}
		if err := SessionStatus(phase, "").Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</header>\n"); err != nil {
			return err
		}
		if err := CommandForm(fields).Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, `<main>
<section id="%s"></section>
<section id="%s"></section>
<section id="%s"></section>
</main>
</body>
</html>
`, CommandsID, EventsID, OutputID)
		return err
	})
}

// CommandForm builds the command input from the message field schemas. Each
// field becomes a datastar signal posted to /command.
func CommandForm(fields []messages.FieldSchema) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		signals := make([]string, 0, len(fields))
		for _, f := range fields {
			def := ""
			if f.Type == messages.FieldTypeSelect && len(f.Options) > 0 {
				def = f.Options[0]
			}
			signals = append(signals, fmt.Sprintf("%s:'%s'", f.JSONName, def))
		}
		if _, err := fmt.Fprintf(w, `<form id="command-form" data-signals="{%s}" data-on-submit="@post('/command')">`,
			esc(strings.Join(signals, ","))); err != nil {
			return err
		}
		for _, f := range fields {
			var err error
			switch f.Type {
			case messages.FieldTypeSelect:
				_, err = fmt.Fprintf(w, `<select data-bind-%s>`, esc(f.JSONName))
				for _, opt := range f.Options {
					if err != nil {
						break
					}
					_, err = fmt.Fprintf(w, `<option value="%s">%s</option>`, esc(opt), esc(opt))
				}
				if err == nil {
					_, err = io.WriteString(w, "</select>")
				}
			default:
				req := ""
				if f.Required {
					req = " required"
				}
				_, err = fmt.Fprintf(w, `<input type="text" data-bind-%s placeholder="%s"%s>`, esc(f.JSONName), esc(f.Placeholder), req)
			}
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `<button type="submit">send</button></form>`)
		return err
	})
}

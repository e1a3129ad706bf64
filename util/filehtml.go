package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/a-h/templ"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	hl "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

// tiny cache so each excerpt is rendered once per process
var cache sync.Map // map[string]string

// SourceExcerpt renders the lines of path around focus as highlighted HTML
// with line numbers. radius lines are kept on either side of focus.
//
// The returned templ.Component is either safe HTML (templ.Raw) or an error.
func SourceExcerpt(fsys fs.FS, path string, focus, radius int) templ.Component {
	key := fmt.Sprintf("%s:%d:%d", path, focus, radius)
	if v, ok := cache.Load(key); ok {
		return templ.Raw(v.(string))
	}

	src, err := fs.ReadFile(fsys, path)
	if err != nil {
		return errComponent(err)
	}
	lines := strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
	if focus < 1 || focus > len(lines) {
		return errComponent(fmt.Errorf("line %d out of range for %s (%d lines)", focus, path, len(lines)))
	}
	start := max(focus-radius, 1)
	end := min(focus+radius, len(lines))

	var body strings.Builder
	body.WriteString("```" + language(path) + "\n")
	for _, l := range lines[start-1 : end] {
		body.WriteString(l)
		body.WriteByte('\n')
	}
	body.WriteString("```\n")

	var buf bytes.Buffer
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			hl.NewHighlighting(
				hl.WithStyle("github"),
				hl.WithFormatOptions(
					chromahtml.WithLineNumbers(true),
					chromahtml.BaseLineNumber(start),
				),
			),
		),
	)
	if err := md.Convert([]byte(body.String()), &buf); err != nil {
		return errComponent(err)
	}

	out := buf.String()
	cache.Store(key, out)
	return templ.Raw(out)
}

// FileToHTML converts a whole Markdown or source file to embeddable HTML.
// lang overrides the extension-derived language.
func FileToHTML(path string, lang string, fsys fs.FS) templ.Component {
	if v, ok := cache.Load(path); ok {
		return templ.Raw(v.(string))
	}
	src, err := fs.ReadFile(fsys, path)
	if err != nil {
		return errComponent(err)
	}
	if lang == "" {
		lang = language(path)
	}
	if lang != "md" && lang != "markdown" {
		src = append([]byte("```"+lang+"\n"), append(src, []byte("\n```")...)...)
	}

	var buf bytes.Buffer
	if err := goldmark.New(
		goldmark.WithExtensions(extension.GFM, hl.NewHighlighting(hl.WithStyle("github"))),
	).Convert(src, &buf); err != nil {
		return errComponent(err)
	}
	out := buf.String()
	cache.Store(path, out)
	return templ.Raw(out)
}

func language(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

func errComponent(err error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error { return err })
}

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jdbrun/internal/messages"
	components "jdbrun/ui/components"
	"jdbrun/util"

	"github.com/a-h/templ"
	"github.com/nats-io/nats.go"
)

// Health returns 200 OK.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Index serves the debugger page.
func Index(target Target) http.HandlerFunc {
	fields := messages.GetFieldSchemas("DebuggerCommandMessage")
	return func(w http.ResponseWriter, r *http.Request) {
		page := components.Index(target.ID, target.snapshot().Phase, fields)
		templ.Handler(page).ServeHTTP(w, r)
	}
}

// State returns the lifecycle snapshot as JSON.
func State(target Target) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(target.snapshot())
	}
}

// SendCommand forwards a command to the session's exec subject and waits
// for the reply. Browser (datastar) requests get 204; the result reaches
// them through the event feed.
func SendCommand(nc *nats.Conn, target Target, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := parseBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		messageType, _ := data["_messageType"].(string)
		if messageType == "" {
			messageType = "DebuggerCommandMessage"
		}
		delete(data, "_messageType")

		data["session_id"] = target.ID
		if corr, _ := data["correlation_id"].(string); corr == "" {
			data["correlation_id"] = ViewerID(r)
		}

		cmd, err := messages.BuildCommand(messageType, data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := cmd.Validate(); err != nil {
			http.Error(w, fmt.Sprintf("validation error: %v", err), http.StatusBadRequest)
			return
		}
		payload, err := json.Marshal(cmd)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if timeout <= 0 {
			timeout = defaultSessionCfg().CommandTimeout
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		reply, err := nc.RequestWithContext(ctx, cmd.Subject(), payload)
		switch {
		case errors.Is(err, nats.ErrNoResponders):
			http.Error(w, "session is not accepting commands", http.StatusServiceUnavailable)
			return
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrTimeout):
			http.Error(w, "command timed out", http.StatusGatewayTimeout)
			return
		case err != nil:
			http.Error(w, fmt.Sprintf("request error: %v", err), http.StatusBadGateway)
			return
		}

		var result messages.CommandResultMessage
		if err := json.Unmarshal(reply.Data, &result); err != nil {
			http.Error(w, fmt.Sprintf("invalid reply: %v", err), http.StatusBadGateway)
			return
		}

		if r.Header.Get("Datastar-Request") == "true" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

// parseBody reads JSON (including datastar signals), multipart or url-encoded
// form data into a map.
func parseBody(r *http.Request) (map[string]any, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			return nil, errors.New("invalid JSON")
		}
		return data, nil
	}
	if strings.Contains(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return nil, errors.New("invalid multipart form data")
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, errors.New("invalid form data")
	}
	data := make(map[string]any)
	for key, values := range r.Form {
		if len(values) == 1 {
			data[key] = values[0]
		} else {
			data[key] = values
		}
	}
	return data, nil
}

// Source renders a source file, or with line set an excerpt around it:
// /source?file=a/B.java&line=10&radius=4.
func Source(sources fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sources == nil {
			http.Error(w, "no source root configured", http.StatusNotFound)
			return
		}
		q := r.URL.Query()
		file := q.Get("file")
		if file == "" {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}
		var page templ.Component
		if q.Get("line") == "" {
			page = util.FileToHTML(file, "", sources)
		}
		line, err := strconv.Atoi(q.Get("line"))
		if page == nil && err != nil {
			http.Error(w, "invalid line", http.StatusBadRequest)
			return
		}
		radius := 10
		if v := q.Get("radius"); v != "" {
			if radius, err = strconv.Atoi(v); err != nil || radius < 0 {
				http.Error(w, "invalid radius", http.StatusBadRequest)
				return
			}
		}

		if page == nil {
			page = util.SourceExcerpt(sources, file, line, radius)
		}
		var buf bytes.Buffer
		if err := page.Render(r.Context(), &buf); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}

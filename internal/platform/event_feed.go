package platform

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"

	"jdbrun/internal/feed"
	"jdbrun/internal/jdb"
	"jdbrun/internal/messages"
	components "jdbrun/ui/components"

	"github.com/nats-io/nats.go/jetstream"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// sessionSubjects is the event filter for one session.
func sessionSubjects(sessionID string) []string {
	return []string{"event.jdb." + sessionID + ".>"}
}

// EventFeed is the SSE handler for /events. It replays the session's events
// from the start of the stream, then follows new ones and snapshot updates.
func EventFeed(js jetstream.JetStream, target Target, sources fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		viewer := ViewerID(r)
		log := slog.Default().With("session", target.ID, "viewer", viewer)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		ctx = feed.WithViewer(ctx, feed.Viewer{ID: viewer, Sources: sources})

		snap := target.snapshot()
		if err := sse.MergeFragmentTempl(components.SessionStatus(snap.Phase, snap.ThreadName)); err != nil {
			return
		}

		subs := sessionSubjects(target.ID)
		renderers := feed.ForSubjects(subs)

		cons, err := js.CreateConsumer(ctx, messages.EventStreamName, jetstream.ConsumerConfig{
			AckPolicy:      jetstream.AckNonePolicy,
			FilterSubjects: subs,
			DeliverPolicy:  jetstream.DeliverAllPolicy, // replay for late viewers
		})
		if err != nil {
			log.Warn("failed to create consumer", "err", err)
			http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
			return
		}
		cc, err := cons.Consume(func(msg jetstream.Msg) {
			if err := feed.Dispatch(ctx, renderers, msg, sse); err != nil {
				log.Warn("render", "subj", msg.Subject(), "err", err)
			}
		})
		if err != nil {
			log.Warn("consume failed", "err", err)
			return
		}
		defer cc.Stop()

		// --- Watch snapshot updates ---
		kv, err := js.KeyValue(ctx, SessionsBucket)
		if err != nil {
			log.Warn("snapshot bucket unavailable", "err", err)
			<-ctx.Done()
			return
		}
		watcher, err := kv.Watch(ctx, target.ID, jetstream.UpdatesOnly())
		if err != nil {
			log.Warn("failed to watch snapshot", "err", err)
			<-ctx.Done()
			return
		}
		defer watcher.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if update == nil || update.Operation() != jetstream.KeyValuePut {
					continue
				}
				var s jdb.Snapshot
				if err := json.Unmarshal(update.Value(), &s); err != nil {
					log.Warn("invalid snapshot", "err", err)
					continue
				}
				if err := sse.MergeFragmentTempl(components.SessionStatus(s.Phase, s.ThreadName)); err != nil {
					return
				}
			}
		}
	}
}

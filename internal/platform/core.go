package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jdbrun/internal/jdb"
	"jdbrun/internal/messages"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// SessionsBucket holds the latest snapshot of every session, keyed by id.
const SessionsBucket = "jdb_sessions"

// Target is the debug session the platform serves.
type Target struct {
	ID        string
	MainClass string
	Driver    *jdb.Driver
	// Snapshot reports lifecycle state; nil falls back to the driver's.
	Snapshot func() jdb.Snapshot
}

// SessionTarget adapts a session.
func SessionTarget(s *jdb.Session, mainClass string) Target {
	return Target{ID: s.ID, MainClass: mainClass, Driver: s.Driver(), Snapshot: s.Snapshot}
}

func (t Target) snapshot() jdb.Snapshot {
	if t.Snapshot != nil {
		return t.Snapshot()
	}
	snap := t.Driver.Snapshot()
	snap.Session = t.ID
	return snap
}

// Core connects a session to NATS: the event stream, the snapshot bucket,
// the command bridge and the event pump.
type Core struct {
	js     jetstream.JetStream
	kv     jetstream.KeyValue
	pub    *messages.Publisher
	bridge *CommandBridge
	target Target
	log    *slog.Logger

	pumpDone chan struct{}
}

// StartCore provisions JetStream and starts serving target. Events flow
// until the driver's event channel closes.
func StartCore(ctx context.Context, nc *nats.Conn, target Target, storage jetstream.StorageType) (*Core, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     messages.EventStreamName,
		Subjects: []string{messages.EventStreamSubject},
		Storage:  storage,
	}); err != nil {
		return nil, fmt.Errorf("create %s stream: %w", messages.EventStreamName, err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  SessionsBucket,
		History: 5,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bucket: %w", SessionsBucket, err)
	}

	c := &Core{
		js:       js,
		kv:       kv,
		pub:      messages.NewPublisher(js),
		target:   target,
		log:      slog.Default().With("session", target.ID),
		pumpDone: make(chan struct{}),
	}
	c.bridge = NewCommandBridge(nc, target, c.pub)
	c.bridge.onResolved = c.saveSnapshot
	if err := c.bridge.Start(ctx); err != nil {
		return nil, err
	}

	go c.pump(ctx)
	c.saveSnapshot(ctx)
	c.log.Info("core started", "stream", messages.EventStreamName, "bucket", SessionsBucket)
	return c, nil
}

// JetStream returns the JetStream context the core publishes through.
func (c *Core) JetStream() jetstream.JetStream { return c.js }

// SessionStarted publishes the started event.
func (c *Core) SessionStarted(ctx context.Context, thread string) {
	c.publish(ctx, messages.NewSessionStartedEvent(c.target.ID, thread, c.target.MainClass))
	c.saveSnapshot(ctx)
}

// SessionExited publishes the exited event; err is nil on a clean exit.
func (c *Core) SessionExited(ctx context.Context, err error) {
	if errors.Is(err, jdb.ErrExited) {
		err = nil
	}
	c.publish(ctx, messages.NewSessionExitedEvent(c.target.ID).WithError(err))
	c.saveSnapshot(ctx)
}

// Close stops the bridge and waits for the pump to drain, at most until ctx
// is done.
func (c *Core) Close(ctx context.Context) {
	c.bridge.Stop()
	select {
	case <-c.pumpDone:
	case <-ctx.Done():
		c.log.Warn("event pump did not drain", "err", ctx.Err())
	}
}

// pump republishes every driver event on the event stream.
func (c *Core) pump(ctx context.Context) {
	defer close(c.pumpDone)
	for ev := range c.target.Driver.Events() {
		evt, err := messages.FromDriverEvent(c.target.ID, ev)
		if err != nil {
			c.log.Warn("unpublishable event", "kind", ev.Kind.String(), "err", err)
			continue
		}
		c.publish(ctx, evt)
		if ev.Kind != jdb.EventOutput {
			c.saveSnapshot(ctx)
		}
	}
}

func (c *Core) publish(ctx context.Context, evt messages.Event) {
	// events raised during shutdown still go out
	if err := c.pub.PublishEvent(context.WithoutCancel(ctx), evt); err != nil {
		c.log.Warn("publish event", "subject", evt.Subject(), "err", err)
	}
}

func (c *Core) saveSnapshot(ctx context.Context) {
	data, err := json.Marshal(c.target.snapshot())
	if err != nil {
		c.log.Error("marshal snapshot", "err", err)
		return
	}
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if _, err := c.kv.Put(putCtx, c.target.ID, data); err != nil {
		c.log.Warn("store snapshot", "err", err)
	}
}

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"jdbrun/internal/jdb"
	"jdbrun/internal/messages"

	"github.com/nats-io/nats.go"
)

// CommandBridge serves DebuggerCommandMessage requests on the session's
// exec subject. Commands are submitted in arrival order; the reply is sent
// when the command resolves.
type CommandBridge struct {
	nc     *nats.Conn
	target Target
	pub    *messages.Publisher
	log    *slog.Logger

	onResolved func(context.Context)

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	sub     *nats.Subscription
}

// NewCommandBridge builds a bridge; Start subscribes it.
func NewCommandBridge(nc *nats.Conn, target Target, pub *messages.Publisher) *CommandBridge {
	return &CommandBridge{
		nc:     nc,
		target: target,
		pub:    pub,
		log:    slog.Default().With("component", "bridge", "session", target.ID),
	}
}

// Start subscribes to the exec subject. Replies keep flowing until ctx ends.
func (b *CommandBridge) Start(ctx context.Context) error {
	subject := messages.DebuggerExecSubject(b.target.ID)
	sub, err := b.nc.Subscribe(subject, func(m *nats.Msg) { b.handle(ctx, m) })
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.sub = sub
	b.log.Info("command bridge listening", "subject", subject)
	return nil
}

// Stop unsubscribes and waits for in-flight replies. Requests still being
// delivered afterwards are answered with an error.
func (b *CommandBridge) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.wg.Wait()
}

func (b *CommandBridge) handle(ctx context.Context, m *nats.Msg) {
	var req messages.DebuggerCommandMessage
	if err := json.Unmarshal(m.Data, &req); err != nil {
		b.reply(m, &messages.CommandResultMessage{Lines: []string{}, Error: fmt.Sprintf("invalid JSON: %v", err)})
		return
	}
	req.SessionID = b.target.ID
	if err := req.Validate(); err != nil {
		b.reply(m, &messages.CommandResultMessage{Lines: []string{}, Error: err.Error(), CorrelationID: req.CorrelationID})
		return
	}
	category, _ := jdb.ParseCategory(req.Category)

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.reply(m, &messages.CommandResultMessage{Lines: []string{}, Error: "command bridge stopped", CorrelationID: req.CorrelationID})
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	// Submitting inside the callback keeps the queue in subject order.
	cmd := b.target.Driver.Submit(req.Cmd, category)
	b.log.Debug("command bridged", "id", cmd.ID, "cmd", req.Cmd, "category", req.Category)

	go func() {
		defer b.wg.Done()
		resp, err := cmd.Wait(ctx)

		evt := messages.NewCommandCompletedEvent(b.target.ID, cmd, resp, err).WithCorrelation(req.CorrelationID)
		if perr := b.pub.PublishEvent(context.WithoutCancel(ctx), evt); perr != nil {
			b.log.Warn("publish command completion", "id", cmd.ID, "err", perr)
		}
		if b.onResolved != nil {
			b.onResolved(ctx)
		}

		result := messages.NewCommandResult(cmd, resp, err)
		result.CorrelationID = req.CorrelationID
		b.reply(m, result)
	}()
}

func (b *CommandBridge) reply(m *nats.Msg, result *messages.CommandResultMessage) {
	if m.Reply == "" {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		b.log.Error("marshal command result", "err", err)
		return
	}
	if err := m.Respond(data); err != nil {
		b.log.Warn("reply to command", "err", err)
	}
}

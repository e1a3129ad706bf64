// Package messages provides a centralized schema for all NATS messaging contracts.
//
// This package consolidates the debugger's message types, subject patterns, and
// validation logic into a single source of truth, providing:
//
//   - Typed commands and events with Validate methods
//   - Centralized subject constants to eliminate hardcoded strings
//   - A publisher that validates before writing to JetStream
//
// # Message Types
//
//   - Commands: requests to run a jdb command in a session (DebuggerCommandMessage),
//     answered over NATS request/reply with a CommandResultMessage
//   - Events: things that happened in a session (breakpoint hits, output, exit),
//     persisted in the JDB_EVENT stream
//
// # Subject Patterns
//
// All NATS subject patterns are defined as constants, with both pattern forms
// (for consumers) and builder functions (for publishers):
//
//   - Pattern constants: Used for consumer subscriptions (e.g., "event.jdb.*.breakpoint")
//   - Builder functions: Generate concrete subjects (e.g., BreakpointHitSubject("s1") → "event.jdb.s1.breakpoint")
//
// # Usage Example
//
//	publisher := messages.NewPublisher(js)
//	for ev := range session.Driver().Events() {
//	    msg, err := messages.FromDriverEvent(session.ID, ev)
//	    if err != nil {
//	        continue
//	    }
//	    if err := publisher.PublishEvent(ctx, msg); err != nil {
//	        slog.Error("publish", "err", err)
//	    }
//	}
package messages

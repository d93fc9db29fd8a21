// Package event provides the per-request Event Bus streamed to one SSE
// client per turn. Unlike a pub/sub system with many subscribers, a Bus
// has exactly one consumer: the HTTP handler draining it into the
// response. Internally it uses watermill's in-memory gochannel as the
// delivery transport, the same building block the wider event
// infrastructure in this codebase is built on.
package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/opencode-ai/opencode/pkg/types"
)

const topic = "turn"

// Bus is a single-producer, single-consumer ordered event stream for
// one /api/chat turn. Emit appends an event; Events yields them in
// order. Close is idempotent: only the first call has effect, and it is
// safe to call from a different goroutine than the one draining Events.
type Bus struct {
	pubsub *gochannel.GoChannel
	sub    <-chan *message.Message

	mu       sync.Mutex
	closed   bool
	active   int32 // atomic bool: 1 while the turn may still do work
	terminal bool  // a done/error event has already been emitted
}

// New creates a Bus and begins subscribing to its single internal topic.
// ctx governs the subscription's lifetime: cancelling it ends the
// subscription, but unlike Close it does not mark the Bus closed or
// inactive.
func New(ctx context.Context) (*Bus, error) {
	ps := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NopLogger{},
	)

	sub, err := ps.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	b := &Bus{pubsub: ps, sub: sub}
	atomic.StoreInt32(&b.active, 1)
	return b, nil
}

// IsActive reports whether the turn should keep doing work. Phases
// check this cooperatively between tasks; it flips to false once
// Interrupt or Close is called.
func (b *Bus) IsActive() bool {
	return atomic.LoadInt32(&b.active) == 1
}

// IsTerminal reports whether a done or error event has already been
// emitted, i.e. the engine no longer owes the stream a terminal event.
func (b *Bus) IsTerminal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terminal
}

// Interrupt marks the turn as no longer active and runs the spec's
// fixed abort sequence exactly once: a human-readable delta, a phase
// ready event, a done event, then Close. sessionID is carried on the
// done event the same way a normal turn's would be. Already-queued
// events ahead of this call still drain before the stream ends.
// Idempotent: a second call is a no-op.
func (b *Bus) Interrupt(sessionID string) {
	if !atomic.CompareAndSwapInt32(&b.active, 1, 0) {
		return
	}
	b.Emit(Delta("Turn interrupted."))
	b.Emit(Phase(types.PhaseReady, "interrupted"))
	b.Emit(Done(sessionID, types.Usage{}))
	b.Close()
}

// Emit appends one event to the stream. Emitting after a terminal
// (done/error) event or after Close is a no-op: the spec guarantees
// exactly one terminal event per turn.
func (b *Bus) Emit(evt types.Event) {
	b.mu.Lock()
	if b.closed || b.terminal {
		b.mu.Unlock()
		return
	}
	if evt.Type == types.EventDone || evt.Type == types.EventError {
		b.terminal = true
	}
	b.mu.Unlock()

	payload, err := marshalEvent(evt)
	if err != nil {
		return
	}
	_ = b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Events returns the channel of published events for the caller to
// range over. The channel closes once Close is called and any buffered
// messages have been delivered.
func (b *Bus) Events() <-chan *message.Message {
	return b.sub
}

// Close stops accepting further Emits and releases the underlying
// transport. Safe to call multiple times; only the first call acts.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	atomic.StoreInt32(&b.active, 0)
	return b.pubsub.Close()
}

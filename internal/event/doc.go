/*
Package event provides the per-turn Event Bus streamed to the client over
Server-Sent Events.

Each call to POST /api/chat creates exactly one Bus. Phases Emit typed
events into it as the turn progresses; the HTTP handler drains Events
and writes each as a "data: <json>\n\n" record. A Bus has exactly one
consumer, so ordering is simply publish order: no fan-out, no per-type
filtering.

# Terminal events

Exactly one of a "done" or "error" event closes a turn. Emit enforces
this: once a terminal event has been written, further Emits are
silently dropped rather than risk a client seeing two conflicting
outcomes.

# Cooperative interruption

IsActive reports whether phases should keep doing work. Interrupt flips
it off, emits a short delta, a ready phase and a done event, and then
closes the Bus. Close alone flips it off and releases the underlying
transport without emitting anything. Both are idempotent.

# Transport

Internally a Bus wraps a watermill gochannel pub/sub with a single
topic and a single subscription, matching the gochannel usage elsewhere
in this codebase's event infrastructure.
*/
package event

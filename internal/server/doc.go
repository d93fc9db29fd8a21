// Package server provides the orchestrator's HTTP surface: a chi
// router exposing exactly the interface spec.md §6 names.
//
// # Chat endpoint
//
// POST /api/chat is the core of the system: it validates the request
// body, resolves or lazily creates a session, assembles a fresh
// workspace.Store, memory.Memory, and event.Bus for that session, wires
// them into a pipeline.Engine via pipeline.Build, and streams the
// Bus's events back as Server-Sent Events using the literal "data: "
// framing spec.md §6 specifies. A client disconnect calls the bus's
// Interrupt, which ends the stream with a terminal event; the phase in
// progress runs to its end, and the engine stops before the next phase.
//
// # Auxiliary routes
//
// GET /api/sessions, DELETE /api/sessions/{id}, and the
// /api/sessions/{id}/files routes are the auxiliary endpoints spec.md
// §6 reserves for the browser client: session listing/deletion and
// reading a session's workspace files as text or raw bytes. Their
// contracts are independent of the chat pipeline; they read directly
// from session.Service and workspace.Store.
package server

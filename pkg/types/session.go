// Package types provides the core data types shared across the orchestrator:
// sessions, chat messages, execution plans, and the events streamed to the client.
package types

// Session is a persistent per-user workspace with its own directory,
// chat history, and project memory. Created lazily on first request,
// it survives until explicit deletion.
type Session struct {
	ID        string       `json:"id"`
	Directory string       `json:"directory"`
	Title     string       `json:"title"`
	CreatedAt int64         `json:"createdAt"`
	UpdatedAt int64         `json:"updatedAt"`
	DevServer *DevServerRef `json:"devServer,omitempty"`
}

// DevServerRef tracks the single running dev-server process for a session.
type DevServerRef struct {
	Port      int    `json:"port"`
	PID       int    `json:"pid"`
	StartedAt int64  `json:"startedAt"`
	URL       string `json:"url"`
}

// Metadata is a small per-session summary record (ID, title, timestamp).
// session.Service persists the Session record, not this type.
type Metadata struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

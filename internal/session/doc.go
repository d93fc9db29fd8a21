// Package session owns the Session lifecycle: the workspace directory,
// chat-history file, project-memory file, and uploads directory a
// session owns, plus the bookkeeping (ULID IDs, metadata persistence)
// needed to create one lazily and find it again on a later request.
package session

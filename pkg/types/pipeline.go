package types

import "time"

// PipelineContext is the mutable state threaded through every phase of
// one turn. Phases read and append to it; nothing outside the pipeline
// package mutates it after Deliver runs.
type PipelineContext struct {
	SessionID string
	Directory string
	IsNewSession bool

	Messages []ClientMessage

	Intent string

	// ExistingFiles is the workspace file listing gathered by Understand,
	// relative to Directory, used to build the codebase summary and
	// reused by later phases instead of re-listing the workspace.
	ExistingFiles []string

	// CodebaseSummary, ProjectContext and ThinkingAnalysis are the
	// scratch slots Understand fills in for generative intents: a
	// directory-grouped file listing, the project memory's prompt
	// section, and the extended-thinking call's four-question answer.
	CodebaseSummary  string
	ProjectContext   string
	ThinkingAnalysis string

	PM   *PMSpec
	Plan *ExecutionPlan

	Transparency []TransparencyTask

	FileActions []FileActionEvent
	GitResults  []GitResultEvent

	Verification VerificationErrors

	// PreviousErrorCount tracks Verify's error count across a Repair
	// loop iteration, so Repair can detect a repair that made things
	// worse rather than better.
	PreviousErrorCount int
	RepairAttempts     int

	// FileCheckpoint holds the pre-repair contents of files Repair is
	// about to touch, keyed by path relative to Directory, so a
	// regression can be reverted.
	FileCheckpoint map[string]string

	// StartedAt anchors phase timing for the elapsedMs field phases
	// attach to their progress events.
	StartedAt time.Time

	// Aborted is set by a phase that decides the turn cannot continue;
	// its Reason is surfaced to the client as the terminal error event.
	Aborted bool
	Reason  string

	// Interrupted is not set or read by any phase; a client disconnect
	// or cancel stops the turn through the event bus's IsActive, which
	// the engine checks between phases.
	Interrupted bool
}

// ReplyContent returns the assistant-visible text PM-Analyze produced
// (its chat_message), or "" when there is no PM spec or it carries no
// chat message.
func (p *PipelineContext) ReplyContent() string {
	if p.PM != nil && p.PM.ChatMessage != "" {
		return p.PM.ChatMessage
	}
	return ""
}

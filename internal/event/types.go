package event

import (
	"encoding/json"

	"github.com/opencode-ai/opencode/pkg/types"
)

// marshalEvent renders an Event as the exact bytes written after the
// "data: " prefix: single-line compact JSON, no event-name line, no
// trailing whitespace beyond the framing the SSE writer itself adds.
func marshalEvent(evt types.Event) ([]byte, error) {
	return json.Marshal(evt)
}

// Session builds the first event of a turn, carrying the session ID a
// new-session client must echo back on subsequent requests.
func Session(sessionID string) types.Event {
	return types.Event{Type: types.EventSession, Data: types.SessionPayload{SessionID: sessionID}}
}

// Phase builds a phase-transition event.
func Phase(phase types.PhaseName, detail string) types.Event {
	return types.Event{Type: types.EventPhase, Data: types.PhasePayload{Phase: phase, Detail: detail}}
}

// PhaseThought builds a phase event carrying an extended-thinking
// fragment rather than a plain progress detail.
func PhaseThought(phase types.PhaseName, thought string) types.Event {
	return types.Event{Type: types.EventPhase, Data: types.PhasePayload{Phase: phase, Thought: thought}}
}

// Delta builds a delta event carrying one chunk of assistant-visible prose.
func Delta(text string) types.Event {
	return types.Event{Type: types.EventDelta, Data: types.DeltaPayload{Text: text}}
}

// Transparency builds a transparency event carrying the current task list.
func Transparency(tasks []types.TransparencyTask) types.Event {
	return types.Event{Type: types.EventTransparency, Data: types.TransparencyPayload{Data: tasks}}
}

// FileAction builds a file_action event for one FileActionEvent.
func FileAction(fa types.FileActionEvent) types.Event {
	return types.Event{Type: types.EventFileAction, Data: fa}
}

// GitResult builds a git_result event for one GitResultEvent.
func GitResult(gr types.GitResultEvent) types.Event {
	return types.Event{Type: types.EventGitResult, Data: gr}
}

// Preview builds the preview event emitted once the dev-server is
// reachable.
func Preview(url string) types.Event {
	return types.Event{Type: types.EventPreview, Data: types.PreviewPayload{URL: url}}
}

// Metadata builds a metadata event, used to push a session title
// generated by PM-Analyze or Plan to the client.
func Metadata(title string) types.Event {
	return types.Event{Type: types.EventMetadata, Data: types.MetadataPayload{Data: types.MetadataFields{Title: title}}}
}

// Summary builds the end-of-turn summary event.
func Summary(text string) types.Event {
	return types.Event{Type: types.EventSummary, Data: types.SummaryPayload{Text: text}}
}

// AgentStart builds an agent_start event, e.g. when the PM-Analyze
// phase begins its LLM call.
func AgentStart(agent, name string) types.Event {
	return types.Event{Type: types.EventAgentStart, Data: types.AgentStartPayload{Agent: agent, Name: name}}
}

// AgentEnd builds an agent_end event closing a prior AgentStart.
func AgentEnd(agent string) types.Event {
	return types.Event{Type: types.EventAgentEnd, Data: types.AgentEndPayload{Agent: agent}}
}

// Done builds the terminal success event for a turn.
func Done(sessionID string, usage types.Usage) types.Event {
	return types.Event{Type: types.EventDone, Data: types.DonePayload{SessionID: sessionID, Usage: usage}}
}

// Error builds the terminal failure event for a turn.
func Error(message string) types.Event {
	return types.Event{Type: types.EventError, Data: types.ErrorPayload{Message: message}}
}

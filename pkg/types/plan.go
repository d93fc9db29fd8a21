package types

import "encoding/json"

// TaskKind discriminates the Task tagged union. Tasks have no subtype
// hierarchy; a single struct carries every field and an explicit kind.
type TaskKind string

const (
	TaskChat          TaskKind = "chat"
	TaskCreateFile    TaskKind = "create_file"
	TaskEditFile      TaskKind = "edit_file"
	TaskDeleteFile    TaskKind = "delete_file"
	TaskGenerateImage TaskKind = "generate_image"
	TaskGitAction     TaskKind = "git_action"
)

// Task is one unit of work in an ExecutionPlan. Only the fields relevant
// to Kind are populated; the rest are left zero.
type Task struct {
	Kind TaskKind `json:"type"`

	// chat
	Content string `json:"content,omitempty"`

	// create_file / edit_file / generate_image
	FilePath string `json:"filepath,omitempty"`
	Prompt   string `json:"prompt,omitempty"`

	// create_file / edit_file only: prompt-context hints, not scheduling.
	DependsOn []string `json:"depends_on,omitempty"`
	FeedsInto []string `json:"feeds_into,omitempty"`

	// git_action
	Command string `json:"command,omitempty"`
}

// IsFileMutation reports whether the task writes, edits, deletes, or
// generates a file under the workspace (i.e. it needs a TransparencyTask
// and participates in per-file serialization).
func (t Task) IsFileMutation() bool {
	switch t.Kind {
	case TaskCreateFile, TaskEditFile, TaskDeleteFile, TaskGenerateImage:
		return true
	default:
		return false
	}
}

// ExecutionPlan is the orchestrator's execution plan for one turn.
// Exactly one exists per request after the Plan phase succeeds, and it
// is immutable thereafter.
type ExecutionPlan struct {
	Title           string   `json:"title,omitempty"`
	Reasoning       string   `json:"reasoning"`
	Assumptions     []string `json:"assumptions,omitempty"`
	DesignDecisions []string `json:"design_decisions,omitempty"`
	Tasks           []Task   `json:"tasks"`
}

// RawExecutionPlan is the shape used to decode the LLM's JSON response
// before validation: Tasks is left as json.RawMessage so the parser can
// validate "is this a list" before fully decoding task-by-task.
type RawExecutionPlan struct {
	Title           string          `json:"title,omitempty"`
	Reasoning       string          `json:"reasoning"`
	Assumptions     []string        `json:"assumptions,omitempty"`
	DesignDecisions []string        `json:"design_decisions,omitempty"`
	Tasks           json.RawMessage `json:"tasks"`
}

// PMDesign is the design sub-object of a PMSpec.
type PMDesign struct {
	Theme           string   `json:"theme"`
	Layout          string   `json:"layout"`
	Typography      string   `json:"typography"`
	KeyInteractions []string `json:"key_interactions,omitempty"`
}

// PMScope splits requirements into what this turn implements versus
// what is deferred.
type PMScope struct {
	ThisTurn []string `json:"this_turn,omitempty"`
	NextTurn []string `json:"next_turn,omitempty"`
}

// PMSpec is the optional product/design specification produced by the
// PM-Analyze phase, ahead of the execution plan.
type PMSpec struct {
	Title        string   `json:"title,omitempty"`
	ChatMessage  string   `json:"chat_message,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Design       PMDesign `json:"design"`
	Scope        PMScope  `json:"scope"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// IsEmpty reports whether the spec carries no actionable content, the
// signal the PM-Analyze phase uses to treat a turn as conversational-only.
func (p PMSpec) IsEmpty() bool {
	return len(p.Requirements) == 0 && len(p.Scope.ThisTurn) == 0
}

// TransparencyStatus is the lifecycle of a TransparencyTask.
type TransparencyStatus string

const (
	TransparencyPending    TransparencyStatus = "pending"
	TransparencyInProgress TransparencyStatus = "in_progress"
	TransparencyDone       TransparencyStatus = "done"
)

// TransparencyTask is the UI-facing projection of one non-chat plan task.
// PlanIndex is injective into the plan's task indices.
type TransparencyTask struct {
	ID          string             `json:"id"`
	Description string             `json:"description"`
	Status      TransparencyStatus `json:"status"`
	PlanIndex   int                `json:"_planIndex"`
}

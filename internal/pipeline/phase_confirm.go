package pipeline

import (
	"context"
	"fmt"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/pkg/types"
)

const confirmMinFileTasks = 3

// ConfirmPhase is a low-friction gate between planning and execution:
// small plans proceed silently, larger ones get a transparency listing
// so the client can show a breakdown before work starts. Grounded on
// spec.md §4.6, which reserves (but does not yet require) a future
// branch that would block on client approval.
type ConfirmPhase struct {
	Bus *event.Bus
}

func NewConfirmPhase(bus *event.Bus) *ConfirmPhase {
	return &ConfirmPhase{Bus: bus}
}

func (p *ConfirmPhase) Name() string { return "confirm" }

func (p *ConfirmPhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	if pc.Plan == nil {
		return Skip(), nil
	}

	var tasks []types.TransparencyTask
	for i, t := range pc.Plan.Tasks {
		if !t.IsFileMutation() {
			continue
		}
		tasks = append(tasks, types.TransparencyTask{
			ID:          fmt.Sprintf("task-%d", i),
			Description: describeTask(t),
			Status:      types.TransparencyPending,
			PlanIndex:   i,
		})
	}

	if len(tasks) < confirmMinFileTasks {
		return Skip(), nil
	}

	pc.Transparency = tasks
	p.Bus.Emit(event.Transparency(tasks))
	return Continue(), nil
}

func describeTask(t types.Task) string {
	switch t.Kind {
	case types.TaskCreateFile:
		return fmt.Sprintf("Create %s", t.FilePath)
	case types.TaskEditFile:
		return fmt.Sprintf("Edit %s", t.FilePath)
	case types.TaskDeleteFile:
		return fmt.Sprintf("Delete %s", t.FilePath)
	case types.TaskGenerateImage:
		return fmt.Sprintf("Generate image %s", t.FilePath)
	case types.TaskGitAction:
		return fmt.Sprintf("Run %s", t.Command)
	default:
		return string(t.Kind)
	}
}

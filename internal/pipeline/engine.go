package pipeline

import (
	"context"
	"fmt"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/logging"
	"github.com/opencode-ai/opencode/pkg/types"
)

// ControlResult is what a phase tells the engine to do next.
type ControlResult string

const (
	ResultContinue ControlResult = "continue"
	ResultSkip     ControlResult = "skip"
	ResultLoop     ControlResult = "loop"
	ResultAbort    ControlResult = "abort"
)

// Outcome is a phase's verdict after Execute returns.
type Outcome struct {
	Result ControlResult
	// LoopTarget names the phase to resume at, when Result == ResultLoop.
	LoopTarget string
}

// Continue, Skip and Abort are the common zero-argument outcomes.
func Continue() Outcome { return Outcome{Result: ResultContinue} }
func Skip() Outcome     { return Outcome{Result: ResultSkip} }
func Abort() Outcome    { return Outcome{Result: ResultAbort} }

// LoopTo builds the outcome that resumes the engine at a named phase.
func LoopTo(phase string) Outcome { return Outcome{Result: ResultLoop, LoopTarget: phase} }

// Phase is one named step in the pipeline. Execute may mutate pc
// freely; an error return aborts the turn and is reported to the
// client as the terminal error event.
type Phase interface {
	Name() string
	Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error)
}

// Engine runs an ordered list of phases against one PipelineContext.
type Engine struct {
	phases []Phase
	bus    *event.Bus
}

// New builds an Engine over phases, in run order, emitting onto bus.
func New(bus *event.Bus, phases ...Phase) *Engine {
	return &Engine{phases: phases, bus: bus}
}

func (e *Engine) indexOf(name string) int {
	for i, p := range e.phases {
		if p.Name() == name {
			return i
		}
	}
	return -1
}

// Run executes phases in order starting at index 0, honoring each
// phase's control result, until a phase aborts, an unknown loop target
// is named, the bus goes inactive, or the phase list is exhausted.
func (e *Engine) Run(ctx context.Context, pc *types.PipelineContext) {
	i := 0
	for i < len(e.phases) {
		if !e.bus.IsActive() {
			// Interrupt already ran its own delta/phase-ready/done/close
			// sequence. For any other path to an inactive bus with no
			// terminal event yet, emit an error; after a direct Close,
			// Emit drops it and the engine simply stops.
			if !e.bus.IsTerminal() {
				e.bus.Emit(event.Error(fmt.Sprintf("%s: turn interrupted", e.phases[i].Name())))
			}
			return
		}

		phase := e.phases[i]
		outcome, err := phase.Execute(ctx, pc)
		if err != nil {
			msg := fmt.Sprintf("%s: %s", phase.Name(), err.Error())
			logging.Session(pc.SessionID).Error().Str("phase", phase.Name()).Err(err).Msg("phase aborted")
			e.bus.Emit(event.Error(msg))
			return
		}

		switch outcome.Result {
		case ResultLoop:
			idx := e.indexOf(outcome.LoopTarget)
			if idx < 0 {
				e.bus.Emit(event.Error(fmt.Sprintf("%s: unknown loop target %q", phase.Name(), outcome.LoopTarget)))
				return
			}
			i = idx
		case ResultAbort:
			return
		default: // ResultContinue, ResultSkip, or zero-value
			i++
		}
	}
}

package pipeline

import (
	"github.com/opencode-ai/opencode/internal/devserver"
	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/memory"
	"github.com/opencode-ai/opencode/internal/provider"
	"github.com/opencode-ai/opencode/internal/session"
	"github.com/opencode-ai/opencode/internal/workspace"
)

// Deps collects the dependencies one turn's Engine is built from. The
// HTTP handler constructs one Deps (and one Engine) per /api/chat
// request, since Store and Memory are scoped to a single session.
type Deps struct {
	Providers  *provider.Registry
	Store      *workspace.Store
	Sessions   *session.Service
	Memory     *memory.Memory
	DevServers *devserver.Manager
	Bus        *event.Bus

	DisableLint      bool
	DisableTypeCheck bool
}

// Build assembles the eight phases spec.md §4 names, in run order, into
// an Engine ready to drive one turn.
func Build(d Deps) *Engine {
	return New(d.Bus,
		NewUnderstandPhase(d.Providers, d.Store, d.Memory, d.Bus),
		NewPMAnalyzePhase(d.Providers, d.Bus),
		NewPlanPhase(d.Providers, d.Store, d.Sessions, d.Bus),
		NewConfirmPhase(d.Bus),
		NewExecutePhase(d.Providers, d.Store, d.Bus),
		&VerifyPhase{Store: d.Store, Bus: d.Bus, DisableLint: d.DisableLint, DisableTypeCheck: d.DisableTypeCheck},
		NewRepairPhase(d.Providers, d.Store, d.Bus),
		NewDeliverPhase(d.Providers, d.Store, d.Sessions, d.DevServers, d.Memory, d.Bus),
	)
}

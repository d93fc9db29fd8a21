// Package pipeline is the orchestrator's Phase Engine: an ordered list
// of named phases run over a shared PipelineContext for one turn.
// Each phase returns a control result (continue, skip, loop, abort)
// that decides what the engine does next; an error return is always
// treated as abort.
package pipeline

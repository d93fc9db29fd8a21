package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/pkg/types"
)

type fnPhase struct {
	name string
	fn   func(ctx context.Context, pc *types.PipelineContext) (Outcome, error)
}

func (f *fnPhase) Name() string { return f.name }
func (f *fnPhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	return f.fn(ctx, pc)
}

func drain(t *testing.T, bus *event.Bus) []types.Event {
	t.Helper()
	var got []types.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-bus.Events():
			var evt types.Event
			require.NoError(t, json.Unmarshal(msg.Payload, &evt))
			got = append(got, evt)
			msg.Ack()
			if evt.Type == types.EventDone || evt.Type == types.EventError {
				return got
			}
		case <-timeout:
			return got
		}
	}
}

func TestEngineRunsPhasesInOrder(t *testing.T) {
	var order []string
	bus, err := event.New(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	a := &fnPhase{name: "a", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		order = append(order, "a")
		return Continue(), nil
	}}
	b := &fnPhase{name: "b", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		order = append(order, "b")
		bus.Emit(event.Done(pc.SessionID, types.Usage{}))
		return Continue(), nil
	}}

	e := New(bus, a, b)
	e.Run(context.Background(), &types.PipelineContext{SessionID: "s1"})

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestEngineSkipAdvancesWithoutSideEffect(t *testing.T) {
	bus, err := event.New(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	var ran []string
	a := &fnPhase{name: "a", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		ran = append(ran, "a")
		return Skip(), nil
	}}
	b := &fnPhase{name: "b", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		ran = append(ran, "b")
		bus.Emit(event.Done("s1", types.Usage{}))
		return Continue(), nil
	}}

	New(bus, a, b).Run(context.Background(), &types.PipelineContext{})
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestEngineLoopJumpsToNamedPhase(t *testing.T) {
	bus, err := event.New(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	visits := 0
	verify := &fnPhase{name: "verify", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		visits++
		if visits < 3 {
			return LoopTo("repair"), nil
		}
		bus.Emit(event.Done("s1", types.Usage{}))
		return Continue(), nil
	}}
	repair := &fnPhase{name: "repair", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		return LoopTo("verify"), nil
	}}

	New(bus, verify, repair).Run(context.Background(), &types.PipelineContext{})
	assert.Equal(t, 3, visits)
}

func TestEngineUnknownLoopTargetEmitsError(t *testing.T) {
	bus, err := event.New(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	a := &fnPhase{name: "a", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		return LoopTo("nowhere"), nil
	}}

	New(bus, a).Run(context.Background(), &types.PipelineContext{})
	events := drain(t, bus)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventError, events[0].Type)
}

func TestEnginePhaseErrorAbortsWithErrorEvent(t *testing.T) {
	bus, err := event.New(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	a := &fnPhase{name: "a", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		return Outcome{}, errors.New("boom")
	}}
	ran := false
	b := &fnPhase{name: "b", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		ran = true
		return Continue(), nil
	}}

	New(bus, a, b).Run(context.Background(), &types.PipelineContext{})
	events := drain(t, bus)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventError, events[0].Type)
	assert.False(t, ran)
}

func TestEngineAbortOutcomeStopsWithoutErrorEvent(t *testing.T) {
	bus, err := event.New(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	a := &fnPhase{name: "a", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		bus.Emit(event.Done("s1", types.Usage{}))
		return Abort(), nil
	}}
	ran := false
	b := &fnPhase{name: "b", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		ran = true
		return Continue(), nil
	}}

	New(bus, a, b).Run(context.Background(), &types.PipelineContext{})
	events := drain(t, bus)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDone, events[0].Type)
	assert.False(t, ran)
}

func TestEngineStopsWhenBusGoesInactive(t *testing.T) {
	bus, err := event.New(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	a := &fnPhase{name: "a", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		bus.Interrupt("sess-1")
		return Continue(), nil
	}}
	ran := false
	b := &fnPhase{name: "b", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		ran = true
		return Continue(), nil
	}}

	New(bus, a, b).Run(context.Background(), &types.PipelineContext{})
	assert.False(t, ran)

	events := drain(t, bus)
	require.Len(t, events, 3)
	assert.Equal(t, types.EventDelta, events[0].Type)
	assert.Equal(t, types.EventPhase, events[1].Type)
	assert.Equal(t, types.EventDone, events[2].Type)
}

// TestEngineStopsWhenBusClosedWithoutTerminalEvent covers a bus closed
// directly rather than through Interrupt, so no done/error was ever
// emitted: Emit is a no-op on a closed bus, and the engine stops before
// running the next phase.
func TestEngineStopsWhenBusClosedWithoutTerminalEvent(t *testing.T) {
	bus, err := event.New(context.Background())
	require.NoError(t, err)
	defer bus.Close()

	a := &fnPhase{name: "a", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		bus.Close()
		return Continue(), nil
	}}
	ran := false
	b := &fnPhase{name: "b", fn: func(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
		ran = true
		return Continue(), nil
	}}

	New(bus, a, b).Run(context.Background(), &types.PipelineContext{})
	assert.False(t, ran)
}

package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

func newTestRepair(t *testing.T, fp *fakeProvider) (*RepairPhase, *workspace.Store, *event.Bus) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "workspace")
	store := workspace.New(dir)
	require.NoError(t, store.Ensure())

	bus, err := event.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })

	return NewRepairPhase(newFakeRegistry(fp), store, bus), store, bus
}

func TestRepairSkipsWhenNoVerificationErrors(t *testing.T) {
	phase, _, _ := newTestRepair(t, newFakeProvider("fake"))
	outcome, err := phase.Execute(context.Background(), &types.PipelineContext{})
	require.NoError(t, err)
	assert.Equal(t, ResultSkip, outcome.Result)
}

func TestRepairFixesFileAndLoopsToVerify(t *testing.T) {
	fp := newFakeProvider("fake")
	fp.textReply = "export function App() { return null }"
	phase, store, _ := newTestRepair(t, fp)
	ctx := context.Background()
	_, err := store.WriteFile(ctx, "src/app.tsx", "export function App() { return undefinedVar }")
	require.NoError(t, err)

	pc := &types.PipelineContext{
		Verification: types.VerificationErrors{
			TSCErrors: []types.TSCError{
				{FilePath: "src/app.tsx", Code: "TS2304", Message: "Cannot find name 'undefinedVar'."},
			},
		},
	}
	outcome, err := phase.Execute(ctx, pc)
	require.NoError(t, err)
	assert.Equal(t, ResultLoop, outcome.Result)
	assert.Equal(t, "verify", outcome.LoopTarget)
	assert.Equal(t, 1, pc.RepairAttempts)
	assert.Equal(t, 1, pc.PreviousErrorCount)

	content, err := store.ReadFile(ctx, "src/app.tsx")
	require.NoError(t, err)
	assert.Equal(t, fp.textReply, content)
}

func TestRepairDetectsRegressionAndRevertsBeforeRepairing(t *testing.T) {
	fp := newFakeProvider("fake")
	fp.textReply = "export function App() { return null }"
	phase, store, bus := newTestRepair(t, fp)
	ctx := context.Background()
	_, err := store.WriteFile(ctx, "src/app.tsx", "broken content")
	require.NoError(t, err)

	pc := &types.PipelineContext{
		RepairAttempts:     1,
		PreviousErrorCount: 1,
		FileCheckpoint:     map[string]string{"src/app.tsx": "checkpointed content"},
		Verification: types.VerificationErrors{
			TSCErrors: []types.TSCError{
				{FilePath: "src/app.tsx", Code: "TS2304", Message: "Cannot find name 'x'."},
				{FilePath: "src/other.tsx", Code: "TS2304", Message: "Cannot find name 'y'."},
			},
		},
	}
	outcome, err := phase.Execute(ctx, pc)
	require.NoError(t, err)
	assert.Equal(t, ResultLoop, outcome.Result)
	assert.Equal(t, 2, pc.RepairAttempts)

	msg := <-bus.Events()
	var evt types.Event
	require.NoError(t, decodeEvent(msg.Payload, &evt))
	msg.Ack()
	assert.Equal(t, types.EventDelta, evt.Type)
}

func TestRepairStopsAtRetryCapAndClearsErrors(t *testing.T) {
	fp := newFakeProvider("fake")
	phase, _, _ := newTestRepair(t, fp)

	pc := &types.PipelineContext{
		RepairAttempts:     maxRepairRetries,
		PreviousErrorCount: 1,
		Verification: types.VerificationErrors{
			TSCErrors: []types.TSCError{{FilePath: "src/app.tsx", Code: "TS2304", Message: "boom"}},
		},
	}
	outcome, err := phase.Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, ResultContinue, outcome.Result)
	assert.False(t, pc.Verification.HasErrors())
	assert.Nil(t, pc.FileCheckpoint)
}

func TestRepairSynthesizesMissingStylesheetPlaceholder(t *testing.T) {
	fp := newFakeProvider("fake")
	fp.textReply = "export function App() { return null }"
	phase, store, _ := newTestRepair(t, fp)
	ctx := context.Background()
	_, err := store.WriteFile(ctx, "src/App.tsx", "import './App.css'")
	require.NoError(t, err)

	pc := &types.PipelineContext{
		Verification: types.VerificationErrors{
			MissingImportErrors: []types.MissingImportError{
				{FilePath: "src/App.tsx", Specifier: "./App.css"},
			},
		},
	}
	_, err = phase.Execute(ctx, pc)
	require.NoError(t, err)

	assert.True(t, store.Exists("src/App.css"))
	content, err := store.ReadFile(ctx, "src/App.css")
	require.NoError(t, err)
	assert.Contains(t, content, "placeholder")
}

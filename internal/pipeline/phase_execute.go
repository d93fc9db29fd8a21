package pipeline

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/executor"
	"github.com/opencode-ai/opencode/internal/logging"
	"github.com/opencode-ai/opencode/internal/provider"
	"github.com/opencode-ai/opencode/internal/serializer"
	"github.com/opencode-ai/opencode/internal/subprocess"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

const executeConcurrency = 5

// gitDenylist is the character set that disqualifies a git_action
// command outright, before it is ever tokenized and run.
const gitDenylist = ";|$<>"

var relativeImportRe = regexp.MustCompile(`(?:from\s+|require\()\s*["'](\.[^"']*)["']`)

// ExecutePhase concurrently dispatches an ExecutionPlan's tasks with
// per-file serialization and a bounded worker pool. Grounded on
// spec.md §4.7; the worker-pool-over-a-shared-index shape is ported
// from the teacher's internal/tool/batch.go (errgroup + per-slot
// result write), generalized from tool calls to plan tasks.
type ExecutePhase struct {
	Providers *provider.Registry
	Store     *workspace.Store
	Bus       *event.Bus
}

func NewExecutePhase(providers *provider.Registry, store *workspace.Store, bus *event.Bus) *ExecutePhase {
	return &ExecutePhase{Providers: providers, Store: store, Bus: bus}
}

func (p *ExecutePhase) Name() string { return "execute" }

func (p *ExecutePhase) Execute(ctx context.Context, pc *types.PipelineContext) (Outcome, error) {
	if pc.Plan == nil || len(pc.Plan.Tasks) == 0 {
		return Skip(), nil
	}

	p.Bus.Emit(event.Phase(types.PhaseExecuting, "building"))

	designTokens := ""
	if theme := findThemeFile(p.Store); theme != "" {
		if content, err := p.Store.ReadFile(ctx, theme); err == nil {
			designTokens = content
		}
	}
	entrypoint := findEntrypoint(p.Store)

	fileTaskCount := 0
	for _, t := range pc.Plan.Tasks {
		if t.IsFileMutation() {
			fileTaskCount++
		}
	}

	llm, err := p.Providers.Default()
	if err != nil {
		return Outcome{}, fmt.Errorf("execute: default provider: %w", err)
	}
	exec := executor.New(llm, 0)

	sem := serializer.NewPool(executeConcurrency)
	ser := serializer.New()
	var mu sync.Mutex

	transparency := buildTransparencyTasks(pc.Plan.Tasks)
	pc.Transparency = transparency
	transpIndex := make(map[string]int, len(transparency))
	for idx, tt := range transparency {
		transpIndex[tt.ID] = idx
	}
	var transpMu sync.Mutex
	setTransparencyStatus := func(taskID string, status types.TransparencyStatus) {
		transpMu.Lock()
		idx, ok := transpIndex[taskID]
		if !ok {
			transpMu.Unlock()
			return
		}
		pc.Transparency[idx].Status = status
		snapshot := append([]types.TransparencyTask(nil), pc.Transparency...)
		transpMu.Unlock()
		p.Bus.Emit(event.Transparency(snapshot))
	}
	if len(transparency) > 0 {
		p.Bus.Emit(event.Transparency(transparency))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(executeConcurrency)

	built := 0
	for i, task := range pc.Plan.Tasks {
		i, task := i, task

		if task.Kind == types.TaskChat {
			p.Bus.Emit(event.Delta(task.Content))
			continue
		}
		if !task.IsFileMutation() && task.Kind != types.TaskGitAction {
			continue
		}

		taskID := fmt.Sprintf("task-%d", i)

		if task.IsFileMutation() {
			built++
			n := built
			p.Bus.Emit(event.FileAction(types.FileActionEvent{
				ID:       taskID,
				FilePath: task.FilePath,
				FileName: path.Base(task.FilePath),
				Action:   types.FileActionStart,
				Status:   types.FileActionStatusExecuting,
			}))

			g.Go(func() error {
				release, err := sem.Acquire(gctx)
				if err != nil {
					return nil
				}
				defer release()

				p.Bus.Emit(event.Phase(types.PhaseExecuting, fmt.Sprintf("Building %s (%d of %d)", task.FilePath, n, fileTaskCount)))
				setTransparencyStatus(taskID, types.TransparencyInProgress)

				var runErr error
				_ = ser.Run(gctx, task.FilePath, func(ctx context.Context) error {
					runErr = p.runFileTask(ctx, exec, llm, task, taskID, designTokens, entrypoint, pc, &mu)
					return nil
				})
				if runErr != nil {
					logging.Warn().Err(runErr).Str("file", task.FilePath).Msg("execute: file task failed")
				}
				setTransparencyStatus(taskID, types.TransparencyDone)
				return nil
			})
			continue
		}

		g.Go(func() error {
			setTransparencyStatus(taskID, types.TransparencyInProgress)
			p.runGitAction(gctx, task, taskID, pc, &mu)
			setTransparencyStatus(taskID, types.TransparencyDone)
			return nil
		})
	}

	_ = g.Wait()

	return Continue(), nil
}

func (p *ExecutePhase) runFileTask(ctx context.Context, exec *executor.Executor, llm provider.LLMProvider, task types.Task, taskID, designTokens, entrypoint string, pc *types.PipelineContext, mu *sync.Mutex) error {
	if task.Kind == types.TaskDeleteFile {
		err := p.Store.DeleteFile(ctx, task.FilePath)
		evt := types.FileActionEvent{
			ID:       taskID,
			FilePath: task.FilePath,
			FileName: path.Base(task.FilePath),
			Action:   types.FileActionComplete,
			Status:   types.FileActionStatusComplete,
		}
		if err != nil {
			evt.Error = err.Error()
		}
		p.Bus.Emit(event.FileAction(evt))
		p.recordFileAction(pc, mu, evt)
		return err
	}

	if task.Kind == types.TaskGenerateImage {
		return p.runGenerateImage(ctx, llm, task, taskID, pc, mu)
	}

	priorContent := ""
	if p.Store.Exists(task.FilePath) {
		if content, err := p.Store.ReadFile(ctx, task.FilePath); err == nil {
			priorContent = content
		}
	}

	related := p.relatedFiles(ctx, task.FilePath, priorContent)
	if designTokens != "" {
		related["__design_tokens__"] = designTokens
	}

	req := executor.Request{
		SessionID:    pc.SessionID,
		FilePath:     task.FilePath,
		Prompt:       task.Prompt,
		FileManifest: pc.ExistingFiles,
		PriorContent: priorContent,
		RelatedFiles: related,
		IsEntrypoint: task.FilePath == entrypoint,
	}

	content, err := exec.GenerateFile(ctx, req)
	evt := types.FileActionEvent{
		ID:       taskID,
		FilePath: task.FilePath,
		FileName: path.Base(task.FilePath),
		Language: languageFor(task.FilePath),
		Action:   types.FileActionComplete,
		Status:   types.FileActionStatusComplete,
	}
	if err != nil {
		evt.Content = fmt.Sprintf("[Execution failed: %s]", err.Error())
		evt.Error = err.Error()
		p.Bus.Emit(event.FileAction(evt))
		p.recordFileAction(pc, mu, evt)
		return err
	}

	result, writeErr := p.Store.WriteFile(ctx, task.FilePath, content)
	if writeErr != nil {
		evt.Content = fmt.Sprintf("[Execution failed: %s]", writeErr.Error())
		evt.Error = writeErr.Error()
		p.Bus.Emit(event.FileAction(evt))
		p.recordFileAction(pc, mu, evt)
		return writeErr
	}

	evt.Content = content
	evt.LinesAdded = result.LinesAdded
	evt.LinesRemoved = result.LinesRemoved
	evt.Diff = result.Diff
	p.Bus.Emit(event.FileAction(evt))
	p.recordFileAction(pc, mu, evt)
	return nil
}

// imageQualitySuffixes are appended to short or vague generate_image
// prompts so the result looks considered rather than placeholder-grade.
const imageQualitySuffixes = ", high detail, professional quality, clean composition, suitable for a production web application"

func (p *ExecutePhase) runGenerateImage(ctx context.Context, llm provider.LLMProvider, task types.Task, taskID string, pc *types.PipelineContext, mu *sync.Mutex) error {
	prompt := task.Prompt
	if len(strings.Fields(prompt)) < 6 {
		prompt += imageQualitySuffixes
	}

	imgProvider := llm
	if ip, err := p.Providers.ImageProvider(); err == nil {
		imgProvider = ip
	}

	result, err := imgProvider.GenerateImage(ctx, prompt)
	evt := types.FileActionEvent{
		ID:       taskID,
		FilePath: task.FilePath,
		FileName: path.Base(task.FilePath),
		Action:   types.FileActionComplete,
		Status:   types.FileActionStatusComplete,
	}
	if err != nil {
		evt.Content = fmt.Sprintf("[Image generation failed: %s]", err.Error())
		evt.Error = err.Error()
		p.Bus.Emit(event.FileAction(evt))
		p.recordFileAction(pc, mu, evt)
		return err
	}

	if _, err := p.Store.WriteFile(ctx, task.FilePath, string(result.Data)); err != nil {
		evt.Content = fmt.Sprintf("[Image generation failed: %s]", err.Error())
		evt.Error = err.Error()
		p.Bus.Emit(event.FileAction(evt))
		p.recordFileAction(pc, mu, evt)
		return err
	}

	p.Bus.Emit(event.FileAction(evt))
	p.recordFileAction(pc, mu, evt)
	return nil
}

func (p *ExecutePhase) runGitAction(ctx context.Context, task types.Task, taskID string, pc *types.PipelineContext, mu *sync.Mutex) {
	evt := types.GitResultEvent{ID: taskID, Command: task.Command, Action: "git_action"}

	emit := func() {
		p.Bus.Emit(event.GitResult(evt))
		mu.Lock()
		pc.GitResults = append(pc.GitResults, evt)
		mu.Unlock()
	}

	command := strings.TrimSpace(task.Command)
	if !strings.HasPrefix(command, "git ") && command != "git" {
		evt.Error = "git_action command must invoke git"
		emit()
		return
	}
	if strings.ContainsAny(command, gitDenylist) {
		evt.Error = "git_action command contains a disallowed character"
		emit()
		return
	}
	if strings.TrimSpace(command) == "git push" {
		command = "git push -u origin HEAD"
		evt.Command = command
	}

	args := strings.Fields(command)[1:]
	result, err := subprocess.Run(ctx, subprocess.Spec{
		Family:  subprocess.FamilyVCS,
		Command: "git",
		Args:    args,
		Dir:     p.Store.Root(),
		Env:     []string{"GIT_CEILING_DIRECTORIES=" + path.Dir(p.Store.Root())},
	})
	if err != nil {
		evt.Error = err.Error()
		emit()
		return
	}
	evt.Output = result.Combined
	if result.ExitCode != 0 {
		evt.Error = fmt.Sprintf("git exited %d", result.ExitCode)
	}
	emit()
}

// relatedFiles reads the siblings a file's relative imports point at,
// so the Executor has enough cross-file context to keep import paths
// and exported names consistent.
func (p *ExecutePhase) relatedFiles(ctx context.Context, filePath, content string) map[string]string {
	related := make(map[string]string)
	dir := path.Dir(filePath)
	for _, m := range relativeImportRe.FindAllStringSubmatch(content, -1) {
		target := path.Clean(path.Join(dir, m[1]))
		for _, candidate := range []string{target, target + ".ts", target + ".tsx", target + ".js", target + ".jsx"} {
			if p.Store.Exists(candidate) {
				if c, err := p.Store.ReadFile(ctx, candidate); err == nil {
					related[candidate] = c
				}
				break
			}
		}
	}
	return related
}

func (p *ExecutePhase) recordFileAction(pc *types.PipelineContext, mu *sync.Mutex, evt types.FileActionEvent) {
	mu.Lock()
	defer mu.Unlock()
	pc.FileActions = append(pc.FileActions, evt)
}

// buildTransparencyTasks projects every non-chat plan task into a
// TransparencyTask. Unlike ConfirmPhase's confirmMinFileTasks-gated
// pre-execution listing, Execute always builds and tracks the full set
// through pending -> in_progress -> done, re-emitting on every change.
func buildTransparencyTasks(tasks []types.Task) []types.TransparencyTask {
	var out []types.TransparencyTask
	for i, t := range tasks {
		if t.Kind == types.TaskChat {
			continue
		}
		out = append(out, types.TransparencyTask{
			ID:          fmt.Sprintf("task-%d", i),
			Description: describeTask(t),
			Status:      types.TransparencyPending,
			PlanIndex:   i,
		})
	}
	return out
}

func languageFor(filePath string) string {
	switch path.Ext(filePath) {
	case ".ts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".js":
		return "javascript"
	case ".jsx":
		return "jsx"
	case ".css":
		return "css"
	case ".json":
		return "json"
	default:
		return ""
	}
}

// Package subprocess is the orchestrator's Subprocess Runner: it
// invokes whitelisted command families (package installer, linter,
// type-checker, dev-server, VCS CLI) with streaming output capture and
// a hard timeout, killing the process group on expiry.
package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"
)

// Family names one of the whitelisted command families this runner
// will execute. Anything else is rejected by Run before a process is
// ever spawned.
type Family string

const (
	FamilyInstaller Family = "installer"
	FamilyLint      Family = "lint"
	FamilyTypeCheck Family = "typecheck"
	FamilyDevServer Family = "dev_server"
	FamilyVCS       Family = "vcs"
)

// allowedCommands maps each family to the executable names permitted
// under it. Run rejects any Spec whose Family/Command pair isn't listed
// here before spawning anything.
var allowedCommands = map[Family][]string{
	FamilyInstaller: {"npm", "pnpm", "yarn", "bun"},
	FamilyLint:      {"npm", "pnpm", "yarn", "bun", "eslint"},
	FamilyTypeCheck: {"npm", "pnpm", "yarn", "bun", "tsc"},
	FamilyDevServer: {"npm", "pnpm", "yarn", "bun"},
	FamilyVCS:       {"git"},
}

// ErrNotWhitelisted is returned when a Spec names a command outside
// its family's allowed set.
var ErrNotWhitelisted = errors.New("command not whitelisted for this family")

// Spec describes one subprocess invocation.
type Spec struct {
	Family  Family
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration
	// Env, if non-nil, is appended to the spawned process's environment
	// (inherited from this process) rather than replacing it, so callers
	// can pin one or two variables (e.g. a git search-ceiling) without
	// losing PATH and friends.
	Env      []string
	// OnOutput, if set, is called once per chunk as stdout/stderr
	// arrive, in addition to the aggregated Result.
	OnOutput func(chunk string)
}

// Result is the outcome of one Run.
type Result struct {
	Stdout   string
	Stderr   string
	Combined string
	ExitCode int
	TimedOut bool
}

const defaultTimeout = 120 * time.Second

// Run validates Spec against the whitelist, then executes it, streaming
// output to Spec.OnOutput as it arrives and returning the aggregated
// Result once the process exits, times out, or ctx is cancelled.
func Run(ctx context.Context, spec Spec) (Result, error) {
	allowed, ok := allowedCommands[spec.Family]
	if !ok {
		return Result{}, fmt.Errorf("unknown command family %q", spec.Family)
	}
	if !contains(allowed, spec.Command) {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNotWhitelisted, spec.Family, spec.Command)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	setProcessGroup(cmd)

	var stdoutBuf, stderrBuf, combinedBuf bytes.Buffer
	var mu sync.Mutex

	tee := func(dst *bytes.Buffer) io.Writer {
		return writerFunc(func(p []byte) (int, error) {
			mu.Lock()
			dst.Write(p)
			combinedBuf.Write(p)
			mu.Unlock()
			if spec.OnOutput != nil {
				spec.OnOutput(string(p))
			}
			return len(p), nil
		})
	}
	cmd.Stdout = tee(&stdoutBuf)
	cmd.Stderr = tee(&stderrBuf)

	err := cmd.Run()
	timedOut := runCtx.Err() == context.DeadlineExceeded

	if timedOut {
		killProcessGroup(cmd)
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && !timedOut {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{}, fmt.Errorf("run %s: %w", spec.Command, err)
		}
	}

	return Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Combined: combinedBuf.String(),
		ExitCode: exitCode,
		TimedOut: timedOut,
	}, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func setProcessGroup(cmd *exec.Cmd) {
	if runtime.GOOS == "windows" {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if runtime.GOOS == "windows" {
		_ = exec.Command("taskkill", "/pid", fmt.Sprint(cmd.Process.Pid), "/f", "/t").Run()
		return
	}
	pid := cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(200 * time.Millisecond)
	if cmd.ProcessState == nil {
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}
}

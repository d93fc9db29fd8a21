// Package devserver supervises each session's `npm run dev` process: at
// most one running per session, reused across requests, restarted on
// crash rather than on every turn. Grounded on the teacher's
// internal/vcs.Watcher (a long-lived supervised background process
// paired with a start/stop lifecycle) and internal/subprocess's
// process-group kill pattern, generalized from "watch .git/HEAD" to
// "supervise a dev server and detect when it dies."
package devserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/opencode-ai/opencode/internal/logging"
	"github.com/opencode-ai/opencode/pkg/types"
)

const readyTimeout = 20 * time.Second
const readyPollInterval = 250 * time.Millisecond

// instance is one session's running dev-server process.
type instance struct {
	cmd  *exec.Cmd
	port int
	url  string
	dead bool
}

// Manager supervises at most one dev-server process per session.
type Manager struct {
	mu        sync.Mutex
	instances map[string]*instance
}

func NewManager() *Manager {
	return &Manager{instances: make(map[string]*instance)}
}

// EnsureRunning returns the session's existing dev server if one is
// alive, or starts a new one rooted at dir and waits for it to answer
// HTTP requests before returning. Only one EnsureRunning call per
// session is ever in flight at a time; a second request while a dev
// server is already up gets the same port back immediately.
func (m *Manager) EnsureRunning(ctx context.Context, sessionID, dir string) (*types.DevServerRef, error) {
	m.mu.Lock()
	if inst, ok := m.instances[sessionID]; ok && !inst.dead {
		ref := &types.DevServerRef{Port: inst.port, PID: inst.cmd.Process.Pid, URL: inst.url}
		m.mu.Unlock()
		return ref, nil
	}
	m.mu.Unlock()

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("devserver: allocate port: %w", err)
	}

	cmd := exec.Command("npm", "run", "dev", "--", "--port", fmt.Sprint(port), "--strictPort")
	cmd.Dir = dir
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("devserver: start: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	inst := &instance{cmd: cmd, port: port, url: url}

	m.mu.Lock()
	m.instances[sessionID] = inst
	m.mu.Unlock()

	go m.supervise(sessionID, inst)

	if err := waitForReady(ctx, url, readyTimeout); err != nil {
		m.Stop(sessionID)
		return nil, fmt.Errorf("devserver: %w", err)
	}

	return &types.DevServerRef{
		Port:      port,
		PID:       cmd.Process.Pid,
		URL:       url,
		StartedAt: time.Now().Unix(),
	}, nil
}

// supervise waits for the process to exit and marks it dead so the
// next EnsureRunning call starts a fresh one instead of handing back a
// stale URL nothing is listening on.
func (m *Manager) supervise(sessionID string, inst *instance) {
	err := inst.cmd.Wait()
	m.mu.Lock()
	inst.dead = true
	m.mu.Unlock()
	if err != nil {
		logging.Session(sessionID).Warn().Err(err).Msg("devserver: process exited")
	}
}

// Stop kills a session's dev server, if one is running.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	inst, ok := m.instances[sessionID]
	delete(m.instances, sessionID)
	m.mu.Unlock()
	if !ok || inst.cmd.Process == nil {
		return
	}
	killProcessGroup(inst.cmd)
}

// IsRunning reports whether sessionID has a live dev server.
func (m *Manager) IsRunning(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[sessionID]
	return ok && !inst.dead
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitForReady(ctx context.Context, url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err == nil {
			resp, err := client.Do(req)
			if err == nil {
				resp.Body.Close()
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
	return fmt.Errorf("dev server at %s did not become ready within %s", url, timeout)
}

func setProcessGroup(cmd *exec.Cmd) {
	if runtime.GOOS == "windows" {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if runtime.GOOS == "windows" {
		_ = exec.Command("taskkill", "/pid", fmt.Sprint(cmd.Process.Pid), "/f", "/t").Run()
		return
	}
	pid := cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(200 * time.Millisecond)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

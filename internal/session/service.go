package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/opencode/internal/storage"
	"github.com/opencode-ai/opencode/pkg/types"
)

// ErrNotFound is returned by Get when no session exists with the given ID.
var ErrNotFound = errors.New("session: not found")

// ErrAlreadyActive is returned by BeginTurn when a session already has a
// turn in flight; a session processes at most one request at a time.
var ErrAlreadyActive = errors.New("session: turn already in progress")

// Service owns session lifecycle: lazy creation, lookup, deletion, and
// the per-session directory layout (workspace, uploads, chat history,
// project memory) spec.md §3 describes.
type Service struct {
	storage *storage.Storage
	root    string

	mu         sync.Mutex
	abortChans map[string]chan struct{}
}

// NewService returns a Service persisting session metadata via store
// and laying out per-session directories under root.
func NewService(store *storage.Storage, root string) *Service {
	return &Service{
		storage:    store,
		root:       root,
		abortChans: make(map[string]chan struct{}),
	}
}

func (s *Service) sessionDir(id string) string {
	return filepath.Join(s.root, id)
}

// WorkspaceDir returns the directory a session's files are written into.
func (s *Service) WorkspaceDir(id string) string {
	return filepath.Join(s.sessionDir(id), "workspace")
}

// UploadsDir returns the directory inbound attachment uploads are saved to.
func (s *Service) UploadsDir(id string) string {
	return filepath.Join(s.sessionDir(id), "uploads")
}

// MemoryPath returns the path to a session's project-memory document.
func (s *Service) MemoryPath(id string) string {
	return filepath.Join(s.sessionDir(id), "memory.md")
}

// Create allocates a new session: a ULID, an empty workspace and
// uploads directory, and a metadata record. Called lazily on the first
// request that doesn't carry a sessionId.
func (s *Service) Create(ctx context.Context) (*types.Session, error) {
	id := generateID()
	now := time.Now().UnixMilli()

	sess := &types.Session{
		ID:        id,
		Directory: s.WorkspaceDir(id),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := os.MkdirAll(sess.Directory, 0755); err != nil {
		return nil, fmt.Errorf("session: create workspace dir: %w", err)
	}
	if err := os.MkdirAll(s.UploadsDir(id), 0755); err != nil {
		return nil, fmt.Errorf("session: create uploads dir: %w", err)
	}

	if err := s.storage.Put(ctx, []string{"session", id}, sess); err != nil {
		return nil, fmt.Errorf("session: persist metadata: %w", err)
	}
	return sess, nil
}

// Get loads a session's metadata by ID.
func (s *Service) Get(ctx context.Context, id string) (*types.Session, error) {
	var sess types.Session
	if err := s.storage.Get(ctx, []string{"session", id}, &sess); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// List returns every session, most recently updated first.
func (s *Service) List(ctx context.Context) ([]*types.Session, error) {
	ids, err := s.storage.List(ctx, []string{"session"})
	if err != nil {
		return nil, err
	}

	sessions := make([]*types.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].UpdatedAt > sessions[j].UpdatedAt })
	return sessions, nil
}

// Touch loads a session, lets fn mutate it, bumps UpdatedAt, and persists
// the result.
func (s *Service) Touch(ctx context.Context, id string, fn func(*types.Session)) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(sess)
	sess.UpdatedAt = time.Now().UnixMilli()
	return s.storage.Put(ctx, []string{"session", id}, sess)
}

// SetTitle records a Plan-phase-generated title for the session.
func (s *Service) SetTitle(ctx context.Context, id, title string) error {
	return s.Touch(ctx, id, func(sess *types.Session) { sess.Title = title })
}

// SetDevServer records (or clears, with nil) the session's running
// dev-server handle.
func (s *Service) SetDevServer(ctx context.Context, id string, ref *types.DevServerRef) error {
	return s.Touch(ctx, id, func(sess *types.Session) { sess.DevServer = ref })
}

// Delete removes a session's metadata, every key stored under it
// (chat history today, whatever else is added later), and its entire
// on-disk directory (workspace, uploads, memory). Irreversible.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteTree(ctx, []string{"session", id}); err != nil {
		return fmt.Errorf("session: delete metadata: %w", err)
	}
	if err := os.RemoveAll(s.sessionDir(id)); err != nil {
		return fmt.Errorf("session: delete directory: %w", err)
	}
	return nil
}

// AppendMessage adds one message to a session's persisted chat history.
func (s *Service) AppendMessage(ctx context.Context, id string, msg types.StoredMessage) error {
	history, err := s.GetMessages(ctx, id)
	if err != nil {
		return err
	}
	history = append(history, msg)
	return s.storage.Put(ctx, []string{"session", id, "messages"}, history)
}

// GetMessages returns a session's full persisted chat history, oldest first.
func (s *Service) GetMessages(ctx context.Context, id string) ([]types.StoredMessage, error) {
	var history []types.StoredMessage
	if err := s.storage.Get(ctx, []string{"session", id, "messages"}, &history); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return history, nil
}

// BeginTurn marks a session as having a turn in flight, returning a
// channel that closes if the turn is aborted and an end func the caller
// must invoke (typically deferred) once the turn finishes. A session
// processes one turn at a time; a second concurrent request is rejected
// with ErrAlreadyActive rather than queued.
func (s *Service) BeginTurn(id string) (abort <-chan struct{}, end func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.abortChans[id]; ok {
		return nil, nil, ErrAlreadyActive
	}
	ch := make(chan struct{})
	s.abortChans[id] = ch

	end = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.abortChans[id]; ok && existing == ch {
			delete(s.abortChans, id)
		}
	}
	return ch, end, nil
}

// Abort signals the in-flight turn for id to stop, if there is one. It
// reports whether a turn was actually active.
func (s *Service) Abort(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.abortChans[id]
	if !ok {
		return false
	}
	close(ch)
	delete(s.abortChans, id)
	return true
}

// generateID returns a new lexicographically sortable session ID.
func generateID() string {
	return ulid.Make().String()
}

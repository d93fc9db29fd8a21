package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opencode-ai/opencode/internal/event"
	"github.com/opencode-ai/opencode/internal/memory"
	"github.com/opencode-ai/opencode/internal/pipeline"
	"github.com/opencode-ai/opencode/internal/session"
	"github.com/opencode-ai/opencode/internal/workspace"
	"github.com/opencode-ai/opencode/pkg/types"
)

// validateChatRequest enforces spec.md §6's request-body constraints,
// checked before any event stream is opened.
func validateChatRequest(req types.ChatRequest) error {
	if len(req.Messages) == 0 || len(req.Messages) > types.MaxMessages {
		return fmt.Errorf("messages must contain between 1 and %d entries", types.MaxMessages)
	}
	for _, m := range req.Messages {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			return fmt.Errorf("invalid message role %q", m.Role)
		}
		if len(m.Content) == 0 || len(m.Content) > types.MaxContentLength {
			return fmt.Errorf("message content must be between 1 and %d characters", types.MaxContentLength)
		}
	}
	return nil
}

// chat handles POST /api/chat: validates the request, resolves or
// creates the session, and streams the turn's Event Bus back as
// Server-Sent Events. On client disconnect or an explicit abort, the
// bus's Interrupt runs its own delta/phase-ready/done/close sequence so
// the stream still ends with a terminal event even though the pipeline
// stops doing further work at its next cooperative check.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if err := validateChatRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	ctx := r.Context()
	isNewSession := req.SessionID == nil || *req.SessionID == ""

	var sess *types.Session
	var err error
	if isNewSession {
		sess, err = s.sessions.Create(ctx)
	} else {
		sess, err = s.sessions.Get(ctx, *req.SessionID)
	}
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	abortCh, endTurn, err := s.sessions.BeginTurn(sess.ID)
	if err != nil {
		writeError(w, http.StatusConflict, ErrCodeInvalidRequest, "session already has a turn in progress")
		return
	}
	defer endTurn()

	store := workspace.New(s.sessions.WorkspaceDir(sess.ID))
	if err := store.Ensure(); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "could not prepare workspace")
		return
	}
	mem, err := memory.Load(s.sessions.MemoryPath(sess.ID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "could not load project memory")
		return
	}

	// The Bus's subscription is independent of the request's context:
	// after the client goes away, the phase in progress still runs to
	// its end, and the engine stops before the next phase once
	// Interrupt has marked the bus inactive.
	bus, err := event.New(context.Background())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "could not start event bus")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "streaming not supported")
		return
	}
	w.WriteHeader(http.StatusOK)

	bus.Emit(event.Session(sess.ID))

	pc := &types.PipelineContext{
		SessionID:    sess.ID,
		Directory:    store.Root(),
		IsNewSession: isNewSession,
		Messages:     req.Messages,
		StartedAt:    time.Now(),
	}

	engine := pipeline.Build(pipeline.Deps{
		Providers:        s.providers,
		Store:            store,
		Sessions:         s.sessions,
		Memory:           mem,
		DevServers:       s.devServers,
		Bus:              bus,
		DisableLint:      s.config.DisableLint,
		DisableTypeCheck: s.config.DisableTypeCheck,
	})

	go func() {
		engine.Run(context.Background(), pc)
		bus.Close()
	}()

	go func() {
		select {
		case <-r.Context().Done():
			bus.Interrupt(sess.ID)
		case <-abortCh:
			bus.Interrupt(sess.ID)
		}
	}()

	for msg := range bus.Events() {
		var evt types.Event
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			msg.Ack()
			continue
		}
		if writeErr := sse.writeEvent(evt); writeErr != nil {
			msg.Ack()
			break
		}
		msg.Ack()
	}
}

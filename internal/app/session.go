package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pdf-ask/internal/agent"
)

// Session is the process-wide handle requests are served through. It holds
// no agent until Start finishes, so callers can tell a warming service from
// a ready one.
type Session struct {
	deps  Deps
	agent atomic.Pointer[agent.Agent]

	mu            sync.Mutex
	pendingReload bool // requested before the agent was published
}

func NewSession(deps Deps) *Session {
	return &Session{deps: deps}
}

// Start builds the agent, extracts the document once, and then marks the
// session ready.
func (s *Session) Start(ctx context.Context) error {
	cfg := s.deps.Config
	a := agent.New(agent.Options{
		DocumentPath: cfg.DocumentPath,
		ChunkSize:    cfg.ChunkSize,
		Concurrency:  cfg.ChunkConcurrency,
		Model:        s.deps.Model,
		CacheTTL:     time.Duration(cfg.CacheTTL) * time.Second,
	}, s.deps.Source, s.deps.LLM, s.deps.Cache, s.deps.Log)

	if err := ctx.Err(); err != nil {
		return err
	}
	text := a.Document()

	s.mu.Lock()
	s.Publish(a)
	pending := s.pendingReload
	s.pendingReload = false
	s.mu.Unlock()
	s.deps.Log.Info("agent is ready", "document", cfg.DocumentPath, "chars", len(text))

	if pending {
		s.deps.Log.Info("applying reload requested during startup")
		return a.Reload(ctx)
	}
	return nil
}

// Publish makes a ready to serve requests.
func (s *Session) Publish(a *agent.Agent) {
	s.agent.Store(a)
}

// Agent returns the ready agent, or nil while the session is starting.
func (s *Session) Agent() *agent.Agent {
	return s.agent.Load()
}

func (s *Session) Ready() bool {
	return s.agent.Load() != nil
}

// Reload drops the agent's cached document and answers. A reload requested
// while the session is starting is applied once Start publishes the agent.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	a := s.agent.Load()
	if a == nil {
		s.pendingReload = true
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return a.Reload(ctx)
}

// Close tears the session down and releases shared connections.
func (s *Session) Close() error {
	s.agent.Store(nil)
	return s.deps.Close()
}

package board

import (
	"context"
	"log/slog"
	"sync"
)

// Registry hands out one opened Session per board. Sessions share a
// LoadCache so boards of the same project see the same load history.
type Registry struct {
	transport Transport
	opts      Options

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry creates an empty registry. opts is used for every session.
func NewRegistry(transport Transport, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache = NewLoadCache(0)
	}
	return &Registry{
		transport: transport,
		opts:      opts,
		sessions:  make(map[int64]*Session),
	}
}

// Session returns the session for boardID, opening it on first use. A
// session whose open failed is dropped so the next call retries. An
// already open session is refreshed, so slices another session
// invalidated are fetched again.
func (r *Registry) Session(ctx context.Context, boardID int64) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[boardID]
	r.mu.Unlock()
	if ok {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	s = NewSession(r.transport, r.opts)
	if err := s.OpenBoard(ctx, boardID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[boardID]; ok {
		return existing, nil
	}
	r.sessions[boardID] = s
	r.opts.Logger.Info("board session opened", slog.Int64("board", boardID))
	return s, nil
}

// Forget drops the session for boardID, e.g. after the board was deleted.
func (r *Registry) Forget(boardID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, boardID)
}

// Cache exposes the shared load cache.
func (r *Registry) Cache() *LoadCache {
	return r.opts.Cache
}

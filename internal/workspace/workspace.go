// Package workspace keeps the in-memory state of each signed-in user: the
// workout session controller and the schedule editor.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/schedule"
	"github.com/claude/fitlog/internal/session"
	"github.com/google/uuid"
)

// Store is everything a user's state persists through. *storage.DB satisfies it.
type Store interface {
	session.Store
	UpsertSchedule(ctx context.Context, userID uuid.UUID, days []models.DaySchedule) error
}

// State is the state of one user.
type State struct {
	Session  *session.Controller
	Schedule *schedule.Editor
}

// Registry creates user states on first access and keeps them for the
// lifetime of the process.
type Registry struct {
	store Store
	opts  session.Options
	log   *slog.Logger

	mu    sync.Mutex
	users map[uuid.UUID]*State
}

// NewRegistry returns an empty registry. opts is passed to every session controller.
func NewRegistry(store Store, opts session.Options, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	if opts.Log == nil {
		opts.Log = log
	}
	return &Registry{
		store: store,
		opts:  opts,
		log:   log,
		users: make(map[uuid.UUID]*State),
	}
}

// Get returns the state of userID, creating it if needed.
func (r *Registry) Get(userID uuid.UUID) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.users[userID]
	if !ok {
		st = &State{
			Session:  session.NewController(userID, r.store, r.opts),
			Schedule: schedule.NewEditor(userID, r.store, r.log),
		}
		r.users[userID] = st
	}
	return st
}

// Forget drops the state of userID. A session in progress is cancelled so
// its timers stop and the cancellation is recorded. Used when the rows the
// state was built from are deleted.
func (r *Registry) Forget(userID uuid.UUID) {
	r.mu.Lock()
	st, ok := r.users[userID]
	delete(r.users, userID)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := st.Session.Cancel(); err != nil && !errors.Is(err, session.ErrNoSession) {
		r.log.Warn("cancelling session of forgotten user", "user", userID, "error", err)
	}
}

// ActiveSessions returns the number of users with a session in progress.
func (r *Registry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, st := range r.users {
		if st.Session.Active() {
			n++
		}
	}
	return n
}

// Shutdown stops the timers of every running session.
func (r *Registry) Shutdown() {
	active := r.ActiveSessions()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.users {
		st.Session.Shutdown()
	}
	if active > 0 {
		r.log.Warn("shutting down with sessions in progress", "sessions", active)
	}
}

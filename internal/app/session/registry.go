/*
Package session owns the relay's roster: the ordered list of registered users and
the relation from live connection ids to the user each connection logged in as.

Every mutation goes through a single mutex, so concurrent logins racing on one name
always resolve to a single user and the connection relation never points at a user
that has left the roster.
*/
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/randx"
)

// EventKind names a roster change.
type EventKind string

const (
	// EventRegistered is a user created through PreRegister.
	EventRegistered EventKind = "registered"

	// EventJoined is a connection logging in as a user.
	EventJoined EventKind = "joined"

	// EventLeft is a user removed by logout, disconnect or a re-login under another name.
	EventLeft EventKind = "left"
)

// Event describes one roster change.
type Event struct {
	Kind EventKind
	User user.User
	At   time.Time
}

// Recorder receives roster changes in mutation order. Record is called with the
// registry lock held: implementations must not block or call back into the Registry.
type Recorder interface {
	Record(Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder routes roster changes to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry is the authoritative roster.
type Registry struct {
	mu sync.RWMutex

	// users is the roster in insertion order.
	users []user.User

	// byName maps a display name to the user's roster entry.
	byName map[string]user.User

	// conns relates a connection id to the id of the user it logged in as.
	conns map[string]string

	recorder Recorder
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRegistry returns an empty roster.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byName:   make(map[string]user.User),
		conns:    make(map[string]string),
		recorder: nopRecorder{},
		now:      time.Now,
		logger:   logx.Component("Registry"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// PreRegister creates a user for name without binding it to a connection.
// It fails with ErrNameRequired for a blank name and ErrNameTaken when the name is
// already on the roster.
func (r *Registry) PreRegister(name string) (user.User, *errs.CustomError) {
	if name == "" {
		return user.User{}, errs.NewError(errs.ErrNameRequired)
	}

	r.mu.Lock()

	if _, taken := r.byName[name]; taken {
		r.mu.Unlock()
		r.logger.Warn().Str("name", name).Msg("Pre-registration rejected: name already taken.")
		return user.User{}, errs.NewError(errs.ErrNameTaken)
	}

	u := r.insertLocked(name)
	r.emitLocked(EventRegistered, u)
	size := len(r.users)
	r.mu.Unlock()

	r.logger.Info().Str("user_id", u.ID).Str("name", u.Name).Int("roster_size", size).Msg("New user created.")

	return u, nil
}

// Login binds connID to the user called name, creating the user when the name is
// free. It never rejects a name: an existing user is reused. If connID was bound to
// a different user that no other connection holds, that user leaves the roster.
// It returns the bound user and the roster after the change.
func (r *Registry) Login(connID, name string) (user.User, []user.User) {
	var released *user.User

	r.mu.Lock()

	u, exists := r.byName[name]
	if !exists {
		u = r.insertLocked(name)
	}

	prevID, bound := r.conns[connID]
	r.conns[connID] = u.ID

	if bound && prevID != u.ID && !r.heldLocked(prevID) {
		if prev, ok := r.removeLocked(prevID); ok {
			released = &prev
			r.emitLocked(EventLeft, prev)
		}
	}

	if !bound || prevID != u.ID {
		r.emitLocked(EventJoined, u)
	}

	roster := slices.Clone(r.users)
	r.mu.Unlock()

	if released != nil {
		r.logger.Info().Str("user_id", released.ID).Str("name", released.Name).Msg("User released by re-login.")
	}

	r.logger.Info().
		Str("conn_id", connID).
		Str("user_id", u.ID).
		Str("name", u.Name).
		Bool("reused", exists).
		Int("roster_size", len(roster)).
		Msg("Connection logged in.")

	return u, roster
}

// Logout removes the user bound to connID from the roster, together with every
// connection bound to that user. The second call for the same connection is a no-op
// and reports false.
func (r *Registry) Logout(connID string) (user.User, bool) {
	r.mu.Lock()

	userID, bound := r.conns[connID]
	if !bound {
		r.mu.Unlock()
		return user.User{}, false
	}

	u, removed := r.removeLocked(userID)
	if removed {
		r.emitLocked(EventLeft, u)
	}
	size := len(r.users)
	r.mu.Unlock()

	if !removed {
		return user.User{}, false
	}

	r.logger.Info().Str("conn_id", connID).Str("user_id", u.ID).Str("name", u.Name).Int("roster_size", size).Msg("User removed from roster.")

	return u, true
}

// Disconnect is Logout triggered by the transport closing the connection.
func (r *Registry) Disconnect(connID string) (user.User, bool) {
	return r.Logout(connID)
}

// UserFor returns the user bound to connID.
func (r *Registry) UserFor(connID string) (user.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, bound := r.conns[connID]
	if !bound {
		return user.User{}, false
	}

	for _, u := range r.users {
		if u.ID == userID {
			return u, true
		}
	}
	return user.User{}, false
}

// Snapshot returns a copy of the roster in insertion order. It is never nil.
func (r *Registry) Snapshot() []user.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make([]user.User, len(r.users))
	copy(roster, r.users)
	return roster
}

// Len returns the roster size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *Registry) insertLocked(name string) user.User {
	u := user.User{ID: randx.UserID(), Name: name}
	r.users = append(r.users, u)
	r.byName[name] = u
	return u
}

// removeLocked drops userID from the roster and unbinds every connection bound to it.
func (r *Registry) removeLocked(userID string) (user.User, bool) {
	idx := slices.IndexFunc(r.users, func(u user.User) bool { return u.ID == userID })
	if idx == -1 {
		return user.User{}, false
	}

	u := r.users[idx]
	r.users = slices.Delete(r.users, idx, idx+1)
	delete(r.byName, u.Name)

	for connID, boundID := range r.conns {
		if boundID == userID {
			delete(r.conns, connID)
		}
	}

	return u, true
}

// heldLocked reports whether any connection is bound to userID.
func (r *Registry) heldLocked(userID string) bool {
	for _, boundID := range r.conns {
		if boundID == userID {
			return true
		}
	}
	return false
}

func (r *Registry) emitLocked(kind EventKind, u user.User) {
	r.recorder.Record(Event{Kind: kind, User: u, At: r.now()})
}

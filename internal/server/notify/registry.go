// Package notify implements the real-time notification fan-out: a per-process
// registry of live push connections, a broker channel shared by all server
// processes, and the listener that bridges the two. Producers only publish to
// the broker; they never touch connections directly.
package notify

import (
	"context"
	"sync"

	"eventcal-backend/internal/logging"
)

// Conn is one live push connection. Send must be safe to call from the
// listener goroutine; a non-nil error marks the connection dead.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Registry tracks the live connections of this process keyed by user id.
// A user may hold several connections (multiple tabs or devices).
type Registry struct {
	mu     sync.Mutex
	conns  map[string]map[Conn]struct{}
	logger logging.Logger
}

func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]map[Conn]struct{}),
		logger: logger,
	}
}

// Register adds a connection for the user.
func (r *Registry) Register(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a connection for the user, pruning the user entry when
// its last connection goes away. Unknown connections are ignored.
func (r *Registry) Unregister(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// Dispatch pushes payload to every live connection of the targeted users
// that are present in this process. Connections that fail to accept the push
// are closed and dropped, so delivery is best-effort and self-healing.
//
// The target set is snapshotted under the lock and the pushes happen outside
// it, so a connection that stalls in Send cannot hold up Register, Unregister
// or deliveries dispatched from other goroutines.
func (r *Registry) Dispatch(ctx context.Context, userIDs []string, payload []byte) {
	type target struct {
		userID string
		conn   Conn
	}

	r.mu.Lock()
	var targets []target
	for _, userID := range userIDs {
		for c := range r.conns[userID] {
			targets = append(targets, target{userID: userID, conn: c})
		}
	}
	r.mu.Unlock()

	for _, t := range targets {
		if err := t.conn.Send(payload); err != nil {
			r.logger.Debug(ctx, "dropping dead connection", "user_id", t.userID, "error", err)
			_ = t.conn.Close()
			r.Unregister(t.userID, t.conn)
		}
	}
}

// ConnCount returns the number of live connections held for the user.
func (r *Registry) ConnCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[userID])
}

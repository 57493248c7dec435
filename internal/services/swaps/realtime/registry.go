// Package realtime tracks the live connections of each user and fans
// messages out to them.
package realtime

import (
	"log"
	"sync"
)

// Conn is one live delivery sink. Send must be safe to call from multiple
// goroutines and should respect its own write deadline. Implementations are
// compared by identity, so use pointer types.
type Conn interface {
	Send(payload []byte) error
}

// Registry maps user ids to their open connections. The zero value is not
// usable; construct with NewRegistry.
//
// The lock only guards the map. Sends run on a snapshot outside the lock, so
// a slow connection delays other connections of the same user but never
// another user or a concurrent Register/Unregister.
type Registry struct {
	mu    sync.Mutex
	conns map[string][]Conn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string][]Conn)}
}

// Register binds conn to userID. Registering the same handle twice is a no-op.
func (r *Registry) Register(userID string, conn Conn) {
	if conn == nil || userID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.conns[userID] {
		if existing == conn {
			return
		}
	}
	r.conns[userID] = append(r.conns[userID], conn)
}

// Unregister removes conn from userID and reports whether it was bound. A
// user left with no connections is removed from the registry.
func (r *Registry) Unregister(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(userID, conn)
}

func (r *Registry) removeLocked(userID string, conn Conn) bool {
	current, ok := r.conns[userID]
	if !ok {
		return false
	}
	for i, existing := range current {
		if existing != conn {
			continue
		}
		next := make([]Conn, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(r.conns, userID)
		} else {
			r.conns[userID] = next
		}
		return true
	}
	return false
}

// Connections returns a snapshot of userID's connections in registration order.
func (r *Registry) Connections(userID string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.conns[userID]
	if len(current) == 0 {
		return nil
	}
	snapshot := make([]Conn, len(current))
	copy(snapshot, current)
	return snapshot
}

// Len reports how many users currently have at least one connection.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Users returns the ids of every connected user.
func (r *Registry) Users() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		users = append(users, userID)
	}
	return users
}

// Deliver sends payload to every connection of userID and returns how many
// sends succeeded. Connections whose send fails are unregistered once the
// pass completes; the failure never stops delivery to the others.
func (r *Registry) Deliver(userID string, payload []byte) int {
	conns := r.Connections(userID)
	if len(conns) == 0 {
		return 0
	}

	delivered := 0
	var failed []Conn
	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			log.Printf("realtime: drop connection for user %s: %v", userID, err)
			failed = append(failed, conn)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		r.mu.Lock()
		for _, conn := range failed {
			r.removeLocked(userID, conn)
		}
		r.mu.Unlock()
	}
	return delivered
}

// Broadcast delivers payload to every registered user. Users are served
// concurrently and Broadcast returns once all deliveries finish.
func (r *Registry) Broadcast(payload []byte) int {
	users := r.Users()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, userID := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			n := r.Deliver(userID, payload)
			mu.Lock()
			delivered += n
			mu.Unlock()
		}(userID)
	}
	wg.Wait()
	return delivered
}

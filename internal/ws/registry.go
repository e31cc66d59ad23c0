package ws

import "sync"

// Conn is the slice of a socket.io connection the router and registry need.
// go-socket.io's Conn satisfies it, and tests substitute fakes.
type Conn interface {
	ID() string
	Emit(eventName string, v ...interface{})
}

// Registry maps participant identities to their live connection. It is
// rebuilt as clients (re)connect and never touches room state; a participant
// with no entry simply receives no broadcasts until they bind again.
type Registry struct {
	mu     sync.Mutex
	byPart map[string]Conn   // participantID -> conn
	byConn map[string]string // conn ID -> participantID
}

func NewRegistry() *Registry {
	return &Registry{
		byPart: make(map[string]Conn),
		byConn: make(map[string]string),
	}
}

// Bind records c as the live connection for participantID, replacing any
// previous binding in either direction. Binding is idempotent.
func (rg *Registry) Bind(participantID string, c Conn) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	if old, ok := rg.byPart[participantID]; ok {
		delete(rg.byConn, old.ID())
	}
	if prev, ok := rg.byConn[c.ID()]; ok {
		delete(rg.byPart, prev)
	}
	rg.byPart[participantID] = c
	rg.byConn[c.ID()] = participantID
}

// Unbind resolves c back to whatever identity it carries and drops the
// mapping. Unbinding an unknown connection is a no-op. The resolved
// participant id is returned for logging.
func (rg *Registry) Unbind(c Conn) string {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	participantID, ok := rg.byConn[c.ID()]
	if !ok {
		return ""
	}
	delete(rg.byConn, c.ID())
	if cur, ok := rg.byPart[participantID]; ok && cur.ID() == c.ID() {
		delete(rg.byPart, participantID)
	}
	return participantID
}

// Lookup returns the live connection for a participant, if any.
func (rg *Registry) Lookup(participantID string) (Conn, bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	c, ok := rg.byPart[participantID]
	return c, ok
}

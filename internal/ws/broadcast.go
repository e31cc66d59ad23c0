package ws

import (
	"github.com/junyaoluo/mysteryroom/internal/game"
)

// The Server is the store's Notifier. The store invokes these while holding
// its lock, which is what serializes broadcasts with mutations; handlers here
// must therefore never call back into the store.

// RoomUpdated pushes the full room value to the room audience: every
// connection currently bound to one of the room's participants, resolved at
// broadcast time rather than cached.
func (srv *Server) RoomUpdated(r *game.Room) {
	for _, p := range r.Participants {
		if c, ok := srv.registry.Lookup(p.ID); ok {
			c.Emit("roomUpdated", r)
		}
	}
}

// RoomListUpdated pushes the room directory to every connection on the
// server. Only directory changes go global; in-room state never does.
func (srv *Server) RoomListUpdated(rooms []*game.Room) {
	for _, c := range srv.connections() {
		c.Emit("roomListUpdated", rooms)
	}
}

// MessagePosted pushes one message to the room audience.
func (srv *Server) MessagePosted(r *game.Room, m *game.Message) {
	for _, p := range r.Participants {
		if c, ok := srv.registry.Lookup(p.ID); ok {
			c.Emit("messagePosted", m)
		}
	}
}

func (srv *Server) track(c Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.conns[c.ID()] = c
}

func (srv *Server) untrack(c Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.conns, c.ID())
}

func (srv *Server) connections() []Conn {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	out := make([]Conn, 0, len(srv.conns))
	for _, c := range srv.conns {
		out = append(out, c)
	}
	return out
}

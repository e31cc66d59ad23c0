package ws

import (
	"testing"

	"github.com/junyaoluo/mysteryroom/internal/config"
	"github.com/junyaoluo/mysteryroom/internal/game"
)

// newTestServer wires a Server as the store's notifier, exactly as main does,
// and registers n fake connections bound to participants uA, uB, uC, ...
func newTestServer(t *testing.T, participants ...string) (*Server, []*fakeConn) {
	t.Helper()
	srv := New(config.Config{})
	srv.Store = game.NewStore(srv)

	conns := make([]*fakeConn, 0, len(participants))
	for i, pid := range participants {
		c := &fakeConn{id: string(rune('a' + i))}
		srv.track(c)
		srv.registry.Bind(pid, c)
		conns = append(conns, c)
	}
	return srv, conns
}

func TestRoomUpdateReachesRoomAudienceOnly(t *testing.T) {
	srv, conns := newTestServer(t, "uA", "uB", "uC")
	room := srv.Store.CreateRoom("Manor", "uA", "A", nil)
	srv.Store.Join(room.ID, "uB", "B")
	for _, c := range conns {
		c.events = nil
	}

	srv.Store.AssignRole(room.ID, "uB", "doctor")

	if conns[0].count("roomUpdated") != 1 || conns[1].count("roomUpdated") != 1 {
		t.Fatal("both members should receive the room update")
	}
	if conns[2].count("roomUpdated") != 0 {
		t.Fatal("uC is not in the room and must not receive room updates")
	}
}

func TestHostLeaveScenario(t *testing.T) {
	srv, conns := newTestServer(t, "uA", "uB", "uC")
	room := srv.Store.CreateRoom("Manor", "uA", "A", nil)
	srv.Store.Join(room.ID, "uB", "B")
	srv.Store.Join(room.ID, "uC", "C")
	for _, c := range conns {
		c.events = nil
	}

	if err := srv.Store.Leave(room.ID, "uA"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}

	got, _ := srv.Store.Room(room.ID)
	if got.HostID != "uB" {
		t.Fatalf("expected uB as new host, got %s", got.HostID)
	}

	// room update goes to the remaining members, not the departed host
	if conns[1].count("roomUpdated") != 1 || conns[2].count("roomUpdated") != 1 {
		t.Fatal("remaining members should receive the room update")
	}
	if conns[0].count("roomUpdated") != 0 {
		t.Fatal("the departed host must not receive the room update")
	}

	// the directory change reaches every connection, member or not
	for i, c := range conns {
		if c.count("roomListUpdated") != 1 {
			t.Fatalf("conn %d expected 1 room-list update, got %d", i, c.count("roomListUpdated"))
		}
	}
}

func TestDuplicateClueEmitsNothing(t *testing.T) {
	srv, conns := newTestServer(t, "uA")
	room := srv.Store.CreateRoom("Manor", "uA", "A", nil)
	for _, c := range conns {
		c.events = nil
	}

	srv.Store.DiscoverClue(room.ID, "blood-stain")
	if conns[0].count("roomUpdated") != 1 {
		t.Fatalf("first discovery should broadcast, got %d", conns[0].count("roomUpdated"))
	}

	srv.Store.DiscoverClue(room.ID, "blood-stain")
	if conns[0].count("roomUpdated") != 1 {
		t.Fatal("duplicate discovery must not broadcast")
	}
}

func TestMessageReachesRoomAudienceOnly(t *testing.T) {
	srv, conns := newTestServer(t, "uA", "uB")
	room := srv.Store.CreateRoom("Manor", "uA", "A", nil)
	for _, c := range conns {
		c.events = nil
	}

	if _, err := srv.Store.PostMessage(room.ID, "uA", "anyone in the study?", game.KindChat); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	if conns[0].count("messagePosted") != 1 {
		t.Fatal("sender is in the room and should receive the message")
	}
	if conns[1].count("messagePosted") != 0 {
		t.Fatal("uB is not in the room and must not receive the message")
	}
}

func TestUnboundParticipantIsSkipped(t *testing.T) {
	srv, conns := newTestServer(t, "uA", "uB")
	room := srv.Store.CreateRoom("Manor", "uA", "A", nil)
	srv.Store.Join(room.ID, "uB", "B")

	// uB drops the transport but stays a member
	srv.untrack(conns[1])
	srv.registry.Unbind(conns[1])
	for _, c := range conns {
		c.events = nil
	}

	srv.Store.CastVote(room.ID, "uA", "doctor")

	if conns[0].count("roomUpdated") != 1 {
		t.Fatal("bound member should receive the update")
	}
	if conns[1].count("roomUpdated") != 0 {
		t.Fatal("disconnected member has no live connection to receive on")
	}

	got, _ := srv.Store.Room(room.ID)
	if len(got.Participants) != 2 {
		t.Fatal("disconnect must not remove the participant from the room")
	}
}

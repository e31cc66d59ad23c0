package game

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrNoContentLoaded = errors.New("no content loaded")
	ErrInvalidPhase    = errors.New("invalid phase for action")
)

// Notifier receives broadcast callbacks. The store invokes it while holding
// its lock, so for any single room the callbacks arrive in mutation order and
// a client can never observe an update older than one it already has.
type Notifier interface {
	RoomUpdated(r *Room)
	RoomListUpdated(rooms []*Room)
	MessagePosted(r *Room, m *Message)
}

type nopNotifier struct{}

func (nopNotifier) RoomUpdated(*Room)             {}
func (nopNotifier) RoomListUpdated([]*Room)       {}
func (nopNotifier) MessagePosted(*Room, *Message) {}

// Store owns every live room. All access goes through its methods; each
// operation reads, mutates and broadcasts under one lock acquisition.
type Store struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	notify   Notifier
	nextSeq  int
	created  map[string]int // roomID -> creation sequence, for stable listing
}

func NewStore(n Notifier) *Store {
	if n == nil {
		n = nopNotifier{}
	}
	return &Store{rooms: make(map[string]*Room), notify: n, created: make(map[string]int)}
}

// CreateRoom allocates a room with the initiator as its host. It cannot fail;
// field presence is enforced at the transport boundary.
func (st *Store) CreateRoom(name, participantID, participantName string, content json.RawMessage) *Room {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := &Room{
		ID:     uuid.NewString(),
		Name:   name,
		HostID: participantID,
		Participants: []*Participant{
			{ID: participantID, Name: participantName, IsHost: true},
		},
		Phase:             PhaseWaiting,
		RoleAssignments:   make(map[string]string),
		DiscoveredClueIDs: []string{},
		Votes:             make(map[string]string),
		Content:           content,
	}
	st.rooms[r.ID] = r
	st.created[r.ID] = st.nextSeq
	st.nextSeq++

	st.notify.RoomListUpdated(st.listLocked())
	return r.snapshot()
}

// Room returns a point-in-time snapshot of one room.
func (st *Store) Room(id string) (*Room, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	r := st.rooms[id]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r.snapshot(), nil
}

// Rooms returns a snapshot of the directory in creation order.
func (st *Store) Rooms() []*Room {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.listLocked()
}

// Join adds a participant to a room. Joining a room one is already in is the
// reconnect case: the membership is untouched and no directory update fires,
// but the room audience is still refreshed so the rejoiner catches up.
func (st *Store) Join(roomID, participantID, participantName string) (*Room, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	if r.participant(participantID) != nil {
		snap := r.snapshot()
		st.notify.RoomUpdated(snap)
		return snap, nil
	}

	r.Participants = append(r.Participants, &Participant{ID: participantID, Name: participantName})
	snap := r.snapshot()
	st.notify.RoomUpdated(snap)
	st.notify.RoomListUpdated(st.listLocked())
	return snap, nil
}

// Leave removes a participant. Emptying a room deletes it outright; there is
// no per-room update in that case since nobody is left to receive one. When
// the host departs, host status passes to the earliest remaining joiner.
func (st *Store) Leave(roomID, participantID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return ErrRoomNotFound
	}

	kept := r.Participants[:0]
	for _, p := range r.Participants {
		if p.ID != participantID {
			kept = append(kept, p)
		}
	}
	r.Participants = kept

	if len(r.Participants) == 0 {
		delete(st.rooms, roomID)
		delete(st.created, roomID)
		st.notify.RoomListUpdated(st.listLocked())
		return nil
	}

	if r.HostID == participantID {
		r.HostID = r.Participants[0].ID
		r.Participants[0].IsHost = true
	}
	st.notify.RoomUpdated(r.snapshot())
	st.notify.RoomListUpdated(st.listLocked())
	return nil
}

// StartGame moves a waiting room into the reading phase. It is the only
// transition with a precondition beyond ordering: the room must have a script
// loaded.
func (st *Store) StartGame(roomID string) (*Room, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	if len(r.Content) == 0 {
		return nil, ErrNoContentLoaded
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrInvalidPhase
	}
	r.Phase = PhaseReading
	snap := r.snapshot()
	st.notify.RoomUpdated(snap)
	return snap, nil
}

// AdvancePhase steps the room to the next phase in order. No skipping, no
// regression; advancing past ending fails. Leaving the waiting phase goes
// through StartGame, which owns the content precondition.
func (st *Store) AdvancePhase(roomID string) (*Room, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	if r.Phase == PhaseWaiting {
		return nil, ErrInvalidPhase
	}
	next := r.Phase.Next()
	if next == "" {
		return nil, ErrInvalidPhase
	}
	r.Phase = next
	snap := r.snapshot()
	st.notify.RoomUpdated(snap)
	return snap, nil
}

// AssignRole records a role for a participant. Last write wins; neither
// membership nor role uniqueness is checked.
func (st *Store) AssignRole(roomID, participantID, roleID string) (*Room, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	r.RoleAssignments[participantID] = roleID
	snap := r.snapshot()
	st.notify.RoomUpdated(snap)
	return snap, nil
}

// DiscoverClue marks a clue as found. Rediscovering a clue is a silent no-op:
// unlike every other mutation it produces no broadcast at all.
func (st *Store) DiscoverClue(roomID, clueID string) (*Room, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	if r.hasClue(clueID) {
		return r.snapshot(), nil
	}
	r.DiscoveredClueIDs = append(r.DiscoveredClueIDs, clueID)
	snap := r.snapshot()
	st.notify.RoomUpdated(snap)
	return snap, nil
}

// CastVote records a participant's vote for a role. Last write per voter
// wins, so votes can change until a tally is read.
func (st *Store) CastVote(roomID, participantID, roleID string) (*Room, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	r.Votes[participantID] = roleID
	snap := r.snapshot()
	st.notify.RoomUpdated(snap)
	return snap, nil
}

// PostMessage appends to the room's timeline and broadcasts the message to
// the room audience. Messages are never mutated or dropped while the room
// lives, and no phase restricts posting.
func (st *Store) PostMessage(roomID, senderID, body string, kind MessageKind) (*Message, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	if kind == "" {
		kind = KindChat
	}
	m := &Message{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		Kind:      kind,
	}
	r.messages = append(r.messages, m)
	cp := *m
	st.notify.MessagePosted(r.snapshot(), &cp)
	return &cp, nil
}

// Messages returns the room's timeline in creation order.
func (st *Store) Messages(roomID string) ([]*Message, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	r := st.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	out := make([]*Message, 0, len(r.messages))
	for _, m := range r.messages {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (st *Store) listLocked() []*Room {
	out := make([]*Room, 0, len(st.rooms))
	for _, r := range st.rooms {
		out = append(out, r.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return st.created[out[i].ID] < st.created[out[j].ID]
	})
	return out
}

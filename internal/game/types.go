package game

import (
	"encoding/json"
	"time"
)

type Phase string

const (
	PhaseWaiting       Phase = "waiting"
	PhaseReading       Phase = "reading"
	PhaseInvestigation Phase = "investigation"
	PhaseDiscussion    Phase = "discussion"
	PhaseVoting        Phase = "voting"
	PhaseEnding        Phase = "ending"
)

// phaseOrder is the only legal progression; phases never regress.
var phaseOrder = []Phase{
	PhaseWaiting,
	PhaseReading,
	PhaseInvestigation,
	PhaseDiscussion,
	PhaseVoting,
	PhaseEnding,
}

// Next returns the phase following p, or "" when p is terminal or unknown.
func (p Phase) Next() Phase {
	for i, ph := range phaseOrder {
		if ph == p && i+1 < len(phaseOrder) {
			return phaseOrder[i+1]
		}
	}
	return ""
}

type MessageKind string

const (
	KindChat   MessageKind = "chat"
	KindSystem MessageKind = "system"
	KindAI     MessageKind = "ai"
)

type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// Room is the authoritative state of one live session. Content is an opaque
// script blob imported elsewhere; the core stores and forwards it verbatim.
type Room struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	HostID            string            `json:"hostId"`
	Participants      []*Participant    `json:"participants"`
	Phase             Phase             `json:"phase"`
	RoleAssignments   map[string]string `json:"roleAssignments"`
	ActiveSceneID     string            `json:"activeSceneId"`
	DiscoveredClueIDs []string          `json:"discoveredClueIds"`
	Votes             map[string]string `json:"votes"`
	Content           json.RawMessage   `json:"content,omitempty"`

	messages []*Message
}

type Message struct {
	ID        string      `json:"id"`
	SenderID  string      `json:"senderId"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"createdAt"`
	Kind      MessageKind `json:"kind"`
}

// hasClue reports whether clueID was already discovered.
func (r *Room) hasClue(clueID string) bool {
	for _, id := range r.DiscoveredClueIDs {
		if id == clueID {
			return true
		}
	}
	return false
}

func (r *Room) participant(participantID string) *Participant {
	for _, p := range r.Participants {
		if p.ID == participantID {
			return p
		}
	}
	return nil
}

// snapshot returns a deep copy safe to hand outside the store lock.
func (r *Room) snapshot() *Room {
	out := &Room{
		ID:                r.ID,
		Name:              r.Name,
		HostID:            r.HostID,
		Phase:             r.Phase,
		ActiveSceneID:     r.ActiveSceneID,
		Content:           r.Content,
		Participants:      make([]*Participant, 0, len(r.Participants)),
		RoleAssignments:   make(map[string]string, len(r.RoleAssignments)),
		DiscoveredClueIDs: make([]string, len(r.DiscoveredClueIDs)),
		Votes:             make(map[string]string, len(r.Votes)),
	}
	for _, p := range r.Participants {
		cp := *p
		out.Participants = append(out.Participants, &cp)
	}
	for k, v := range r.RoleAssignments {
		out.RoleAssignments[k] = v
	}
	copy(out.DiscoveredClueIDs, r.DiscoveredClueIDs)
	for k, v := range r.Votes {
		out.Votes[k] = v
	}
	return out
}

package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportTranscript appends a plain-text record of a finished session to
// filename: final room state followed by the full message timeline. Callers
// pass snapshots, so no store lock is held while writing.
func ExportTranscript(r *Room, msgs []*Message, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	names := make(map[string]string, len(r.Participants))
	for _, p := range r.Participants {
		names[p.ID] = p.Name
	}
	display := func(id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return id
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session %q (%s)\n", r.Name, r.ID))
	sb.WriteString(strings.Repeat("=", 50) + "\n")

	sb.WriteString("Participants:\n")
	for _, p := range r.Participants {
		line := fmt.Sprintf("- %s", p.Name)
		if p.IsHost {
			line += " (host)"
		}
		if roleID := r.RoleAssignments[p.ID]; roleID != "" {
			line += fmt.Sprintf(" as %s", roleID)
		}
		sb.WriteString(line + "\n")
	}

	if len(r.DiscoveredClueIDs) > 0 {
		sb.WriteString(fmt.Sprintf("Clues found: %s\n", strings.Join(r.DiscoveredClueIDs, ", ")))
	}
	if len(r.Votes) > 0 {
		sb.WriteString("Votes:\n")
		for voterID, roleID := range r.Votes {
			sb.WriteString(fmt.Sprintf("- %s -> %s\n", display(voterID), roleID))
		}
	}

	if len(msgs) > 0 {
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		for _, m := range msgs {
			stamp := m.CreatedAt.Format("15:04:05")
			switch m.Kind {
			case KindSystem:
				sb.WriteString(fmt.Sprintf("[%s] * %s\n", stamp, m.Body))
			case KindAI:
				sb.WriteString(fmt.Sprintf("[%s] AI: %s\n", stamp, m.Body))
			default:
				sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", stamp, display(m.SenderID), m.Body))
			}
		}
	}
	sb.WriteString("\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

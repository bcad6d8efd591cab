// Package memory provides the two-layer conversational memory: a
// short-term sliding window over the caller's turns and a long-term
// per-profile fact store.
package memory

import (
	"fmt"
	"strings"
)

// Turn is one conversation turn, owned by the caller. Memory reads a
// trailing window and never mutates it.
type Turn struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// DefaultShortWindow is the number of trailing turns included in the
// short-term context block.
const DefaultShortWindow = 6

// FormatRecent renders the last window turns as "role: content" lines.
func FormatRecent(turns []Turn, window int) string {
	if window <= 0 {
		window = DefaultShortWindow
	}
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	lines := make([]string, len(turns))
	for i, turn := range turns {
		role := turn.Role
		if role == "" {
			role = "user"
		}
		lines[i] = fmt.Sprintf("%s: %s", role, turn.Content)
	}
	return strings.Join(lines, "\n")
}

package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Profile is the persisted long-term memory for one profile ID. It is
// mutated only by summarization via idempotent set-union merge and never
// deleted by the engine.
type Profile struct {
	Facts         []string       `json:"facts"`
	TopicProgress map[string]any `json:"topic_progress"`
}

// LongTermStore persists one JSON document per profile ID.
type LongTermStore struct {
	dir string
}

// NewLongTermStore creates a long-term store rooted at dir.
func NewLongTermStore(dir string) (*LongTermStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create memory directory %s", dir)
	}
	return &LongTermStore{dir: dir}, nil
}

func (s *LongTermStore) path(profileID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("long_term_%s.json", profileID))
}

// Load reads the profile, returning an empty profile when the file is
// missing or unreadable.
func (s *LongTermStore) Load(profileID string) *Profile {
	empty := &Profile{Facts: []string{}, TopicProgress: map[string]any{}}

	raw, err := os.ReadFile(s.path(profileID))
	if err != nil {
		return empty
	}
	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		slog.Warn("long-term memory file malformed, starting empty",
			"profile_id", profileID, "error", err)
		return empty
	}
	if profile.Facts == nil {
		profile.Facts = []string{}
	}
	if profile.TopicProgress == nil {
		profile.TopicProgress = map[string]any{}
	}
	return &profile
}

// Save writes the profile document.
func (s *LongTermStore) Save(profileID string, profile *Profile) error {
	raw, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal long-term memory")
	}
	if err := os.WriteFile(s.path(profileID), raw, 0o644); err != nil {
		return errors.Wrap(err, "write long-term memory")
	}
	return nil
}

// MergeFacts unions newFacts into the profile, preserving existing order
// and appending unseen facts in input order. Returns true when the
// profile changed.
func (p *Profile) MergeFacts(newFacts []string) bool {
	existing := make(map[string]struct{}, len(p.Facts))
	for _, f := range p.Facts {
		existing[f] = struct{}{}
	}
	changed := false
	for _, f := range newFacts {
		if _, ok := existing[f]; ok {
			continue
		}
		existing[f] = struct{}{}
		p.Facts = append(p.Facts, f)
		changed = true
	}
	return changed
}

package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lectern/lectern/plugin/ai"
)

const (
	// DefaultMinTurns is the conversation length below which
	// summarization is a no-op.
	DefaultMinTurns = 8
	// DefaultMaxTurns is how many trailing turns are summarized.
	DefaultMaxTurns = 16
)

const summarizePrompt = "From the conversation, extract persistent student facts/preferences/goals " +
	"and any difficulties. Output 3-6 concise bullet points. Avoid ephemeral content."

// Service merges short-term and long-term memory into generation context
// blocks and summarizes conversations into persistent facts.
type Service struct {
	store  *LongTermStore
	llm    ai.LLMService
	logger *slog.Logger
}

// NewService creates a memory service rooted at dir. The LLM is used only
// for summarization and may be nil when summarization is not needed.
func NewService(dir string, llm ai.LLMService, logger *slog.Logger) (*Service, error) {
	store, err := NewLongTermStore(dir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, llm: llm, logger: logger}, nil
}

// Contexts returns up to two context blocks: the short-term window of
// recent turns and the long-term fact list. Empty blocks are omitted.
func (s *Service) Contexts(turns []Turn, profileID string, shortWindow int) []ai.Context {
	var contexts []ai.Context

	if shortTerm := FormatRecent(turns, shortWindow); shortTerm != "" {
		contexts = append(contexts, ai.Context{Source: "memory:short_term", Text: shortTerm})
	}

	profile := s.store.Load(profileID)
	if len(profile.Facts) > 0 {
		lines := make([]string, len(profile.Facts))
		for i, fact := range profile.Facts {
			lines[i] = "- " + fact
		}
		contexts = append(contexts, ai.Context{Source: "memory:long_term", Text: strings.Join(lines, "\n")})
	}

	return contexts
}

// SummarizeAndStore asks the backend to extract persistent facts from the
// most recent maxTurns turns and merges them into the profile via
// idempotent set-union. A no-op below minTurns; the profile is written
// only when new facts were found, so re-summarizing an unchanged
// conversation is a true no-op. Returns the newly persisted facts.
func (s *Service) SummarizeAndStore(ctx context.Context, turns []Turn, profileID string, minTurns, maxTurns int) ([]string, error) {
	if minTurns <= 0 {
		minTurns = DefaultMinTurns
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if len(turns) < minTurns || s.llm == nil {
		return nil, nil
	}

	conversation := ai.Context{Source: "conversation", Text: FormatRecent(turns, maxTurns)}
	resp, err := s.llm.Answer(ctx, summarizePrompt, []ai.Context{conversation})
	if err != nil {
		return nil, err
	}

	facts := parseBullets(resp)
	if len(facts) == 0 {
		return nil, nil
	}

	profile := s.store.Load(profileID)
	if !profile.MergeFacts(facts) {
		return nil, nil
	}
	if err := s.store.Save(profileID, profile); err != nil {
		return nil, err
	}

	s.logger.Info("long-term memory updated",
		"profile_id", profileID,
		"fact_count", len(profile.Facts))
	return facts, nil
}

// parseBullets extracts non-empty bullet lines from a response.
func parseBullets(resp string) []string {
	var facts []string
	for _, line := range strings.Split(resp, "\n") {
		fact := strings.TrimLeft(strings.TrimSpace(line), "-* ")
		if fact != "" {
			facts = append(facts, fact)
		}
	}
	return facts
}

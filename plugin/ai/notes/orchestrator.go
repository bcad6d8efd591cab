// Package notes turns retrieved chunk sequences into deduplicated,
// outline-aware, rate-limited markdown note sections, streamed to the
// caller as they are produced.
package notes

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/lectern/lectern/internal/observability"
	"github.com/lectern/lectern/plugin/ai"
)

const (
	// DefaultGroupSize is the number of chunks merged per backend call.
	DefaultGroupSize = 3
	// DefaultPause is the courtesy delay between group calls.
	DefaultPause = 2 * time.Second
	// outlineWindow is how many prior section summaries are replayed to
	// the backend to discourage repetition.
	outlineWindow = 5
	// outlineLineLimit caps each outline entry.
	outlineLineLimit = 120
	// minGroupChars is the triviality guard: groups below it skip the
	// backend entirely.
	minGroupChars = 50
	// minSectionChars is the non-empty guarantee threshold for backend
	// output.
	minSectionChars = 10
)

const systemPrompt = "You are an expert technical writer creating lecture-article notes for students. " +
	"Only include content a diligent student would write in a notebook: crisp definitions, key formulas, " +
	"step-by-step procedures, concise examples, short summaries, caveats, and essential code snippets. " +
	"Exclude fluff, marketing, anecdotes, and repeated text.\n\n" +
	"Formatting rules:\n" +
	"- Use clear H2/H3 headings (##, ###)\n" +
	"- Prefer short bullet lists\n" +
	"- Put code in fenced blocks with language hints when apparent (```python, ```js, etc.)\n" +
	"- Keep paragraphs short and focused\n" +
	"- Do not hallucinate; only use the provided content.\n"

var nonWordRE = regexp.MustCompile(`\W+`)

// Section is one generated notes section.
type Section struct {
	// Index is the 1-based group number.
	Index int
	// Content is the markdown body. Always non-empty: degraded output is
	// replaced by an inline-marked placeholder, never dropped.
	Content string
}

// Options control one generation run.
type Options struct {
	// Title, when set, is prepended to every group prompt.
	Title string
	// GroupSize is the number of chunks per backend call (default 3).
	GroupSize int
	// Pause is the delay between groups and the retry base delay.
	// Zero disables pausing; DefaultPause is the conventional setting.
	Pause time.Duration
	// MaxRetries bounds backend retries per group (default 3).
	MaxRetries int
}

func (o Options) withDefaults() Options {
	if o.GroupSize <= 0 {
		o.GroupSize = DefaultGroupSize
	}
	if o.Pause < 0 {
		o.Pause = 0
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

// Orchestrator drives the multi-call notes generation pipeline. The
// generation backend is resolved once at construction and held for the
// whole run.
type Orchestrator struct {
	llm    ai.LLMService
	logger *slog.Logger
}

// NewOrchestrator creates a notes orchestrator over the given backend.
func NewOrchestrator(llm ai.LLMService, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{llm: llm, logger: logger}
}

// Generate deduplicates and groups the chunks, then streams one section
// per group as soon as it is produced. Sections are never buffered for
// the whole run; each emitted section is independently valid and the loop
// is safely cancellable between groups. Backend failures for one group
// surface as an inline error placeholder and never abort the run.
func (o *Orchestrator) Generate(ctx context.Context, chunks []string, opts Options) <-chan Section {
	opts = opts.withDefaults()
	out := make(chan Section)

	go func() {
		defer close(out)
		o.run(ctx, chunks, opts, out)
	}()

	return out
}

func (o *Orchestrator) run(ctx context.Context, chunks []string, opts Options, out chan<- Section) {
	run := observability.NewRunContext(o.logger, "notes")

	unique := dedupe(chunks)
	if len(unique) == 0 {
		emit(ctx, out, Section{Index: 1, Content: "No content available to generate notes from."})
		return
	}
	run.Debug("chunks deduplicated",
		slog.Int("input", len(chunks)),
		slog.Int(observability.LogFieldChunkCount, len(unique)))

	retry := ai.RetryPolicy{
		MaxRetries: opts.MaxRetries,
		BaseDelay:  opts.Pause,
		Multiplier: 1.5,
		MaxDelay:   15 * time.Second,
	}

	var outline []string
	section := 0
	for start := 0; start < len(unique); start += opts.GroupSize {
		if ctx.Err() != nil {
			return
		}
		section++

		end := start + opts.GroupSize
		if end > len(unique) {
			end = len(unique)
		}
		content := strings.Join(unique[start:end], "\n\n")

		if len(strings.TrimSpace(content)) < minGroupChars {
			if !emit(ctx, out, Section{Index: section, Content: placeholder(section, "Content too brief to process")}) {
				return
			}
			continue
		}

		var md string
		err := retry.Do(ctx, func() error {
			var callErr error
			md, callErr = o.generateGroup(ctx, opts.Title, outlinePrefix(outline)+content)
			return callErr
		})
		if err != nil {
			run.Warn("group generation failed", slog.Int("section", section), slog.String("error", err.Error()))
			md = placeholder(section, fmt.Sprintf("Error generating notes: %s", truncate(err.Error(), 100)))
		}
		if len(strings.TrimSpace(md)) < minSectionChars {
			md = placeholder(section, "Generated content was empty or too short")
		}

		if !emit(ctx, out, Section{Index: section, Content: md}) {
			return
		}

		if line := firstLine(md); line != "" {
			outline = append(outline, truncate(line, outlineLineLimit))
		}
		if opts.Pause > 0 {
			select {
			case <-time.After(opts.Pause):
			case <-ctx.Done():
				return
			}
		}
	}

	run.Info("notes generation complete",
		slog.Int("sections", section),
		slog.Int64(observability.LogFieldDuration, run.DurationMs()))
}

func (o *Orchestrator) generateGroup(ctx context.Context, title, payload string) (string, error) {
	var prompt strings.Builder
	if title != "" {
		fmt.Fprintf(&prompt, "Title: %s\n", title)
	}
	prompt.WriteString("Create well-formatted lecture notes for the following content.\n\n")
	prompt.WriteString(payload)

	return o.llm.Chat(ctx, []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt.String()},
	})
}

// Fingerprint computes a structural fingerprint for near-exact duplicate
// detection: non-word characters stripped, lowercased, hashed.
func Fingerprint(text string) string {
	norm := nonWordRE.ReplaceAllString(strings.ToLower(text), "")
	sum := sha1.Sum([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// dedupe drops chunks whose fingerprint was already seen, keeping only
// the first occurrence.
func dedupe(chunks []string) []string {
	seen := make(map[string]struct{}, len(chunks))
	var unique []string
	for _, chunk := range chunks {
		fp := Fingerprint(chunk)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		unique = append(unique, chunk)
	}
	return unique
}

// outlinePrefix renders the anti-repetition block from the most recent
// outline entries.
func outlinePrefix(outline []string) string {
	if len(outline) == 0 {
		return ""
	}
	recent := outline
	if len(recent) > outlineWindow {
		recent = recent[len(recent)-outlineWindow:]
	}
	var b strings.Builder
	b.WriteString("Previously covered topics (do not repeat, only add new points):\n")
	for _, entry := range recent {
		fmt.Fprintf(&b, "- %s\n", entry)
	}
	b.WriteString("\n")
	return b.String()
}

func placeholder(section int, reason string) string {
	return fmt.Sprintf("## Section %d\n*%s*", section, reason)
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func emit(ctx context.Context, out chan<- Section, section Section) bool {
	select {
	case out <- section:
		return true
	case <-ctx.Done():
		return false
	}
}

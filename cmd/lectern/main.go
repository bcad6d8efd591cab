package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/observability"
	"github.com/lectern/lectern/internal/profile"
	"github.com/lectern/lectern/plugin/ai"
	"github.com/lectern/lectern/plugin/ai/ingest"
	"github.com/lectern/lectern/plugin/ai/memory"
	"github.com/lectern/lectern/plugin/ai/notes"
	"github.com/lectern/lectern/plugin/ai/retrieval"
	"github.com/lectern/lectern/plugin/textextract"
)

const version = "0.3.0"

type engine struct {
	profile  *profile.Profile
	logger   *slog.Logger
	embedder ai.EmbeddingService
	pipeline *ingest.Pipeline
	llm      ai.LLMService
}

func newEngine() (*engine, error) {
	p := &profile.Profile{Version: version}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	logger := observability.NewLogger(p.IsDev())
	slog.SetDefault(logger)

	cfg := ai.NewConfigFromProfile(p)
	embedder := ai.NewEmbeddingService(&cfg.Embedding)
	llm, err := ai.NewLLMService(&cfg.LLM)
	if err != nil {
		return nil, err
	}

	return &engine{
		profile:  p,
		logger:   logger,
		embedder: embedder,
		pipeline: ingest.NewPipeline(embedder, p.ChunkSize, p.ChunkOverlap, logger),
		llm:      llm,
	}, nil
}

func (e *engine) recordEpisode(ctx context.Context, episode memory.Episode) {
	store, err := memory.OpenEpisodicStore(filepath.Join(e.profile.MemoryDir(), "episodes.db"))
	if err != nil {
		e.logger.Warn("episodic store unavailable", "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, episode); err != nil {
		e.logger.Warn("failed to record episode", "error", err)
	}
}

// loadDocuments accepts either a JSON file of extraction results or a
// document path (file or directory) to extract locally.
func (e *engine) loadDocuments(ctx context.Context, path string) ([]ingest.ExtractionResult, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var docs []ingest.ExtractionResult
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("parse extraction results %s: %w", path, err)
		}
		return docs, nil
	}

	extractor := textextract.NewExtractor(textextract.ConfigFromEnv(), e.logger)
	return extractor.ExtractPath(ctx, path)
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path>",
		Short: "Extract, chunk, embed, and index documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			docs, err := e.loadDocuments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			storeDir, err := e.pipeline.Ingest(cmd.Context(), docs, e.profile.StoreDir())
			if err != nil {
				return err
			}
			fmt.Printf("ingested %d documents into %s\n", len(docs), storeDir)
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	var topK, fetchK int
	var lambda float64

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Diversified semantic search over the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			retriever := retrieval.NewRetriever(e.pipeline, e.embedder)
			chunks, err := retriever.Retrieve(cmd.Context(), args[0], e.profile.StoreDir(), topK,
				retrieval.Options{FetchK: fetchK, Lambda: lambda})
			if err != nil {
				return err
			}
			for _, chunk := range chunks {
				fmt.Printf("[%s chunk %d]\n%s\n\n", chunk.Source, chunk.ChunkIndex, chunk.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 5, "number of results")
	cmd.Flags().IntVar(&fetchK, "fetch-k", 0, "similarity over-fetch size (default 4*top-k)")
	cmd.Flags().Float64Var(&lambda, "lambda", retrieval.DefaultLambda, "relevance/diversity tradeoff")
	return cmd
}

func newNotesCmd() *cobra.Command {
	var title string
	var groupSize, maxRetries int
	var pause time.Duration

	cmd := &cobra.Command{
		Use:   "notes <path>",
		Short: "Generate streamed lecture notes from documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			docs, err := e.loadDocuments(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var chunks []string
			for _, doc := range docs {
				if !doc.Success {
					continue
				}
				chunks = append(chunks, ai.ChunkText(doc.Text(), e.profile.ChunkSize, e.profile.ChunkOverlap)...)
			}

			orchestrator := notes.NewOrchestrator(e.llm, e.logger)
			sections := 0
			for section := range orchestrator.Generate(cmd.Context(), chunks, notes.Options{
				Title:      title,
				GroupSize:  groupSize,
				Pause:      pause,
				MaxRetries: maxRetries,
			}) {
				fmt.Println(section.Content)
				fmt.Println()
				sections++
			}

			e.recordEpisode(cmd.Context(), memory.Episode{
				Kind:      "notes",
				UserInput: args[0],
				Outcome:   "success",
				Summary:   fmt.Sprintf("generated %d sections", sections),
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title prepended to every prompt")
	cmd.Flags().IntVar(&groupSize, "group-size", notes.DefaultGroupSize, "chunks per backend call")
	cmd.Flags().DurationVar(&pause, "pause", notes.DefaultPause, "delay between groups")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "backend retries per group")
	return cmd
}

func newChatCmd() *cobra.Command {
	var profileID string
	var topK int

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Answer a question from the index and conversation memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			question := args[0]

			memSvc, err := memory.NewService(e.profile.MemoryDir(), e.llm, e.logger)
			if err != nil {
				return err
			}
			turns, sessionPath := loadSession(e.profile.MemoryDir(), profileID)

			contexts := memSvc.Contexts(turns, profileID, memory.DefaultShortWindow)

			retriever := retrieval.NewRetriever(e.pipeline, e.embedder)
			chunks, err := retriever.Retrieve(ctx, question, e.profile.StoreDir(), topK, retrieval.Options{})
			if err != nil {
				return err
			}
			for _, chunk := range chunks {
				contexts = append(contexts, ai.Context{
					Source:     chunk.Source,
					ChunkIndex: chunk.ChunkIndex,
					Text:       chunk.Text,
				})
			}

			answer, err := e.llm.Answer(ctx, question, contexts)
			if err != nil {
				e.recordEpisode(ctx, memory.Episode{Kind: "chat", UserInput: question, Outcome: "failure", Summary: err.Error()})
				return err
			}
			fmt.Println(answer)

			turns = append(turns,
				memory.Turn{Role: "user", Content: question},
				memory.Turn{Role: "assistant", Content: answer},
			)
			saveSession(sessionPath, turns, e.logger)
			if _, err := memSvc.SummarizeAndStore(ctx, turns, profileID, memory.DefaultMinTurns, memory.DefaultMaxTurns); err != nil {
				e.logger.Warn("conversation summarization failed", "error", err)
			}

			e.recordEpisode(ctx, memory.Episode{Kind: "chat", UserInput: question, Outcome: "success", Summary: firstChars(answer, 120)})
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "default", "memory profile ID")
	cmd.Flags().IntVar(&topK, "top-k", 5, "retrieved context chunks")
	return cmd
}

func loadSession(dir, profileID string) ([]memory.Turn, string) {
	path := filepath.Join(dir, fmt.Sprintf("session_%s.json", profileID))
	var turns []memory.Turn
	if raw, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(raw, &turns)
	}
	return turns, path
}

func saveSession(path string, turns []memory.Turn, logger *slog.Logger) {
	raw, err := json.MarshalIndent(turns, "", "  ")
	if err == nil {
		err = os.WriteFile(path, raw, 0o644)
	}
	if err != nil {
		logger.Warn("failed to persist session turns", "error", err)
	}
}

func firstChars(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func main() {
	root := &cobra.Command{
		Use:     "lectern",
		Short:   "Local semantic retrieval and incremental notes engine",
		Version: version,
	}
	root.AddCommand(newIngestCmd(), newSearchCmd(), newNotesCmd(), newChatCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	enginerr "github.com/lectern/lectern/internal/errors"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Context is a retrieved or synthesized text block passed to the
// generation backend alongside a query.
type Context struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// LLMService is the generation backend interface. Hosted and local
// backends are interchangeable behind it; the backend is resolved once at
// construction and never re-derived per call.
type LLMService interface {
	// Chat performs a synchronous chat completion.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Answer answers a query strictly from the provided contexts.
	Answer(ctx context.Context, query string, contexts []Context) (string, error)
}

const answerSystemPrompt = "You are an assistant that answers strictly using the provided context. " +
	"If the answer cannot be found in the context, say 'I cannot find this in the provided documents.'"

type llmService struct {
	model       llms.Model
	maxTokens   int
	temperature float32
}

// NewLLMService creates a new LLMService for the configured provider.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)

	case "ollama":
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.BaseURL),
		)

	default:
		return nil, enginerr.InvalidArgument(fmt.Sprintf("unsupported LLM provider: %s", cfg.Provider))
	}

	if err != nil {
		return nil, err
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 800
	}

	return &llmService{
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (s *llmService) Chat(ctx context.Context, messages []Message) (string, error) {
	resp, err := s.model.GenerateContent(ctx, convertMessages(messages),
		llms.WithMaxTokens(s.maxTokens),
		llms.WithTemperature(float64(s.temperature)),
	)
	if err != nil {
		return "", enginerr.BackendTransient("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", enginerr.BackendTransient("empty chat response", nil)
	}
	return resp.Choices[0].Content, nil
}

func (s *llmService) Answer(ctx context.Context, query string, contexts []Context) (string, error) {
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s\nProvide a concise answer with citations.",
		FormatContexts(contexts), query)

	return s.Chat(ctx, []Message{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
}

// FormatContexts renders context blocks with their source citations.
func FormatContexts(contexts []Context) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		blocks[i] = fmt.Sprintf("[source: %s chunk: %d]\n%s", c.Source, c.ChunkIndex, c.Text)
	}
	return strings.Join(blocks, "\n\n")
}

func convertMessages(messages []Message) []llms.MessageContent {
	llmMessages := make([]llms.MessageContent, len(messages))
	for i, m := range messages {
		role := schema.ChatMessageTypeHuman
		switch m.Role {
		case "system":
			role = schema.ChatMessageTypeSystem
		case "assistant":
			role = schema.ChatMessageTypeAI
		}
		llmMessages[i] = llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		}
	}
	return llmMessages
}

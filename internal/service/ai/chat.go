package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"mediachat/internal/config"
)

const defaultClaudeMaxTokens = 3000

// ChatModelGenerator answers text-only requests through an eino chat model.
type ChatModelGenerator struct {
	provider string
	model    model.BaseChatModel
}

// NewChatModelGenerator builds the eino chat model for provider.
func NewChatModelGenerator(ctx context.Context, provider string, provCfg config.ProviderConfig) (*ChatModelGenerator, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		maxTokens := provCfg.MaxTokens
		if maxTokens <= 0 {
			maxTokens = defaultClaudeMaxTokens
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: maxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return &ChatModelGenerator{provider: provider, model: chatModel}, nil
}

// Stream joins the text parts into one user message and streams the reply.
func (g *ChatModelGenerator) Stream(ctx context.Context, req Request, fn ChunkFunc) (string, error) {
	if req.HasFiles() {
		return "", fmt.Errorf("%s: %w", g.provider, ErrFilePartsUnsupported)
	}
	texts := make([]string, 0, len(req.Parts))
	for _, p := range req.Parts {
		texts = append(texts, p.Text)
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	opts := []model.Option{
		model.WithTemperature(float32(req.Temperature)),
		model.WithTopP(float32(req.TopP)),
		model.WithMaxTokens(req.MaxOutputTokens),
	}
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	reader, err := g.model.Stream(ctx, []*schema.Message{schema.UserMessage(strings.Join(texts, "\n\n"))}, opts...)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	var full strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if fn != nil {
			if err := fn(full.String()); err != nil {
				return "", err
			}
		}
	}
	return full.String(), nil
}

// NewGenerators builds one generator per provider used by the model catalog.
// The gemini entry is served by the shared GeminiClient.
func NewGenerators(ctx context.Context, cfg *config.Config, gemini *GeminiClient) (map[string]Generator, error) {
	gens := make(map[string]Generator)
	for _, opt := range cfg.Models {
		if _, ok := gens[opt.Provider]; ok {
			continue
		}
		if opt.Provider == ProviderGemini {
			if gemini == nil {
				return nil, errors.New("gemini client required by model catalog")
			}
			gens[opt.Provider] = gemini
			continue
		}
		pc := cfg.Providers[opt.Provider]
		if strings.TrimSpace(pc.APIKey) == "" {
			log.Printf("provider %s has no api key, its models are unavailable", opt.Provider)
			continue
		}
		gen, err := NewChatModelGenerator(ctx, opt.Provider, pc)
		if err != nil {
			return nil, err
		}
		gens[opt.Provider] = gen
	}
	return gens, nil
}

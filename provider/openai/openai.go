package openai_provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/askweb/provider/models"
	openai "github.com/sashabaranov/go-openai"
)

// Options configures the client. BaseURL points at any OpenAI-compatible API.
type Options struct {
	APIKey          string
	BaseURL         string
	CompletionModel string
	EmbeddingModel  string
	Temperature     float64
	MaxTokens       int
	TopP            float64
}

// client implements the provider interface on top of go-openai
type client struct {
	api      *openai.Client
	defaults models.Params
	embedder string
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(opts Options) *client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	return &client{
		api: openai.NewClientWithConfig(cfg),
		defaults: models.Params{
			Model:       opts.CompletionModel,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
			TopP:        opts.TopP,
		},
		embedder: opts.EmbeddingModel,
	}
}

// Complete sends a non-streaming chat completion and returns the first choice.
func (c *client) Complete(ctx context.Context, messages []models.Message, params models.Params) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages")
	}
	p := c.merge(params)
	req := openai.ChatCompletionRequest{
		Model:       p.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: float32(p.Temperature),
		MaxTokens:   p.MaxTokens,
		TopP:        float32(p.TopP),
		Stream:      false,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// CreateEmbedding generates an embedding for each of the given texts, in input order
func (c *client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embedder),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	vecs := make([][]float32, len(data))
	for i, d := range data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

func (c *client) merge(p models.Params) models.Params {
	if p.Model == "" {
		p.Model = c.defaults.Model
	}
	if p.Temperature == 0 {
		p.Temperature = c.defaults.Temperature
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = c.defaults.MaxTokens
	}
	if p.TopP == 0 {
		p.TopP = c.defaults.TopP
	}
	return p
}

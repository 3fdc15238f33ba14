package embedding

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/askweb/provider"
)

// Embedder converts text into vectors. Prepare is called once with the chunk
// corpus of an index before any EmbedMany call on that index.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Factory returns an embedder for one index build.
type Factory func() Embedder

type Mode string

const (
	NoneMode     Mode = "none"
	TFIDFMode    Mode = "tfidf"
	ProviderMode Mode = "provider"
)

// NewFactory returns nil for NoneMode: indexes are then BM25 only.
func NewFactory(mode Mode, p provider.Provider) (Factory, error) {
	switch mode {
	case NoneMode, "":
		return nil, nil
	case TFIDFMode:
		return func() Embedder { return NewTFIDF() }, nil
	case ProviderMode:
		if p == nil {
			return nil, fmt.Errorf("embedding mode %q requires an llm provider", mode)
		}
		e := NewEmbedding(p)
		return func() Embedder { return e }, nil
	default:
		return nil, fmt.Errorf("unsupported embedding mode %q", mode)
	}
}

// Embedding calls the configured OpenAI-compatible embeddings endpoint.
type Embedding struct {
	provider provider.Provider
}

func NewEmbedding(provider provider.Provider) *Embedding {
	return &Embedding{
		provider: provider,
	}
}

func (e *Embedding) Name() string { return "provider" }

func (e *Embedding) Prepare([]string) error { return nil }

func (e *Embedding) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := e.provider.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(texts), len(vecs))
	}

	return vecs, nil
}

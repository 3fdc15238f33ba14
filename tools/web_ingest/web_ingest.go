package web_ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/mohammad-safakhou/askweb/tools/search"
)

var ErrNoValidDocuments = errors.New("no valid documents to process")

// Ingest turns scraped text into a fresh retrieval index.
type Ingest struct {
	Splitter Splitter
	Builder  search.Builder
}

func NewIngest(splitter Splitter, builder search.Builder) *Ingest {
	return &Ingest{Splitter: splitter, Builder: builder}
}

// Chunks splits blob and drops chunks that are only whitespace.
func (i Ingest) Chunks(blob string) []string {
	var out []string
	for _, c := range i.Splitter.Split(blob) {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// Build splits blob and indexes the chunks. The returned index is owned by the caller.
func (i Ingest) Build(ctx context.Context, blob string, sources []string) (search.Index, error) {
	chunks := i.Chunks(blob)
	if len(chunks) == 0 {
		return nil, ErrNoValidDocuments
	}
	return i.Builder.Build(ctx, chunks, sources)
}

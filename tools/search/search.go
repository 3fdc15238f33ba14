// Package search holds the per-session retrieval index: bleve BM25 fused with
// cosine similarity over chunk embeddings.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/mohammad-safakhou/askweb/tools/embedding"
)

const rrfK = 60 // reciprocal-rank-fusion constant

var (
	ErrEmptyIndex  = errors.New("no chunks to index")
	ErrIndexClosed = errors.New("index closed")
)

// Hit is one retrieved chunk. Similarity is the cosine between query and chunk
// vectors and is only meaningful when HasSimilarity is set.
type Hit struct {
	ID            string  `json:"id"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
	Similarity    float64 `json:"similarity"`
	HasSimilarity bool    `json:"has_similarity"`
	Rank          int     `json:"rank"`
}

type Index interface {
	Search(ctx context.Context, q string, k int) ([]Hit, error)
	Len() int
	Sources() []string
	Close() error
}

type Builder struct {
	Embedder     embedding.Factory // nil: BM25 only
	EmbedTimeout time.Duration
	Logger       *log.Logger
}

type document struct {
	Text string `json:"text"`
}

// Build indexes chunks. An embedding failure is logged and leaves the index BM25 only.
func (b Builder) Build(ctx context.Context, chunks []string, sources []string) (Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyIndex
	}
	bi, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	idx := &index{
		bleve:   bi,
		texts:   make(map[string]string, len(chunks)),
		ids:     make([]string, len(chunks)),
		sources: append([]string(nil), sources...),
		logger:  b.Logger,
		timeout: b.EmbedTimeout,
	}

	batch := bi.NewBatch()
	for i, c := range chunks {
		id := fmt.Sprintf("chunk-%04d", i)
		idx.ids[i] = id
		idx.texts[id] = c
		if err := batch.Index(id, document{Text: c}); err != nil {
			_ = bi.Close()
			return nil, fmt.Errorf("index chunk %s: %w", id, err)
		}
	}
	if err := bi.Batch(batch); err != nil {
		_ = bi.Close()
		return nil, fmt.Errorf("index batch: %w", err)
	}

	if b.Embedder != nil {
		idx.embedVectors(ctx, b.Embedder(), chunks)
	}
	return idx, nil
}

type index struct {
	mu       sync.RWMutex
	closed   bool
	bleve    bleve.Index
	texts    map[string]string
	ids      []string
	vectors  [][]float32 // aligned with ids; nil when BM25 only
	embedder embedding.Embedder
	sources  []string
	logger   *log.Logger
	timeout  time.Duration
}

func (s *index) embedVectors(ctx context.Context, e embedding.Embedder, chunks []string) {
	if err := e.Prepare(chunks); err != nil {
		s.logf("embedding %s prepare failed, using BM25 only: %v", e.Name(), err)
		return
	}
	ectx, cancel := s.withTimeout(ctx)
	defer cancel()
	vecs, err := e.EmbedMany(ectx, chunks)
	if err != nil || len(vecs) != len(chunks) {
		s.logf("embedding %s failed, using BM25 only: %v", e.Name(), err)
		return
	}
	s.vectors = vecs
	s.embedder = e
}

func (s *index) Len() int { return len(s.ids) }

func (s *index) Sources() []string { return append([]string(nil), s.sources...) }

func (s *index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.bleve.Close()
}

// Search returns at most k hits, best first.
func (s *index) Search(ctx context.Context, q string, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrIndexClosed
	}
	if k <= 0 {
		k = 1
	}

	bm, err := s.bm25(q, k*3)
	if err != nil {
		return nil, err
	}
	if s.embedder == nil {
		return truncate(bm, k), nil
	}

	qvec, err := s.embedQuery(ctx, q)
	if err != nil {
		s.logf("query embedding failed, using BM25 only: %v", err)
		return truncate(bm, k), nil
	}
	sims := make(map[string]float64, len(s.ids))
	for i, id := range s.ids {
		sims[id] = cosine(qvec, s.vectors[i])
	}
	hits := fuseRRF(bm, s.vectorRank(sims, k*3), k)
	for i := range hits {
		hits[i].Similarity = sims[hits[i].ID]
		hits[i].HasSimilarity = true
	}
	return hits, nil
}

func (s *index) bm25(q string, n int) ([]Hit, error) {
	query := bleve.NewMatchQuery(q)
	query.SetField("text")
	req := bleve.NewSearchRequestOptions(query, n, 0, false)
	res, err := s.bleve.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	out := make([]Hit, 0, len(res.Hits))
	for i, h := range res.Hits {
		out = append(out, Hit{ID: h.ID, Text: s.texts[h.ID], Score: h.Score, Rank: i + 1})
	}
	return out, nil
}

func (s *index) embedQuery(ctx context.Context, q string) ([]float32, error) {
	ectx, cancel := s.withTimeout(ctx)
	defer cancel()
	vecs, err := s.embedder.EmbedMany(ectx, []string{q})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vecs))
	}
	return vecs[0], nil
}

func (s *index) vectorRank(sims map[string]float64, n int) []Hit {
	out := make([]Hit, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, Hit{ID: id, Text: s.texts[id], Score: sims[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	out = truncate(out, n)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (s *index) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func (s *index) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func fuseRRF(a, b []Hit, k int) []Hit {
	type agg struct {
		hit   Hit
		score float64
		order int
	}
	m := map[string]*agg{}
	add := func(list []Hit) {
		for _, h := range list {
			x, ok := m[h.ID]
			if !ok {
				x = &agg{hit: h, order: len(m)}
				m[h.ID] = x
			}
			x.score += 1.0 / float64(rrfK+h.Rank)
		}
	}
	add(a)
	add(b)

	items := make([]*agg, 0, len(m))
	for _, v := range m {
		items = append(items, v)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].order < items[j].order
	})
	out := make([]Hit, 0, min(k, len(items)))
	for i := 0; i < min(k, len(items)); i++ {
		h := items[i].hit
		h.Score = items[i].score
		h.Rank = i + 1
		out = append(out, h)
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func truncate(h []Hit, k int) []Hit {
	if len(h) > k {
		return h[:k]
	}
	return h
}

package web_ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mohammad-safakhou/askweb/tools/search"
)

func TestSplitShortText(t *testing.T) {
	chunks := NewSplitter(1000, 200).Split("  Paris is the capital of France.  ")
	if len(chunks) != 1 || chunks[0] != "Paris is the capital of France." {
		t.Fatalf("unexpected chunks %q", chunks)
	}
}

func TestSplitWords(t *testing.T) {
	s := NewSplitter(10, 4)
	got := s.Split("aaa bbb ccc ddd eee")
	want := []string{"aaa bbb", "bbb ccc", "ccc ddd", "ddd eee"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSplitPrefersParagraphs(t *testing.T) {
	s := NewSplitter(20, 0)
	got := s.Split("first paragraph\n\nsecond paragraph")
	want := []string{"first paragraph", "second paragraph"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSplitLongWordFallsBackToRunes(t *testing.T) {
	s := NewSplitter(4, 2)
	got := s.Split("abcdefghij")
	if len(got) < 2 || got[0] != "abcd" {
		t.Fatalf("unexpected chunks %q", got)
	}
	for _, c := range got {
		if utf8.RuneCountInString(c) > 4 {
			t.Fatalf("chunk %q exceeds size", c)
		}
	}
}

func TestSplitBounds(t *testing.T) {
	words := strings.Repeat("Paris est la capitale de la France. ", 200)
	chunks := NewSplitter(1000, 200).Split(words)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 1000 || n == 0 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
		if c != strings.TrimSpace(c) {
			t.Fatalf("chunk %d not trimmed", i)
		}
	}
	// consecutive chunks overlap
	tail := chunks[0][len(chunks[0])-50:]
	if !strings.Contains(chunks[1], tail) {
		t.Fatalf("expected overlap between chunk 0 and 1")
	}
}

func TestIngestBuild(t *testing.T) {
	ing := NewIngest(NewSplitter(1000, 200), search.Builder{})
	idx, err := ing.Build(context.Background(), "Paris Capital of France. Paris has 2.1 million residents.", []string{"https://en.wikipedia.org/wiki/Paris"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer idx.Close()
	if idx.Len() != 1 {
		t.Fatalf("expected one chunk, got %d", idx.Len())
	}
	hits, err := idx.Search(context.Background(), "residents", 1)
	if err != nil || len(hits) != 1 {
		t.Fatalf("Search: %+v %v", hits, err)
	}
}

func TestIngestNoValidDocuments(t *testing.T) {
	ing := NewIngest(NewSplitter(1000, 200), search.Builder{})
	for _, blob := range []string{"", "   \n\n\t "} {
		if _, err := ing.Build(context.Background(), blob, nil); !errors.Is(err, ErrNoValidDocuments) {
			t.Fatalf("blob %q: expected ErrNoValidDocuments, got %v", blob, err)
		}
	}
}

package retriever

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammad-safakhou/askweb/tools/web_fetch/cache"
	fetchmodels "github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
	searchmodels "github.com/mohammad-safakhou/askweb/tools/web_search/models"
)

type fakeSearcher struct {
	results []searchmodels.Result
	err     error
	gotK    int
}

func (f *fakeSearcher) Discover(ctx context.Context, q string, k int) ([]searchmodels.Result, error) {
	f.gotK = k
	return f.results, f.err
}

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]fetchmodels.Page
	calls    map[string]int
	inflight int32
	peak     int32
	delay    time.Duration
}

func (f *fakeFetcher) Exec(ctx context.Context, url string) (fetchmodels.Page, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[url]++
	p, ok := f.pages[url]
	if !ok {
		return fetchmodels.Page{}, errors.New("boom")
	}
	return p, nil
}

func links(urls ...string) []searchmodels.Result {
	out := make([]searchmodels.Result, len(urls))
	for i, u := range urls {
		out[i] = searchmodels.Result{URL: u}
	}
	return out
}

func TestRetrieveAccumulatesPages(t *testing.T) {
	s := &fakeSearcher{results: links("https://a.example", "ftp://bad.example", "https://b.example", "https://down.example")}
	f := &fakeFetcher{pages: map[string]fetchmodels.Page{
		"https://a.example": {Headings: []string{"A"}, Paragraphs: []string{"a1", "a2"}},
		"https://b.example": {Headings: []string{"B"}, Paragraphs: []string{"b1"}},
	}}
	r := &Retriever{Searcher: s, Fetcher: f, Workers: 2, MaxResults: 4}

	res, err := r.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if s.gotK != 4 {
		t.Fatalf("expected k=4, got %d", s.gotK)
	}
	if len(res.Links) != 4 {
		t.Fatalf("invalid links must still be reported, got %v", res.Links)
	}
	if f.calls["ftp://bad.example"] != 0 {
		t.Fatal("non-http link was scraped")
	}
	sort.Strings(res.Headings)
	sort.Strings(res.Paragraphs)
	if len(res.Headings) != 2 || res.Headings[0] != "A" || res.Headings[1] != "B" {
		t.Fatalf("unexpected headings %v", res.Headings)
	}
	if len(res.Paragraphs) != 3 {
		t.Fatalf("unexpected paragraphs %v", res.Paragraphs)
	}
}

func TestRetrievePermitSkipsBlockedLinks(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fetchmodels.Page{
		"https://ok.example":      {Paragraphs: []string{"kept"}},
		"https://blocked.example": {Paragraphs: []string{"dropped"}},
	}}
	r := &Retriever{
		Searcher: &fakeSearcher{results: links("https://ok.example", "https://blocked.example")},
		Fetcher:  f,
		Workers:  2,
		Permit:   func(link string) bool { return !strings.Contains(link, "blocked") },
	}
	res, err := r.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Links) != 2 {
		t.Fatalf("blocked links must still be reported, got %v", res.Links)
	}
	if f.calls["https://blocked.example"] != 0 {
		t.Fatal("blocked link was scraped")
	}
	if len(res.Paragraphs) != 1 || res.Paragraphs[0] != "kept" {
		t.Fatalf("unexpected paragraphs %v", res.Paragraphs)
	}
}

func TestRetrieveScrapesDuplicateLinksOnce(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fetchmodels.Page{
		"https://a.example/post": {Paragraphs: []string{"once"}},
	}}
	r := &Retriever{
		Searcher: &fakeSearcher{results: links("https://a.example/post", "https://A.example/post?utm_source=feed#top")},
		Fetcher:  f,
		Workers:  2,
	}
	res, err := r.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Links) != 2 {
		t.Fatalf("duplicate links must still be reported, got %v", res.Links)
	}
	if len(res.Paragraphs) != 1 || f.calls["https://a.example/post"] != 1 {
		t.Fatalf("expected a single scrape, got paragraphs %v calls %v", res.Paragraphs, f.calls)
	}
}

func TestRetrieveBoundedWorkers(t *testing.T) {
	urls := []string{"https://1.example", "https://2.example", "https://3.example", "https://4.example", "https://5.example", "https://6.example"}
	pages := map[string]fetchmodels.Page{}
	for _, u := range urls {
		pages[u] = fetchmodels.Page{Paragraphs: []string{u}}
	}
	f := &fakeFetcher{pages: pages, delay: 20 * time.Millisecond}
	r := &Retriever{Searcher: &fakeSearcher{results: links(urls...)}, Fetcher: f, Workers: 2, MaxResults: 6}

	res, err := r.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Paragraphs) != len(urls) {
		t.Fatalf("expected %d paragraphs, got %d", len(urls), len(res.Paragraphs))
	}
	if peak := atomic.LoadInt32(&f.peak); peak > 2 {
		t.Fatalf("worker limit exceeded: peak=%d", peak)
	}
}

func TestRetrieveSearchError(t *testing.T) {
	r := &Retriever{Searcher: &fakeSearcher{err: errors.New("quota")}, Fetcher: &fakeFetcher{}}
	if _, err := r.Retrieve(context.Background(), "q"); err == nil {
		t.Fatal("expected search error")
	}
}

func TestRetrieveNoLinks(t *testing.T) {
	r := &Retriever{Searcher: &fakeSearcher{}, Fetcher: &fakeFetcher{}}
	res, err := r.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Links) != 0 || res.Text() != "" {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestRetrieveUsesCache(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{pages: map[string]fetchmodels.Page{
		"https://a.example": {Paragraphs: []string{"fresh"}},
	}}
	c := cache.NewMemory(time.Minute)
	r := &Retriever{Searcher: &fakeSearcher{results: links("https://a.example")}, Fetcher: f, Cache: c, Workers: 1}

	for i := 0; i < 2; i++ {
		res, err := r.Retrieve(ctx, "q")
		if err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
		if len(res.Paragraphs) != 1 || res.Paragraphs[0] != "fresh" {
			t.Fatalf("unexpected paragraphs %v", res.Paragraphs)
		}
	}
	if f.calls["https://a.example"] != 1 {
		t.Fatalf("expected one fetch, got %d", f.calls["https://a.example"])
	}
}

func TestResultText(t *testing.T) {
	r := Result{Headings: []string{"H"}, Paragraphs: []string{"p1", "p2"}}
	if got := r.Text(); got != "H p1 p2" {
		t.Fatalf("unexpected text %q", got)
	}
}

package web_search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSerperDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("X-API-KEY") != "k" {
			t.Errorf("unexpected request: %s key=%q", r.Method, r.Header.Get("X-API-KEY"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["q"] != "capital of France" {
			t.Errorf("unexpected query: %v", body["q"])
		}
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"Paris","link":"https://en.wikipedia.org/wiki/Paris","snippet":"capital"},
			{"title":"no link"},
			{"title":"France","link":"https://en.wikipedia.org/wiki/France"},
			{"title":"extra","link":"https://example.com/extra"}]}`))
	}))
	defer srv.Close()

	s, err := NewWebSearcher(SerperProvider, Options{APIKey: "k", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewWebSearcher: %v", err)
	}
	res, err := s.Discover(context.Background(), "capital of France", 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res) != 2 || res[0].URL != "https://en.wikipedia.org/wiki/Paris" || res[1].Title != "France" {
		t.Fatalf("unexpected results: %+v", res)
	}
}

func TestBraveDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "best pasta" || r.URL.Query().Get("count") != "3" {
			t.Errorf("unexpected query string: %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Subscription-Token") != "k" {
			t.Errorf("missing subscription token")
		}
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"Carbonara","url":"https://example.com/carbonara","description":"<strong>eggs</strong> &amp; cheese"}]}}`))
	}))
	defer srv.Close()

	s, _ := NewWebSearcher(BraveProvider, Options{APIKey: "k", Endpoint: srv.URL})
	res, err := s.Discover(context.Background(), "best pasta", 3)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res) != 1 || res[0].Snippet != "eggs & cheese" || res[0].Title != "Carbonara" {
		t.Fatalf("unexpected results: %+v", res)
	}
}

func TestGoogleDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "cse" || q.Get("num") != "3" {
			t.Errorf("unexpected query string: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"items":[{"title":"Paris","link":"https://paris.fr","snippet":"city"},{"title":"empty","link":" "}]}`))
	}))
	defer srv.Close()

	s, err := NewWebSearcher(GoogleProvider, Options{APIKey: "k", CSEID: "cse", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewWebSearcher: %v", err)
	}
	res, err := s.Discover(context.Background(), "paris", 3)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res) != 1 || res[0].URL != "https://paris.fr" {
		t.Fatalf("unexpected results: %+v", res)
	}
}

func TestDiscoverNoItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s, _ := NewWebSearcher(GoogleProvider, Options{APIKey: "k", CSEID: "cse", Endpoint: srv.URL})
	res, err := s.Discover(context.Background(), "nothing", 3)
	if err != nil || len(res) != 0 {
		t.Fatalf("expected empty result, got %+v, %v", res, err)
	}
}

func TestDiscoverHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	for _, p := range []Provider{SerperProvider, BraveProvider, GoogleProvider} {
		s, _ := NewWebSearcher(p, Options{APIKey: "k", CSEID: "cse", Endpoint: srv.URL})
		if _, err := s.Discover(context.Background(), "q", 3); err == nil {
			t.Fatalf("%s: expected error on 403", p)
		}
	}
}

func TestNewWebSearcherErrors(t *testing.T) {
	if _, err := NewWebSearcher("bing", Options{}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
	if _, err := NewWebSearcher(GoogleProvider, Options{APIKey: "k"}); err == nil {
		t.Fatal("expected error without cse id")
	}
}

package web_search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/askweb/tools/web_search/brave"
	"github.com/mohammad-safakhou/askweb/tools/web_search/google"
	"github.com/mohammad-safakhou/askweb/tools/web_search/models"
	"github.com/mohammad-safakhou/askweb/tools/web_search/serper"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
	GoogleProvider Provider = "google"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

// Options configures a searcher. Endpoint overrides the provider's public URL.
type Options struct {
	APIKey   string
	CSEID    string
	Endpoint string
	Timeout  time.Duration
}

func NewWebSearcher(provider Provider, opts Options) (WebSearcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	hc := &http.Client{Timeout: opts.Timeout}

	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: opts.APIKey, Endpoint: opts.Endpoint, Client: hc}, nil
	case BraveProvider:
		return brave.Search{ApiKey: opts.APIKey, Endpoint: opts.Endpoint, Client: hc}, nil
	case GoogleProvider:
		if opts.CSEID == "" {
			return nil, fmt.Errorf("google search requires a custom search engine id")
		}
		return google.Search{ApiKey: opts.APIKey, CX: opts.CSEID, Endpoint: opts.Endpoint, Client: hc}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

package web_fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/askweb/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/static"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
)

type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Page, error)
}

type FetcherType string

const (
	ChromedpFetcherType FetcherType = "chromedp"
	StaticFetcherType   FetcherType = "static"
)

func NewWebFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int, userAgent string) (WebFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case ChromedpFetcherType:
		return chromedp.Fetch{Timeout: timeout, MaxChars: maxChars, UserAgent: userAgent}, nil
	case StaticFetcherType:
		return static.Fetch{Timeout: timeout, MaxChars: maxChars, UserAgent: userAgent}, nil
	default:
		return nil, fmt.Errorf("unsupported fetcher type %q", fetcherType)
	}
}

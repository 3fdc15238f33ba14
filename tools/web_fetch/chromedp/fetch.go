package chromedp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/extract"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
)

type Fetch struct {
	Timeout   time.Duration // per page, covers browser start, navigation and rendering
	MaxChars  int           // Maximum characters of extracted text
	UserAgent string
}

func (f Fetch) Exec(ctx context.Context, url string) (models.Page, error) {
	if strings.TrimSpace(url) == "" {
		return models.Page{}, errors.New("invalid url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	// Headless browsing
	html, err := fetchHTML(ctx, url, f.UserAgent)
	if err != nil {
		return models.Page{URL: url, Status: 599, RenderMS: elapsedMS(t0)}, err
	}

	page, err := extract.Parse(strings.NewReader(html), url, f.MaxChars)
	if err != nil {
		return models.Page{URL: url, Status: 200, RenderMS: elapsedMS(t0)}, err
	}
	page.Status = 200
	page.RenderMS = elapsedMS(t0)
	return page, nil
}

func fetchHTML(ctx context.Context, url, userAgent string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func elapsedMS(t0 time.Time) int { return int(time.Since(t0) / time.Millisecond) }

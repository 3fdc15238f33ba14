// Package static fetches pages with a plain HTTP GET, without running scripts.
package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/askweb/tools/web_fetch/extract"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
)

const maxBodyBytes = 5 << 20

type Fetch struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
	Client    *http.Client
}

func (f Fetch) Exec(ctx context.Context, url string) (models.Page, error) {
	if strings.TrimSpace(url) == "" {
		return models.Page{}, errors.New("invalid url")
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Page{}, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Page{URL: url, Status: 599}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return models.Page{URL: url, Status: resp.StatusCode}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	page, err := extract.Parse(io.LimitReader(resp.Body, maxBodyBytes), url, f.MaxChars)
	if err != nil {
		return models.Page{URL: url, Status: resp.StatusCode}, err
	}
	page.Status = resp.StatusCode
	page.RenderMS = int(time.Since(t0) / time.Millisecond)
	return page, nil
}

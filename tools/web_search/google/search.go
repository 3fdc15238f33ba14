package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/askweb/tools/web_search/models"
	"github.com/mohammad-safakhou/askweb/utils"
)

const DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// Custom Search JSON API returns at most 10 items per request.
const maxPerRequest = 10

type Search struct {
	ApiKey   string
	CX       string
	Endpoint string
	Client   *http.Client
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://developers.google.com/custom-search/v1/reference/rest/v1/cse/list
	if k <= 0 {
		k = 3
	}
	num := k
	if num > maxPerRequest {
		num = maxPerRequest
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	url := fmt.Sprintf("%s?key=%s&cx=%s&q=%s&num=%d", endpoint, utils.UrlQuery(s.ApiKey), utils.UrlQuery(s.CX), utils.UrlQuery(q), num)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("google: unexpected status %d", resp.StatusCode)
	}

	var raw struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("google: decode: %w", err)
	}
	out := make([]models.Result, 0, len(raw.Items))
	for _, it := range raw.Items {
		if len(out) >= k {
			break
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		out = append(out, models.Result{Title: it.Title, URL: link, Snippet: it.Snippet})
	}
	return out, nil
}

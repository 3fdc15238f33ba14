package helpers

import "testing"

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"defaults https and cleans path", "Example.com/news/../tech/latest", "https://example.com/tech/latest"},
		{"removes default port and tracking params", "http://News.Example.com:80/article?id=123&utm_source=rss#section", "http://news.example.com/article?id=123"},
		{"sorts query parameters and preserves trailing slash", "https://example.com/path/?b=2&a=1&fbclid=xyz", "https://example.com/path/?a=1&b=2"},
		{"schemeless with double slash", "//blog.example.com/post/42?utm_medium=email", "https://blog.example.com/post/42"},
		{"repeated slashes", "https://example.com//a//b///c", "https://example.com/a/b/c"},
		{"bare host", "https://example.com", "https://example.com/"},
		{"keeps non-default port", "https://example.com:8443/x", "https://example.com:8443/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalURL(tt.in)
			if err != nil {
				t.Fatalf("CanonicalURL() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanonicalURL() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalURLErrors(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   ", "http://"} {
		if _, err := CanonicalURL(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestCanonicalURLMergesVariants(t *testing.T) {
	a, _ := CanonicalURL("https://example.com/a?x=1&utm_campaign=z#top")
	b, _ := CanonicalURL("HTTPS://EXAMPLE.com:443/a?x=1")
	if a != b {
		t.Fatalf("expected equal canonical forms, got %q and %q", a, b)
	}
}

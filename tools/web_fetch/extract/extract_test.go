package extract

import (
	"strings"
	"testing"
)

const sample = `<html><head><title> Paris - Wikipedia </title><script>var x = "<p>no</p>";</script></head>
<body>
<h2>History</h2>
<h1>Paris</h1>
<p>Paris is the <b>capital</b> and largest city of France.</p>
<p>   </p>
<div><h3>Population</h3><p>About 2.1 million
residents.</p></div>
<style>p { color: red }</style>
</body></html>`

func TestParseHeadingsAndParagraphs(t *testing.T) {
	page, err := Parse(strings.NewReader(sample), "https://en.wikipedia.org/wiki/Paris", 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if page.Title != "Paris - Wikipedia" {
		t.Fatalf("unexpected title %q", page.Title)
	}
	wantHeadings := []string{"Paris", "History", "Population"}
	if strings.Join(page.Headings, "|") != strings.Join(wantHeadings, "|") {
		t.Fatalf("headings = %v, want %v", page.Headings, wantHeadings)
	}
	wantParas := []string{"Paris is the capital and largest city of France.", "About 2.1 million residents."}
	if strings.Join(page.Paragraphs, "|") != strings.Join(wantParas, "|") {
		t.Fatalf("paragraphs = %v, want %v", page.Paragraphs, wantParas)
	}
}

func TestParseMaxChars(t *testing.T) {
	page, err := Parse(strings.NewReader(sample), "https://example.com", 10)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	total := 0
	for _, s := range append(page.Headings, page.Paragraphs...) {
		total += len([]rune(s))
	}
	if total > 10 {
		t.Fatalf("extracted %d chars, want <= 10", total)
	}
	if len(page.Headings) == 0 || page.Headings[0] != "Paris" {
		t.Fatalf("expected the first heading to survive, got %v", page.Headings)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	page, err := Parse(strings.NewReader(`<html><body></body></html>`), "https://example.com", 100)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !page.Empty() {
		t.Fatalf("expected empty page, got %+v", page)
	}
}
